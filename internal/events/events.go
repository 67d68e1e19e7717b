// Package events defines the typed notifications flowing from lobby/game
// mutations to the realtime hub and other subscribers. The variant set is
// closed; subscribers type-switch on it.
package events

import (
	"time"

	"acquire-backend/internal/game"
)

// Bus accepts events from mutation sites. Publish must not block on slow
// consumers; implementations fan out asynchronously or drop.
type Bus interface {
	Publish(Event)
}

// Event is the closed union of notification variants.
type Event interface{ event() }

// LobbySummary is the public listing entry for one open lobby.
type LobbySummary struct {
	ID          string    `json:"id"`
	Host        string    `json:"host"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	IsFull      bool      `json:"isFull"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LobbyListUpdated carries the fresh open-lobby listing to every lobby
// socket.
type LobbyListUpdated struct {
	Lobbies []LobbySummary
}

// LobbyUpdated is a content-free tick for one lobby room.
type LobbyUpdated struct {
	LobbyID string
}

// GameUpdated is a content-free tick for one game room; clients re-fetch
// their per-user status.
type GameUpdated struct {
	LobbyID string
}

// GameEnded carries the final result to the game room.
type GameEnded struct {
	LobbyID string
	Result  game.EndResult
}

func (LobbyListUpdated) event() {}
func (LobbyUpdated) event()     {}
func (GameUpdated) event()      {}
func (GameEnded) event()        {}

// Nop discards everything. Used by tests and as a safe default.
type Nop struct{}

func (Nop) Publish(Event) {}

// Multi fans each publish out to several buses in order.
func Multi(buses ...Bus) Bus {
	return multi(buses)
}

type multi []Bus

func (m multi) Publish(ev Event) {
	for _, b := range m {
		b.Publish(ev)
	}
}
