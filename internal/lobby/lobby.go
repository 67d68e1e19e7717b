// Package lobby holds the waiting rooms and the process-wide registry that
// bounds how many rooms and games may live at once.
package lobby

import (
	"time"

	"acquire-backend/internal/apperr"
)

// Size bounds a lobby's seat count.
type Size struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Lobby is one waiting room. The first joiner is the host; the host role
// never rotates, it simply falls to whoever sits at index 0. Not safe for
// concurrent use; the owning Record serializes access.
type Lobby struct {
	ID             string
	Size           Size
	Players        []string
	Expired        bool
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// NewLobby opens a room with the host already seated.
func NewLobby(id, host string, size Size, now time.Time) *Lobby {
	return &Lobby{
		ID:             id,
		Size:           size,
		Players:        []string{host},
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Host names the player at index 0. Empty lobbies have no host.
func (l *Lobby) Host() string {
	if len(l.Players) == 0 {
		return ""
	}
	return l.Players[0]
}

func (l *Lobby) IsFull() bool { return len(l.Players) >= l.Size.Max }

// CanStart reports whether enough players are seated.
func (l *Lobby) CanStart() bool { return len(l.Players) >= l.Size.Min }

// HasPlayer reports whether username holds a seat.
func (l *Lobby) HasPlayer(username string) bool {
	for _, p := range l.Players {
		if p == username {
			return true
		}
	}
	return false
}

// Join seats a new player. Usernames are unique within the room.
func (l *Lobby) Join(username string, now time.Time) error {
	if username == "" {
		return apperr.New(apperr.Validation, "username is required")
	}
	if l.Expired {
		return apperr.New(apperr.State, "the game has already started")
	}
	if l.HasPlayer(username) {
		return apperr.New(apperr.Conflict, "username %q is already taken in this lobby", username)
	}
	if l.IsFull() {
		return apperr.New(apperr.Unauthorized, "the lobby is full")
	}
	l.Players = append(l.Players, username)
	l.LastActivityAt = now
	return nil
}

// Leave frees username's seat. If the host leaves, the next player becomes
// host by moving to index 0.
func (l *Lobby) Leave(username string, now time.Time) error {
	if l.Expired {
		return apperr.New(apperr.State, "cannot leave after the game has started")
	}
	for i, p := range l.Players {
		if p == username {
			l.Players = append(l.Players[:i], l.Players[i+1:]...)
			l.LastActivityAt = now
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "%q is not in this lobby", username)
}

// Expire flags the room once its game starts. One-way.
func (l *Lobby) Expire(now time.Time) {
	l.Expired = true
	l.LastActivityAt = now
}

// StatusView is the lobby snapshot served to one member.
type StatusView struct {
	Players         []string `json:"players"`
	IsFull          bool     `json:"isFull"`
	HasExpired      bool     `json:"hasExpired"`
	PossibleToStart bool     `json:"isPossibleToStart"`
	Host            string   `json:"host"`
	Self            string   `json:"self"`
}

// Status renders the room as seen by forUser.
func (l *Lobby) Status(forUser string) StatusView {
	view := StatusView{
		Players:         append([]string(nil), l.Players...),
		IsFull:          l.IsFull(),
		HasExpired:      l.Expired,
		PossibleToStart: l.CanStart(),
		Host:            l.Host(),
	}
	if l.HasPlayer(forUser) {
		view.Self = forUser
	}
	return view
}
