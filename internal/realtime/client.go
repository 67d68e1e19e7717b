package realtime

import (
	"encoding/json"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is a server-to-client frame with already-shaped data.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is one websocket connection in one namespace.
type Client struct {
	ID       string
	Username string
	LobbyID  string

	namespace Namespace
	conn      wsConn
	send      chan outbound
	hub       *Hub
}

// wsConn is the slice of *websocket.Conn the client uses; tests substitute
// a pipe-backed fake.
type wsConn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type roomRef struct {
	LobbyID string `json:"lobbyId"`
}

type voiceJoinMsg struct {
	RoomID string `json:"roomId"`
}

type voiceSignalMsg struct {
	TargetID string          `json:"targetId"`
	Payload  json.RawMessage `json:"payload"`
}

// sendError reports a per-message failure to this socket only. Errors do
// not tear down the connection.
func (c *Client) sendError(code, message string) {
	select {
	case c.send <- outbound{Event: "error", Data: map[string]string{"code": code, "message": message}}:
	default:
	}
}

// readPump dispatches inbound frames until the connection dies, then
// unwinds the client everywhere.
func (c *Client) readPump() {
	defer func() {
		c.hub.disconnect(c)
		_ = c.conn.Close()
	}()

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env Envelope) {
	switch c.namespace {
	case NamespaceLobby:
		c.dispatchRoom(env, "joinLobby", "leaveLobby")
	case NamespaceGame:
		c.dispatchRoom(env, "joinGame", "leaveGame")
	case NamespaceVoice:
		c.dispatchVoice(env)
	}
}

// dispatchRoom handles the join/leave pair shared by the lobby and game
// namespaces.
func (c *Client) dispatchRoom(env Envelope, joinEvent, leaveEvent string) {
	switch env.Event {
	case joinEvent:
		var ref roomRef
		if err := json.Unmarshal(env.Data, &ref); err != nil || ref.LobbyID == "" {
			c.sendError("validation", "lobbyId is required")
			return
		}
		if !c.hub.allowRoom(c, ref.LobbyID) {
			c.sendError("unauthorized", "you are not in this lobby")
			return
		}
		c.hub.joinRoom(c, ref.LobbyID)
	case leaveEvent:
		c.hub.leaveAllRooms(c)
	default:
		c.sendError("validation", "unknown event "+env.Event)
	}
}

func (c *Client) dispatchVoice(env Envelope) {
	switch env.Event {
	case "voice:join":
		var msg voiceJoinMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.RoomID == "" {
			c.sendError("validation", "roomId is required")
			return
		}
		c.hub.voice.join(c, msg.RoomID)
	case "voice:leave":
		c.hub.voice.leave(c)
	case "voice:offer", "voice:answer", "voice:ice":
		var msg voiceSignalMsg
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.TargetID == "" {
			c.sendError("validation", "targetId is required")
			return
		}
		c.hub.voice.relay(c, env.Event, msg)
	default:
		c.sendError("validation", "unknown event "+env.Event)
	}
}

// writePump drains the send channel onto the wire. It exits when the hub
// closes the channel.
func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
