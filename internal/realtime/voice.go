package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// VoiceUser is one roster entry.
type VoiceUser struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// voiceRooms holds the signaling membership tables. The server never looks
// inside offer/answer/ice payloads; it is a pure addressed forwarder
// within a room.
type voiceRooms struct {
	log *zap.Logger

	mu       sync.Mutex
	rooms    map[string]map[string]*Client // roomID → socketID → client
	byClient map[string]string             // socketID → roomID
}

func newVoiceRooms(logger *zap.Logger) *voiceRooms {
	return &voiceRooms{
		log:      logger.Named("voice"),
		rooms:    make(map[string]map[string]*Client),
		byClient: make(map[string]string),
	}
}

// join enters c into roomID, acknowledges with the caller's socket id,
// delivers the roster, and tells the room's existing members.
func (v *voiceRooms) join(c *Client, roomID string) {
	v.mu.Lock()
	if prev, ok := v.byClient[c.ID]; ok && prev != roomID {
		v.leaveLocked(c)
	}
	if v.rooms[roomID] == nil {
		v.rooms[roomID] = make(map[string]*Client)
	}
	for _, peer := range v.rooms[roomID] {
		trySend(peer, outbound{
			Event: "voice:user-joined",
			Data:  VoiceUser{SocketID: c.ID, Username: c.Username},
		})
	}
	v.rooms[roomID][c.ID] = c
	v.byClient[c.ID] = roomID

	roster := make([]VoiceUser, 0, len(v.rooms[roomID]))
	for _, member := range v.rooms[roomID] {
		roster = append(roster, VoiceUser{SocketID: member.ID, Username: member.Username})
	}
	v.mu.Unlock()

	trySend(c, outbound{
		Event: "voice:joined",
		Data:  map[string]string{"socketId": c.ID, "roomId": roomID},
	})
	trySend(c, outbound{
		Event: "voice:room-users",
		Data:  map[string]any{"users": roster},
	})
	v.log.Debug("voice join", zap.String("room", roomID), zap.String("socket", c.ID))
}

// relay forwards one signaling frame to the target socket, but only when
// sender and target share a room. The send stays under v.mu: disconnect
// removes a client from these tables before its send channel closes, so a
// target found here still has an open channel.
func (v *voiceRooms) relay(c *Client, event string, msg voiceSignalMsg) {
	v.mu.Lock()
	roomID, inRoom := v.byClient[c.ID]
	var target *Client
	if inRoom {
		target = v.rooms[roomID][msg.TargetID]
	}
	if target != nil {
		trySend(target, outbound{
			Event: event,
			Data: map[string]any{
				"fromId":   c.ID,
				"username": c.Username,
				"payload":  msg.Payload,
			},
		})
	}
	v.mu.Unlock()

	if target == nil {
		c.sendError("not-found", "no such peer in your voice room")
	}
}

// leave removes c from its room and notifies the remaining peers.
func (v *voiceRooms) leave(c *Client) {
	v.mu.Lock()
	v.leaveLocked(c)
	v.mu.Unlock()
}

func (v *voiceRooms) leaveLocked(c *Client) {
	roomID, ok := v.byClient[c.ID]
	if !ok {
		return
	}
	delete(v.byClient, c.ID)
	members := v.rooms[roomID]
	delete(members, c.ID)
	if len(members) == 0 {
		delete(v.rooms, roomID)
		return
	}
	for _, peer := range members {
		trySend(peer, outbound{
			Event: "voice:user-left",
			Data:  VoiceUser{SocketID: c.ID, Username: c.Username},
		})
	}
}

// trySend never blocks; a full buffer just loses the frame for that
// client, and the read side will notice the dead connection soon enough.
func trySend(c *Client, msg outbound) {
	select {
	case c.send <- msg:
	default:
	}
}
