package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type joinAck struct {
	SocketID string `json:"socketId"`
	RoomID   string `json:"roomId"`
}

type rosterFrame struct {
	Users []VoiceUser `json:"users"`
}

// joinVoice performs the join handshake and returns the assigned socket id.
func joinVoice(t *testing.T, conn *websocket.Conn, roomID string) joinAck {
	t.Helper()
	send(t, conn, "voice:join", voiceJoinMsg{RoomID: roomID})

	f := readFrame(t, conn)
	require.Equal(t, "voice:joined", f.Event)
	var ack joinAck
	require.NoError(t, json.Unmarshal(f.Data, &ack))
	require.NotEmpty(t, ack.SocketID)
	require.Equal(t, roomID, ack.RoomID)

	f = readFrame(t, conn)
	require.Equal(t, "voice:room-users", f.Event)
	return ack
}

func TestVoiceJoinAcksAndDeliversRoster(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dial(t, srv, "voice", "alice")
	joinVoice(t, alice, "room1")

	bob := dial(t, srv, "voice", "bob")
	send(t, bob, "voice:join", voiceJoinMsg{RoomID: "room1"})

	// Alice learns about bob.
	f := readFrame(t, alice)
	require.Equal(t, "voice:user-joined", f.Event)
	var joined VoiceUser
	require.NoError(t, json.Unmarshal(f.Data, &joined))
	assert.Equal(t, "bob", joined.Username)

	// Bob's roster holds both members.
	f = readFrame(t, bob)
	require.Equal(t, "voice:joined", f.Event)
	f = readFrame(t, bob)
	require.Equal(t, "voice:room-users", f.Event)
	var roster rosterFrame
	require.NoError(t, json.Unmarshal(f.Data, &roster))
	require.Len(t, roster.Users, 2)
	names := []string{roster.Users[0].Username, roster.Users[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}

func TestVoiceRelayReachesOnlyTheTarget(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dial(t, srv, "voice", "alice")
	aliceAck := joinVoice(t, alice, "room1")
	bob := dial(t, srv, "voice", "bob")
	joinVoice(t, bob, "room1")
	readFrame(t, alice) // bob's user-joined
	carol := dial(t, srv, "voice", "carol")
	joinVoice(t, carol, "room1")
	readFrame(t, alice) // carol's user-joined
	readFrame(t, bob)

	payload := json.RawMessage(`{"sdp":"offer-blob"}`)
	send(t, bob, "voice:offer", voiceSignalMsg{TargetID: aliceAck.SocketID, Payload: payload})

	f := readFrame(t, alice)
	require.Equal(t, "voice:offer", f.Event)
	var relayed struct {
		FromID   string          `json:"fromId"`
		Username string          `json:"username"`
		Payload  json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &relayed))
	assert.Equal(t, "bob", relayed.Username)
	assert.JSONEq(t, `{"sdp":"offer-blob"}`, string(relayed.Payload))

	expectSilence(t, carol)
}

func TestVoiceRelayRequiresSharedRoom(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dial(t, srv, "voice", "alice")
	aliceAck := joinVoice(t, alice, "room1")
	bob := dial(t, srv, "voice", "bob")
	joinVoice(t, bob, "room2")

	send(t, bob, "voice:answer", voiceSignalMsg{TargetID: aliceAck.SocketID, Payload: json.RawMessage(`{}`)})

	f := readFrame(t, bob)
	require.Equal(t, "error", f.Event)
	var payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(f.Data, &payload))
	assert.Equal(t, "not-found", payload.Code)
	expectSilence(t, alice)
}

func TestVoiceLeaveAndDisconnectNotifyPeers(t *testing.T) {
	_, srv := newTestServer(t)

	alice := dial(t, srv, "voice", "alice")
	joinVoice(t, alice, "room1")
	bob := dial(t, srv, "voice", "bob")
	joinVoice(t, bob, "room1")
	readFrame(t, alice) // user-joined

	send(t, bob, "voice:leave", struct{}{})
	f := readFrame(t, alice)
	require.Equal(t, "voice:user-left", f.Event)
	var left VoiceUser
	require.NoError(t, json.Unmarshal(f.Data, &left))
	assert.Equal(t, "bob", left.Username)

	carol := dial(t, srv, "voice", "carol")
	joinVoice(t, carol, "room1")
	readFrame(t, alice) // user-joined
	carol.Close()

	f = readFrame(t, alice)
	require.Equal(t, "voice:user-left", f.Event)
	require.NoError(t, json.Unmarshal(f.Data, &left))
	assert.Equal(t, "carol", left.Username)
}

// TestRelaySurvivesConcurrentDisconnect hammers relay against a target
// that is tearing down at the same time. Relays to a departed peer must
// degrade to a not-found error, never a send on a closed channel.
func TestRelaySurvivesConcurrentDisconnect(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sender := &Client{ID: "sender", Username: "alice", namespace: NamespaceVoice, send: make(chan outbound, 16), hub: hub}
	hub.mu.Lock()
	hub.clients[sender] = true
	hub.mu.Unlock()
	hub.voice.join(sender, "room1")

	for i := 0; i < 100; i++ {
		target := &Client{ID: fmt.Sprintf("peer-%d", i), Username: "bob", namespace: NamespaceVoice, send: make(chan outbound, 1), hub: hub}
		hub.mu.Lock()
		hub.clients[target] = true
		hub.mu.Unlock()
		hub.voice.join(target, "room1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			msg := voiceSignalMsg{TargetID: target.ID, Payload: json.RawMessage(`{}`)}
			for j := 0; j < 50; j++ {
				hub.voice.relay(sender, "voice:ice", msg)
			}
		}()
		go func() {
			defer wg.Done()
			hub.disconnect(target)
		}()
		wg.Wait()

		for drained := false; !drained; {
			select {
			case <-sender.send:
			default:
				drained = true
			}
		}
	}
}

func TestVoiceSignalValidation(t *testing.T) {
	_, srv := newTestServer(t)
	conn := dial(t, srv, "voice", "alice")

	send(t, conn, "voice:offer", voiceSignalMsg{Payload: json.RawMessage(`{}`)})
	f := readFrame(t, conn)
	require.Equal(t, "error", f.Event)

	send(t, conn, "voice:join", struct{}{})
	f = readFrame(t, conn)
	require.Equal(t, "error", f.Event)
}
