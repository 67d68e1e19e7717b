// Package realtime is the fan-out layer: three websocket namespaces with
// room-scoped broadcasting, plus the voice signaling relay. Update events
// are content-free ticks; clients re-fetch state over HTTP, so nothing
// private ever crosses a room boundary.
package realtime

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"acquire-backend/internal/events"
)

// Namespace separates the three realtime concerns.
type Namespace string

const (
	NamespaceLobby Namespace = "lobby"
	NamespaceGame  Namespace = "game"
	NamespaceVoice Namespace = "voice"
)

func (n Namespace) valid() bool {
	return n == NamespaceLobby || n == NamespaceGame || n == NamespaceVoice
}

// RoomAuthorizer decides whether username may join the room for lobbyID.
// A nil authorizer admits everyone.
type RoomAuthorizer func(ns Namespace, lobbyID, username string) bool

// Hub owns every connection and room. It implements events.Bus: mutation
// sites publish, the hub fans out. Per-client send channels are buffered;
// a client that cannot keep up is dropped so one slow reader never stalls
// a room.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	// Authorize gates room joins. Set before serving.
	Authorize RoomAuthorizer

	mu      sync.Mutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	voice *voiceRooms
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		log: logger.Named("hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
		voice:   newVoiceRooms(logger),
	}
}

// Router serves the websocket endpoints under /ws/{namespace}.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{namespace}", h.serveWS)
	return r
}

// serveWS verifies handshake credentials and upgrades. Credentials come
// from query parameters with cookie fallback; a missing username is fatal
// before the upgrade.
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	ns := Namespace(mux.Vars(r)["namespace"])
	if !ns.valid() {
		http.Error(w, "unknown namespace", http.StatusNotFound)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		if c, err := r.Cookie("username"); err == nil {
			username = c.Value
		}
	}
	if username == "" {
		http.Error(w, "username is required", http.StatusUnauthorized)
		return
	}
	lobbyID := r.URL.Query().Get("lobbyId")
	if lobbyID == "" {
		if c, err := r.Cookie("lobbyId"); err == nil {
			lobbyID = c.Value
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		ID:        uuid.NewString(),
		Username:  username,
		LobbyID:   lobbyID,
		namespace: ns,
		conn:      conn,
		send:      make(chan outbound, 16),
		hub:       h,
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	h.log.Debug("client connected",
		zap.String("socket", client.ID),
		zap.String("username", username),
		zap.String("namespace", string(ns)))

	go client.writePump()
	client.readPump()
}

// disconnect tears a client out of every table. Safe to call once per
// client; readPump owns that call. The voice leave must complete before the
// send channel closes: voice sends happen under the voice mutex, so a
// client still in those tables always has an open channel.
func (h *Hub) disconnect(c *Client) {
	if c.namespace == NamespaceVoice {
		h.voice.leave(c)
	}

	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	for key, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, key)
			}
		}
	}
	h.mu.Unlock()
	h.log.Debug("client disconnected", zap.String("socket", c.ID))
}

// drop removes a client that cannot keep up. Callers hold h.mu.
func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	for _, members := range h.rooms {
		delete(members, c)
	}
	h.log.Warn("dropped slow client", zap.String("socket", c.ID), zap.String("username", c.Username))
}

func roomKey(ns Namespace, lobbyID string) string {
	return string(ns) + ":" + lobbyID
}

// allowRoom consults the authorizer for a join request.
func (h *Hub) allowRoom(c *Client, lobbyID string) bool {
	return h.Authorize == nil || h.Authorize(c.namespace, lobbyID, c.Username)
}

func (h *Hub) joinRoom(c *Client, lobbyID string) {
	key := roomKey(c.namespace, lobbyID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[*Client]bool)
	}
	h.rooms[key][c] = true
}

// leaveAllRooms clears c's memberships within its namespace.
func (h *Hub) leaveAllRooms(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, key)
			}
		}
	}
}

// broadcastRoom delivers msg to every member of one room. Delivery order
// per client follows call order, which follows mutation order at the
// publish sites.
func (h *Hub) broadcastRoom(ns Namespace, lobbyID string, msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[roomKey(ns, lobbyID)] {
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
		}
	}
}

// broadcastNamespace delivers msg to every socket of one namespace.
func (h *Hub) broadcastNamespace(ns Namespace, msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.namespace != ns {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.dropLocked(c)
		}
	}
}

// Publish implements events.Bus.
func (h *Hub) Publish(ev events.Event) {
	switch ev := ev.(type) {
	case events.LobbyListUpdated:
		h.broadcastNamespace(NamespaceLobby, outbound{
			Event: "lobbyListUpdate",
			Data:  map[string]any{"lobbies": ev.Lobbies},
		})
	case events.LobbyUpdated:
		h.broadcastRoom(NamespaceLobby, ev.LobbyID, outbound{Event: "lobbyUpdate"})
	case events.GameUpdated:
		h.broadcastRoom(NamespaceGame, ev.LobbyID, outbound{Event: "gameUpdate"})
	case events.GameEnded:
		h.broadcastRoom(NamespaceGame, ev.LobbyID, outbound{
			Event: "gameEnd",
			Data:  map[string]any{"result": ev.Result},
		})
	}
}

// CloseAll disconnects every client, for shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		_ = c.conn.Close()
	}
}
