package lobby

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"acquire-backend/internal/apperr"
	"acquire-backend/internal/events"
	"acquire-backend/internal/game"
)

// Caps bounds residency and drives the reaper.
type Caps struct {
	MaxLobbies            int
	MaxActiveGames        int
	LobbyIdleTimeout      time.Duration
	GameIdleTimeout       time.Duration
	FinishedGameRetention time.Duration
	CleanupInterval       time.Duration
}

// Record pairs a lobby with its game, if one has started. The embedded
// mutex is the unit of mutual exclusion for every lobby or game mutation;
// callers lock it around any access to the fields below.
type Record struct {
	sync.Mutex

	Lobby            *Lobby
	Game             *game.Game
	GameStartedAt    time.Time
	GameLastActivity time.Time
	Finished         bool
	FinishedAt       time.Time
}

// TouchGame refreshes the game's idle clock. Callers hold the record lock.
func (r *Record) TouchGame(now time.Time) {
	r.GameLastActivity = now
}

// Manager is the process-wide registry. Its own mutex guards the records
// map and the residency counters only; whoever holds it never blocks on a
// record lock, so records may safely take the registry lock while held.
type Manager struct {
	mu          sync.Mutex
	records     map[string]*Record
	openLobbies int // non-expired lobbies
	activeGames int // attached and not finished

	caps Caps
	now  func() time.Time
	log  *zap.Logger
}

// NewManager builds a registry. A nil clock means time.Now.
func NewManager(caps Caps, clock func() time.Time, logger *zap.Logger) *Manager {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		records: make(map[string]*Record),
		caps:    caps,
		now:     clock,
		log:     logger.Named("lobby"),
	}
}

// Now exposes the injected clock for callers that stamp activity.
func (m *Manager) Now() time.Time { return m.now() }

// newLobbyID mints a 16-hex token, re-rolling on the unlikely collision.
// Callers hold m.mu.
func (m *Manager) newLobbyID() string {
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		id := hex.EncodeToString(buf)
		if _, exists := m.records[id]; !exists {
			return id
		}
	}
}

// CreateLobby opens a room with host seated, subject to the lobby cap.
func (m *Manager) CreateLobby(host string, size Size) (*Record, error) {
	if host == "" {
		return nil, apperr.New(apperr.Validation, "username is required")
	}
	if size.Min < game.MinPlayers {
		size.Min = game.MinPlayers
	}
	if size.Max <= 0 || size.Max > game.MaxPlayers {
		size.Max = game.MaxPlayers
	}
	if size.Max < size.Min {
		return nil, apperr.New(apperr.Validation, "lobby size %d-%d is invalid", size.Min, size.Max)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openLobbies >= m.caps.MaxLobbies {
		return nil, apperr.New(apperr.Capacity, "server is at its lobby limit, try again later")
	}
	id := m.newLobbyID()
	rec := &Record{Lobby: NewLobby(id, host, size, m.now())}
	m.records[id] = rec
	m.openLobbies++
	m.log.Info("lobby created", zap.String("lobby", id), zap.String("host", host))
	return rec, nil
}

// Get looks up a record by lobby id.
func (m *Manager) Get(id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no lobby %q", id)
	}
	return rec, nil
}

// ListLobbies returns the public listing: non-expired rooms, newest first.
func (m *Manager) ListLobbies() []events.LobbySummary {
	m.mu.Lock()
	recs := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	m.mu.Unlock()

	out := make([]events.LobbySummary, 0, len(recs))
	for _, rec := range recs {
		rec.Lock()
		l := rec.Lobby
		if !l.Expired {
			out = append(out, events.LobbySummary{
				ID:          l.ID,
				Host:        l.Host(),
				PlayerCount: len(l.Players),
				MaxPlayers:  l.Size.Max,
				IsFull:      l.IsFull(),
				CreatedAt:   l.CreatedAt,
			})
		}
		rec.Unlock()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// StartGame deals a match for the lobby and expires the room. Only the
// host may start, the lobby must have enough players, and the active-game
// cap applies.
func (m *Manager) StartGame(id, username string, shuffle game.ShuffleFunc) (*game.Game, error) {
	rec, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	rec.Lock()
	defer rec.Unlock()
	l := rec.Lobby
	if !l.HasPlayer(username) {
		return nil, apperr.New(apperr.Unauthorized, "you are not in this lobby")
	}
	if l.Host() != username {
		return nil, apperr.New(apperr.Forbidden, "only the host can start the game")
	}
	if rec.Game != nil || l.Expired {
		return nil, apperr.New(apperr.State, "the game has already started")
	}
	if !l.CanStart() {
		return nil, apperr.New(apperr.Validation, "need at least %d players to start", l.Size.Min)
	}

	m.mu.Lock()
	if m.activeGames >= m.caps.MaxActiveGames {
		m.mu.Unlock()
		return nil, apperr.New(apperr.Capacity, "server is at its game limit, try again later")
	}
	m.activeGames++
	m.openLobbies--
	m.mu.Unlock()

	g, err := game.NewGame(append([]string(nil), l.Players...), shuffle)
	if err != nil {
		m.mu.Lock()
		m.activeGames--
		m.openLobbies++
		m.mu.Unlock()
		return nil, err
	}

	now := m.now()
	l.Expire(now)
	rec.Game = g
	rec.GameStartedAt = now
	rec.GameLastActivity = now
	m.log.Info("game started", zap.String("lobby", id), zap.Int("players", len(l.Players)))
	return g, nil
}

// LoadGame attaches a restored game to a fresh lobby record, for resuming
// a saved match. The lobby is born expired.
func (m *Manager) LoadGame(snap game.Snapshot) (*Record, error) {
	g, err := game.Restore(snap)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeGames >= m.caps.MaxActiveGames {
		return nil, apperr.New(apperr.Capacity, "server is at its game limit, try again later")
	}
	now := m.now()
	id := m.newLobbyID()
	var usernames []string
	for _, p := range snap.Players {
		usernames = append(usernames, p.Username)
	}
	l := &Lobby{
		ID:             id,
		Size:           Size{Min: game.MinPlayers, Max: game.MaxPlayers},
		Players:        usernames,
		Expired:        true,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	rec := &Record{Lobby: l, Game: g, GameStartedAt: now, GameLastActivity: now}
	m.records[id] = rec
	m.activeGames++
	m.log.Info("game loaded", zap.String("lobby", id), zap.Int("players", len(usernames)))
	return rec, nil
}

// FinishGame marks the record's game done so the reaper can retire it
// after the retention window.
func (m *Manager) FinishGame(id string) {
	rec, err := m.Get(id)
	if err != nil {
		return
	}
	rec.Lock()
	already := rec.Finished
	if !already {
		rec.Finished = true
		rec.FinishedAt = m.now()
	}
	rec.Unlock()
	if already {
		return
	}
	m.mu.Lock()
	m.activeGames--
	m.mu.Unlock()
	m.log.Info("game finished", zap.String("lobby", id))
}

// Run drives the reaper until ctx is cancelled. One sweep at a time.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.caps.CleanupInterval)
	defer ticker.Stop()
	log := m.log.Named("reaper")
	log.Info("reaper running", zap.Duration("interval", m.caps.CleanupInterval))
	for {
		select {
		case <-ctx.Done():
			log.Info("reaper stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep applies the reclamation rules once. Records busy with a request
// are skipped rather than stalled on; the next sweep gets them.
func (m *Manager) Sweep() {
	now := m.now()

	m.mu.Lock()
	recs := make(map[string]*Record, len(m.records))
	for id, rec := range m.records {
		recs[id] = rec
	}
	m.mu.Unlock()

	for id, rec := range recs {
		if !rec.TryLock() {
			continue
		}
		reason := m.reapReason(rec, now)
		wasOpen := !rec.Lobby.Expired
		wasActive := rec.Game != nil && !rec.Finished
		rec.Unlock()
		if reason == "" {
			continue
		}

		m.mu.Lock()
		if _, still := m.records[id]; still {
			delete(m.records, id)
			if wasOpen {
				m.openLobbies--
			}
			if wasActive {
				m.activeGames--
			}
		}
		m.mu.Unlock()
		m.log.Info("reaped", zap.String("lobby", id), zap.String("reason", reason))
	}
}

// reapReason names which rule retires the record, or "" to keep it.
// Callers hold the record lock.
func (m *Manager) reapReason(rec *Record, now time.Time) string {
	l := rec.Lobby
	if len(l.Players) == 0 {
		return "empty"
	}
	if !l.Expired && now.Sub(l.LastActivityAt) > m.caps.LobbyIdleTimeout {
		return "lobby idle"
	}
	if rec.Finished && now.Sub(rec.FinishedAt) > m.caps.FinishedGameRetention {
		return "finished game retention"
	}
	if l.Expired && rec.Game != nil && !rec.Finished && now.Sub(rec.GameLastActivity) > m.caps.GameIdleTimeout {
		return "game idle"
	}
	return ""
}
