// Package api is the HTTP surface: identity checks, turn routing, and the
// mapping from engine errors to status codes. Every mutation that goes
// through here ends in a fan-out event for the affected rooms.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acquire-backend/internal/events"
	"acquire-backend/internal/game"
	"acquire-backend/internal/lobby"
)

// Server carries the handler dependencies.
type Server struct {
	manager *lobby.Manager
	bus     events.Bus
	log     *zap.Logger
	shuffle game.ShuffleFunc
}

// Options tunes the router; zero values get sensible production defaults.
type Options struct {
	RateLimitRPS float64
	RateBurst    int
	Shuffle      game.ShuffleFunc // tests inject determinism
	WebSocket    http.Handler     // realtime hub, mounted under /ws
}

// NewRouter wires middleware and routes onto a fresh engine.
func NewRouter(manager *lobby.Manager, bus events.Bus, logger *zap.Logger, opts Options) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = events.Nop{}
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 20
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = int(opts.RateLimitRPS)
	}
	s := &Server{
		manager: manager,
		bus:     bus,
		log:     logger.Named("api"),
		shuffle: opts.Shuffle,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/list", s.listLobbies)
	r.POST("/host", s.hostLobby)

	lobbyRoutes := r.Group("/lobby")
	{
		lobbyRoutes.POST("/:id/players", s.joinLobby)
		lobbyRoutes.GET("/:id/status", s.lobbyStatus)
		lobbyRoutes.POST("/:id/leave", s.leaveLobby)
	}

	gameRoutes := r.Group("/game")
	gameRoutes.Use(rateLimit(newRateLimiter(opts.RateLimitRPS, opts.RateBurst)))
	{
		gameRoutes.POST("/:id/start", s.startGame)
		gameRoutes.GET("/:id/status", s.gameStatus)
		gameRoutes.POST("/:id/tile", s.placeTile)
		gameRoutes.POST("/:id/establish", s.establish)
		gameRoutes.POST("/:id/buy-stocks", s.buyStocks)
		gameRoutes.POST("/:id/end-turn", s.endTurn)
		gameRoutes.POST("/:id/merger/deal", s.mergerDeal)
		gameRoutes.POST("/:id/merger/end-turn", s.mergerEndTurn)
		gameRoutes.POST("/:id/merger/resolve-conflict", s.resolveConflict)
		gameRoutes.POST("/:id/merger/resolve-acquirer", s.resolveAcquirer)
		gameRoutes.POST("/:id/merger/confirm-defunct", s.confirmDefunct)
		gameRoutes.POST("/:id/end-merge", s.endMerge)
		gameRoutes.GET("/:id/end-result", s.endResult)
	}

	if opts.WebSocket != nil {
		r.GET("/ws/:namespace", gin.WrapH(opts.WebSocket))
	}

	return r
}

// publishLobbyChange fans out both the per-room tick and the fresh public
// listing.
func (s *Server) publishLobbyChange(lobbyID string) {
	s.bus.Publish(events.LobbyUpdated{LobbyID: lobbyID})
	s.bus.Publish(events.LobbyListUpdated{Lobbies: s.manager.ListLobbies()})
}
