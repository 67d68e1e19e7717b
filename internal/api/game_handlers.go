package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acquire-backend/internal/apperr"
	"acquire-backend/internal/events"
	"acquire-backend/internal/game"
)

func (s *Server) startGame(c *gin.Context) {
	id := c.Param("id")
	username, err := identity(c)
	if err != nil {
		s.renderError(c, err)
		return
	}
	if _, err := s.manager.StartGame(id, username, s.shuffle); err != nil {
		s.renderError(c, err)
		return
	}
	s.publishLobbyChange(id)
	s.bus.Publish(events.GameUpdated{LobbyID: id})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// withGame runs fn on the record's game under its lock, with the caller
// verified to hold a seat. A successful fn refreshes the idle clock and
// publishes the update tick before the lock drops, so room delivery order
// matches mutation order. Game-end teardown runs after the lock drops;
// FinishGame locks the record itself.
func (s *Server) withGame(c *gin.Context, fn func(g *game.Game, username string) error) {
	id := c.Param("id")
	username, err := identity(c)
	if err != nil {
		s.renderError(c, err)
		return
	}
	rec, err := s.manager.Get(id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	var finished bool
	rec.Lock()
	g := rec.Game
	switch {
	case g == nil:
		err = apperr.New(apperr.State, "the game has not started")
	case !g.HasPlayer(username):
		err = apperr.New(apperr.Unauthorized, "you are not in this game")
	default:
		wasFinished := g.Finished()
		if err = fn(g, username); err == nil {
			rec.TouchGame(s.manager.Now())
			s.bus.Publish(events.GameUpdated{LobbyID: id})
			if g.Finished() && !wasFinished {
				finished = true
				if result, rerr := g.Result(); rerr == nil {
					s.bus.Publish(events.GameEnded{LobbyID: id, Result: *result})
				}
			}
		}
	}
	rec.Unlock()

	if err != nil {
		s.renderError(c, err)
		return
	}
	if finished {
		s.manager.FinishGame(id)
		s.bus.Publish(events.LobbyListUpdated{Lobbies: s.manager.ListLobbies()})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) gameStatus(c *gin.Context) {
	id := c.Param("id")
	username, err := identity(c)
	if err != nil {
		s.renderPageError(c, err)
		return
	}
	rec, err := s.manager.Get(id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	rec.Lock()
	g := rec.Game
	if g == nil {
		rec.Unlock()
		s.renderError(c, apperr.New(apperr.State, "the game has not started"))
		return
	}
	if !g.HasPlayer(username) {
		rec.Unlock()
		s.renderPageError(c, apperr.New(apperr.Unauthorized, "you are not in this game"))
		return
	}
	st := g.Status(username)
	rec.Unlock()
	c.JSON(http.StatusOK, st)
}

type tileRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

func (s *Server) placeTile(c *gin.Context) {
	var req tileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "x and y are required"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.PlaceTile(username, game.Position{Row: *req.X, Col: *req.Y})
	})
}

type establishRequest struct {
	Name string `json:"name"`
}

func (s *Server) establish(c *gin.Context) {
	var req establishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "name is required"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.Establish(username, game.CorpID(req.Name))
	})
}

type buyOrder struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func (s *Server) buyStocks(c *gin.Context) {
	var orders []buyOrder
	if err := c.ShouldBindJSON(&orders); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "a purchase list is required"))
		return
	}
	entries := make([]game.BuyEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, game.BuyEntry{Corporation: game.CorpID(o.Name), Price: o.Price})
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.BuyStocks(username, entries)
	})
}

func (s *Server) endTurn(c *gin.Context) {
	s.withGame(c, func(g *game.Game, username string) error {
		return g.EndTurn(username)
	})
}

type dealRequest struct {
	Sell  int `json:"sell"`
	Trade int `json:"trade"`
}

func (s *Server) mergerDeal(c *gin.Context) {
	var req dealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.MergerDeal(username, req.Sell, req.Trade)
	})
}

func (s *Server) mergerEndTurn(c *gin.Context) {
	s.withGame(c, func(g *game.Game, username string) error {
		return g.MergerEndTurn(username)
	})
}

type conflictRequest struct {
	Acquirer string `json:"acquirer"`
	Defunct  string `json:"defunct"`
}

func (s *Server) resolveConflict(c *gin.Context) {
	var req conflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.ResolveConflict(username, game.CorpID(req.Acquirer), game.CorpID(req.Defunct))
	})
}

type acquirerRequest struct {
	Acquirer string `json:"acquirer"`
}

func (s *Server) resolveAcquirer(c *gin.Context) {
	var req acquirerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.ResolveAcquirer(username, game.CorpID(req.Acquirer))
	})
}

type defunctRequest struct {
	Defunct string `json:"defunct"`
}

func (s *Server) confirmDefunct(c *gin.Context) {
	var req defunctRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	s.withGame(c, func(g *game.Game, username string) error {
		return g.ConfirmDefunct(username, game.CorpID(req.Defunct))
	})
}

func (s *Server) endMerge(c *gin.Context) {
	s.withGame(c, func(g *game.Game, username string) error {
		return g.EndMerge(username)
	})
}

func (s *Server) endResult(c *gin.Context) {
	id := c.Param("id")
	username, err := identity(c)
	if err != nil {
		s.renderError(c, err)
		return
	}
	rec, err := s.manager.Get(id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	rec.Lock()
	g := rec.Game
	if g == nil {
		rec.Unlock()
		s.renderError(c, apperr.New(apperr.State, "the game has not started"))
		return
	}
	if !g.HasPlayer(username) {
		rec.Unlock()
		s.renderError(c, apperr.New(apperr.Unauthorized, "you are not in this game"))
		return
	}
	result, err := g.Result()
	rec.Unlock()
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
