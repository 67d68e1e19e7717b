package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acquire-backend/internal/apperr"
	"acquire-backend/internal/lobby"
)

// cookieMaxAge keeps the identity cookies alive across a long evening of
// games.
const cookieMaxAge = 12 * 60 * 60

func setIdentityCookies(c *gin.Context, username, lobbyID string) {
	c.SetCookie("username", username, cookieMaxAge, "/", "", false, false)
	c.SetCookie("lobbyId", lobbyID, cookieMaxAge, "/", "", false, false)
}

func clearIdentityCookies(c *gin.Context) {
	c.SetCookie("username", "", -1, "/", "", false, false)
	c.SetCookie("lobbyId", "", -1, "/", "", false, false)
}

// identity reads the caller's username cookie.
func identity(c *gin.Context) (string, error) {
	username, err := c.Cookie("username")
	if err != nil || username == "" {
		return "", apperr.New(apperr.Unauthorized, "username cookie is required")
	}
	return username, nil
}

func (s *Server) listLobbies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"lobbies": s.manager.ListLobbies()})
}

type hostRequest struct {
	Username   string `json:"username"`
	MaxPlayers int    `json:"maxPlayers"`
}

func (s *Server) hostLobby(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	rec, err := s.manager.CreateLobby(req.Username, lobby.Size{Max: req.MaxPlayers})
	if err != nil {
		s.renderError(c, err)
		return
	}

	rec.Lock()
	id := rec.Lobby.ID
	rec.Unlock()
	setIdentityCookies(c, req.Username, id)
	s.publishLobbyChange(id)
	c.JSON(http.StatusCreated, gin.H{"lobbyId": id})
}

type joinRequest struct {
	Username string `json:"username"`
}

func (s *Server) joinLobby(c *gin.Context) {
	id := c.Param("id")
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	rec, err := s.manager.Get(id)
	if err != nil {
		s.renderError(c, err)
		return
	}

	rec.Lock()
	err = rec.Lobby.Join(req.Username, s.manager.Now())
	rec.Unlock()
	if err != nil {
		s.renderError(c, err)
		return
	}

	setIdentityCookies(c, req.Username, id)
	s.publishLobbyChange(id)
	c.Redirect(http.StatusFound, "/lobby/"+id)
}

func (s *Server) lobbyStatus(c *gin.Context) {
	id := c.Param("id")
	username, err := identity(c)
	if err != nil {
		s.renderPageError(c, err)
		return
	}
	rec, err := s.manager.Get(id)
	if err != nil {
		s.renderPageError(c, err)
		return
	}

	rec.Lock()
	member := rec.Lobby.HasPlayer(username)
	view := rec.Lobby.Status(username)
	rec.Unlock()
	if !member {
		s.renderPageError(c, apperr.New(apperr.Unauthorized, "you are not in this lobby"))
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) leaveLobby(c *gin.Context) {
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
	err = rec.Lobby.Leave(username, s.manager.Now())
	rec.Unlock()
	if err != nil {
		s.renderError(c, err)
		return
	}

	clearIdentityCookies(c)
	s.publishLobbyChange(id)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
