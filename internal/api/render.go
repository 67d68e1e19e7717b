package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acquire-backend/internal/apperr"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.Conflict, apperr.State:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.RateLimited:
		return http.StatusTooManyRequests
	case apperr.Capacity:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// renderError writes the JSON error body. Internal failures are logged
// with their cause and surface only a generic message.
func (s *Server) renderError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		s.log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("requestId", requestID(c)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(statusFor(kind), gin.H{
		"code":    kind,
		"message": apperr.MessageOf(err),
	})
}

// renderPageError is the variant for page-facing routes: identity and
// lookup failures bounce the browser home instead of returning JSON.
func (s *Server) renderPageError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.Unauthorized, apperr.NotFound:
		c.Redirect(http.StatusFound, "/")
		c.Abort()
	default:
		s.renderError(c, err)
	}
}
