package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"studytrack/pkg/core"
)

// fail translates domain errors to HTTP statuses. Anything unrecognized is a
// plain 500 with the message withheld from the client.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
	case errors.Is(err, core.ErrSessionExists):
		c.JSON(http.StatusConflict, gin.H{"error": "session already exists"})
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrAlreadyFinished),
		errors.Is(err, core.ErrGoalCapacity),
		errors.Is(err, core.ErrGoalIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrRollbackFailed):
		// Stored rows are inconsistent; this needs an operator, not a retry.
		s.logger.Error("request left storage inconsistent", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "persistence failed and rollback did not complete"})
	case errors.Is(err, core.ErrPersistence):
		c.JSON(http.StatusBadGateway, gin.H{"error": "persistence failed, session preserved"})
	default:
		s.logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
