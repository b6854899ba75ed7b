package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"studytrack/internal/auth"
	"studytrack/internal/stats"
)

// handleListRecords returns the caller's records for one calendar date.
func (s *Server) handleListRecords(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	rows, err := s.records.ListByDate(c.Request.Context(), auth.Credential(c), auth.UserID(c), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows, "date": date})
}

func (s *Server) handleGetRecord(c *gin.Context) {
	row, err := s.records.GetByID(c.Request.Context(), auth.Credential(c), auth.UserID(c), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": row})
}

func (s *Server) handleListFeedback(c *gin.Context) {
	rows, err := s.feedback.List(c.Request.Context(), auth.Credential(c), c.Query("space_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": rows})
}

func (s *Server) handleStatsSummary(c *gin.Context) {
	summary, err := s.stats.Summary(c.Request.Context(), auth.Credential(c), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleStatsSpaces(c *gin.Context) {
	sortBy := stats.SortKey(c.DefaultQuery("sort", string(stats.SortByCount)))
	if sortBy != stats.SortByCount && sortBy != stats.SortByDuration {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sort must be counts or duration"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	rows, err := s.stats.SpaceBreakdown(c.Request.Context(), auth.Credential(c), auth.UserID(c), sortBy, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spaces": rows})
}
