package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"studytrack/internal/auth"
	"studytrack/internal/record"
	"studytrack/pkg/core"
	"studytrack/pkg/session"
)

// goalPayload accepts either a bare string or a {text, done} object, so
// clients can post checklists in whichever shape they already hold.
type goalPayload struct {
	Text string
	Done bool
}

func (g *goalPayload) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &g.Text)
	}
	var obj struct {
		Text string `json:"text"`
		Done bool   `json:"done"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	g.Text = obj.Text
	g.Done = obj.Done
	return nil
}

func toGoals(payloads []goalPayload) []core.Goal {
	out := make([]core.Goal, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, core.Goal{Text: p.Text, Done: p.Done})
	}
	return out
}

type startRequest struct {
	Goals   []goalPayload `json:"goals"`
	MoodIDs []string      `json:"mood_ids"`
	Title   string        `json:"title"`
	SpaceID string        `json:"space_id"`
}

func (s *Server) handleStart(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	sess, err := s.sessions.Start(c.Request.Context(), auth.UserID(c), session.StartInput{
		Goals:   toGoals(req.Goals),
		MoodIDs: req.MoodIDs,
		Title:   req.Title,
		SpaceID: req.SpaceID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

func (s *Server) handlePause(c *gin.Context) {
	sess, err := s.sessions.Pause(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) handleResume(c *gin.Context) {
	sess, err := s.sessions.Resume(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) handleFinish(c *gin.Context) {
	sess, err := s.sessions.Finish(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// handleGetSession returns the current session, or an explicit null when the
// user has none. Absence is a normal answer here, not an error.
func (s *Server) handleGetSession(c *gin.Context) {
	sess, err := s.sessions.Get(c.Request.Context(), auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) handleQuit(c *gin.Context) {
	if err := s.sessions.Abandon(c.Request.Context(), auth.UserID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

type addGoalRequest struct {
	Goal goalPayload `json:"goal"`
}

func (s *Server) handleAddGoal(c *gin.Context) {
	var req addGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.sessions.AddGoal(c.Request.Context(), auth.UserID(c), req.Goal.Text, req.Goal.Done)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func goalIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "goal index must be an integer"})
		return 0, false
	}
	return idx, true
}

type toggleGoalRequest struct {
	Done bool `json:"done"`
}

func (s *Server) handleToggleGoal(c *gin.Context) {
	idx, ok := goalIndex(c)
	if !ok {
		return
	}
	var req toggleGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.sessions.ToggleGoal(c.Request.Context(), auth.UserID(c), idx, req.Done)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (s *Server) handleRemoveGoal(c *gin.Context) {
	idx, ok := goalIndex(c)
	if !ok {
		return
	}

	sess, removed, err := s.sessions.RemoveGoal(c.Request.Context(), auth.UserID(c), idx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "removed": removed})
}

type moodRequest struct {
	MoodIDs []string `json:"mood_ids"`
}

func (s *Server) handleSetMood(c *gin.Context) {
	var req moodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.sessions.SetMood(c.Request.Context(), auth.UserID(c), req.MoodIDs)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

type sessionToRecordRequest struct {
	Title         string   `json:"title"`
	SpaceID       string   `json:"space_id"`
	EmotionLabels []string `json:"emotions"`
	WifiScore     *int     `json:"wifi_score"`
	NoiseLevel    *int     `json:"noise_level"`
	Crowdness     *int     `json:"crowdness"`
	Power         *bool    `json:"power"`
}

// handleSessionToRecord materializes the user's finished session into a
// persistent record. On persistence failure the session survives in the
// store and the client may retry the same call.
func (s *Server) handleSessionToRecord(c *gin.Context) {
	var req sessionToRecordRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	ctx := c.Request.Context()
	sess, err := s.sessions.Get(ctx, auth.UserID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if sess == nil {
		s.fail(c, core.ErrNoSession)
		return
	}

	saved, err := s.materialize.Materialize(ctx, auth.Credential(c), sess, record.Input{
		Title:         req.Title,
		SpaceID:       req.SpaceID,
		EmotionLabels: req.EmotionLabels,
		WifiScore:     req.WifiScore,
		NoiseLevel:    req.NoiseLevel,
		Crowdness:     req.Crowdness,
		Power:         req.Power,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": saved})
}
