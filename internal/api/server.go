// Package api exposes the HTTP surface: session lifecycle, record reads,
// feedback reads, place search and statistics. Handlers stay thin; domain
// rules live in the packages behind the collaborator interfaces below.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"studytrack/internal/auth"
	"studytrack/internal/places"
	"studytrack/internal/record"
	"studytrack/internal/stats"
	"studytrack/internal/storage"
	"studytrack/pkg/core"
	"studytrack/pkg/session"
)

// Materializer converts a finished session into a durable record.
type Materializer interface {
	Materialize(ctx context.Context, credential string, sess *core.Session, in record.Input) (*storage.StudyRecord, error)
}

// RecordReader serves the read side of persisted records.
type RecordReader interface {
	ListByDate(ctx context.Context, credential, userID, date string) ([]storage.StudyRecordDetail, error)
	GetByID(ctx context.Context, credential, userID, recordID string) (*storage.StudyRecordDetail, error)
}

// FeedbackReader lists the feedback rows visible to the caller.
type FeedbackReader interface {
	List(ctx context.Context, credential, spaceID string) ([]storage.Feedback, error)
}

// PlaceFinder proxies the external place search API.
type PlaceFinder interface {
	SearchNearby(ctx context.Context, lat, lng, radius float64, types []string) ([]places.Place, error)
	GetDetail(ctx context.Context, spaceID string) (*places.Detail, error)
}

// StatsProvider aggregates a user's persisted records.
type StatsProvider interface {
	Summary(ctx context.Context, credential, userID string) (*stats.Summary, error)
	SpaceBreakdown(ctx context.Context, credential, userID string, sortBy stats.SortKey, limit int) ([]stats.SpaceAggregate, error)
}

// Server wires handlers to their collaborators.
type Server struct {
	sessions    *session.Manager
	materialize Materializer
	records     RecordReader
	feedback    FeedbackReader
	places      PlaceFinder
	stats       StatsProvider
	jwtSecret   []byte
	logger      *slog.Logger
}

func NewServer(
	sessions *session.Manager,
	materialize Materializer,
	records RecordReader,
	feedback FeedbackReader,
	finder PlaceFinder,
	statsProvider StatsProvider,
	jwtSecret []byte,
	logger *slog.Logger,
) *Server {
	return &Server{
		sessions:    sessions,
		materialize: materialize,
		records:     records,
		feedback:    feedback,
		places:      finder,
		stats:       statsProvider,
		jwtSecret:   jwtSecret,
		logger:      logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	s.Register(r)
	return r
}

// Register attaches all routes to an existing engine.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Place search needs no account; everything else is scoped to the
	// authenticated user.
	spaces := r.Group("/spaces")
	{
		spaces.GET("/near", s.handleSpacesNear)
		spaces.GET("/detail", s.handleSpaceDetail)
	}

	authed := r.Group("/", auth.Middleware(s.jwtSecret))

	sessions := authed.Group("/study-sessions")
	{
		sessions.POST("/start", s.handleStart)
		sessions.POST("/pause", s.handlePause)
		sessions.POST("/resume", s.handleResume)
		sessions.POST("/finish", s.handleFinish)
		sessions.GET("/user-session", s.handleGetSession)
		sessions.DELETE("/quit", s.handleQuit)
		sessions.POST("/goals", s.handleAddGoal)
		sessions.PATCH("/goals/:index", s.handleToggleGoal)
		sessions.DELETE("/goals/:index", s.handleRemoveGoal)
		sessions.POST("/mood", s.handleSetMood)
		sessions.POST("/session-to-record", s.handleSessionToRecord)
		sessions.GET("/live", s.handleLive)
	}

	records := authed.Group("/records")
	{
		records.GET("", s.handleListRecords)
		records.GET("/:id", s.handleGetRecord)
	}

	authed.GET("/feedback", s.handleListFeedback)

	statsGroup := authed.Group("/stats")
	{
		statsGroup.GET("/my-summary", s.handleStatsSummary)
		statsGroup.GET("/my/spaces", s.handleStatsSpaces)
	}
}
