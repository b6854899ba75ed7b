package core

import (
	"context"
	"strings"
	"time"
)

// Status values a session moves through. Finished is terminal.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusFinished = "finished"
)

// MaxGoals bounds the goal checklist carried by a session.
const MaxGoals = 10

// Goal is a single checklist entry attached to a session.
type Goal struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// Session is the ephemeral per-user study timer. At most one exists per user
// at any time; it lives in the session store until it is materialized into a
// persistent record or abandoned.
type Session struct {
	UserID                  string     `json:"user_id"`
	Status                  string     `json:"status"`
	StartTime               time.Time  `json:"start_time"`
	LastPausedAt            *time.Time `json:"last_paused_at,omitempty"`
	AccumulatedPauseSeconds float64    `json:"accumulated_pause_seconds"`
	Duration                float64    `json:"duration"`
	EndTime                 *time.Time `json:"end_time,omitempty"`
	Goals                   []Goal     `json:"goals"`
	MoodIDs                 []string   `json:"mood_ids,omitempty"`
	Title                   string     `json:"title,omitempty"`
	SpaceID                 string     `json:"space_id,omitempty"`

	// RecordID is allocated at session start so that materialization can
	// upsert instead of insert and stay idempotent across retries.
	RecordID string `json:"record_id"`
}

// NormalizeGoals trims goal text, drops empty entries and caps the list at
// MaxGoals, preserving insertion order.
func NormalizeGoals(goals []Goal) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		text := strings.TrimSpace(g.Text)
		if text == "" {
			continue
		}
		out = append(out, Goal{Text: text, Done: g.Done})
		if len(out) == MaxGoals {
			break
		}
	}
	return out
}

// SessionStore is the abstract interface for session persistence, keyed by
// user id. Get returns ErrNoSession for an absent key; Create returns
// ErrSessionExists when a session is already present.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, userID string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID string) error
	Close() error
}
