package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"studytrack/pkg/core"
)

// StartInput carries the optional metadata a session can be started with.
type StartInput struct {
	Goals   []core.Goal
	MoodIDs []string
	Title   string
	SpaceID string
}

// Manager owns the session lifecycle: transitions between active, paused and
// finished, goal and mood mutation, and deletion. All mutations for one user
// are serialized behind a per-user mutex so that concurrent requests cannot
// interleave their read-modify-write cycles against the store.
type Manager struct {
	store  core.SessionStore
	locks  *keyLock
	logger *slog.Logger
}

// NewManager creates a lifecycle manager on top of a session store.
func NewManager(store core.SessionStore, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		locks:  newKeyLock(),
		logger: logger,
	}
}

// Start creates a new active session for the user. It fails with
// core.ErrSessionExists when one is already present.
func (m *Manager) Start(ctx context.Context, userID string, in StartInput) (*core.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", core.ErrValidation)
	}
	moodIDs, err := normalizeMoodIDs(in.MoodIDs)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.acquire(userID)
	defer unlock()

	sess := &core.Session{
		UserID:    userID,
		Status:    core.StatusActive,
		StartTime: time.Now().UTC(),
		Goals:     core.NormalizeGoals(in.Goals),
		MoodIDs:   moodIDs,
		Title:     strings.TrimSpace(in.Title),
		SpaceID:   strings.TrimSpace(in.SpaceID),
		RecordID:  uuid.New().String(),
	}
	if err := m.store.Create(ctx, sess); err != nil {
		return nil, err
	}

	m.logger.Info("session started",
		"user_id", userID,
		"record_id", sess.RecordID,
		"goals", len(sess.Goals),
	)
	return sess, nil
}

// Pause transitions an active session to paused and caches the net duration
// observed at the pause point.
func (m *Manager) Pause(ctx context.Context, userID string) (*core.Session, error) {
	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != core.StatusActive {
		return nil, fmt.Errorf("%w: session is %s", core.ErrInvalidTransition, sess.Status)
	}

	now := time.Now().UTC()
	sess.LastPausedAt = &now
	sess.Status = core.StatusPaused
	sess.Duration = core.CalculateDuration(sess.StartTime, now, sess.AccumulatedPauseSeconds)

	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("session paused", "user_id", userID, "duration", sess.Duration)
	return sess, nil
}

// Resume transitions a paused session back to active, folding the elapsed
// pause interval into the accumulator.
func (m *Manager) Resume(ctx context.Context, userID string) (*core.Session, error) {
	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status != core.StatusPaused {
		return nil, fmt.Errorf("%w: session is %s", core.ErrInvalidTransition, sess.Status)
	}

	now := time.Now().UTC()
	foldPause(sess, now)
	sess.Status = core.StatusActive
	sess.Duration = core.CalculateDuration(sess.StartTime, now, sess.AccumulatedPauseSeconds)

	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("session resumed",
		"user_id", userID,
		"accumulated_pause_seconds", sess.AccumulatedPauseSeconds,
	)
	return sess, nil
}

// Finish terminates the session from either active or paused. Finishing an
// already-finished session is an explicit error, not a silent success.
func (m *Manager) Finish(ctx context.Context, userID string) (*core.Session, error) {
	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status == core.StatusFinished {
		return nil, core.ErrAlreadyFinished
	}

	now := time.Now().UTC()
	if sess.Status == core.StatusPaused {
		foldPause(sess, now)
	}
	sess.EndTime = &now
	sess.Status = core.StatusFinished
	sess.Duration = core.CalculateDuration(sess.StartTime, now, sess.AccumulatedPauseSeconds)

	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("session finished",
		"user_id", userID,
		"record_id", sess.RecordID,
		"duration", sess.Duration,
	)
	return sess, nil
}

// AddGoal appends a goal to the checklist of a non-finished session.
func (m *Manager) AddGoal(ctx context.Context, userID, text string, done bool) (*core.Session, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: goal text is required", core.ErrValidation)
	}

	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.mutableSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(sess.Goals) >= core.MaxGoals {
		return nil, fmt.Errorf("%w: at most %d goals", core.ErrGoalCapacity, core.MaxGoals)
	}

	sess.Goals = append(sess.Goals, core.Goal{Text: text, Done: done})
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// RemoveGoal deletes the goal at index and returns the removed entry.
func (m *Manager) RemoveGoal(ctx context.Context, userID string, index int) (*core.Session, core.Goal, error) {
	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.mutableSession(ctx, userID)
	if err != nil {
		return nil, core.Goal{}, err
	}
	if index < 0 || index >= len(sess.Goals) {
		return nil, core.Goal{}, fmt.Errorf("%w: index %d", core.ErrGoalIndex, index)
	}

	removed := sess.Goals[index]
	sess.Goals = append(sess.Goals[:index], sess.Goals[index+1:]...)
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, core.Goal{}, err
	}
	return sess, removed, nil
}

// ToggleGoal sets the done flag of the goal at index.
func (m *Manager) ToggleGoal(ctx context.Context, userID string, index int, done bool) (*core.Session, error) {
	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.mutableSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(sess.Goals) {
		return nil, fmt.Errorf("%w: index %d", core.ErrGoalIndex, index)
	}

	sess.Goals[index].Done = done
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SetMood replaces the mood selection of a non-finished session.
func (m *Manager) SetMood(ctx context.Context, userID string, moodIDs []string) (*core.Session, error) {
	normalized, err := normalizeMoodIDs(moodIDs)
	if err != nil {
		return nil, err
	}

	unlock := m.locks.acquire(userID)
	defer unlock()

	sess, err := m.mutableSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess.MoodIDs = normalized
	if err := m.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get returns the current session snapshot, or nil when none exists.
// Querying an absent session is not an error.
func (m *Manager) Get(ctx context.Context, userID string) (*core.Session, error) {
	sess, err := m.store.Get(ctx, userID)
	if errors.Is(err, core.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Abandon deletes the session regardless of its state. Deleting an absent
// session is a no-op.
func (m *Manager) Abandon(ctx context.Context, userID string) error {
	unlock := m.locks.acquire(userID)
	defer unlock()

	if err := m.store.Delete(ctx, userID); err != nil {
		return err
	}
	m.logger.Info("session abandoned", "user_id", userID)
	return nil
}

// Drop removes a consumed session after materialization. Callers hold no
// lifecycle lock during materialization, so this re-acquires it.
func (m *Manager) Drop(ctx context.Context, userID string) error {
	unlock := m.locks.acquire(userID)
	defer unlock()
	return m.store.Delete(ctx, userID)
}

// mutableSession loads a session and rejects mutation of finished ones.
func (m *Manager) mutableSession(ctx context.Context, userID string) (*core.Session, error) {
	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.Status == core.StatusFinished {
		return nil, fmt.Errorf("%w: session is finished", core.ErrInvalidTransition)
	}
	return sess, nil
}

// foldPause adds the interval since the last pause to the accumulator. The
// accumulator only ever grows, and only while leaving the paused state.
func foldPause(sess *core.Session, now time.Time) {
	if sess.LastPausedAt == nil {
		return
	}
	elapsed := now.Sub(*sess.LastPausedAt).Seconds()
	if elapsed > 0 {
		sess.AccumulatedPauseSeconds += elapsed
	}
	sess.LastPausedAt = nil
}

func normalizeMoodIDs(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: mood id must be a non-empty string", core.ErrValidation)
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out, nil
}
