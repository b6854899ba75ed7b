// Package record converts finished sessions into durable study records.
// The persistence collaborator offers no cross-table transaction from this
// vantage point, so materialization keeps an ordered list of undo actions
// and runs them in reverse when a later step fails.
package record

import (
	"context"
	"fmt"
	"log/slog"

	"studytrack/internal/storage"
	"studytrack/pkg/core"
)

// SpaceStore upserts space rows referenced by records.
type SpaceStore interface {
	Upsert(ctx context.Context, credential string, space storage.Space) error
}

// RecordStore writes study records and their label associations.
type RecordStore interface {
	Upsert(ctx context.Context, credential string, record storage.StudyRecord) (*storage.StudyRecord, error)
	Delete(ctx context.Context, credential, recordID string) error
	LinkFeedback(ctx context.Context, credential, recordID, feedbackID string) error
	AttachEmotions(ctx context.Context, credential string, rows []storage.RecordEmotion) error
	AttachMoods(ctx context.Context, credential string, rows []storage.RecordMood) error
}

// FeedbackStore maintains the per-(user, space) feedback rows.
type FeedbackStore interface {
	GetByUserSpace(ctx context.Context, credential, userID, spaceID string) (*storage.Feedback, error)
	Insert(ctx context.Context, credential string, feedback storage.Feedback) (*storage.Feedback, error)
	Update(ctx context.Context, credential, feedbackID string, payload map[string]any) (*storage.Feedback, error)
	Delete(ctx context.Context, credential, feedbackID string) error
}

// LabelStore is a resolve-or-create lookup table (emotions, mood tags).
type LabelStore interface {
	List(ctx context.Context, credential string) ([]storage.Label, error)
	Create(ctx context.Context, credential, label string) (*storage.Label, error)
}

// SessionDropper removes the consumed session once persistence succeeded.
type SessionDropper interface {
	Drop(ctx context.Context, userID string) error
}

// Input carries the request-supplied fields of a materialization.
type Input struct {
	Title         string
	SpaceID       string
	EmotionLabels []string
	WifiScore     *int
	NoiseLevel    *int
	Crowdness     *int
	Power         *bool
}

// Materializer orchestrates the session-to-record conversion.
type Materializer struct {
	spaces   SpaceStore
	records  RecordStore
	feedback FeedbackStore
	emotions LabelStore
	moods    LabelStore
	sessions SessionDropper
	logger   *slog.Logger
}

func NewMaterializer(
	spaces SpaceStore,
	records RecordStore,
	feedback FeedbackStore,
	emotions LabelStore,
	moods LabelStore,
	sessions SessionDropper,
	logger *slog.Logger,
) *Materializer {
	return &Materializer{
		spaces:   spaces,
		records:  records,
		feedback: feedback,
		emotions: emotions,
		moods:    moods,
		sessions: sessions,
		logger:   logger,
	}
}

// Materialize persists a finished session. The record is upserted under the
// session's pre-allocated id, so retries after a partial failure are
// idempotent. On any failure after the record write, the already-written
// record and feedback rows are deleted again; the session stays in the store
// as the source of truth and the whole call can be retried.
func (m *Materializer) Materialize(ctx context.Context, credential string, sess *core.Session, in Input) (*storage.StudyRecord, error) {
	if sess == nil {
		return nil, core.ErrNoSession
	}
	if sess.Status != core.StatusFinished {
		return nil, fmt.Errorf("%w: session is %s, not finished", core.ErrInvalidTransition, sess.Status)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	spaceID := in.SpaceID
	if spaceID == "" {
		spaceID = sess.SpaceID
	}
	title := in.Title
	if title == "" {
		title = sess.Title
	}

	// Step 1: ensure the referenced space exists. Nothing to undo yet.
	if spaceID != "" {
		if err := m.spaces.Upsert(ctx, credential, storage.Space{ID: spaceID}); err != nil {
			return nil, fmt.Errorf("%w: upsert space: %v", core.ErrPersistence, err)
		}
	}

	var undo []func(context.Context) error
	fail := func(step string, err error) error {
		wrapped := fmt.Errorf("%w: %s: %v", core.ErrPersistence, step, err)
		for i := len(undo) - 1; i >= 0; i-- {
			if undoErr := undo[i](ctx); undoErr != nil {
				m.logger.Error("compensating delete failed; stored rows are inconsistent",
					"user_id", sess.UserID,
					"record_id", sess.RecordID,
					"cause", err,
					"undo_error", undoErr,
				)
				return fmt.Errorf("%w: after %s: %v", core.ErrRollbackFailed, step, undoErr)
			}
		}
		return wrapped
	}

	// Step 2: upsert the record under the pre-allocated id.
	row := storage.StudyRecord{
		ID:         sess.RecordID,
		UserID:     sess.UserID,
		SpaceID:    optional(spaceID),
		Title:      optional(title),
		Duration:   sess.Duration,
		StartTime:  sess.StartTime,
		Goals:      sess.Goals,
		WifiScore:  in.WifiScore,
		NoiseLevel: in.NoiseLevel,
		Crowdness:  in.Crowdness,
		Power:      in.Power,
	}
	if sess.EndTime != nil {
		row.EndTime = *sess.EndTime
	}
	saved, err := m.records.Upsert(ctx, credential, row)
	if err != nil {
		return nil, fail("upsert record", err)
	}
	if saved == nil {
		saved = &row
	}
	undo = append(undo, func(ctx context.Context) error {
		return m.records.Delete(ctx, credential, sess.RecordID)
	})

	// Step 3: resolve the per-(user, space) feedback row.
	feedbackID, err := m.resolveFeedback(ctx, credential, sess.UserID, spaceID, in, &undo)
	if err != nil {
		return nil, fail("resolve feedback", err)
	}

	// Steps 4 and 5: label associations. The join rows hang off the record
	// by foreign key and are removed with it, so they carry no own undo.
	emotionIDs, err := resolveLabels(ctx, credential, m.emotions, in.EmotionLabels)
	if err != nil {
		return nil, fail("resolve emotions", err)
	}
	if len(emotionIDs) > 0 {
		rows := make([]storage.RecordEmotion, 0, len(emotionIDs))
		for _, id := range emotionIDs {
			rows = append(rows, storage.RecordEmotion{RecordID: sess.RecordID, EmotionID: id})
		}
		if err := m.records.AttachEmotions(ctx, credential, rows); err != nil {
			return nil, fail("attach emotions", err)
		}
	}

	moodIDs, err := resolveLabels(ctx, credential, m.moods, sess.MoodIDs)
	if err != nil {
		return nil, fail("resolve moods", err)
	}
	if len(moodIDs) > 0 {
		rows := make([]storage.RecordMood, 0, len(moodIDs))
		for _, id := range moodIDs {
			rows = append(rows, storage.RecordMood{RecordID: sess.RecordID, MoodTagID: id})
		}
		if err := m.records.AttachMoods(ctx, credential, rows); err != nil {
			return nil, fail("attach moods", err)
		}
	}

	// Step 6: link the record to its feedback row.
	if feedbackID != "" {
		if err := m.records.LinkFeedback(ctx, credential, sess.RecordID, feedbackID); err != nil {
			return nil, fail("link feedback", err)
		}
		saved.FeedbackID = &feedbackID
	}

	// Step 7: consume the session. This is the ownership handover; if it
	// fails the durable rows stay and the whole call remains retryable.
	if err := m.sessions.Drop(ctx, sess.UserID); err != nil {
		return nil, fmt.Errorf("delete session after materialization: %w", err)
	}

	m.logger.Info("session materialized",
		"user_id", sess.UserID,
		"record_id", sess.RecordID,
		"emotions", len(emotionIDs),
		"moods", len(moodIDs),
	)
	return saved, nil
}

// resolveFeedback updates the existing (user, space) feedback row or inserts
// a new one. Only inserts are undone on rollback; an update overwrote a row
// the user already owned.
func (m *Materializer) resolveFeedback(ctx context.Context, credential, userID, spaceID string, in Input, undo *[]func(context.Context) error) (string, error) {
	if spaceID == "" || !hasFeedback(in) {
		return "", nil
	}

	existing, err := m.feedback.GetByUserSpace(ctx, credential, userID, spaceID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		payload := map[string]any{
			"wifi_score":  in.WifiScore,
			"noise_level": in.NoiseLevel,
			"crowdness":   in.Crowdness,
			"power":       in.Power,
		}
		updated, err := m.feedback.Update(ctx, credential, existing.ID, payload)
		if err != nil {
			return "", err
		}
		if updated == nil {
			return existing.ID, nil
		}
		return updated.ID, nil
	}

	inserted, err := m.feedback.Insert(ctx, credential, storage.Feedback{
		UserID:     userID,
		SpaceID:    spaceID,
		WifiScore:  in.WifiScore,
		NoiseLevel: in.NoiseLevel,
		Crowdness:  in.Crowdness,
		Power:      in.Power,
	})
	if err != nil {
		return "", err
	}
	if inserted == nil {
		return "", fmt.Errorf("feedback insert returned no row")
	}
	id := inserted.ID
	*undo = append(*undo, func(ctx context.Context) error {
		return m.feedback.Delete(ctx, credential, id)
	})
	return id, nil
}

func validateInput(in Input) error {
	for name, v := range map[string]*int{
		"wifi_score":  in.WifiScore,
		"noise_level": in.NoiseLevel,
		"crowdness":   in.Crowdness,
	} {
		if v != nil && (*v < 1 || *v > 5) {
			return fmt.Errorf("%w: %s must be between 1 and 5", core.ErrValidation, name)
		}
	}
	return nil
}

func hasFeedback(in Input) bool {
	return in.WifiScore != nil || in.NoiseLevel != nil || in.Crowdness != nil || in.Power != nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
