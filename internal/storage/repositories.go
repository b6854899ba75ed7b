package storage

import (
	"context"

	postgrest "github.com/supabase-community/postgrest-go"
)

type SpaceRepository struct {
	client *Client
}

// Upsert ensures the space row exists, keyed by its external place id.
func (r *SpaceRepository) Upsert(ctx context.Context, credential string, space Space) error {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("spaces").Upsert(space, "id", "", "").Execute()
	return err
}

type RecordRepository struct {
	client *Client
}

// Upsert writes the record under its pre-allocated id, so retried
// materializations overwrite instead of duplicating.
func (r *RecordRepository) Upsert(ctx context.Context, credential string, record StudyRecord) (*StudyRecord, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []StudyRecord
	_, err = db.From("study_record").Upsert(record, "id", "representation", "").ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

func (r *RecordRepository) Delete(ctx context.Context, credential, recordID string) error {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("study_record").Delete("", "").Eq("id", recordID).Execute()
	return err
}

// LinkFeedback writes the feedback id back onto the record.
func (r *RecordRepository) LinkFeedback(ctx context.Context, credential, recordID, feedbackID string) error {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("study_record").
		Update(map[string]any{"feedback_id": feedbackID}, "", "").
		Eq("id", recordID).
		Execute()
	return err
}

func (r *RecordRepository) AttachEmotions(ctx context.Context, credential string, rows []RecordEmotion) error {
	_ = ctx
	if len(rows) == 0 {
		return nil
	}
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("record_emotions").Insert(rows, false, "", "", "").Execute()
	return err
}

func (r *RecordRepository) AttachMoods(ctx context.Context, credential string, rows []RecordMood) error {
	_ = ctx
	if len(rows) == 0 {
		return nil
	}
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("record_moods").Insert(rows, false, "", "", "").Execute()
	return err
}

// ListByDate returns a user's records for one calendar date, newest first.
func (r *RecordRepository) ListByDate(ctx context.Context, credential, userID, date string) ([]StudyRecordDetail, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []StudyRecordDetail
	_, err = db.From("study_record").
		Select("*, record_emotions(emotion_id, emotions(id, label)), record_moods(mood_tag_id, mood_tags(id, label))", "", false).
		Eq("user_id", userID).
		Gte("start_time", date+"T00:00:00Z").
		Lte("start_time", date+"T23:59:59Z").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&result)
	return result, err
}

// GetByID fetches one record with its label associations embedded.
func (r *RecordRepository) GetByID(ctx context.Context, credential, userID, recordID string) (*StudyRecordDetail, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []StudyRecordDetail
	_, err = db.From("study_record").
		Select("*, record_emotions(emotion_id, emotions(id, label)), record_moods(mood_tag_id, mood_tags(id, label))", "", false).
		Eq("id", recordID).
		Eq("user_id", userID).
		Limit(1, "").
		ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

// ListForStats pulls the columns statistics aggregate over, oldest first.
func (r *RecordRepository) ListForStats(ctx context.Context, credential, userID string) ([]StudyRecord, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []StudyRecord
	_, err = db.From("study_record").
		Select("id, space_id, duration, start_time, end_time, created_at", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&result)
	return result, err
}

func (r *RecordRepository) CountByUser(ctx context.Context, credential, userID string) (int64, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return 0, err
	}
	_, count, err := db.From("study_record").
		Select("id", "exact", true).
		Eq("user_id", userID).
		Execute()
	return count, err
}

type FeedbackRepository struct {
	client *Client
}

// GetByUserSpace returns the feedback row for a (user, space) pair, or nil.
func (r *FeedbackRepository) GetByUserSpace(ctx context.Context, credential, userID, spaceID string) (*Feedback, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []Feedback
	_, err = db.From("feedback").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("space_id", spaceID).
		Limit(1, "").
		ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

func (r *FeedbackRepository) Insert(ctx context.Context, credential string, feedback Feedback) (*Feedback, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []Feedback
	_, err = db.From("feedback").Insert(feedback, false, "", "representation", "").ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

func (r *FeedbackRepository) Update(ctx context.Context, credential, feedbackID string, payload map[string]any) (*Feedback, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []Feedback
	_, err = db.From("feedback").
		Update(payload, "representation", "").
		Eq("id", feedbackID).
		ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

func (r *FeedbackRepository) Delete(ctx context.Context, credential, feedbackID string) error {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return err
	}
	_, _, err = db.From("feedback").Delete("", "").Eq("id", feedbackID).Execute()
	return err
}

// List returns the caller's visible feedback rows, optionally filtered by
// space. Row-level policies scope the result to what the credential grants.
func (r *FeedbackRepository) List(ctx context.Context, credential, spaceID string) ([]Feedback, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	query := db.From("feedback").Select("*", "", false)
	if spaceID != "" {
		query = query.Eq("space_id", spaceID)
	}
	var result []Feedback
	_, err = query.ExecuteTo(&result)
	return result, err
}

// LabelRepository provides select-or-create access to a label lookup table.
type LabelRepository struct {
	client *Client
	table  string
}

func (r *LabelRepository) List(ctx context.Context, credential string) ([]Label, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []Label
	_, err = db.From(r.table).Select("id, label", "", false).ExecuteTo(&result)
	return result, err
}

func (r *LabelRepository) Create(ctx context.Context, credential, label string) (*Label, error) {
	_ = ctx
	db, err := r.client.session(credential)
	if err != nil {
		return nil, err
	}
	var result []Label
	_, err = db.From(r.table).Insert(Label{Label: label}, false, "", "representation", "").ExecuteTo(&result)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}
