package storage

import (
	"time"

	"studytrack/pkg/core"
)

// Space is a study place referenced by records, keyed by its external place
// id so upserts from the search proxy stay idempotent.
type Space struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// StudyRecord is a persisted study session, the unit statistics are computed
// over. Its id is the record id pre-allocated at session start.
type StudyRecord struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	SpaceID    *string     `json:"space_id"`
	Title      *string     `json:"title"`
	Duration   float64     `json:"duration"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
	Goals      []core.Goal `json:"goals"`
	WifiScore  *int        `json:"wifi_score"`
	NoiseLevel *int        `json:"noise_level"`
	Crowdness  *int        `json:"crowdness"`
	Power      *bool       `json:"power"`
	FeedbackID *string     `json:"feedback_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at,omitempty"`
}

// Feedback holds environmental ratings for a space, one row per
// (user, space) pair.
type Feedback struct {
	ID         string    `json:"id,omitempty"`
	UserID     string    `json:"user_id"`
	SpaceID    string    `json:"space_id"`
	WifiScore  *int      `json:"wifi_score"`
	NoiseLevel *int      `json:"noise_level"`
	Crowdness  *int      `json:"crowdness"`
	Power      *bool     `json:"power"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Label is a row of a resolve-or-create lookup table (emotions, mood tags).
// The label column carries a unique constraint so concurrent creates of the
// same label collide at the database instead of duplicating.
type Label struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
}

// RecordEmotion links a record to an emotion label.
type RecordEmotion struct {
	RecordID  string `json:"record_id"`
	EmotionID string `json:"emotion_id"`
}

// RecordMood links a record to a mood tag.
type RecordMood struct {
	RecordID  string `json:"record_id"`
	MoodTagID string `json:"mood_tag_id"`
}

// StudyRecordDetail is a record with its label associations embedded.
type StudyRecordDetail struct {
	StudyRecord
	RecordEmotions []struct {
		EmotionID string `json:"emotion_id"`
		Emotion   *Label `json:"emotions,omitempty"`
	} `json:"record_emotions"`
	RecordMoods []struct {
		MoodTagID string `json:"mood_tag_id"`
		MoodTag   *Label `json:"mood_tags,omitempty"`
	} `json:"record_moods"`
}
