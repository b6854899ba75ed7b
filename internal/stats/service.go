// Package stats aggregates persisted study records per user. Only plain
// sums and counts are computed here; ranking heuristics live client-side.
package stats

import (
	"context"
	"math"
	"sort"
	"time"

	"studytrack/internal/storage"
)

// RecordSource is the slice of the record repository statistics read from.
type RecordSource interface {
	CountByUser(ctx context.Context, credential, userID string) (int64, error)
	ListForStats(ctx context.Context, credential, userID string) ([]storage.StudyRecord, error)
}

// Summary is a user's overall study activity.
type Summary struct {
	TotalStudyCount      int64      `json:"total_study_count"`
	TotalDurationSeconds float64    `json:"total_duration_seconds"`
	TotalDurationHours   float64    `json:"total_duration_hours"`
	FirstStudyDate       *time.Time `json:"first_study_date"`
	LastStudyDate        *time.Time `json:"last_study_date"`
}

// SpaceAggregate is a user's activity within one space.
type SpaceAggregate struct {
	SpaceID              string  `json:"space_id"`
	Count                int     `json:"count"`
	TotalDurationSeconds float64 `json:"total_duration_seconds"`
}

// Service computes aggregates over the caller's records.
type Service struct {
	records RecordSource
}

func NewService(records RecordSource) *Service {
	return &Service{records: records}
}

// Summary returns count, total duration and first/last study dates.
func (s *Service) Summary(ctx context.Context, credential, userID string) (*Summary, error) {
	count, err := s.records.CountByUser(ctx, credential, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.records.ListForStats(ctx, credential, userID)
	if err != nil {
		return nil, err
	}

	out := &Summary{TotalStudyCount: count}
	for _, row := range rows {
		out.TotalDurationSeconds += row.Duration
	}
	out.TotalDurationHours = math.Round(out.TotalDurationSeconds/3600*100) / 100
	if len(rows) > 0 {
		// ListForStats orders by created_at ascending.
		first := rows[0].CreatedAt
		last := rows[len(rows)-1].CreatedAt
		out.FirstStudyDate = &first
		out.LastStudyDate = &last
	}
	return out, nil
}

// SortKey selects the ordering of a space breakdown.
type SortKey string

const (
	SortByCount    SortKey = "counts"
	SortByDuration SortKey = "duration"
)

// SpaceBreakdown groups the user's records per space. Records without a
// space are skipped.
func (s *Service) SpaceBreakdown(ctx context.Context, credential, userID string, sortBy SortKey, limit int) ([]SpaceAggregate, error) {
	rows, err := s.records.ListForStats(ctx, credential, userID)
	if err != nil {
		return nil, err
	}

	bySpace := make(map[string]*SpaceAggregate)
	order := make([]string, 0)
	for _, row := range rows {
		if row.SpaceID == nil || *row.SpaceID == "" {
			continue
		}
		agg, ok := bySpace[*row.SpaceID]
		if !ok {
			agg = &SpaceAggregate{SpaceID: *row.SpaceID}
			bySpace[*row.SpaceID] = agg
			order = append(order, *row.SpaceID)
		}
		agg.Count++
		agg.TotalDurationSeconds += row.Duration
	}

	out := make([]SpaceAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *bySpace[id])
	}

	sort.SliceStable(out, func(i, j int) bool {
		if sortBy == SortByDuration {
			return out[i].TotalDurationSeconds > out[j].TotalDurationSeconds
		}
		return out[i].Count > out[j].Count
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
