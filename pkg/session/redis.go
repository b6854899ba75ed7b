package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"studytrack/pkg/core"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// RedisStore implements SessionStore on Redis hashes, one hash per user.
// Scalar session fields map to hash fields; the goal list and mood selection
// are JSON-encoded inside their fields. No TTL is applied: sessions persist
// until finished and materialized, or explicitly abandoned.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "sessions:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

func (r *RedisStore) key(userID string) string {
	return r.keyPrefix + userID
}

func (r *RedisStore) Create(ctx context.Context, session *core.Session) error {
	exists, err := r.client.Exists(ctx, r.key(session.UserID)).Result()
	if err != nil {
		return err
	}
	if exists > 0 {
		return core.ErrSessionExists
	}
	return r.write(ctx, session)
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*core.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, core.ErrNoSession
	}
	return unmarshalFields(fields)
}

func (r *RedisStore) Update(ctx context.Context, session *core.Session) error {
	exists, err := r.client.Exists(ctx, r.key(session.UserID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return core.ErrNoSession
	}
	return r.write(ctx, session)
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) write(ctx context.Context, session *core.Session) error {
	fields, err := marshalFields(session)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, r.key(session.UserID), fields).Err()
}

func marshalFields(s *core.Session) (map[string]any, error) {
	goals, err := json.Marshal(s.Goals)
	if err != nil {
		return nil, fmt.Errorf("marshal goals: %w", err)
	}
	moods, err := json.Marshal(s.MoodIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal mood ids: %w", err)
	}

	fields := map[string]any{
		"user_id":                   s.UserID,
		"status":                    s.Status,
		"start_time":                s.StartTime.UTC().Format(time.RFC3339Nano),
		"accumulated_pause_seconds": strconv.FormatFloat(s.AccumulatedPauseSeconds, 'f', -1, 64),
		"duration":                  strconv.FormatFloat(s.Duration, 'f', -1, 64),
		"goals":                     string(goals),
		"mood_ids":                  string(moods),
		"title":                     s.Title,
		"space_id":                  s.SpaceID,
		"record_id":                 s.RecordID,
		"last_paused_at":            "",
		"end_time":                  "",
	}
	if s.LastPausedAt != nil {
		fields["last_paused_at"] = s.LastPausedAt.UTC().Format(time.RFC3339Nano)
	}
	if s.EndTime != nil {
		fields["end_time"] = s.EndTime.UTC().Format(time.RFC3339Nano)
	}
	return fields, nil
}

func unmarshalFields(fields map[string]string) (*core.Session, error) {
	s := &core.Session{
		UserID:   fields["user_id"],
		Status:   fields["status"],
		Title:    fields["title"],
		SpaceID:  fields["space_id"],
		RecordID: fields["record_id"],
	}

	var err error
	if s.StartTime, err = time.Parse(time.RFC3339Nano, fields["start_time"]); err != nil {
		return nil, fmt.Errorf("parse start_time: %w", err)
	}
	if raw := fields["last_paused_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse last_paused_at: %w", err)
		}
		s.LastPausedAt = &t
	}
	if raw := fields["end_time"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
		s.EndTime = &t
	}
	if raw := fields["accumulated_pause_seconds"]; raw != "" {
		if s.AccumulatedPauseSeconds, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parse accumulated_pause_seconds: %w", err)
		}
	}
	if raw := fields["duration"]; raw != "" {
		if s.Duration, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("parse duration: %w", err)
		}
	}
	if raw := fields["goals"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Goals); err != nil {
			return nil, fmt.Errorf("unmarshal goals: %w", err)
		}
	}
	if raw := fields["mood_ids"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.MoodIDs); err != nil {
			return nil, fmt.Errorf("unmarshal mood ids: %w", err)
		}
	}
	return s, nil
}
