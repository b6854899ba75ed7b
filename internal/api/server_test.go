package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"studytrack/internal/places"
	"studytrack/internal/record"
	"studytrack/internal/stats"
	"studytrack/internal/storage"
	"studytrack/pkg/core"
	"studytrack/pkg/session"
)

var testSecret = []byte("test-secret")

type mockMaterializer struct {
	calls int
	err   error
}

func (m *mockMaterializer) Materialize(ctx context.Context, credential string, sess *core.Session, in record.Input) (*storage.StudyRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if sess.Status != core.StatusFinished {
		return nil, fmt.Errorf("%w: session is %s, not finished", core.ErrInvalidTransition, sess.Status)
	}
	return &storage.StudyRecord{ID: sess.RecordID, UserID: sess.UserID, Duration: sess.Duration}, nil
}

type mockRecordReader struct {
	rows []storage.StudyRecordDetail
	err  error
}

func (m *mockRecordReader) ListByDate(ctx context.Context, credential, userID, date string) ([]storage.StudyRecordDetail, error) {
	return m.rows, m.err
}

func (m *mockRecordReader) GetByID(ctx context.Context, credential, userID, recordID string) (*storage.StudyRecordDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.rows {
		if m.rows[i].ID == recordID {
			return &m.rows[i], nil
		}
	}
	return nil, nil
}

type mockFeedbackReader struct {
	rows []storage.Feedback
}

func (m *mockFeedbackReader) List(ctx context.Context, credential, spaceID string) ([]storage.Feedback, error) {
	return m.rows, nil
}

type mockPlaceFinder struct {
	results []places.Place
	err     error
}

func (m *mockPlaceFinder) SearchNearby(ctx context.Context, lat, lng, radius float64, types []string) ([]places.Place, error) {
	return m.results, m.err
}

func (m *mockPlaceFinder) GetDetail(ctx context.Context, spaceID string) (*places.Detail, error) {
	return &places.Detail{SpaceID: spaceID, Name: "Test Cafe"}, nil
}

type mockStats struct{}

func (m *mockStats) Summary(ctx context.Context, credential, userID string) (*stats.Summary, error) {
	return &stats.Summary{TotalStudyCount: 3}, nil
}

func (m *mockStats) SpaceBreakdown(ctx context.Context, credential, userID string, sortBy stats.SortKey, limit int) ([]stats.SpaceAggregate, error) {
	return []stats.SpaceAggregate{{SpaceID: "cafe-a", Count: 2}}, nil
}

type fixture struct {
	router       *gin.Engine
	manager      *session.Manager
	materializer *mockMaterializer
	records      *mockRecordReader
	finder       *mockPlaceFinder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	manager := session.NewManager(session.NewMemoryStore(), logger)
	materializer := &mockMaterializer{}
	records := &mockRecordReader{}
	finder := &mockPlaceFinder{}

	srv := NewServer(manager, materializer, records, &mockFeedbackReader{}, finder, &mockStats{}, testSecret, logger)
	return &fixture{
		router:       srv.Router(),
		manager:      manager,
		materializer: materializer,
		records:      records,
		finder:       finder,
	}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + token
}

func (f *fixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", bearer(t, user))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/study-sessions/start", "user-1",
		`{"goals": ["read ch. 3", {"text": "review notes", "done": true}], "title": "morning"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"active"`)
	assert.Contains(t, w.Body.String(), "read ch. 3")
	assert.Contains(t, w.Body.String(), `"record_id"`)
}

func TestStartSessionConflict(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")
	assert.Equal(t, http.StatusCreated, first.Code)

	second := f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestRequiresAuth(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/study-sessions/start", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPauseWithoutSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/study-sessions/pause", "user-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPauseResumeFlow(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")

	paused := f.do(t, http.MethodPost, "/study-sessions/pause", "user-1", "")
	assert.Equal(t, http.StatusOK, paused.Code)
	assert.Contains(t, paused.Body.String(), `"status":"paused"`)

	// Pausing twice is an invalid transition.
	again := f.do(t, http.MethodPost, "/study-sessions/pause", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, again.Code)

	resumed := f.do(t, http.MethodPost, "/study-sessions/resume", "user-1", "")
	assert.Equal(t, http.StatusOK, resumed.Code)
	assert.Contains(t, resumed.Body.String(), `"status":"active"`)
}

func TestFinishIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")

	finished := f.do(t, http.MethodPost, "/study-sessions/finish", "user-1", "")
	assert.Equal(t, http.StatusOK, finished.Code)
	assert.Contains(t, finished.Body.String(), `"status":"finished"`)

	again := f.do(t, http.MethodPost, "/study-sessions/finish", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, again.Code)

	goal := f.do(t, http.MethodPost, "/study-sessions/goals", "user-1", `{"goal": "too late"}`)
	assert.Equal(t, http.StatusBadRequest, goal.Code)
}

func TestGoalMutation(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", `{"goals": ["first"]}`)

	added := f.do(t, http.MethodPost, "/study-sessions/goals", "user-1", `{"goal": {"text": "second"}}`)
	assert.Equal(t, http.StatusOK, added.Code)
	assert.Contains(t, added.Body.String(), "second")

	toggled := f.do(t, http.MethodPatch, "/study-sessions/goals/1", "user-1", `{"done": true}`)
	assert.Equal(t, http.StatusOK, toggled.Code)
	assert.Contains(t, toggled.Body.String(), `"done":true`)

	badIndex := f.do(t, http.MethodDelete, "/study-sessions/goals/9", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, badIndex.Code)

	removed := f.do(t, http.MethodDelete, "/study-sessions/goals/0", "user-1", "")
	assert.Equal(t, http.StatusOK, removed.Code)
	assert.Contains(t, removed.Body.String(), `"removed":{"text":"first"`)
}

func TestSetMood(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")

	w := f.do(t, http.MethodPost, "/study-sessions/mood", "user-1", `{"mood_ids": ["focused", "calm"]}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "focused")
}

func TestGetSessionAbsentIsNull(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/study-sessions/user-session", "user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"session":null`)
}

func TestQuitIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")

	first := f.do(t, http.MethodDelete, "/study-sessions/quit", "user-1", "")
	assert.Equal(t, http.StatusOK, first.Code)

	second := f.do(t, http.MethodDelete, "/study-sessions/quit", "user-1", "")
	assert.Equal(t, http.StatusOK, second.Code)
}

func TestSessionToRecord(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")
	f.do(t, http.MethodPost, "/study-sessions/finish", "user-1", "")

	w := f.do(t, http.MethodPost, "/study-sessions/session-to-record", "user-1",
		`{"space_id": "cafe-a", "wifi_score": 4}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, f.materializer.calls)
	assert.Contains(t, w.Body.String(), `"record"`)
}

func TestSessionToRecordWithoutSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/study-sessions/session-to-record", "user-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, f.materializer.calls)
}

func TestSessionToRecordActiveSessionRejected(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")

	w := f.do(t, http.MethodPost, "/study-sessions/session-to-record", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionToRecordPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.materializer.err = fmt.Errorf("%w: upsert record: boom", core.ErrPersistence)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")
	f.do(t, http.MethodPost, "/study-sessions/finish", "user-1", "")

	w := f.do(t, http.MethodPost, "/study-sessions/session-to-record", "user-1", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// The session must survive a failed materialization.
	sess := f.do(t, http.MethodGet, "/study-sessions/user-session", "user-1", "")
	assert.Contains(t, sess.Body.String(), `"status":"finished"`)
}

func TestSessionToRecordRollbackFailure(t *testing.T) {
	f := newFixture(t)
	f.materializer.err = fmt.Errorf("%w: after attach moods: boom", core.ErrRollbackFailed)
	f.do(t, http.MethodPost, "/study-sessions/start", "user-1", "")
	f.do(t, http.MethodPost, "/study-sessions/finish", "user-1", "")

	w := f.do(t, http.MethodPost, "/study-sessions/session-to-record", "user-1", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListRecordsRejectsBadDate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/records?date=March+1st", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRecords(t *testing.T) {
	f := newFixture(t)
	f.records.rows = []storage.StudyRecordDetail{
		{StudyRecord: storage.StudyRecord{ID: "rec-1", UserID: "user-1", Duration: 1200}},
	}

	w := f.do(t, http.MethodGet, "/records?date=2025-03-01", "user-1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rec-1")
}

func TestGetRecordNotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/records/missing", "user-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSpacesNearValidation(t *testing.T) {
	f := newFixture(t)

	missing := f.do(t, http.MethodGet, "/spaces/near?lng=127.0", "", "")
	assert.Equal(t, http.StatusBadRequest, missing.Code)

	badRadius := f.do(t, http.MethodGet, "/spaces/near?lat=37.5&lng=127.0&radius=-5", "", "")
	assert.Equal(t, http.StatusBadRequest, badRadius.Code)
}

func TestSpacesNear(t *testing.T) {
	f := newFixture(t)
	f.finder.results = []places.Place{{SpaceID: "place-1", Name: "Quiet Cafe", Distance: 120}}

	w := f.do(t, http.MethodGet, "/spaces/near?lat=37.5&lng=127.0", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quiet Cafe")
}

func TestSpacesNearUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.finder.err = errors.New("upstream timeout")

	w := f.do(t, http.MethodGet, "/spaces/near?lat=37.5&lng=127.0", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatsEndpoints(t *testing.T) {
	f := newFixture(t)

	summary := f.do(t, http.MethodGet, "/stats/my-summary", "user-1", "")
	assert.Equal(t, http.StatusOK, summary.Code)
	assert.Contains(t, summary.Body.String(), `"total_study_count":3`)

	spaces := f.do(t, http.MethodGet, "/stats/my/spaces?sort=duration&limit=5", "user-1", "")
	assert.Equal(t, http.StatusOK, spaces.Code)
	assert.Contains(t, spaces.Body.String(), "cafe-a")

	badSort := f.do(t, http.MethodGet, "/stats/my/spaces?sort=alphabetical", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, badSort.Code)
}
