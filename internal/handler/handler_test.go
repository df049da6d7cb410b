package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-mail-review-go/internal/config"
	"flight-mail-review-go/internal/db"
	"flight-mail-review-go/internal/metrics"
	"flight-mail-review-go/internal/model"
	"flight-mail-review-go/internal/repository"
	"flight-mail-review-go/internal/scheduler"
	"flight-mail-review-go/internal/service/review"
)

type testServer struct {
	router *gin.Engine
	review *review.Service
}

type staticFetcher struct {
	emails []model.EmailMessage
}

func (s *staticFetcher) FetchNewEmails(ctx context.Context) ([]model.EmailMessage, error) {
	return s.emails, nil
}
func (s *staticFetcher) Close() error { return nil }

func setupServer(t *testing.T, withScheduler bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Init(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "review.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	m := metrics.NewMetrics()
	svc := review.NewService(repository.New(gdb), m)

	var sched *scheduler.Scheduler
	if withScheduler {
		f := &staticFetcher{emails: []model.EmailMessage{flightEmail("<sched@united.com>")}}
		sched = scheduler.NewScheduler(config.SchedulerConfig{IntervalMinutes: 60}, f, svc, m)
		t.Cleanup(func() { _ = sched.Stop() })
	}

	router := gin.New()
	NewHandlers(svc, sched, m, "eml").SetupRoutes(router)
	return &testServer{router: router, review: svc}
}

func flightEmail(id string) model.EmailMessage {
	return model.EmailMessage{
		MessageID:     id,
		Subject:       "Flight Confirmation - AA1234",
		Sender:        "noreply@united.com",
		Date:          time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC),
		HTMLBody:      "<p>Confirmed</p>",
		PlainTextBody: "Confirmation code ABC123. Flight UA 456 departs SFO.",
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		default:
			var err error
			raw, err = json.Marshal(b)
			require.NoError(t, err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *testServer) seed(t *testing.T, ids ...string) {
	t.Helper()
	emails := make([]model.EmailMessage, 0, len(ids))
	for _, id := range ids {
		emails = append(emails, flightEmail(id))
	}
	_, err := s.review.IngestEmails(context.Background(), emails)
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	s := setupServer(t, false)

	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Database)
	assert.Equal(t, "stopped", resp.Metrics["scheduler"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupServer(t, false)
	s.seed(t, "<m1@united.com>")

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flight_mail_review_candidates_ingested 1")
}

func TestIngestAndBatch(t *testing.T) {
	s := setupServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/ingest", []model.EmailMessage{
		flightEmail("<m1@united.com>"),
		{MessageID: "<news@example.com>", Subject: "Weekly deals", Sender: "news@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var ingest review.IngestResult
	decode(t, rec, &ingest)
	assert.Equal(t, 1, ingest.Inserted)
	assert.Equal(t, 1, ingest.Discarded)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/batch?size=500", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batch review.Batch
	decode(t, rec, &batch)
	assert.Equal(t, int64(1), batch.TotalRemaining)
	require.Len(t, batch.Candidates, 1)
	assert.Equal(t, "<m1@united.com>", batch.Candidates[0].ID)
	assert.Equal(t, 55, batch.Candidates[0].Score)
	require.NotNil(t, batch.Candidates[0].BodyHTML)

	rec = s.do(t, http.MethodPost, "/api/v1/ingest", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionFlow(t *testing.T) {
	s := setupServer(t, false)
	s.seed(t, "<m1@united.com>", "<m2@united.com>")

	rec := s.do(t, http.MethodPost, "/api/v1/decisions", gin.H{
		"message_id":             "<m1@united.com>",
		"is_flight_confirmation": true,
		"note":                   "SFO trip",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var decision DecisionResponse
	decode(t, rec, &decision)
	assert.Equal(t, "success", decision.Status)
	assert.Equal(t, int64(1), decision.RemainingUnreviewed)

	rec = s.do(t, http.MethodPost, "/api/v1/decisions", gin.H{
		"message_id":             "<m1@united.com>",
		"is_flight_confirmation": false,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats review.Stats
	decode(t, rec, &stats)
	assert.Equal(t, review.Stats{TotalCandidates: 2, Reviewed: 1, Unreviewed: 1, ConfirmedCount: 1, ReviewRatePercent: 50}, stats)

	rec = s.do(t, http.MethodGet, "/api/v1/confirmed?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, http.MethodGet, "/api/v1/decisions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = s.do(t, http.MethodPost, "/api/v1/decisions/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var undo UndoResponse
	decode(t, rec, &undo)
	assert.Equal(t, "<m1@united.com>", undo.UndoneMessageID)

	rec = s.do(t, http.MethodPost, "/api/v1/decisions/undo", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errResp ErrorResponse
	decode(t, rec, &errResp)
	assert.Equal(t, "not_found", errResp.Error)
}

func TestSubmitDecisionValidation(t *testing.T) {
	s := setupServer(t, false)
	s.seed(t, "<m1@united.com>")

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"unknown message", gin.H{"message_id": "<nope>", "is_flight_confirmation": true}, http.StatusNotFound},
		{"missing verdict", gin.H{"message_id": "<m1@united.com>"}, http.StatusBadRequest},
		{"non boolean verdict", gin.H{"message_id": "<m1@united.com>", "is_flight_confirmation": "yes"}, http.StatusBadRequest},
		{"unknown message with bad verdict", gin.H{"message_id": "<nope>", "is_flight_confirmation": "yes"}, http.StatusNotFound},
		{"missing message id", gin.H{"is_flight_confirmation": true}, http.StatusBadRequest},
		{"malformed body", "{", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/v1/decisions", tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	stats, err := s.review.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Reviewed)
}

func TestSearchAndGetCandidate(t *testing.T) {
	s := setupServer(t, false)
	s.seed(t, "<m1@united.com>")

	rec := s.do(t, http.MethodGet, "/api/v1/candidates/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/search?q=united&reviewed=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/search?q=UNITED&reviewed=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result review.SearchResult
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Count)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/"+url.PathEscape("<m1@united.com>"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view review.CandidateView
	decode(t, rec, &view)
	assert.Equal(t, "<m1@united.com>", view.ID)
	assert.False(t, view.Reviewed)

	rec = s.do(t, http.MethodGet, "/api/v1/candidates/"+url.PathEscape("<missing>"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateForwarding(t *testing.T) {
	s := setupServer(t, false)
	s.seed(t, "<m1@united.com>")
	verdict := true
	_, err := s.review.SubmitDecision(context.Background(), review.DecisionInput{MessageID: "<m1@united.com>", Verdict: &verdict})
	require.NoError(t, err)

	path := "/api/v1/confirmed/" + url.PathEscape("<m1@united.com>") + "/forwarding"

	rec := s.do(t, http.MethodPatch, path, gin.H{"status": "success", "trip_id": "T-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	var entry model.ConfirmedFlight
	decode(t, rec, &entry)
	assert.Equal(t, model.ForwardStatusSuccess, entry.ForwardStatus)
	require.NotNil(t, entry.TripID)
	assert.Equal(t, "T-9", *entry.TripID)

	rec = s.do(t, http.MethodPatch, path, gin.H{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, path, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerEndpoints(t *testing.T) {
	s := setupServer(t, true)

	rec := s.do(t, http.MethodPost, "/api/v1/scheduler/run-once", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"inserted":1`)

	rec = s.do(t, http.MethodPost, "/api/v1/scheduler/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/scheduler/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status scheduler.Status
	decode(t, rec, &status)
	assert.True(t, status.Running)
	assert.NotNil(t, status.NextRun)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, 1, status.LastResult.Inserted)

	rec = s.do(t, http.MethodPost, "/api/v1/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSchedulerUnavailable(t *testing.T) {
	s := setupServer(t, false)

	rec := s.do(t, http.MethodPost, "/api/v1/scheduler/run-once", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/scheduler/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
