package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/database"
	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/scheduler"
)

const testSecret = "cron-secret"

type fakeInvoker struct {
	outcome *scheduler.Outcome
	err     error
	calls   int
}

func (f *fakeInvoker) Invoke(context.Context, string) (*scheduler.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeLocker struct {
	held bool
}

func (f *fakeLocker) WithLock(ctx context.Context, _, _ string, _ time.Duration, fn func(context.Context) error) error {
	if f.held {
		return database.ErrLockHeld
	}
	return fn(ctx)
}

type fakeCheckStore struct {
	records []model.ScheduledCheckRecord
	status  string
}

func (f *fakeCheckStore) List(_ context.Context, status string, _, _ int) ([]model.ScheduledCheckRecord, int64, error) {
	f.status = status
	return f.records, int64(len(f.records)), nil
}

func (f *fakeCheckStore) GetByID(_ context.Context, id string) (*model.ScheduledCheckRecord, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, database.ErrCheckNotFound
}

func newTestRouter(invoker Invoker, locker Locker, store CheckStore) http.Handler {
	reg := prometheus.NewRegistry()
	metrics.NewMetrics(reg)

	health := NewHealthHandler(nil, Capabilities{
		Schedule: ScheduleInfo{Enabled: true, Frequency: "weekly", TimeOfDay: "03:00"},
		Channels: []string{model.ChannelWebhook},
		Trigger:  "/api/v1/cron/link-check",
	}, "test")

	var history *HistoryHandler
	if store != nil {
		history = NewHistoryHandler(store)
	}

	return NewRouter(NewTriggerHandler(invoker, locker, time.Minute), history, health, reg, testSecret).Handler()
}

func trigger(t *testing.T, h http.Handler, auth string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cron/link-check", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func completedOutcome() *scheduler.Outcome {
	return &scheduler.Outcome{
		State:   scheduler.StateCompleted,
		CheckID: "check-1",
		Record: &model.ScheduledCheckRecord{
			ID:     "check-1",
			Status: model.CheckStatusCompleted,
			Result: &model.LinkCheckResult{
				TotalLinks:   2,
				WorkingLinks: 1,
				DeadLinks:    []model.LinkCheckOutcome{{URL: "https://example.com/404", SourcePostID: "p1"}},
				PostsChecked: 1,
			},
		},
		NextRunAt: time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
	}
}

func TestTrigger_RejectsBadSecret(t *testing.T) {
	invoker := &fakeInvoker{}
	h := newTestRouter(invoker, nil, nil)

	rec, _ := trigger(t, h, "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = trigger(t, h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, invoker.calls)
}

func TestTrigger_NotDue(t *testing.T) {
	h := newTestRouter(&fakeInvoker{outcome: &scheduler.Outcome{State: scheduler.StateNotDue}}, &fakeLocker{}, nil)

	rec, body := trigger(t, h, "Bearer "+testSecret)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "not scheduled to run", body["message"])
}

func TestTrigger_Completed(t *testing.T) {
	h := newTestRouter(&fakeInvoker{outcome: completedOutcome()}, &fakeLocker{}, nil)

	rec, body := trigger(t, h, "Bearer "+testSecret)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "check-1", body["checkId"])
	summary, ok := body["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), summary["totalLinks"])
	assert.Equal(t, float64(1), summary["deadLinks"])
	assert.Equal(t, "2026-03-11T09:00:00Z", summary["nextRunAt"])
}

func TestTrigger_Failed(t *testing.T) {
	outcome := &scheduler.Outcome{
		State:   scheduler.StateFailed,
		CheckID: "check-2",
		Record: &model.ScheduledCheckRecord{
			ID:           "check-2",
			Status:       model.CheckStatusFailed,
			ErrorMessage: "fetch posts: unexpected status from content api: 502",
		},
	}
	h := newTestRouter(&fakeInvoker{outcome: outcome}, &fakeLocker{}, nil)

	rec, body := trigger(t, h, "Bearer "+testSecret)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "link check failed", body["error"])
	assert.Contains(t, body["details"], "502")
	assert.Equal(t, "check-2", body["checkId"])
}

func TestTrigger_LoadError(t *testing.T) {
	h := newTestRouter(&fakeInvoker{err: errors.New("load schedule settings: timeout")}, &fakeLocker{}, nil)

	rec, body := trigger(t, h, "Bearer "+testSecret)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["details"], "load schedule settings")
}

func TestTrigger_LockHeld(t *testing.T) {
	invoker := &fakeInvoker{outcome: completedOutcome()}
	h := newTestRouter(invoker, &fakeLocker{held: true}, nil)

	rec, body := trigger(t, h, "Bearer "+testSecret)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "run already in progress", body["message"])
	assert.Zero(t, invoker.calls)
}

func TestTrigger_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(&fakeInvoker{}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cron/link-check", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth_IsPublicAndDescribesCapabilities(t *testing.T) {
	h := newTestRouter(&fakeInvoker{}, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "weekly", body.Capabilities.Schedule.Frequency)
	assert.Equal(t, []string{model.ChannelWebhook}, body.Capabilities.Channels)
}

func TestHistory_List(t *testing.T) {
	store := &fakeCheckStore{records: []model.ScheduledCheckRecord{
		*completedOutcome().Record,
	}}
	h := newTestRouter(&fakeInvoker{}, nil, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks?status=completed&limit=500", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body CheckListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	assert.Equal(t, 100, body.Limit)
	require.Len(t, body.Results, 1)
	assert.Equal(t, 1, body.Results[0].DeadLinks)
	assert.Equal(t, "completed", store.status)
}

func TestHistory_GetMissing(t *testing.T) {
	h := newTestRouter(&fakeInvoker{}, nil, &fakeCheckStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checks/nope", nil)
	req.Header.Set("Authorization", "Bearer "+testSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&fakeInvoker{}, nil, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linkpatrol_")
}
