package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/retry"
)

func testPayload(n int) model.NotificationPayload {
	details := make([]model.LinkCheckOutcome, 0, n)
	for i := 0; i < n; i++ {
		details = append(details, model.LinkCheckOutcome{
			URL:             "https://example.com/" + string(rune('a'+i)),
			ErrorKind:       model.HTTPErrorKind(404),
			StatusCode:      404,
			SourcePostID:    "post-1",
			SourcePostTitle: "Hello",
		})
	}
	return model.NotificationPayload{
		Timestamp:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TotalDeadLinks: n,
		PostsAffected:  1,
		SummaryText:    "Found dead links",
		Details:        details,
		SourceRunID:    "check-1",
	}
}

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelayMs: 1, MaxDelayMs: 5, Multiplier: 2}
}

func TestSendWebhook_Delivered(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(Options{Retry: fastRetry(), Headers: map[string]string{"X-Token": "secret"}})
	log, err := d.SendWebhook(context.Background(), srv.URL, testPayload(2))

	require.NoError(t, err)
	assert.Equal(t, model.DeliveryDelivered, log.FinalStatus)
	assert.Len(t, log.Attempts, 1)
	assert.Equal(t, "check-1", log.CheckID)
	assert.Equal(t, 2, received.TotalDeadLinks)
	assert.Len(t, received.DeadLinks, 2)
	assert.Contains(t, received.Text, "https://example.com/a")
}

func TestSendWebhook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDispatcher(Options{Retry: fastRetry()})
	log, err := d.SendWebhook(context.Background(), srv.URL, testPayload(1))

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, log.Attempts, 3)
	assert.Equal(t, http.StatusBadGateway, log.Attempts[0].StatusCode)
	assert.Equal(t, 3, log.Attempts[2].AttemptNumber)
}

func TestSendWebhook_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDispatcher(Options{Retry: fastRetry()})
	log, err := d.SendWebhook(context.Background(), srv.URL, testPayload(1))

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, model.DeliveryFailed, log.FinalStatus)
	assert.NotEmpty(t, log.Error)
}

func TestSendWebhook_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDispatcher(Options{Retry: fastRetry()})
	for i := 0; i < 5; i++ {
		_, err := d.SendWebhook(context.Background(), srv.URL, testPayload(1))
		require.Error(t, err)
	}

	assert.Equal(t, "open", d.CircuitState())
	log, err := d.SendWebhook(context.Background(), srv.URL, testPayload(1))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Empty(t, log.Attempts)
}

func TestFormatMessage_TruncatesPreviewButNotCounts(t *testing.T) {
	msg := FormatMessage(testPayload(5), 2)

	assert.Equal(t, 5, msg.TotalDeadLinks)
	assert.Len(t, msg.DeadLinks, 5)
	assert.Contains(t, msg.Text, "https://example.com/a")
	assert.Contains(t, msg.Text, "https://example.com/b")
	assert.NotContains(t, msg.Text, "https://example.com/c")
	assert.Contains(t, msg.Text, "and 3 more")
	assert.Equal(t, "2026-01-02T03:04:05Z", msg.Timestamp)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(2, 1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.CanAttempt())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.CanAttempt())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(1, 2, time.Second)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	now = now.Add(2 * time.Second)
	require.True(t, cb.CanAttempt())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}
