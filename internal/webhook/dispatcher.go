// Package webhook delivers dead link reports to an HTTP endpoint with retries and a
// circuit breaker.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/retry"
)

// ErrCircuitOpen is returned when deliveries are suspended after repeated failures
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Options configures a Dispatcher
type Options struct {
	Timeout      time.Duration
	Retry        retry.Config
	PreviewLimit int
	Headers      map[string]string
}

// Dispatcher handles webhook delivery with retry logic
type Dispatcher struct {
	httpClient     *http.Client
	circuitBreaker *CircuitBreaker
	retry          *retry.Strategy
	previewLimit   int
	headers        map[string]string
}

// NewDispatcher creates a new webhook dispatcher
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		circuitBreaker: NewCircuitBreaker(0, 0, 0),
		retry:          retry.NewStrategy(opts.Retry),
		previewLimit:   opts.PreviewLimit,
		headers:        opts.Headers,
	}
}

// SendWebhook posts a dead link report to url, retrying transient failures.
// The returned delivery log is never nil and records every attempt.
func (d *Dispatcher) SendWebhook(
	ctx context.Context,
	url string,
	payload model.NotificationPayload,
) (*model.DeliveryLog, error) {
	log := &model.DeliveryLog{
		CheckID:   payload.SourceRunID,
		Channel:   model.ChannelWebhook,
		Target:    url,
		DeadLinks: payload.TotalDeadLinks,
		Attempts:  make([]model.DeliveryAttempt, 0),
		CreatedAt: time.Now().UTC(),
	}

	if !d.circuitBreaker.CanAttempt() {
		slog.Warn("Circuit breaker is open, skipping webhook delivery",
			"check_id", payload.SourceRunID,
			"webhook_url", url,
			"circuit_state", d.circuitBreaker.State().String(),
		)
		return d.finish(log, ErrCircuitOpen)
	}

	body, err := json.Marshal(FormatMessage(payload, d.previewLimit))
	if err != nil {
		return d.finish(log, fmt.Errorf("marshal webhook payload: %w", err))
	}

	maxAttempts := d.retry.MaxAttempts()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		slog.Info("Attempting webhook delivery",
			"check_id", payload.SourceRunID,
			"webhook_url", url,
			"attempt", attempt,
			"max_attempts", maxAttempts,
		)

		result, err := d.deliver(ctx, url, body)
		result.AttemptNumber = attempt
		log.Attempts = append(log.Attempts, result)

		if err == nil {
			slog.Info("Webhook delivered successfully",
				"check_id", payload.SourceRunID,
				"attempt", attempt,
				"status_code", result.StatusCode,
			)
			d.circuitBreaker.RecordSuccess()
			return d.finish(log, nil)
		}

		if !d.retry.ShouldRetryHTTP(attempt, result.StatusCode, err) {
			slog.Error("Webhook delivery failed, no retry",
				"check_id", payload.SourceRunID,
				"attempt", attempt,
				"status_code", result.StatusCode,
				"error", result.Error,
			)
			d.circuitBreaker.RecordFailure()
			return d.finish(log, fmt.Errorf("webhook delivery failed after %d attempts: %w", attempt, err))
		}

		slog.Warn("Webhook delivery failed, retrying",
			"check_id", payload.SourceRunID,
			"attempt", attempt,
			"next_retry_ms", d.retry.CalculateDelay(attempt).Milliseconds(),
			"error", result.Error,
		)

		if err := d.retry.Wait(ctx, attempt); err != nil {
			return d.finish(log, err)
		}
	}

	d.circuitBreaker.RecordFailure()
	return d.finish(log, fmt.Errorf("webhook delivery failed after %d attempts", maxAttempts))
}

func (d *Dispatcher) finish(log *model.DeliveryLog, err error) (*model.DeliveryLog, error) {
	log.CompletedAt = time.Now().UTC()
	if err != nil {
		log.FinalStatus = model.DeliveryFailed
		log.Error = err.Error()
		return log, err
	}
	log.FinalStatus = model.DeliveryDelivered
	return log, nil
}

// deliver performs a single webhook delivery attempt
func (d *Dispatcher) deliver(ctx context.Context, url string, body []byte) (model.DeliveryAttempt, error) {
	start := time.Now()
	attempt := model.DeliveryAttempt{Timestamp: start.UTC()}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		attempt.Error = fmt.Sprintf("Failed to create request: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range d.headers {
		req.Header.Set(key, value)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		attempt.Error = fmt.Sprintf("Request failed: %v", err)
		attempt.DurationMs = time.Since(start).Milliseconds()
		return attempt, err
	}
	defer resp.Body.Close()

	// Read response body (limit to 1KB to prevent memory issues)
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		slog.Warn("Failed to read webhook response body", "error", err)
	}

	attempt.StatusCode = resp.StatusCode
	attempt.ResponseBody = string(bodyBytes)
	attempt.DurationMs = time.Since(start).Milliseconds()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		attempt.Error = fmt.Sprintf("Webhook returned status %d", resp.StatusCode)
		return attempt, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return attempt, nil
}

// CircuitState returns the current circuit breaker state
func (d *Dispatcher) CircuitState() string {
	return d.circuitBreaker.State().String()
}
