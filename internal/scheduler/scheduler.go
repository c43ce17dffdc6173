// Package scheduler decides whether a link check is due, runs it, records the outcome,
// triggers notifications and advances the schedule. It has no timer loop of its own:
// every external trigger calls Invoke, and invocations that are not due are no-ops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/dandantas/linkpatrol/internal/model"
)

// ErrRunCancelled marks a run interrupted by cancellation of the trigger or shutdown
var ErrRunCancelled = errors.New("run cancelled")

const (
	persistTimeout = 15 * time.Second

	// DefaultNotifyTimeout bounds notification delivery after the schedule is saved
	DefaultNotifyTimeout = 2 * time.Minute
)

// ScheduleStore loads and saves the cadence settings
type ScheduleStore interface {
	Load(ctx context.Context) (model.ScheduleSettings, error)
	Save(ctx context.Context, settings model.ScheduleSettings) error
}

// RunHistory is the append-only store of run records
type RunHistory interface {
	Append(ctx context.Context, record *model.ScheduledCheckRecord) error
}

// ContentSource supplies the posts to check
type ContentSource interface {
	GetRecentPosts(ctx context.Context, limit int) ([]model.Post, error)
}

// Checker checks the links of a batch of posts
type Checker interface {
	CheckPosts(ctx context.Context, posts []model.Post) (*model.LinkCheckResult, error)
}

// Notifier dispatches an alert through the configured channels
type Notifier interface {
	Notify(ctx context.Context, payload model.NotificationPayload) model.NotificationReport
}

// State is the result of one invocation
type State string

const (
	StateNotDue    State = "not_due"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Outcome describes what one invocation did
type Outcome struct {
	State        State
	CheckID      string
	Record       *model.ScheduledCheckRecord
	Notification *model.NotificationReport
	NextRunAt    time.Time
}

// Scheduler runs due link checks
type Scheduler struct {
	store    ScheduleStore
	history  RunHistory
	content  ContentSource
	checker  Checker
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	notifyTimeout time.Duration
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithNotifyTimeout bounds how long notification delivery may take
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// WithMetrics records run metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a scheduler. notifier may be nil when no channel is configured.
func NewScheduler(
	store ScheduleStore,
	history RunHistory,
	content ContentSource,
	checker Checker,
	notifier Notifier,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		store:    store,
		history:  history,
		content:  content,
		checker:  checker,
		notifier: notifier,
		now:      time.Now,

		notifyTimeout: DefaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke runs one scheduler step. When the schedule is disabled or not yet due it
// returns StateNotDue without touching any store.
//
// A due invocation always appends exactly one run record and advances NextRunAt, whether
// the run completed or failed. The returned error reports infrastructure failures
// (loading settings, persisting the record or the schedule); a failed run on its own is
// reported through Outcome.State.
func (s *Scheduler) Invoke(ctx context.Context, triggeredBy string) (*Outcome, error) {
	settings, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schedule settings: %w", err)
	}

	now := s.now().UTC()
	if !settings.IsDue(now) {
		slog.Debug("Link check not due",
			"enabled", settings.Enabled,
			"next_run_at", formatTime(settings.NextRunAt),
		)
		return &Outcome{State: StateNotDue}, nil
	}

	checkID := uuid.New().String()
	record := &model.ScheduledCheckRecord{
		ID:               checkID,
		Timestamp:        now,
		SettingsSnapshot: settings,
		TriggeredBy:      triggeredBy,
	}

	slog.Info("Starting scheduled link check",
		"check_id", checkID,
		"frequency", string(settings.Frequency),
		"posts_to_check", settings.PostsToCheckPerRun,
		"triggered_by", triggeredBy,
	)

	start := s.now()
	result, runErr := s.run(ctx, settings.PostsToCheckPerRun)
	record.DurationMs = s.now().Sub(start).Milliseconds()

	outcome := &Outcome{CheckID: checkID, Record: record}
	if runErr != nil {
		record.Status = model.CheckStatusFailed
		record.ErrorMessage = runErr.Error()
		outcome.State = StateFailed

		slog.Error("Scheduled link check failed",
			"check_id", checkID,
			"duration_ms", record.DurationMs,
			"error", runErr,
		)
	} else {
		record.Status = model.CheckStatusCompleted
		record.Result = result
		outcome.State = StateCompleted

		slog.Info("Scheduled link check completed",
			"check_id", checkID,
			"total_links", result.TotalLinks,
			"dead_links", len(result.DeadLinks),
			"duration_ms", record.DurationMs,
		)
	}

	s.metrics.ObserveRun(string(outcome.State), time.Duration(record.DurationMs)*time.Millisecond)

	// The trigger may already be cancelled; the record and schedule are still written.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	var errs []error
	if err := s.history.Append(persistCtx, record); err != nil {
		slog.Error("Failed to persist run record", "check_id", checkID, "error", err)
		errs = append(errs, fmt.Errorf("append run record: %w", err))
	}

	nextRun, err := NextRun(settings, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("compute next run: %w", err))
	} else {
		lastRun := now
		settings.LastRunAt = &lastRun
		settings.NextRunAt = &nextRun
		outcome.NextRunAt = nextRun

		if err := s.store.Save(persistCtx, settings); err != nil {
			slog.Error("Failed to save schedule settings", "check_id", checkID, "error", err)
			errs = append(errs, fmt.Errorf("save schedule settings: %w", err))
		} else {
			slog.Info("Next link check scheduled",
				"check_id", checkID,
				"next_run_at", nextRun.Format(time.RFC3339),
			)
		}
	}

	// Notification runs after the schedule is saved, under its own deadline.
	if outcome.State == StateCompleted {
		s.metrics.SetDeadLinks(len(result.DeadLinks))
		if len(result.DeadLinks) > 0 && s.notifier != nil {
			notifyCtx, cancelNotify := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
			payload := model.NewNotificationPayload(checkID, result, s.now())
			report := s.notifier.Notify(notifyCtx, payload)
			cancelNotify()
			outcome.Notification = &report
		}
	}

	return outcome, errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context, limit int) (*model.LinkCheckResult, error) {
	posts, err := s.content.GetRecentPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	slog.Info("Fetched posts for link check", "count", len(posts))

	result, err := s.checker.CheckPosts(ctx, posts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrRunCancelled, err)
		}
		return nil, fmt.Errorf("check links: %w", err)
	}

	return result, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
