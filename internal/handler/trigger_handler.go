package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dandantas/linkpatrol/internal/database"
	"github.com/dandantas/linkpatrol/internal/model"
	"github.com/dandantas/linkpatrol/internal/scheduler"
	"github.com/dandantas/linkpatrol/pkg/middleware"
)

// TriggerLockName names the advisory lock held while the scheduler runs
const TriggerLockName = "link_check"

// Invoker runs one scheduler step
type Invoker interface {
	Invoke(ctx context.Context, triggeredBy string) (*scheduler.Outcome, error)
}

// Locker serializes overlapping invocations
type Locker interface {
	WithLock(ctx context.Context, name, owner string, ttl time.Duration, fn func(context.Context) error) error
}

// TriggerHandler exposes the scheduler to an external cron caller
type TriggerHandler struct {
	invoker Invoker
	locker  Locker
	lockTTL time.Duration
}

// NewTriggerHandler creates a trigger handler. locker may be nil.
func NewTriggerHandler(invoker Invoker, locker Locker, lockTTL time.Duration) *TriggerHandler {
	return &TriggerHandler{
		invoker: invoker,
		locker:  locker,
		lockTTL: lockTTL,
	}
}

// TriggerMessage is returned when nothing ran
type TriggerMessage struct {
	Message string `json:"message"`
}

// TriggerSummary describes a completed run
type TriggerSummary struct {
	TotalLinks       int                   `json:"totalLinks"`
	WorkingLinks     int                   `json:"workingLinks"`
	DeadLinks        int                   `json:"deadLinks"`
	PostsChecked     int                   `json:"postsChecked"`
	PostsAffected    int                   `json:"postsAffected"`
	ProcessingTimeMs int64                 `json:"processingTimeMs"`
	NextRunAt        string                `json:"nextRunAt,omitempty"`
	Notifications    []model.ChannelResult `json:"notifications,omitempty"`
}

// TriggerSuccess is returned for a completed run
type TriggerSuccess struct {
	Success bool           `json:"success"`
	CheckID string         `json:"checkId"`
	Summary TriggerSummary `json:"summary"`
}

// TriggerFailure is returned for a failed run
type TriggerFailure struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	CheckID string `json:"checkId,omitempty"`
}

// Trigger handles /api/v1/cron/link-check
func (h *TriggerHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	correlationID := middleware.GetCorrelationID(r.Context())
	logger := middleware.Logger(r.Context())

	var (
		outcome *scheduler.Outcome
		err     error
	)
	invoke := func(ctx context.Context) error {
		outcome, err = h.invoker.Invoke(ctx, "http:"+correlationID)
		return nil
	}

	if h.locker == nil {
		_ = invoke(r.Context())
	} else if lockErr := h.locker.WithLock(r.Context(), TriggerLockName, correlationID, h.lockTTL, invoke); lockErr != nil {
		if errors.Is(lockErr, database.ErrLockHeld) {
			logger.Info("Link check already running, trigger ignored")
			writeJSON(w, http.StatusConflict, TriggerMessage{Message: "run already in progress"})
			return
		}
		logger.Error("Failed to acquire trigger lock", "error", lockErr)
		writeJSON(w, http.StatusInternalServerError, TriggerFailure{
			Error:   "failed to acquire trigger lock",
			Details: lockErr.Error(),
		})
		return
	}

	switch {
	case outcome == nil:
		writeJSON(w, http.StatusInternalServerError, TriggerFailure{
			Error:   "scheduler invocation failed",
			Details: errString(err),
		})
	case outcome.State == scheduler.StateNotDue:
		writeJSON(w, http.StatusOK, TriggerMessage{Message: "not scheduled to run"})
	case outcome.State == scheduler.StateFailed:
		writeJSON(w, http.StatusInternalServerError, TriggerFailure{
			Error:   "link check failed",
			Details: outcome.Record.ErrorMessage,
			CheckID: outcome.CheckID,
		})
	case err != nil:
		// the run completed but its record or the schedule could not be stored
		writeJSON(w, http.StatusInternalServerError, TriggerFailure{
			Error:   "failed to persist link check",
			Details: err.Error(),
			CheckID: outcome.CheckID,
		})
	default:
		writeJSON(w, http.StatusOK, TriggerSuccess{
			Success: true,
			CheckID: outcome.CheckID,
			Summary: summarize(outcome),
		})
	}
}

func summarize(outcome *scheduler.Outcome) TriggerSummary {
	var summary TriggerSummary
	if result := outcome.Record.Result; result != nil {
		summary.TotalLinks = result.TotalLinks
		summary.WorkingLinks = result.WorkingLinks
		summary.DeadLinks = len(result.DeadLinks)
		summary.PostsChecked = result.PostsChecked
		summary.PostsAffected = result.PostsAffected()
		summary.ProcessingTimeMs = result.ProcessingTimeMs
	}
	if !outcome.NextRunAt.IsZero() {
		summary.NextRunAt = outcome.NextRunAt.Format(time.RFC3339)
	}
	if outcome.Notification != nil {
		summary.Notifications = outcome.Notification.Channels
	}
	return summary
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
