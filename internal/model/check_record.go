package model

import (
	"time"
)

// CheckStatus is the final state of a scheduled check
type CheckStatus string

const (
	CheckStatusCompleted CheckStatus = "completed"
	CheckStatusFailed    CheckStatus = "failed"
)

// ScheduledCheckRecord is the append-only audit record of one scheduler run.
// It is written once, when the run completes or fails.
type ScheduledCheckRecord struct {
	ID               string           `json:"id" bson:"_id"`
	Timestamp        time.Time        `json:"timestamp" bson:"timestamp"`
	Status           CheckStatus      `json:"status" bson:"status"`
	SettingsSnapshot ScheduleSettings `json:"settings_snapshot" bson:"settings_snapshot"`
	Result           *LinkCheckResult `json:"result,omitempty" bson:"result,omitempty"`
	ErrorMessage     string           `json:"error_message,omitempty" bson:"error_message,omitempty"`
	DurationMs       int64            `json:"duration_ms" bson:"duration_ms"`
	TriggeredBy      string           `json:"triggered_by,omitempty" bson:"triggered_by,omitempty"`
}

// CheckSummary represents a summary for list responses
type CheckSummary struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
	TotalLinks    int    `json:"total_links"`
	WorkingLinks  int    `json:"working_links"`
	DeadLinks     int    `json:"dead_links"`
	PostsAffected int    `json:"posts_affected"`
	DurationMs    int64  `json:"duration_ms"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// ToSummary converts ScheduledCheckRecord to CheckSummary
func (r *ScheduledCheckRecord) ToSummary() CheckSummary {
	summary := CheckSummary{
		ID:           r.ID,
		Status:       string(r.Status),
		DurationMs:   r.DurationMs,
		ErrorMessage: r.ErrorMessage,
	}
	if !r.Timestamp.IsZero() {
		summary.Timestamp = r.Timestamp.Format(time.RFC3339)
	}
	if r.Result != nil {
		summary.TotalLinks = r.Result.TotalLinks
		summary.WorkingLinks = r.Result.WorkingLinks
		summary.DeadLinks = len(r.Result.DeadLinks)
		summary.PostsAffected = r.Result.PostsAffected()
	}
	return summary
}
