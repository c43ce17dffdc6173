package model

import (
	"fmt"
	"time"
)

// NotificationPayload is the alert derived from a completed run with dead links
type NotificationPayload struct {
	Timestamp      time.Time          `json:"timestamp"`
	TotalDeadLinks int                `json:"total_dead_links"`
	PostsAffected  int                `json:"posts_affected"`
	SummaryText    string             `json:"summary_text"`
	Details        []LinkCheckOutcome `json:"details"`
	SourceRunID    string             `json:"source_run_id"`
}

// Notification channel names
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// ChannelResult is the outcome of dispatching a payload through one channel
type ChannelResult struct {
	Channel    string `json:"channel"`
	Target     string `json:"target,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// NotificationReport aggregates per-channel results of one Notify call
type NotificationReport struct {
	Dispatched bool            `json:"dispatched"`
	Channels   []ChannelResult `json:"channels,omitempty"`
}

// Succeeded counts channels that delivered successfully
func (r NotificationReport) Succeeded() int {
	n := 0
	for _, ch := range r.Channels {
		if ch.Success {
			n++
		}
	}
	return n
}

// Result returns the result for a channel, if it was attempted
func (r NotificationReport) Result(channel string) (ChannelResult, bool) {
	for _, ch := range r.Channels {
		if ch.Channel == channel {
			return ch, true
		}
	}
	return ChannelResult{}, false
}

// NewNotificationPayload derives the alert for a completed run. Details carries every
// dead link; renderers truncate, the counters never do.
func NewNotificationPayload(checkID string, result *LinkCheckResult, at time.Time) NotificationPayload {
	payload := NotificationPayload{
		Timestamp:   at.UTC(),
		SourceRunID: checkID,
		Details:     []LinkCheckOutcome{},
	}
	if result == nil {
		payload.SummaryText = "No dead links found"
		return payload
	}

	payload.TotalDeadLinks = len(result.DeadLinks)
	payload.PostsAffected = result.PostsAffected()
	payload.Details = append(payload.Details, result.DeadLinks...)
	payload.SummaryText = fmt.Sprintf("Found %d dead %s across %d %s (%d of %d links working)",
		payload.TotalDeadLinks, plural(payload.TotalDeadLinks, "link", "links"),
		payload.PostsAffected, plural(payload.PostsAffected, "post", "posts"),
		result.WorkingLinks, result.TotalLinks,
	)
	return payload
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
