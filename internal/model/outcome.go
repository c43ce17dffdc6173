package model

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies why a link was considered dead
type ErrorKind string

const (
	ErrorKindTimeout ErrorKind = "timeout"
	ErrorKindNetwork ErrorKind = "network_error"
)

// HTTPErrorKind returns the error kind for a non-working HTTP status, e.g. "http_404"
func HTTPErrorKind(statusCode int) ErrorKind {
	return ErrorKind(fmt.Sprintf("http_%d", statusCode))
}

// Transient reports whether a later attempt could plausibly succeed.
// Timeouts, network errors, rate limiting and server errors qualify.
func (k ErrorKind) Transient() bool {
	switch {
	case k == ErrorKindTimeout, k == ErrorKindNetwork:
		return true
	case k == "http_429":
		return true
	case strings.HasPrefix(string(k), "http_5"):
		return true
	default:
		return false
	}
}

// ProbeStatus is the tag of a ProbeResult
type ProbeStatus string

const (
	ProbeWorking ProbeStatus = "working"
	ProbeDead    ProbeStatus = "dead"
)

// ProbeResult is the classified outcome of a single probe: Working, or Dead with an ErrorKind.
type ProbeResult struct {
	Status     ProbeStatus
	StatusCode int
	ErrorKind  ErrorKind
	Latency    time.Duration
}

// Working builds a working probe result
func Working(statusCode int, latency time.Duration) ProbeResult {
	return ProbeResult{Status: ProbeWorking, StatusCode: statusCode, Latency: latency}
}

// Dead builds a dead probe result. statusCode is zero when no HTTP response was received.
func Dead(kind ErrorKind, statusCode int, latency time.Duration) ProbeResult {
	return ProbeResult{Status: ProbeDead, ErrorKind: kind, StatusCode: statusCode, Latency: latency}
}

// IsWorking reports whether the probe classified the link as working
func (r ProbeResult) IsWorking() bool {
	return r.Status == ProbeWorking
}

// LinkCheckOutcome is the immutable record of checking one LinkTarget
type LinkCheckOutcome struct {
	URL             string    `json:"url" bson:"url"`
	StatusCode      int       `json:"status_code,omitempty" bson:"status_code,omitempty"`
	ErrorKind       ErrorKind `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	LatencyMs       int64     `json:"latency_ms" bson:"latency_ms"`
	Attempts        int       `json:"attempts" bson:"attempts"`
	SourcePostID    string    `json:"source_post_id" bson:"source_post_id"`
	SourcePostTitle string    `json:"source_post_title" bson:"source_post_title"`
	CheckedAt       time.Time `json:"checked_at" bson:"checked_at"`
}

// NewOutcome combines a target with the probe result that classified it
func NewOutcome(target LinkTarget, result ProbeResult, attempts int, checkedAt time.Time) LinkCheckOutcome {
	return LinkCheckOutcome{
		URL:             target.URL,
		StatusCode:      result.StatusCode,
		ErrorKind:       result.ErrorKind,
		LatencyMs:       result.Latency.Milliseconds(),
		Attempts:        attempts,
		SourcePostID:    target.SourcePostID,
		SourcePostTitle: target.SourcePostTitle,
		CheckedAt:       checkedAt.UTC(),
	}
}

// IsWorking reports whether the outcome counts towards working links
func (o LinkCheckOutcome) IsWorking() bool {
	return o.ErrorKind == ""
}

// LinkCheckResult is the aggregate of one run.
// WorkingLinks + len(DeadLinks) always equals TotalLinks.
type LinkCheckResult struct {
	TotalLinks       int                `json:"total_links" bson:"total_links"`
	WorkingLinks     int                `json:"working_links" bson:"working_links"`
	DeadLinks        []LinkCheckOutcome `json:"dead_links" bson:"dead_links"`
	PostsChecked     int                `json:"posts_checked" bson:"posts_checked"`
	ProcessingTimeMs int64              `json:"processing_time_ms" bson:"processing_time_ms"`
}

// PostsAffected counts the distinct posts that contain at least one dead link
func (r *LinkCheckResult) PostsAffected() int {
	if r == nil {
		return 0
	}
	posts := make(map[string]struct{}, len(r.DeadLinks))
	for _, dead := range r.DeadLinks {
		posts[dead.SourcePostID] = struct{}{}
	}
	return len(posts)
}
