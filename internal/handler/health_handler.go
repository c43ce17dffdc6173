package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Capabilities is the static description of what this instance does
type Capabilities struct {
	Schedule ScheduleInfo `json:"schedule"`
	Checker  CheckerInfo  `json:"checker"`
	Channels []string     `json:"channels"`
	Trigger  string       `json:"trigger"`
}

// ScheduleInfo describes the configured cadence
type ScheduleInfo struct {
	Enabled     bool   `json:"enabled"`
	Frequency   string `json:"frequency"`
	TimeOfDay   string `json:"time_of_day"`
	DayOfWeek   int    `json:"day_of_week"`
	PostsPerRun int    `json:"posts_per_run"`
	Timezone    string `json:"timezone"`
}

// CheckerInfo describes the checker limits
type CheckerInfo struct {
	Concurrency     int     `json:"concurrency"`
	ProbeTimeoutSec int     `json:"probe_timeout_sec"`
	RunDeadlineSec  int     `json:"run_deadline_sec"`
	MaxAttempts     int     `json:"max_attempts"`
	PerHostRPS      float64 `json:"per_host_rps"`
}

// HealthHandler handles service health and readiness checks
type HealthHandler struct {
	db           Pinger
	capabilities Capabilities
	startTime    time.Time
	version      string
}

// NewHealthHandler creates a new health handler. db may be nil.
func NewHealthHandler(db Pinger, capabilities Capabilities, version string) *HealthHandler {
	if capabilities.Channels == nil {
		capabilities.Channels = []string{}
	}
	return &HealthHandler{
		db:           db,
		capabilities: capabilities,
		startTime:    time.Now(),
		version:      version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string       `json:"status"`
	Service       string       `json:"service"`
	Version       string       `json:"version"`
	Timestamp     string       `json:"timestamp"`
	MongoDB       string       `json:"mongodb"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Capabilities  Capabilities `json:"capabilities"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Ready   bool   `json:"ready"`
	MongoDB string `json:"mongodb"`
}

// Health returns the service health status and its configuration summary
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:        "healthy",
		Service:       "linkpatrol",
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		MongoDB:       h.mongoStatus(r.Context()),
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Capabilities:  h.capabilities,
	}

	writeJSON(w, http.StatusOK, response)
}

// Ready returns the service readiness status
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.mongoStatus(r.Context())
	ready := status == "connected"

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Ready:   ready,
		MongoDB: status,
	})
}

func (h *HealthHandler) mongoStatus(ctx context.Context) string {
	if h.db == nil {
		return "not configured"
	}
	if err := h.db.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
