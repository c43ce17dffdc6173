// Package metrics exposes Prometheus collectors for link checking runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all linkpatrol metrics.
	Namespace = "linkpatrol"
)

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
	DeadLinksLastRun   prometheus.Gauge

	ProbesTotal          *prometheus.CounterVec
	ProbeDurationSeconds prometheus.Histogram

	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "invocations_total",
			Help:      "Scheduler invocations by outcome (not_due, completed, failed)",
		}, []string{"status"}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of runs that were due",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		DeadLinksLastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "scheduler",
			Name:      "dead_links_last_run",
			Help:      "Dead links found by the most recent completed run",
		}),
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "checker",
			Name:      "probes_total",
			Help:      "Link probes by result (working or error kind)",
		}, []string{"result"}),
		ProbeDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "checker",
			Name:      "probe_duration_seconds",
			Help:      "Latency of individual link probes",
			Buckets:   prometheus.DefBuckets,
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notifier",
			Name:      "dispatches_total",
			Help:      "Notification dispatches by channel and result",
		}, []string{"channel", "result"}),
	}
}

// ObserveRun records one scheduler invocation
func (m *Metrics) ObserveRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		m.RunDurationSeconds.Observe(duration.Seconds())
	}
}

// SetDeadLinks records the dead link count of the latest completed run
func (m *Metrics) SetDeadLinks(n int) {
	if m == nil {
		return
	}
	m.DeadLinksLastRun.Set(float64(n))
}

// ObserveProbe records one probe result; result is "working" or an error kind
func (m *Metrics) ObserveProbe(result string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(result).Inc()
	m.ProbeDurationSeconds.Observe(latency.Seconds())
}

// ObserveNotification records a channel dispatch
func (m *Metrics) ObserveNotification(channel string, success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "delivered"
	}
	m.NotificationsTotal.WithLabelValues(channel, result).Inc()
}
