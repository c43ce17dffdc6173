package metrics_test

import (
	"testing"
	"time"

	"github.com/dandantas/linkpatrol/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := metrics.NewMetrics(prometheus.NewRegistry())

	m.ObserveRun("completed", 2*time.Second)
	m.ObserveRun("not_due", 0)
	m.ObserveProbe("working", 10*time.Millisecond)
	m.ObserveProbe("http_404", 10*time.Millisecond)
	m.ObserveProbe("http_404", 10*time.Millisecond)
	m.ObserveNotification("email", false)
	m.SetDeadLinks(3)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RunsTotal.WithLabelValues("completed")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ProbesTotal.WithLabelValues("http_404")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("email", "failed")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.DeadLinksLastRun), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.ObserveRun("failed", time.Second)
		m.ObserveProbe("timeout", time.Second)
		m.ObserveNotification("webhook", true)
		m.SetDeadLinks(1)
	})
}
