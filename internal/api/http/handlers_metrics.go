package http

import (
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/monitoring"
)

const storeComponent = "session_store"

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper. A nil collector records nothing.
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackStoreOperation times a store operation; call the returned func with
// the outcome ("success", "noop" or "error").
func (hm *HandlerMetrics) TrackStoreOperation(operation string) func(status string) {
	timer := monitoring.NewTimer(hm.metrics, storeComponent, operation)
	return timer.Stop
}

// Snapshot returns the JSON-facing counters
func (hm *HandlerMetrics) Snapshot() monitoring.MetricsSnapshot {
	return hm.metrics.Snapshot()
}

// UptimeSeconds returns the collector's uptime
func (hm *HandlerMetrics) UptimeSeconds() float64 {
	return hm.metrics.UptimeSeconds()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "noop"
}
