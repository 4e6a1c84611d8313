package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsSummary is the JSON view of service health for dashboards that do
// not scrape Prometheus
type MetricsSummary struct {
	Timestamp           time.Time      `json:"timestamp"`
	TotalRequests       int64          `json:"total_requests"`
	ErrorRate           float64        `json:"error_rate"`
	ActiveConnections   int64          `json:"active_connections"`
	PersistenceFailures int64          `json:"persistence_failures"`
	UptimeSeconds       float64        `json:"uptime_seconds"`
	Session             SessionSummary `json:"session"`
}

// SessionSummary is the part of the session worth charting
type SessionSummary struct {
	Variant          string  `json:"variant"`
	Mode             string  `json:"mode"`
	Clarity          float64 `json:"clarity"`
	EffectiveClarity float64 `json:"effective_clarity"`
	Entities         int     `json:"entities"`
	Collection       int     `json:"collection"`
	StorageCircuit   string  `json:"storage_circuit,omitempty"`
}

// GetMetricsSummary returns counters and session state as JSON
func (h *Handlers) GetMetricsSummary(c *gin.Context) {
	snap := h.metrics.Snapshot()
	session := h.store.Snapshot()
	stats := h.store.RecordStats()

	summary := MetricsSummary{
		Timestamp:           time.Now(),
		TotalRequests:       snap.TotalRequests,
		ActiveConnections:   snap.ActiveConnections,
		PersistenceFailures: snap.PersistenceFailures,
		UptimeSeconds:       h.metrics.UptimeSeconds(),
		Session: SessionSummary{
			Variant:          string(session.Variant),
			Mode:             string(session.Mode),
			Clarity:          session.Clarity,
			EffectiveClarity: session.EffectiveClarity,
			Entities:         len(session.Entities),
			Collection:       stats.Count,
		},
	}
	if snap.TotalRequests > 0 {
		summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	if h.info.Breaker != nil {
		summary.Session.StorageCircuit = h.info.Breaker().String()
	}

	c.JSON(http.StatusOK, summary)
}
