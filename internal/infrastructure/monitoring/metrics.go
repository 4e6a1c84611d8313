package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Operation metrics
	OperationCalls    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Session metrics
	Clarity          prometheus.Gauge
	Mode             *prometheus.GaugeVec
	EntitiesAlive    prometheus.Gauge
	EntitiesSpawned  prometheus.Counter
	EntitiesExpired  prometheus.Counter
	EntitiesCaptured prometheus.Counter
	RecordsCaptured  *prometheus.CounterVec

	// Persistence metrics
	PersistenceWrites   *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec

	// Audio metrics
	CuesEmitted *prometheus.CounterVec
	LoopsActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	mu       sync.Mutex
	lastMode string
	snapshot MetricsSnapshot
}

// MetricsSnapshot holds current metric values for the JSON health endpoint
type MetricsSnapshot struct {
	TotalRequests       int64 `json:"total_requests"`
	TotalErrors         int64 `json:"total_errors"`
	ActiveConnections   int64 `json:"active_connections"`
	PersistenceFailures int64 `json:"persistence_failures"`
}

// NewMetrics creates a metrics collector registered with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soundscape_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		OperationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_operation_calls_total",
				Help: "Total number of store operations invoked through the API",
			},
			[]string{"component", "operation", "status"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soundscape_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"component", "operation"},
		),

		Clarity: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundscape_clarity",
				Help: "Current session clarity",
			},
		),
		Mode: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "soundscape_mode",
				Help: "Current derived mode (1 for the active mode)",
			},
			[]string{"mode"},
		),
		EntitiesAlive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundscape_entities_alive",
				Help: "Number of live ephemeral entities",
			},
		),
		EntitiesSpawned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundscape_entities_spawned_total",
				Help: "Total number of ephemeral entities spawned",
			},
		),
		EntitiesExpired: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundscape_entities_expired_total",
				Help: "Total number of ephemeral entities removed by the sweep",
			},
		),
		EntitiesCaptured: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundscape_entities_captured_total",
				Help: "Total number of ephemeral entities captured by the user",
			},
		),
		RecordsCaptured: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_records_captured_total",
				Help: "Total number of durable records captured",
			},
			[]string{"kind"},
		),

		PersistenceWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_persistence_writes_total",
				Help: "Total number of successful persistence writes",
			},
			[]string{"key"},
		),
		PersistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_persistence_failures_total",
				Help: "Total number of failed persistence operations",
			},
			[]string{"op"},
		),

		CuesEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_audio_cues_total",
				Help: "Total number of audio cues emitted",
			},
			[]string{"kind"},
		),
		LoopsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundscape_audio_loops_active",
				Help: "Number of running loop players",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundscape_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundscape_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundscape_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records a store operation invoked through the API
func (m *Metrics) RecordOperation(component, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationCalls.WithLabelValues(component, operation, status).Inc()
	m.OperationDuration.WithLabelValues(component, operation).Observe(duration.Seconds())
}

// SetSessionState publishes the current clarity, entity count and mode
func (m *Metrics) SetSessionState(clarity float64, entities int, mode string) {
	if m == nil {
		return
	}
	m.Clarity.Set(clarity)
	m.EntitiesAlive.Set(float64(entities))

	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == m.lastMode {
		return
	}
	if m.lastMode != "" {
		m.Mode.WithLabelValues(m.lastMode).Set(0)
	}
	m.Mode.WithLabelValues(mode).Set(1)
	m.lastMode = mode
}

// IncEntitiesSpawned counts one spawned entity
func (m *Metrics) IncEntitiesSpawned() {
	if m == nil {
		return
	}
	m.EntitiesSpawned.Inc()
}

// AddEntitiesExpired counts n swept entities
func (m *Metrics) AddEntitiesExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EntitiesExpired.Add(float64(n))
}

// IncEntitiesCaptured counts one captured entity
func (m *Metrics) IncEntitiesCaptured() {
	if m == nil {
		return
	}
	m.EntitiesCaptured.Inc()
}

// IncRecordsCaptured counts one durable capture of the given kind
func (m *Metrics) IncRecordsCaptured(kind string) {
	if m == nil {
		return
	}
	m.RecordsCaptured.WithLabelValues(kind).Inc()
}

// IncPersistenceWrites counts a successful write
func (m *Metrics) IncPersistenceWrites(key string) {
	if m == nil {
		return
	}
	m.PersistenceWrites.WithLabelValues(key).Inc()
}

// IncPersistenceFailures counts a failed load or save
func (m *Metrics) IncPersistenceFailures(op string) {
	if m == nil {
		return
	}
	m.PersistenceFailures.WithLabelValues(op).Inc()
	m.mu.Lock()
	m.snapshot.PersistenceFailures++
	m.mu.Unlock()
}

// IncCues counts an emitted audio cue
func (m *Metrics) IncCues(kind string) {
	if m == nil {
		return
	}
	m.CuesEmitted.WithLabelValues(kind).Inc()
}

// SetLoopsActive sets the number of running loop players
func (m *Metrics) SetLoopsActive(n int) {
	if m == nil {
		return
	}
	m.LoopsActive.Set(float64(n))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// Snapshot returns a copy of the JSON-facing counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

// UptimeSeconds returns the seconds since the collector was created
func (m *Metrics) UptimeSeconds() float64 {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime).Seconds()
}
