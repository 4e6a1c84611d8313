package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(reg), reg
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		m.RecordOperation("session_store", "export", "success", time.Millisecond)
		m.SetSessionState(0.5, 2, "neutral")
		m.IncEntitiesSpawned()
		m.AddEntitiesExpired(3)
		m.IncEntitiesCaptured()
		m.IncRecordsCaptured("events")
		m.IncPersistenceWrites("airwave_events")
		m.IncPersistenceFailures("save")
		m.IncCues("spray")
		m.SetLoopsActive(1)
		m.RecordWSMessage("in", "ping")
		m.IncWSConnections()
		m.DecWSConnections()
		m.UpdateUptime()
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
	assert.Zero(t, m.UptimeSeconds())
}

func TestSessionStateModeGauge(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SetSessionState(0.4, 1, "neutral")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mode.WithLabelValues("neutral")))

	m.SetSessionState(0.9, 0, "closure")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Mode.WithLabelValues("neutral")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mode.WithLabelValues("closure")))
	assert.Equal(t, 0.9, testutil.ToFloat64(m.Clarity))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.EntitiesAlive))
}

func TestSnapshotCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordHTTPRequest("GET", "/records", "200", time.Millisecond)
	m.RecordHTTPRequest("POST", "/records/import", "400", time.Millisecond)
	m.IncWSConnections()
	m.IncWSConnections()
	m.DecWSConnections()
	m.IncPersistenceFailures("save")

	assert.Equal(t, MetricsSnapshot{
		TotalRequests:       2,
		TotalErrors:         1,
		ActiveConnections:   1,
		PersistenceFailures: 1,
	}, m.Snapshot())
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, reg := newTestMetrics(t)

	router := gin.New()
	router.Use(Middleware(m))
	router.DELETE("/records/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/records/rec_1", "/records/rec_2", "/nowhere"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("DELETE", "/records/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("DELETE", "unmatched", "404")))

	n, err := testutil.GatherAndCount(reg, "soundscape_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTimer(t *testing.T) {
	m, _ := newTestMetrics(t)

	NewTimer(m, "session_store", "import").Stop("error")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCalls.WithLabelValues("session_store", "import", "error")))
}

func TestRunUptimeStops(t *testing.T) {
	m, _ := newTestMetrics(t)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		m.RunUptime(time.Millisecond, done)
		close(finished)
	}()

	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.Uptime) > 0 }, time.Second, time.Millisecond)
	close(done)
	<-finished
}

func TestMetricNamesArePrefixed(t *testing.T) {
	m, reg := newTestMetrics(t)
	m.IncCues("spray")

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.True(t, strings.HasPrefix(f.GetName(), "soundscape_"), f.GetName())
	}
}
