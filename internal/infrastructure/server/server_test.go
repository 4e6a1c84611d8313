package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/audio"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/storage"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage.Backend = "memory"
	cfg.Session.ClosureHold = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(cfg)
	require.NoError(t, err)
	s.Start(context.Background())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		assert.NoError(t, s.Close())
	})
	return s, ts
}

func TestNewServerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown variant", func(c *config.Config) { c.Session.Variant = "symphony" }},
		{"unknown backend", func(c *config.Config) { c.Storage.Backend = "tape" }},
		{"remote without url", func(c *config.Config) { c.Storage.Backend = "remote" }},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := NewServer(cfg)
			assert.Error(t, err)
		})
	}
}

func TestSessionProfileOverrides(t *testing.T) {
	p, err := sessionProfile(config.SessionConfig{
		Variant:     "moments",
		SpawnPeriod: 250 * time.Millisecond,
		EntityTTL:   2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, p.SpawnPeriod)
	assert.Equal(t, 2*time.Second, p.EntityTTL)
	assert.NotZero(t, p.SweepPeriod, "unset periods keep the variant default")
}

func TestStorageOptionsSQLitePath(t *testing.T) {
	opts := storageOptions(config.StorageConfig{Backend: "sqlite", Path: "./data"}, nil)
	assert.Equal(t, storage.BackendSQLite, opts.Backend)
	assert.True(t, strings.HasSuffix(opts.Path, sqliteFile))

	opts = storageOptions(config.StorageConfig{Backend: "sqlite", Path: "/tmp/custom.db"}, nil)
	assert.Equal(t, "/tmp/custom.db", opts.Path)

	opts = storageOptions(config.StorageConfig{Backend: "file", Path: "./data"}, nil)
	assert.Equal(t, "./data", opts.Path)
}

func TestServerRoutes(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, map[string]any{"backend": "memory"}, health["storage"])

	metrics, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "soundscape_http_requests_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRateLimitedRouter(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	_, ts := newTestServer(t, cfg)

	codes := make([]int, 0, 3)
	for range 3 {
		resp, err := http.Get(ts.URL + "/session")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)
}

// A REST gesture travels store -> engine -> hub -> stream client
func TestSprayReachesStreamAsCue(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	// the initial frame proves the client is registered
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/session/spray", "application/json", strings.NewReader(`{"x":0.5,"y":0.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Type types.MessageType `json:"type"`
			Data json.RawMessage   `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type != types.MsgCue {
			continue
		}
		var cue audio.Cue
		require.NoError(t, json.Unmarshal(msg.Data, &cue))
		if cue.Kind == audio.CueSpray {
			return
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := NewServer(testConfig(t))
	require.NoError(t, err)
	s.Start(context.Background())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.store.Closed())
}
