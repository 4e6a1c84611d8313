package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/api/middleware"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/audio"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// wireMessage mirrors ServerMessage with a raw payload
type wireMessage struct {
	Type    types.MessageType `json:"type"`
	Request types.MessageType `json:"request"`
	OK      *bool             `json:"ok"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
}

func newTestHub(t *testing.T, variant soundscape.Variant, cfg Config) (*Hub, *soundscape.Store, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := soundscape.NewStore(context.Background(), soundscape.DefaultProfile(variant), nil, soundscape.Options{})
	require.NoError(t, err)

	hub := NewHub(store, zap.NewNop(), cfg)
	router := gin.New()
	router.GET("/stream", hub.HandleConnection)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		store.Close()
	})
	return hub, store, "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	data, err := sonic.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// readType reads until a message of type typ arrives, skipping the others
func readType(t *testing.T, conn *websocket.Conn, typ types.MessageType) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg wireMessage
		require.NoError(t, sonic.Unmarshal(data, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestInitialFrame(t *testing.T) {
	_, store, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	msg := readType(t, conn, types.MsgFrame)
	var snap soundscape.Snapshot
	require.NoError(t, sonic.Unmarshal(msg.Data, &snap))
	assert.Equal(t, store.Snapshot().Clarity, snap.Clarity)
	assert.Equal(t, soundscape.VariantEvents, snap.Variant)
}

func TestPingPong(t *testing.T) {
	_, _, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.MsgPing})
	readType(t, conn, types.MsgPong)
}

func TestGesturesReachStore(t *testing.T) {
	_, store, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.MsgClarity, Value: ptr(0.42)})
	send(t, conn, types.ClientMessage{Type: types.MsgFocus, Value: ptr(2.0)})
	send(t, conn, types.ClientMessage{Type: types.MsgCategory, Category: string(soundscape.BergamotAmber)})
	send(t, conn, types.ClientMessage{Type: types.MsgAudio, Value: ptr(1.0)})
	// ping is processed after everything above
	send(t, conn, types.ClientMessage{Type: types.MsgPing})
	readType(t, conn, types.MsgPong)

	snap := store.Snapshot()
	assert.InDelta(t, 0.42, snap.Clarity, 1e-9)
	assert.Equal(t, 1.0, snap.Focus)
	assert.Equal(t, soundscape.BergamotAmber, snap.Category)
	assert.True(t, snap.AudioStarted)
}

func TestCaptureRecordReply(t *testing.T) {
	_, store, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.MsgCaptureRecord})
	msg := readType(t, conn, types.MsgResult)
	assert.Equal(t, types.MsgCaptureRecord, msg.Request)
	require.NotNil(t, msg.OK)
	assert.True(t, *msg.OK)

	var rec soundscape.CapturedRecord
	require.NoError(t, sonic.Unmarshal(msg.Data, &rec))
	assert.Len(t, store.Snapshot().Records, 1)
	assert.Equal(t, store.Snapshot().Records[0].ID, rec.ID)
}

func TestCaptureEntityUnknownID(t *testing.T) {
	_, _, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.MsgCaptureEntity, ID: "ent_missing"})
	msg := readType(t, conn, types.MsgResult)
	require.NotNil(t, msg.OK)
	assert.False(t, *msg.OK)
}

func TestCaptureEntity(t *testing.T) {
	_, store, url := newTestHub(t, soundscape.VariantTracks, Config{})
	store.SetAudioStarted(true)
	store.SetClarity(0.5)
	e, ok := store.SpawnTick(time.Now())
	require.True(t, ok)

	conn := dial(t, url)
	send(t, conn, types.ClientMessage{Type: types.MsgCaptureEntity, ID: e.ID})
	msg := readType(t, conn, types.MsgResult)
	require.NotNil(t, msg.OK)
	assert.True(t, *msg.OK)

	snap := store.Snapshot()
	assert.Empty(t, snap.Entities)
	for _, tr := range snap.Tracks {
		if tr.Category == soundscape.DefaultCategory {
			assert.Len(t, tr.Notes, 1, "note lands in the active category's track")
		} else {
			assert.Empty(t, tr.Notes)
		}
	}
}

func TestInvalidMessages(t *testing.T) {
	_, _, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)

	tests := []struct {
		name string
		msg  types.ClientMessage
		want string
	}{
		{"unknown type", types.ClientMessage{Type: "teleport"}, "unknown message type"},
		{"missing value", types.ClientMessage{Type: types.MsgClarity}, "requires value"},
		{"bad category", types.ClientMessage{Type: types.MsgCategory, Category: "lavender"}, "unknown category"},
		{"spray without y", types.ClientMessage{Type: types.MsgSpray, X: ptr(0.5)}, "requires x and y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			msg := readType(t, conn, types.MsgError)
			assert.Contains(t, msg.Message, tt.want)
		})
	}

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "malformed message", readType(t, conn, types.MsgError).Message)
}

func TestInboundRateLimit(t *testing.T) {
	_, _, url := newTestHub(t, soundscape.VariantEvents, Config{
		RateLimit: middleware.RateLimitConfig{RequestsPerSecond: 1, Burst: 1},
	})
	conn := dial(t, url)

	send(t, conn, types.ClientMessage{Type: types.MsgPing})
	readType(t, conn, types.MsgPong)

	send(t, conn, types.ClientMessage{Type: types.MsgPing})
	assert.Equal(t, errRateLimited.Error(), readType(t, conn, types.MsgError).Message)
}

func TestCuesAndEventsBroadcast(t *testing.T) {
	hub, store, url := newTestHub(t, soundscape.VariantEvents, Config{})
	store.AddListener(hub)

	a := dial(t, url)
	b := dial(t, url)
	readType(t, a, types.MsgFrame)
	readType(t, b, types.MsgFrame)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	hub.PlayCue(audio.Cue{Kind: audio.CueSpray, Gain: 0.75})
	for _, conn := range []*websocket.Conn{a, b} {
		var cue audio.Cue
		require.NoError(t, sonic.Unmarshal(readType(t, conn, types.MsgCue).Data, &cue))
		assert.Equal(t, audio.CueSpray, cue.Kind)
	}

	store.SetClarity(0.9)
	var ev soundscape.Event
	require.NoError(t, sonic.Unmarshal(readType(t, a, types.MsgEvent).Data, &ev))
	assert.Equal(t, soundscape.EventClarity, ev.Kind)
}

func TestFrameLoop(t *testing.T) {
	hub, store, url := newTestHub(t, soundscape.VariantEvents, Config{FrameInterval: 10 * time.Millisecond})
	hub.Start(context.Background())

	conn := dial(t, url)
	readType(t, conn, types.MsgFrame)
	store.SetClarity(0.33)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var snap soundscape.Snapshot
		require.NoError(t, sonic.Unmarshal(readType(t, conn, types.MsgFrame).Data, &snap))
		if snap.Clarity == 0.33 {
			return
		}
	}
	t.Fatal("no frame carried the new clarity")
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub, _, url := newTestHub(t, soundscape.VariantEvents, Config{})
	conn := dial(t, url)
	readType(t, conn, types.MsgFrame)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCheckOrigin(t *testing.T) {
	hub := NewHub(nil, nil, Config{AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest("GET", "/stream", nil)
	assert.True(t, hub.checkOrigin(req), "non-browser clients send no origin")

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, hub.checkOrigin(req))
}
