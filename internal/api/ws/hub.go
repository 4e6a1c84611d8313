package ws

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/GriffinCanCode/soundscape/backend/internal/api/middleware"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/audio"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/id"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	limiterIdle  = 5 * time.Minute
	sweepPeriod  = time.Minute
	outDirection = "out"
	inDirection  = "in"
)

// Config configures a Hub
type Config struct {
	FrameInterval   time.Duration
	SendBuffer      int
	MaxMessageBytes int64
	RateLimit       middleware.RateLimitConfig
	// AllowedOrigins restricts the upgrade. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns the stream defaults
func DefaultConfig() Config {
	return Config{
		FrameInterval:   100 * time.Millisecond,
		SendBuffer:      64,
		MaxMessageBytes: 4096,
		RateLimit:       middleware.RateLimitConfig{RequestsPerSecond: 30, Burst: 60},
	}
}

// Hub fans session frames, cues and events out to every connected client
// and feeds inbound gestures into the store. It implements audio.Sink and
// soundscape.Listener.
type Hub struct {
	store    *soundscape.Store
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	cfg      Config
	upgrader websocket.Upgrader
	limiter  *middleware.ClientLimiter

	mu      sync.RWMutex
	clients map[id.ClientID]*client
	closed  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type client struct {
	id   id.ClientID
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// close signals the write pump, which sends a close frame and drops the
// connection. The read loop then fails and unregisters the client.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a hub bound to store
func NewHub(store *soundscape.Store, logger *zap.Logger, cfg Config) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = def.FrameInterval
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = def.MaxMessageBytes
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit = def.RateLimit
	}

	h := &Hub{
		store:   store,
		logger:  logger,
		cfg:     cfg,
		limiter: middleware.NewClientLimiter(cfg.RateLimit),
		clients: make(map[id.ClientID]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// WithMetrics attaches a metrics collector
func (h *Hub) WithMetrics(m *monitoring.Metrics) *Hub {
	h.metrics = m
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// Start runs the frame loop until ctx is cancelled or Close is called
func (h *Hub) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		return
	}
	h.cancel = cancel
	h.wg.Add(1)
	h.mu.Unlock()

	go func() {
		defer h.wg.Done()
		h.run(ctx)
	}()
}

func (h *Hub) run(ctx context.Context) {
	frames := time.NewTicker(h.cfg.FrameInterval)
	defer frames.Stop()
	sweep := time.NewTicker(sweepPeriod)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-frames.C:
			if h.Clients() == 0 {
				continue
			}
			h.broadcast(types.NewMessage(types.MsgFrame, h.store.Snapshot()))
		case <-sweep.C:
			h.limiter.Sweep(limiterIdle)
		}
	}
}

// PlayCue broadcasts an audio cue
func (h *Hub) PlayCue(c audio.Cue) {
	h.broadcast(types.NewMessage(types.MsgCue, c))
}

// OnEvent broadcasts a store event
func (h *Hub) OnEvent(e soundscape.Event) {
	h.broadcast(types.NewMessage(types.MsgEvent, e))
}

// broadcast never blocks. A client whose buffer is full is disconnected.
func (h *Hub) broadcast(msg types.ServerMessage) {
	h.mu.RLock()
	if h.closed || len(h.clients) == 0 {
		h.mu.RUnlock()
		return
	}
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode stream message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}

	for _, c := range targets {
		select {
		case c.send <- data:
			h.metrics.RecordWSMessage(outDirection, string(msg.Type))
		case <-c.done:
		default:
			h.logger.Warn("Dropping slow stream client", zap.String("client_id", c.id.String()))
			c.close()
		}
	}
}

// sendTo queues a message for one client
func (h *Hub) sendTo(c *client, msg types.ServerMessage) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode stream message", zap.String("type", string(msg.Type)), zap.Error(err))
		return
	}
	select {
	case c.send <- data:
		h.metrics.RecordWSMessage(outDirection, string(msg.Type))
	case <-c.done:
	default:
		c.close()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.IncWSConnections()
	// the write pump is tracked from here so Close never races Add
	h.wg.Add(1)
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		h.metrics.DecWSConnections()
	}
	h.mu.Unlock()

	h.limiter.Forget(c.id.String())
	c.close()
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the frame loop
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	cancel := h.cancel
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, c := range clients {
		c.close()
	}
	h.wg.Wait()
	h.logger.Info("Stream hub closed", zap.Int("clients", len(clients)))
}
