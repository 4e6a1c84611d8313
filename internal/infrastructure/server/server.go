package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/soundscape/backend/internal/api/http"
	"github.com/GriffinCanCode/soundscape/backend/internal/api/middleware"
	"github.com/GriffinCanCode/soundscape/backend/internal/api/ws"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/audio"
	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/storage"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/tracing"
)

const (
	serviceName = "soundscape"
	// Version is reported by the root and health endpoints
	Version = "0.3.0"

	uptimeInterval   = 15 * time.Second
	limiterSweep     = time.Minute
	limiterIdle      = 10 * time.Minute
	sqliteFile       = "soundscape.db"
	shutdownDeadline = 5 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	http      *http.Server
	storage   storage.Store
	store     *soundscape.Store
	lifecycle *soundscape.Lifecycle
	engine    *audio.Engine
	hub       *ws.Hub
	tracer    *tracing.Tracer
	limiter   *middleware.ClientLimiter
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
	registry  *prometheus.Registry

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	profile, err := sessionProfile(cfg.Session)
	if err != nil {
		return nil, err
	}

	logger.Info("Initializing soundscape server",
		zap.String("port", cfg.Server.Port),
		zap.String("variant", string(profile.Variant)),
		zap.String("storage", cfg.Storage.Backend),
	)

	// Metrics first, every component reports into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	backend, err := storage.Open(storageOptions(cfg.Storage, logger.Component("storage")))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout+time.Second)
	store, err := soundscape.NewStore(ctx, profile, backend, soundscape.Options{
		Logger:      logger.Component("store"),
		SaveTimeout: cfg.Storage.Timeout,
	})
	cancel()
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	store.WithMetrics(metrics)

	hub := ws.NewHub(store, logger.Component("stream"), ws.Config{
		FrameInterval:   cfg.Stream.FrameInterval,
		SendBuffer:      cfg.Stream.SendBufferSize,
		MaxMessageBytes: cfg.Stream.MaxMessageBytes,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Stream.MessagesPerSec,
			Burst:             cfg.Stream.MessageBurst,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}).WithMetrics(metrics)

	engine := audio.NewEngine(hub, logger.Component("audio"), audio.Config{
		LoopInterval:      cfg.Session.LoopPeriod,
		ClosureHold:       cfg.Session.ClosureHold,
		OnClosureComplete: store.CompleteClosure,
	}).WithMetrics(metrics)
	engine.Sync(store.Snapshot())

	// The engine hears about a mutation before the hub forwards it
	store.AddListener(engine)
	store.AddListener(hub)

	lifecycle := soundscape.NewLifecycle(store, logger.Component("lifecycle"))

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	tracer := tracing.New(serviceName, logger.Component("tracing"))

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))

	var limiter *middleware.ClientLimiter
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limiter = middleware.NewClientLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
		router.Use(middleware.RateLimit(limiter))
	}

	info := apihttp.ServiceInfo{
		Name:    serviceName,
		Version: Version,
		Storage: cfg.Storage.Backend,
		Clients: hub.Clients,
	}
	if remote, ok := backend.(*storage.Remote); ok {
		info.Breaker = func() resilience.State { return remote.BreakerState() }
	}

	handlers := apihttp.NewHandlers(store, apihttp.NewHandlerMetrics(metrics), logger.Component("http"), info)

	// Register routes
	handlers.Register(router)
	router.GET("/stream", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		storage:   backend,
		store:     store,
		lifecycle: lifecycle,
		engine:    engine,
		hub:       hub,
		tracer:    tracer,
		limiter:   limiter,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
		registry:  registry,
	}, nil
}

// sessionProfile applies configured timer periods over the variant defaults
func sessionProfile(cfg config.SessionConfig) (soundscape.Profile, error) {
	variant, err := soundscape.ParseVariant(cfg.Variant)
	if err != nil {
		return soundscape.Profile{}, err
	}

	p := soundscape.DefaultProfile(variant)
	if cfg.SpawnPeriod > 0 {
		p.SpawnPeriod = cfg.SpawnPeriod
	}
	if cfg.SweepPeriod > 0 {
		p.SweepPeriod = cfg.SweepPeriod
	}
	if cfg.DriftPeriod > 0 {
		p.DriftPeriod = cfg.DriftPeriod
	}
	if cfg.EntityTTL > 0 {
		p.EntityTTL = cfg.EntityTTL
	}
	return p, p.Validate()
}

func storageOptions(cfg config.StorageConfig, logger *zap.Logger) storage.Options {
	opts := storage.Options{
		Backend: storage.Backend(cfg.Backend),
		Path:    cfg.Path,
		URL:     cfg.URL,
		Timeout: cfg.Timeout,
		Logger:  logger,
	}
	if opts.Backend == storage.BackendSQLite && filepath.Ext(cfg.Path) == "" {
		opts.Path = filepath.Join(cfg.Path, sqliteFile)
	}
	return opts
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the session timers, the stream frame loop and housekeeping
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.lifecycle.Start(ctx)
	s.hub.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.metrics.RunUptime(uptimeInterval, ctx.Done())
	}()

	if s.limiter != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(limiterSweep)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.limiter.Sweep(limiterIdle)
				}
			}
		}()
	}
}

// Run starts the background tasks and serves HTTP until Close is called
func (s *Server) Run() error {
	s.Start(context.Background())

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server. Components stop in reverse
// dependency order so that no timer or loop touches a closed store.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.close() })
	return s.closeErr
}

func (s *Server) close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down http: %w", err))
		}
		cancel()
	}

	s.lifecycle.Stop()
	s.hub.Close()
	s.engine.Close()
	s.store.Close()

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.tracer.Close()

	if err := s.storage.Close(); err != nil {
		s.logger.Error("Failed to close storage", zap.Error(err))
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}
