package http

import (
	"net/http"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/infrastructure/resilience"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServiceInfo describes the running service for the health endpoints
type ServiceInfo struct {
	Name    string
	Version string
	Storage string
	// Clients reports connected stream clients. Optional.
	Clients func() int
	// Breaker reports the remote storage circuit. Nil for local backends.
	Breaker func() resilience.State
}

// Handlers contains all HTTP handlers
type Handlers struct {
	store   *soundscape.Store
	metrics *HandlerMetrics
	logger  *zap.Logger
	info    ServiceInfo
}

// NewHandlers creates a new handler set
func NewHandlers(store *soundscape.Store, metrics *HandlerMetrics, logger *zap.Logger, info ServiceInfo) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewHandlerMetrics(nil)
	}
	return &Handlers{
		store:   store,
		metrics: metrics,
		logger:  logger,
		info:    info,
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": h.info.Name,
		"version": h.info.Version,
		"variant": h.store.Profile().Variant,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if h.store.Closed() {
		status = "closing"
		code = http.StatusServiceUnavailable
	}

	storage := gin.H{"backend": h.info.Storage}
	if h.info.Breaker != nil {
		state := h.info.Breaker()
		storage["circuit"] = state.String()
		if state != resilience.StateClosed && status == "healthy" {
			status = "degraded"
		}
	}

	session := gin.H{
		"variant": h.store.Profile().Variant,
		"mode":    h.store.Mode(),
	}
	if h.info.Clients != nil {
		session["clients"] = h.info.Clients()
	}

	c.JSON(code, gin.H{
		"status":  status,
		"session": session,
		"storage": storage,
	})
}

// parseCategory reads the :category path parameter
func parseCategory(c *gin.Context) (soundscape.Category, bool) {
	cat, err := soundscape.ParseCategory(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return cat, true
}
