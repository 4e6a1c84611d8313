package http

import (
	"net/http"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// GetSession returns the current session snapshot
func (h *Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// setValue binds a ValueRequest and applies it with set
func (h *Handlers) setValue(c *gin.Context, set func(float64)) {
	var req types.ValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	set(*req.Value)
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// SetClarity replaces clarity
func (h *Handlers) SetClarity(c *gin.Context) {
	h.setValue(c, h.store.SetClarity)
}

// IncrementClarity adds to clarity, weighted by focus where the variant couples them
func (h *Handlers) IncrementClarity(c *gin.Context) {
	h.setValue(c, h.store.IncrementClarity)
}

// SetFocus replaces focus
func (h *Handlers) SetFocus(c *gin.Context) {
	h.setValue(c, h.store.SetFocus)
}

// SetSprayStrength replaces spray strength
func (h *Handlers) SetSprayStrength(c *gin.Context) {
	h.setValue(c, h.store.SetSprayStrength)
}

// SetCategory switches the active category
func (h *Handlers) SetCategory(c *gin.Context) {
	var req types.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := soundscape.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.store.SetCategory(cat)
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// SetAudio starts or stops audio
func (h *Handlers) SetAudio(c *gin.Context) {
	var req types.AudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.store.SetAudioStarted(*req.Started)
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// Spray handles a click into the field
func (h *Handlers) Spray(c *gin.Context) {
	var req types.SprayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.store.Spray(*req.X, *req.Y)
	c.JSON(http.StatusOK, h.store.Snapshot())
}

// CompleteClosure reports that the closure cue finished
func (h *Handlers) CompleteClosure(c *gin.Context) {
	ok := h.store.CompleteClosure()
	c.JSON(http.StatusOK, gin.H{
		"success": ok,
		"mode":    h.store.Mode(),
	})
}

// CaptureEntity captures a live entity by id
func (h *Handlers) CaptureEntity(c *gin.Context) {
	done := h.metrics.TrackStoreOperation("capture_entity")
	entity, ok := h.store.CaptureEntity(c.Param("id"))
	done(outcome(ok))

	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "entity_id": c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entity": entity})
}
