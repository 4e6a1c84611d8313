package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTracks lists every category track
func (h *Handlers) ListTracks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": h.store.Snapshot().Tracks})
}

// ToggleTrackLoop starts or stops loop playback of a track
func (h *Handlers) ToggleTrackLoop(c *gin.Context) {
	cat, ok := parseCategory(c)
	if !ok {
		return
	}
	looping := h.store.ToggleTrackLoop(cat)
	c.JSON(http.StatusOK, gin.H{"category": cat, "looping": looping})
}

// ClearTrack removes every note from a track
func (h *Handlers) ClearTrack(c *gin.Context) {
	cat, ok := parseCategory(c)
	if !ok {
		return
	}
	h.store.ClearTrack(cat)
	c.JSON(http.StatusOK, gin.H{"success": true, "category": cat})
}

// DeleteNote removes one note from a track
func (h *Handlers) DeleteNote(c *gin.Context) {
	cat, ok := parseCategory(c)
	if !ok {
		return
	}
	deleted := h.store.DeleteNote(cat, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": deleted, "category": cat, "id": c.Param("id")})
}
