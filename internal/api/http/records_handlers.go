package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/GriffinCanCode/soundscape/backend/internal/domain/soundscape"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/export"
	"github.com/GriffinCanCode/soundscape/backend/internal/shared/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListRecords lists the variant's durable collection.
// Moments are listed newest first.
func (h *Handlers) ListRecords(c *gin.Context) {
	snap := h.store.Snapshot()

	switch snap.Variant {
	case soundscape.VariantMoments:
		moments := slices.Clone(snap.Moments)
		slices.Reverse(moments)
		c.JSON(http.StatusOK, gin.H{"variant": snap.Variant, "moments": moments, "count": len(moments)})
	case soundscape.VariantTracks:
		notes := 0
		for _, t := range snap.Tracks {
			notes += len(t.Notes)
		}
		c.JSON(http.StatusOK, gin.H{"variant": snap.Variant, "tracks": snap.Tracks, "count": notes})
	default:
		c.JSON(http.StatusOK, gin.H{"variant": snap.Variant, "records": snap.Records, "count": len(snap.Records)})
	}
}

// CaptureRecord captures a record (events) or a moment (moments)
func (h *Handlers) CaptureRecord(c *gin.Context) {
	done := h.metrics.TrackStoreOperation("capture_record")

	var (
		record any
		ok     bool
	)
	switch h.store.Profile().Variant {
	case soundscape.VariantEvents:
		record, ok = h.store.CaptureRecord()
	case soundscape.VariantMoments:
		record, ok = h.store.CaptureMoment()
	}
	done(outcome(ok))

	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false, "mode": h.store.Mode()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "record": record})
}

// RenameRecord renames a moment
func (h *Handlers) RenameRecord(c *gin.Context) {
	var req types.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
		return
	}

	ok := h.store.RenameRecord(c.Param("id"), req.Name)
	c.JSON(http.StatusOK, gin.H{"success": ok, "id": c.Param("id")})
}

// DeleteRecord removes one record or moment
func (h *Handlers) DeleteRecord(c *gin.Context) {
	ok := h.store.DeleteRecord(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": ok, "id": c.Param("id")})
}

// ClearRecords empties the durable collection
func (h *Handlers) ClearRecords(c *gin.Context) {
	h.store.ClearRecords()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RecordStats summarises the durable collection
func (h *Handlers) RecordStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.RecordStats())
}

// ExportRecords downloads the durable collection.
// Query: format=json|yaml|toml (default json), compress=gzip.
func (h *Handlers) ExportRecords(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatJSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	compress := false
	switch c.Query("compress") {
	case "", "none":
	case "gzip":
		compress = true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported compression %q", c.Query("compress"))})
		return
	}

	done := h.metrics.TrackStoreOperation("export")
	data, filename, err := h.store.Export(format, compress)
	if err != nil {
		done("error")
		h.logger.Error("Export failed", zap.String("format", string(format)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	done("success")

	etag := export.Checksum(data)
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	contentType := format.ContentType()
	if compress {
		contentType = "application/gzip"
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}

// ImportRecords replaces the durable collection with an uploaded export.
// JSON and TOML are recognised from the content, gzip is unwrapped;
// YAML needs format=yaml or a YAML content type.
func (h *Handlers) ImportRecords(c *gin.Context) {
	fallback, err := importFallback(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, export.MaxImportSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}
	if len(body) > export.MaxImportSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": export.ErrTooLarge.Error()})
		return
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty upload"})
		return
	}

	done := h.metrics.TrackStoreOperation("import")
	data, format, err := export.Sniff(body, fallback)
	if err != nil {
		done("error")
		c.JSON(importStatus(err), gin.H{"error": err.Error()})
		return
	}

	n, err := h.store.Import(format, data)
	if err != nil {
		done("error")
		h.logger.Warn("Import rejected", zap.String("format", string(format)), zap.Error(err))
		c.JSON(importStatus(err), gin.H{"error": err.Error()})
		return
	}
	done("success")

	c.JSON(http.StatusOK, types.ImportResponse{Imported: n, Format: string(format)})
}

func importFallback(c *gin.Context) (export.Format, error) {
	if q := c.Query("format"); q != "" {
		return export.ParseFormat(q)
	}
	switch c.ContentType() {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return export.FormatYAML, nil
	case "application/toml":
		return export.FormatTOML, nil
	}
	return "", nil
}

func importStatus(err error) int {
	switch {
	case errors.Is(err, export.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, soundscape.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
