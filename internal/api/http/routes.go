package http

import "github.com/gin-gonic/gin"

// Register mounts every REST route on r
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// Session state and gestures
	r.GET("/session", h.GetSession)
	r.POST("/session/clarity", h.SetClarity)
	r.POST("/session/clarity/increment", h.IncrementClarity)
	r.POST("/session/focus", h.SetFocus)
	r.POST("/session/spray-strength", h.SetSprayStrength)
	r.POST("/session/category", h.SetCategory)
	r.POST("/session/audio", h.SetAudio)
	r.POST("/session/spray", h.Spray)
	r.POST("/session/closure", h.CompleteClosure)
	r.POST("/entities/:id/capture", h.CaptureEntity)

	// Durable collection
	r.GET("/records", h.ListRecords)
	r.POST("/records/capture", h.CaptureRecord)
	r.GET("/records/export", h.ExportRecords)
	r.POST("/records/import", h.ImportRecords)
	r.GET("/records/stats", h.RecordStats)
	r.PUT("/records/:id", h.RenameRecord)
	r.DELETE("/records/:id", h.DeleteRecord)
	r.DELETE("/records", h.ClearRecords)

	// Tracks
	r.GET("/tracks", h.ListTracks)
	r.POST("/tracks/:category/loop", h.ToggleTrackLoop)
	r.DELETE("/tracks/:category", h.ClearTrack)
	r.DELETE("/tracks/:category/notes/:id", h.DeleteNote)

	// Client logs and JSON metrics
	r.POST("/logs", h.StreamLogs)
	r.GET("/metrics/json", h.GetMetricsSummary)
}
