/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

Prometheus metrics for the soundscape backend: HTTP requests, store
operations invoked through the API, session state (clarity, mode,
entities), persistence writes and failures, audio cues and loop players,
and WebSocket traffic.

A nil *Metrics is valid everywhere and records nothing, so components can
be built and tested without a registry.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Time operations
	timer := monitoring.NewTimer(metrics, "session_store", "export")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
