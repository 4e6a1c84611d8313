// Package main is the entry point for the soundscape session server.
//
// The server owns one session (clarity, focus, captured material) and
// exposes it over REST and a WebSocket stream that carries render frames,
// audio cues and session events to the browser.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Moments variant persisted in sqlite
//	./server -port 8000 -variant moments -storage sqlite
//
//	# Development mode (console logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
