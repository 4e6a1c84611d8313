// Package http provides the REST handlers for the soundscape session:
// session values and gestures, the durable collection with export and
// import, tracks, client log intake and a JSON metrics summary.
//
// Every handler is a thin adapter over soundscape.Store. Stale ids and
// gestures that do not apply in the current mode answer 200 with
// "success": false; malformed input answers 400.
//
// Example Usage:
//
//	h := http.NewHandlers(store, http.NewHandlerMetrics(metrics), logger, info)
//	h.Register(router)
package http
