// Package ws serves the realtime stream between the browser and the
// session store.
//
// Message Types (Client → Server):
//   - clarity, focus, spray_strength, audio: {value}
//   - category: {category}
//   - spray: {x, y}
//   - capture_entity: {id}
//   - capture_record, capture_moment, closure_complete, clear_records
//   - toggle_loop, clear_track: {category}
//   - delete_note: {category, id}
//   - rename: {id, name}
//   - delete_record: {id}
//   - ping: keep-alive
//
// Message Types (Server → Client):
//   - frame: session snapshot, sent on connect and every frame interval
//   - cue: audio instruction from the audio engine
//   - event: store notification
//   - result: reply to a gesture that returns a value
//   - error, pong
//
// Example Usage:
//
//	hub := ws.NewHub(store, logger, ws.DefaultConfig())
//	store.AddListener(hub)
//	router.GET("/stream", hub.HandleConnection)
//	hub.Start(ctx)
package ws
