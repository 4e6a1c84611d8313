// Package types holds the wire shapes shared by the HTTP and WebSocket
// transports: request bodies for the REST handlers and the tagged
// messages exchanged on the stream.
//
// Inbound stream messages carry {type, x, y, value, id, category, name};
// outbound ones are frame, cue, event, result, error and pong.
package types
