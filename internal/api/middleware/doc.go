// Package middleware provides HTTP middleware for the gin router:
// CORS for the browser client and token-bucket rate limiting.
//
// ClientLimiter is shared with the WebSocket hub, which limits inbound
// gestures per connection with the same buckets.
package middleware
