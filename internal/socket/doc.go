// Package socket manages the client side of huddle's real-time connection.
//
// A Provider owns exactly one connection Handle for the duration of a mount:
// it builds the handle once, mirrors its connect/disconnect events into a
// boolean connectivity flag, and exposes {handle, connected} snapshots to
// consumers through an accessor, a subscription channel, or a context.Context.
// Unmount disconnects the handle exactly once and never fails.
//
// Client is the websocket Handle used in production. It dials in the
// background, reconnects with exponential backoff, and keeps the link alive
// with ping/pong heartbeats. The provider only reflects what the client
// reports; it has no retry policy of its own.
package socket
