// Package protocol implements the binary wire format between the
// browser navigation client and the wayfare WebSocket substrate.
//
// Events flow from client to server (link clicks, history changes,
// viewport reports); ops flow from server to client (history pushes,
// scroll commands, layout swaps). Both directions use varints and
// length-prefixed strings, with allocation limits on the decode path.
//
// # Wire Format
//
// Every message starts with a one-byte frame type followed by the
// payload:
//
//   - FrameEvent (0x01): one encoded Event
//   - FrameOps   (0x02): varint count, then that many encoded Ops
//   - FrameControl (0x03): one control message (ping/pong heartbeat
//     with the sender's timestamp)
package protocol
