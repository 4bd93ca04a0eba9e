// Package transport defines the duplex message-stream contract the
// protocol core runs on (spec §4.B, §6), plus one reference
// implementation (an in-process paired transport) used by tests and the
// example client/server.
package transport

import "encoding/json"

// Message is a single encoded JSON-RPC frame — a request, response,
// error, or notification object. The core decides which by inspecting
// "id"/"method"; the transport never needs to know.
type Message = json.RawMessage

// Transport is a duplex, ordered, lossless message stream between the two
// MCP peers. Concrete transports (stdio pipes, HTTP streaming, in-memory
// pairs) live outside this module; the core only depends on this
// interface (spec §1, §4.B).
type Transport interface {
	// Start opens the underlying channel. Idempotent: calling it on an
	// already-started transport is a no-op.
	Start() error

	// Send delivers a single frame. Ordering from a given sender must be
	// preserved end to end.
	Send(msg Message) error

	// Close terminates the channel. Must not return an error or panic;
	// transports that need to report a shutdown problem do so through
	// the OnError callback instead.
	Close()

	// SetOnMessage installs the callback the core uses to receive
	// inbound frames.
	SetOnMessage(func(Message))
	// SetOnError installs the callback the core uses to learn about
	// transport-level failures.
	SetOnError(func(error))
	// SetOnClose installs the callback the core uses to learn the
	// channel closed, whether by local Close or peer disconnect.
	SetOnClose(func())

	// SessionID returns a reconnect marker, or "" if the transport has
	// none. When non-empty at Connect time, the core skips the
	// initialize handshake (spec §3, §9).
	SessionID() string
	// SetProtocolVersion gives a header-based transport a protocol
	// version so it can stamp subsequent frames (e.g. an HTTP header)
	// without the core knowing the detail. The client and server roles in
	// this module do not call it after the handshake.
	SetProtocolVersion(version string)
}
