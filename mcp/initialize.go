package mcp

// InitializeParams is the payload of the first request a client sends,
// before any other traffic, on a freshly connected transport.
type InitializeParams struct {
	Meta            Meta               `json:"_meta,omitempty"`
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

func (InitializeParams) Method() string { return MethodInitialize }

// InitializeResult is the server's reply to initialize.
type InitializeResult struct {
	Meta            Meta               `json:"_meta,omitempty"`
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// InitializedParams is the payload of the notification the client sends
// immediately after accepting the initialize result, completing the
// handshake.
type InitializedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (InitializedParams) Method() string { return MethodNotificationInitialized }

// PingParams is the (empty) payload of a ping request, usable by either
// peer to check liveness.
type PingParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (PingParams) Method() string { return MethodPing }

// EmptyResult is returned by operations with no meaningful payload
// (ping, subscribe/unsubscribe, roots/list_changed acknowledgements).
type EmptyResult struct {
	Meta Meta `json:"_meta,omitempty"`
}

// CancelledParams is the payload of notifications/cancelled, sent by
// whichever side wants to abort a request it previously issued.
type CancelledParams struct {
	RequestID ID     `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

func (CancelledParams) Method() string { return MethodNotificationCancelled }

// ProgressParams is the payload of notifications/progress.
type ProgressParams struct {
	ProgressToken any     `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         *float64 `json:"total,omitempty"`
	Message       string  `json:"message,omitempty"`
}

func (ProgressParams) Method() string { return MethodNotificationProgress }
