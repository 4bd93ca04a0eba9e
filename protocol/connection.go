// Package protocol implements the shared multiplexer both the client and
// server role wrap (spec §4.D): request/response correlation, concurrent
// in-flight request tracking, progress streaming, cancellation
// propagation, timeouts, and notification debouncing, plus the
// initialization state machine and capability gate (§4.E).
//
// Grounded on gate4ai-gate4ai/shared/requestManager.go's callback-keyed
// pending table and localrivet-gomcp/client/client_impl.go's
// mutex-guarded pendingRequests map, generalized into one symmetric core
// both roles share rather than split client/server implementations.
package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/transport"
)

// State is a position in the connection state machine of spec §3:
// Disconnected -> Connecting -> Initializing -> Ready -> Closing -> Closed.
type State int

const (
	Disconnected State = iota
	Connecting
	Initializing
	Ready
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// RequestExtra is handed to an inbound request handler alongside its
// parsed params.
type RequestExtra struct {
	RequestID mcp.ID
	Meta      mcp.Meta

	// SendProgress emits notifications/progress correlated to this
	// request, if the caller attached a progress token.
	SendProgress func(progress float64, total *float64, message string) error
}

// RequestHandler handles one inbound request. ctx is cancelled if the
// peer sends notifications/cancelled for this request's id. A returned
// error that is not already *mcp.ErrorObj is wrapped as InternalError.
type RequestHandler func(ctx context.Context, params json.RawMessage, extra RequestExtra) (result any, err error)

// NotificationHandler handles one inbound notification. Errors are
// logged and swallowed (spec §4.D).
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// Option configures a Connection at construction.
type Option func(*Connection)

// WithLogger attaches a zap logger; the Connection logs malformed
// frames, transport errors, handler panics, hook-dropped notifications,
// and failed debounce flushes through it (SPEC_FULL Ambient stack /
// Logging). Timeouts and capability errors are returned to the caller,
// not logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Connection) { c.logger = l }
}

// WithSides tells the gate which side this Connection plays (self) and
// which the peer plays, so Request/Notification/SetRequestHandler can
// look up the right capability table (GLOSSARY excerpt) automatically.
func WithSides(self, peer Side) Option {
	return func(c *Connection) { c.self, c.peer = self, peer }
}

// WithEnforceStrictCapabilities gates handler registration by self-
// declared capabilities (spec §6 Configuration options).
func WithEnforceStrictCapabilities(v bool) Option {
	return func(c *Connection) { c.enforceStrict = v }
}

// WithDebouncedMethods sets the notification methods eligible for
// coalescing (spec §6).
func WithDebouncedMethods(methods []string) Option {
	return func(c *Connection) {
		c.debouncedMethods = make(map[string]bool, len(methods))
		for _, m := range methods {
			c.debouncedMethods[m] = true
		}
	}
}

// WithDefaultTimeout overrides the 60s default request timeout (spec §4.D).
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Connection) { c.defaultTimeout = d }
}

// Side names which GLOSSARY capability table a Connection end plays.
type Side int

const (
	SideClient Side = iota
	SideServer
)

func (s Side) String() string {
	if s == SideServer {
		return "Server"
	}
	return "Client"
}

// Connection is the shared multiplexer. client.Client and server.Server
// each own one and layer domain methods atop it.
type Connection struct {
	mu sync.Mutex

	transport transport.Transport
	logger    *zap.Logger

	self Side
	peer Side

	state State

	nextID int64

	pending map[string]*pendingRequest

	reqHandlers      map[string]RequestHandler
	notifHandlers    map[string]NotificationHandler
	activeInbound    map[string]context.CancelFunc
	cancelledInbound map[string]bool

	selfCaps CapabilitySet
	peerCaps CapabilitySet

	enforceStrict    bool
	debouncedMethods map[string]bool
	debounce         *debouncer

	defaultTimeout time.Duration

	onClose   func()
	onError   func(error)
	closeOnce sync.Once
	closed    chan struct{}

	beforeSend     []BeforeSendHook
	beforeDispatch []BeforeDispatchHook
}

// New constructs a Connection over transport, unstarted.
func New(tr transport.Transport, opts ...Option) *Connection {
	c := &Connection{
		transport:        tr,
		logger:           zap.NewNop(),
		self:             SideClient,
		peer:             SideServer,
		pending:          make(map[string]*pendingRequest),
		reqHandlers:      make(map[string]RequestHandler),
		notifHandlers:    make(map[string]NotificationHandler),
		activeInbound:    make(map[string]context.CancelFunc),
		cancelledInbound: make(map[string]bool),
		debouncedMethods: make(map[string]bool),
		debounce:         newDebouncer(),
		defaultTimeout:   60 * time.Second,
		closed:           make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// State returns the current connection state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetOnClose/SetOnError install the user-facing connection callbacks
// (spec §4.D).
func (c *Connection) SetOnClose(f func())     { c.mu.Lock(); c.onClose = f; c.mu.Unlock() }
func (c *Connection) SetOnError(f func(error)) { c.mu.Lock(); c.onError = f; c.mu.Unlock() }

// SetCapabilities records the flattened capability sets the gate checks
// against: self is what this side declared, peer is what the
// counterparty declared (normally set once, right after the handshake).
func (c *Connection) SetCapabilities(self, peer CapabilitySet) {
	c.mu.Lock()
	c.selfCaps = self
	c.peerCaps = peer
	c.mu.Unlock()
}

// SessionID forwards the transport's reconnect marker (spec §3, §9).
func (c *Connection) SessionID() string { return c.transport.SessionID() }

// PeerCapabilities returns the counterparty's declared capability set, as
// recorded by the most recent SetCapabilities call (normally right after
// the handshake). Callers that need finer-grained checks than the
// GLOSSARY's per-method table (e.g. elicitation's form/url sub-bits) read
// this directly rather than going through Request/Notification's gate.
func (c *Connection) PeerCapabilities() CapabilitySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerCaps
}

// SelfCapabilities returns this side's own declared capability set.
func (c *Connection) SelfCapabilities() CapabilitySet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selfCaps
}

// Connect starts the transport and runs handshake unless the transport
// already carries a session id, in which case the handshake is skipped
// and the connection goes straight to Ready (spec §3, §9: "do not clear
// caches on reconnect" — that responsibility belongs to the caller, this
// method only skips re-running the exchange).
func (c *Connection) Connect(ctx context.Context, handshake func(context.Context) error) error {
	c.mu.Lock()
	if c.state != Disconnected {
		c.mu.Unlock()
		return fmt.Errorf("protocol: connect called in state %s", c.state)
	}
	c.state = Connecting
	c.mu.Unlock()

	c.transport.SetOnMessage(c.handleMessage)
	c.transport.SetOnError(c.handleTransportError)
	c.transport.SetOnClose(func() { c.Close("transport closed") })

	if err := c.transport.Start(); err != nil {
		c.failConnect()
		return fmt.Errorf("protocol: start transport: %w", err)
	}

	if c.transport.SessionID() != "" {
		c.mu.Lock()
		c.state = Ready
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.state = Initializing
	c.mu.Unlock()

	if err := handshake(ctx); err != nil {
		c.failConnect()
		return err
	}

	c.mu.Lock()
	c.state = Ready
	c.mu.Unlock()
	return nil
}

// failConnect resets the connection to Disconnected after a failed
// Connect attempt (transport.Start error or failed handshake). Unlike
// Close, this leaves the connection retriable: a caller retrying Connect
// (client.Client.ConnectWithRetry, spec "Supplemented features" backoff)
// needs Disconnected, not a permanently Closed connection, to try again.
func (c *Connection) failConnect() {
	c.mu.Lock()
	c.state = Disconnected
	c.mu.Unlock()
}

// Close transitions to Closing then Closed, rejecting every outstanding
// PendingRequest and closing the transport. Safe to call more than once
// and from any state; only the first call has effect (spec §3).
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = Closing
		pending := c.pending
		c.pending = make(map[string]*pendingRequest)
		c.mu.Unlock()

		for _, p := range pending {
			p.resultCh <- rawResult{err: mcp.NewError(mcp.CodeConnectionClosed, "connection closed: "+reason)}
		}

		c.transport.Close()

		c.mu.Lock()
		c.state = Closed
		onClose := c.onClose
		c.mu.Unlock()

		close(c.closed)
		if onClose != nil {
			onClose()
		}
	})
}

func (c *Connection) handleTransportError(err error) {
	c.mu.Lock()
	f := c.onError
	c.mu.Unlock()
	c.logger.Error("transport error", zap.Error(err))
	if f != nil {
		f(err)
	}
}

func requiredCapFor(who Side, method string) string {
	if who == SideServer {
		return mcp.RequiredServerCapability(method)
	}
	return mcp.RequiredClientCapability(method)
}
