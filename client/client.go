// Package client implements the client role atop protocol.Connection: the
// initialize handshake, wrappers for every server-addressed method, the
// elicitation handler gate (schema validation, mode enforcement, default
// filling), and the tool-output validator cache (spec §4.F).
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
	"github.com/socotra/mcp-go/transport"
	"github.com/socotra/mcp-go/validator"
)

// SamplingHandler services an inbound sampling/createMessage request.
type SamplingHandler func(ctx context.Context, params mcp.CreateMessageParams) (*mcp.CreateMessageResult, error)

// ElicitationHandler services an inbound elicitation/create request. The
// wrapper installed by New takes care of schema validation, mode
// enforcement, and default-filling around it (spec §4.F).
type ElicitationHandler func(ctx context.Context, params mcp.ElicitCreateParams) (*mcp.ElicitResult, error)

// Client is one MCP client endpoint: the handshake, the connection, and
// the declared capabilities/handlers a host installs before connecting.
type Client struct {
	conn *protocol.Connection

	logger         *zap.Logger
	info           mcp.Implementation
	caps           mcp.ClientCapabilities
	defaultTimeout time.Duration
	enforceStrict  bool

	roots []mcp.Root

	beforeSendHooks     []protocol.BeforeSendHook
	beforeDispatchHooks []protocol.BeforeDispatchHook

	samplingHandler    SamplingHandler
	elicitationHandler ElicitationHandler

	logMessageHandler      func(mcp.LoggingMessageParams)
	toolsChangedHandler    func()
	resourceUpdatedHandler func(uri string)

	validate *validator.JSONSchema

	mu              sync.RWMutex
	toolOutputCache map[string]validator.ValidateFunc

	negotiatedVersion string
	serverCaps        mcp.ServerCapabilities
	serverInfo        mcp.Implementation
	instructions      string
}

// New constructs a Client bound to tr, not yet connected.
func New(tr transport.Transport, opts ...Option) *Client {
	c := &Client{
		logger:          zap.NewNop(),
		info:            mcp.Implementation{Name: "mcp-go", Version: "0.1.0"},
		defaultTimeout:  60 * time.Second,
		validate:        validator.NewJSONSchema(),
		toolOutputCache: make(map[string]validator.ValidateFunc),
	}
	for _, o := range opts {
		o(c)
	}

	c.conn = protocol.New(tr, withConnOptions(c)...)
	// Self-declared capabilities must be visible to the gate before any
	// handler registration below, under strict mode (spec §4.E); the peer
	// side is filled in once the handshake completes.
	c.conn.SetCapabilities(flattenClientCapabilities(mcp.NormalizeClientCapabilities(c.caps)), protocol.CapabilitySet{})
	c.registerHandlers()
	return c
}

// ServerInfo, ServerCapabilities, Instructions, NegotiatedVersion report
// what the peer returned from initialize, valid once Connect succeeds.
func (c *Client) ServerInfo() mcp.Implementation        { return c.serverInfo }
func (c *Client) ServerCapabilities() mcp.ServerCapabilities { return c.serverCaps }
func (c *Client) Instructions() string                  { return c.instructions }
func (c *Client) NegotiatedVersion() string              { return c.negotiatedVersion }

// Connect starts the transport and runs the initialize handshake (spec
// §3): sends initialize, validates the server's chosen protocol version
// is one this client supports, then sends notifications/initialized. If
// the transport already carries a session id, the handshake is skipped
// entirely (spec §9, reconnect marker).
func (c *Client) Connect(ctx context.Context) error {
	return c.conn.Connect(ctx, c.handshake)
}

// ConnectWithRetry calls Connect, retrying up to maxAttempts times with
// b.NextDelay between attempts, the way the teacher's client/api.go
// retries connectAndInitialize against its RetryStrategy. Unlike the
// teacher, which reconnects a live session after a transport-reported
// drop, this Client has not yet connected at all when this is called;
// it exists for a transport whose Start can fail transiently (a listener
// not yet up, a peer still booting). Returns the last attempt's error,
// wrapped, if every attempt fails.
func (c *Client) ConnectWithRetry(ctx context.Context, b *protocol.Backoff, maxAttempts int) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(b.NextDelay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.Connect(ctx); err != nil {
			lastErr = err
			c.logger.Warn("connect attempt failed", zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			continue
		}
		return nil
	}
	return fmt.Errorf("client: connect failed after %d attempts: %w", maxAttempts, lastErr)
}

func (c *Client) handshake(ctx context.Context) error {
	normalized := mcp.NormalizeClientCapabilities(c.caps)
	c.caps = normalized

	raw, err := c.conn.Request(ctx, mcp.MethodInitialize, mcp.InitializeParams{
		ProtocolVersion: mcp.LatestVersion,
		Capabilities:    normalized,
		ClientInfo:      c.info,
	}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return fmt.Errorf("client: initialize: %w", err)
	}

	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("client: decode InitializeResult: %w", err)
	}

	if !mcp.AcceptClientVersion(result.ProtocolVersion, mcp.SupportedVersions) {
		return fmt.Errorf("client: server negotiated unsupported protocol version %q", result.ProtocolVersion)
	}

	c.negotiatedVersion = result.ProtocolVersion
	c.serverCaps = result.Capabilities
	c.serverInfo = result.ServerInfo
	c.instructions = result.Instructions

	selfCaps := flattenClientCapabilities(normalized)
	peerCaps := flattenServerCapabilities(result.Capabilities)
	c.conn.SetCapabilities(selfCaps, peerCaps)

	c.logger.Info("connected to server",
		zap.String("server", result.ServerInfo.Name),
		zap.String("serverVersion", result.ServerInfo.Version),
		zap.String("protocolVersion", result.ProtocolVersion),
	)

	return c.conn.Notification(ctx, mcp.MethodNotificationInitialized, mcp.InitializedParams{}, protocol.NotificationOptions{})
}

// Close shuts the connection down, rejecting any in-flight requests.
func (c *Client) Close(reason string) { c.conn.Close(reason) }

// Ping checks liveness of the peer.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.conn.Request(ctx, mcp.MethodPing, mcp.PingParams{}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	return err
}

// ListTools fetches the server's tool catalog and refreshes the
// tool-output validator cache so it reflects exactly the tools in this
// response (spec §3 invariant, §4.F).
func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodListTools, mcp.ListToolsParams{}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode ListToolsResult: %w", err)
	}

	cache := make(map[string]validator.ValidateFunc, len(result.Tools))
	for _, t := range result.Tools {
		if len(t.OutputSchema) == 0 {
			continue
		}
		fn, err := c.validate.Compile(t.OutputSchema)
		if err != nil {
			c.logger.Error("compile tool output schema", zap.String("tool", t.Name), zap.Error(err))
			continue
		}
		cache[t.Name] = fn
	}
	c.mu.Lock()
	c.toolOutputCache = cache
	c.mu.Unlock()

	return &result, nil
}

// CallTool invokes a tool and enforces its declared output schema, if
// any, against the result (spec §4.F point 2). A result that is not an
// error and carries no structuredContent when a schema was declared, or
// whose structuredContent fails validation, is rejected locally.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any, opts ...CallToolOption) (*mcp.CallToolResult, error) {
	var o callToolOptions
	for _, fn := range opts {
		fn(&o)
	}

	raw, err := c.conn.Request(ctx, mcp.MethodCallTool, mcp.CallToolParams{Name: name, Arguments: arguments}, protocol.RequestOptions{
		Timeout:    c.defaultTimeout,
		OnProgress: o.onProgress,
	})
	if err != nil {
		return nil, err
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode CallToolResult: %w", err)
	}

	c.mu.RLock()
	validate, hasSchema := c.toolOutputCache[name]
	c.mu.RUnlock()

	if hasSchema && !result.IsError {
		if len(result.StructuredContent) == 0 {
			return nil, mcp.NewError(mcp.CodeInvalidRequest, fmt.Sprintf("tool %s declared an output schema but returned no structuredContent", name))
		}
		var decoded any
		if err := json.Unmarshal(result.StructuredContent, &decoded); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode structured content for %s: %v", name, err)
		}
		if _, err := validate(decoded); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "Structured content does not match the tool's output schema: %v", err)
		}
	}
	return &result, nil
}

// callToolOptions carries CallTool's optional knobs.
type callToolOptions struct {
	onProgress func(progress float64, total *float64, message string)
}

// CallToolOption configures a single CallTool invocation.
type CallToolOption func(*callToolOptions)

// WithToolProgress installs a progress callback for this call (spec §4.D).
func WithToolProgress(f func(progress float64, total *float64, message string)) CallToolOption {
	return func(o *callToolOptions) { o.onProgress = f }
}

// ListPrompts fetches the server's prompt catalog.
func (c *Client) ListPrompts(ctx context.Context) (*mcp.ListPromptsResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodListPrompts, mcp.ListPromptsParams{}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.ListPromptsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode ListPromptsResult: %w", err)
	}
	return &result, nil
}

// GetPrompt renders a named prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*mcp.GetPromptResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodGetPrompt, mcp.GetPromptParams{Name: name, Arguments: arguments}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.GetPromptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode GetPromptResult: %w", err)
	}
	return &result, nil
}

// ListResources fetches the server's resource catalog.
func (c *Client) ListResources(ctx context.Context) (*mcp.ListResourcesResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodListResources, mcp.ListResourcesParams{}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.ListResourcesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode ListResourcesResult: %w", err)
	}
	return &result, nil
}

// ListResourceTemplates fetches the server's URI templates.
func (c *Client) ListResourceTemplates(ctx context.Context) (*mcp.ListResourceTemplatesResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodListResourceTemplates, mcp.ListResourceTemplatesParams{}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.ListResourceTemplatesResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode ListResourceTemplatesResult: %w", err)
	}
	return &result, nil
}

// ReadResource fetches one resource's contents.
func (c *Client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodReadResource, mcp.ReadResourceParams{URI: uri}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.ReadResourceResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode ReadResourceResult: %w", err)
	}
	return &result, nil
}

// SubscribeResource asks the server to notify this client when uri changes.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	_, err := c.conn.Request(ctx, mcp.MethodSubscribeResource, mcp.SubscribeResourceParams{URI: uri}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	return err
}

// UnsubscribeResource undoes a prior SubscribeResource.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	_, err := c.conn.Request(ctx, mcp.MethodUnsubscribeResource, mcp.UnsubscribeResourceParams{URI: uri}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	return err
}

// SetLoggingLevel sets the minimum severity the server should forward via
// notifications/message (spec §4.G).
func (c *Client) SetLoggingLevel(ctx context.Context, level mcp.LoggingLevel) error {
	_, err := c.conn.Request(ctx, mcp.MethodSetLoggingLevel, mcp.SetLevelParams{Level: level}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	return err
}

// Complete requests autocompletion suggestions for one argument.
func (c *Client) Complete(ctx context.Context, ref mcp.CompletionReference, argument mcp.CompletionArgument) (*mcp.CompleteResult, error) {
	raw, err := c.conn.Request(ctx, mcp.MethodComplete, mcp.CompleteParams{Ref: ref, Argument: argument}, protocol.RequestOptions{Timeout: c.defaultTimeout})
	if err != nil {
		return nil, err
	}
	var result mcp.CompleteResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("client: decode CompleteResult: %w", err)
	}
	return &result, nil
}

// SendRootsListChanged tells the server this client's root list changed,
// gated on the client having declared roots.listChanged (spec §4.F).
func (c *Client) SendRootsListChanged(ctx context.Context) error {
	return c.conn.Notification(ctx, mcp.MethodNotificationRootsListChanged, nil, protocol.NotificationOptions{})
}

func (c *Client) registerHandlers() {
	conn := c.conn

	conn.SetNotificationHandler(mcp.MethodNotificationLogMessage, func(ctx context.Context, raw json.RawMessage) {
		if c.logMessageHandler == nil {
			return
		}
		var p mcp.LoggingMessageParams
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Error("decode LoggingMessageParams", zap.Error(err))
			return
		}
		c.logMessageHandler(p)
	})
	conn.SetNotificationHandler(mcp.MethodNotificationToolsListChanged, func(ctx context.Context, raw json.RawMessage) {
		if c.toolsChangedHandler != nil {
			c.toolsChangedHandler()
		}
	})
	conn.SetNotificationHandler(mcp.MethodNotificationResourceUpdated, func(ctx context.Context, raw json.RawMessage) {
		if c.resourceUpdatedHandler == nil {
			return
		}
		var p mcp.ResourceUpdatedParams
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Error("decode ResourceUpdatedParams", zap.Error(err))
			return
		}
		c.resourceUpdatedHandler(p.URI)
	})

	_ = conn.SetRequestHandler(mcp.MethodPing, func(context.Context, json.RawMessage, protocol.RequestExtra) (any, error) {
		return mcp.EmptyResult{}, nil
	})

	if c.samplingHandler != nil {
		_ = conn.SetRequestHandler(mcp.MethodCreateMessage, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
			var p mcp.CreateMessageParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode CreateMessageParams: %v", err)
			}
			return c.samplingHandler(ctx, p)
		})
	}

	if len(c.roots) > 0 || c.caps.Roots != nil {
		_ = conn.SetRequestHandler(mcp.MethodListRoots, func(context.Context, json.RawMessage, protocol.RequestExtra) (any, error) {
			return mcp.ListRootsResult{Roots: c.roots}, nil
		})
	}

	if c.elicitationHandler != nil {
		_ = conn.SetRequestHandler(mcp.MethodElicitCreate, c.handleElicitCreate)
	}
}

// handleElicitCreate wraps the user-installed ElicitationHandler with the
// five-step gate of spec §4.F point 1: validate the request, enforce the
// declared mode, invoke the handler, validate the result, and (form mode,
// accept, applyDefaults) fill in missing defaulted fields.
func (c *Client) handleElicitCreate(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
	var p mcp.ElicitCreateParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode ElicitCreateParams: %v", err)
	}
	if p.Mode == "" {
		p.Mode = mcp.ElicitModeForm
	}

	switch p.Mode {
	case mcp.ElicitModeForm:
		if c.caps.Elicitation == nil || c.caps.Elicitation.Form == nil {
			return nil, mcp.NewError(mcp.CodeInvalidRequest, "client does not support form elicitation")
		}
	case mcp.ElicitModeURL:
		if c.caps.Elicitation == nil || c.caps.Elicitation.URL == nil {
			return nil, mcp.NewError(mcp.CodeInvalidRequest, "client does not support url elicitation")
		}
	default:
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "unknown elicitation mode %q", p.Mode)
	}

	result, err := c.elicitationHandler(ctx, p)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, mcp.NewError(mcp.CodeInternalError, "elicitation handler returned nil result")
	}

	applyDefaults := c.caps.Elicitation != nil && c.caps.Elicitation.Form != nil && c.caps.Elicitation.Form.ApplyDefaults
	if p.Mode == mcp.ElicitModeForm && result.Action == mcp.ElicitAccept && len(p.RequestedSchema) > 0 {
		if applyDefaults {
			if err := c.applyElicitationDefaults(p.RequestedSchema, result); err != nil {
				return nil, mcp.Errorf(mcp.CodeInternalError, "apply elicitation defaults: %v", err)
			}
		}
		var content any = result.Content
		if _, err := c.validateAgainstSchema(p.RequestedSchema, content); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "elicitation response content does not match requested schema: %v", err)
		}
	}

	return result, nil
}

// applyElicitationDefaults walks requestedSchema and fills any field of
// result.Content missing a value but carrying a `default`, recursing into
// nested objects and oneOf/anyOf branches unconditionally — the
// over-populating behavior spec §9's Open Question documents and
// preserves rather than re-litigates, delegated here to
// validator.JSONSchema.ApplyDefaults (jsonschema-go's Resolved.ApplyDefaults).
func (c *Client) applyElicitationDefaults(schema json.RawMessage, result *mcp.ElicitResult) error {
	if result.Content == nil {
		result.Content = map[string]any{}
	}
	var data any = result.Content
	if err := c.validate.ApplyDefaults(schema, &data); err != nil {
		return err
	}
	if m, ok := data.(map[string]any); ok {
		result.Content = m
	}
	return nil
}

func (c *Client) validateAgainstSchema(schema json.RawMessage, data any) (any, error) {
	fn, err := c.validate.Compile(schema)
	if err != nil {
		return nil, err
	}
	return fn(data)
}

func flattenClientCapabilities(c mcp.ClientCapabilities) protocol.CapabilitySet {
	set := protocol.CapabilitySet{}
	if c.Roots != nil {
		set["roots"] = true
		if c.Roots.ListChanged {
			set["roots.listChanged"] = true
		}
	}
	if c.Sampling != nil {
		set["sampling"] = true
	}
	if c.Elicitation != nil {
		set["elicitation"] = true
		if c.Elicitation.Form != nil {
			set["elicitation.form"] = true
		}
		if c.Elicitation.URL != nil {
			set["elicitation.url"] = true
		}
	}
	return set
}

func flattenServerCapabilities(c mcp.ServerCapabilities) protocol.CapabilitySet {
	set := protocol.CapabilitySet{}
	if c.Tools != nil {
		set["tools"] = true
	}
	if c.Prompts != nil {
		set["prompts"] = true
	}
	if c.Resources != nil {
		set["resources"] = true
		if c.Resources.Subscribe {
			set["resources.subscribe"] = true
		}
	}
	if c.Logging != nil {
		set["logging"] = true
	}
	if c.Completions != nil {
		set["completions"] = true
	}
	return set
}
