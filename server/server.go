// Package server implements the server role atop protocol.Connection:
// the tool/resource/prompt catalog, the initialize handshake response,
// log-level filtering, resource subscriptions, completion, and the
// server-initiated sampling/elicitation/roots requests (spec §4).
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/socotra/mcp-go/completable"
	"github.com/socotra/mcp-go/logx"
	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
	"github.com/socotra/mcp-go/transport"
	"github.com/socotra/mcp-go/validator"
)

// Server is one MCP server endpoint: a catalog of tools/resources/prompts
// plus the connection that exposes them to exactly one peer client.
type Server struct {
	conn *protocol.Connection
	reg  *registry
	sess *session

	logger    *zap.Logger
	sessionID string
	info      mcp.Implementation
	caps      mcp.ServerCapabilities

	instructions  string
	enforceStrict bool

	beforeSendHooks     []protocol.BeforeSendHook
	beforeDispatchHooks []protocol.BeforeDispatchHook
}

// Option configures a Server at construction.
type Option func(*Server)

// WithLogger attaches a zap logger (SPEC_FULL Ambient stack / Logging).
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithInstructions sets the free-text instructions returned in
// InitializeResult.
func WithInstructions(text string) Option {
	return func(s *Server) { s.instructions = text }
}

// WithValidator overrides the default google/jsonschema-go-backed
// validator used to check tool input/output against declared schemas.
func WithValidator(v *validator.JSONSchema) Option {
	return func(s *Server) { s.reg.validate = v }
}

// WithEnforceStrictCapabilities gates this server's own handler
// registration by its own declared capabilities (spec §4.E, §6).
func WithEnforceStrictCapabilities(v bool) Option {
	return func(s *Server) { s.enforceStrict = v }
}

// WithRequestHook appends a hook run before every outbound request or
// notification's params are sent, generalizing the teacher's
// ServerBeforeSendNotificationHook (hooks/hooks.go) from notifications
// alone onto the shared multiplexer's whole outbound path.
func WithRequestHook(h protocol.BeforeSendHook) Option {
	return func(s *Server) { s.beforeSendHooks = append(s.beforeSendHooks, h) }
}

// WithDispatchHook appends a hook run before every inbound request or
// notification reaches its registered handler, generalizing the
// teacher's ServerBeforeHandleRequestHook/ServerBeforeHandleNotificationHook
// pair onto every method rather than a per-tool wrapper.
func WithDispatchHook(h protocol.BeforeDispatchHook) Option {
	return func(s *Server) { s.beforeDispatchHooks = append(s.beforeDispatchHooks, h) }
}

// New constructs a Server bound to tr, not yet serving.
func New(info mcp.Implementation, tr transport.Transport, opts ...Option) *Server {
	s := &Server{
		info:      info,
		logger:    zap.NewNop(),
		sessionID: uuid.NewString(),
		sess:      newSession(),
		caps: mcp.ServerCapabilities{
			Tools:       &mcp.ListChangedCapability{ListChanged: true},
			Prompts:     &mcp.ListChangedCapability{ListChanged: true},
			Resources:   &mcp.ResourcesCapability{Subscribe: true, ListChanged: true},
			Logging:     &struct{}{},
			Completions: &struct{}{},
		},
	}
	s.reg = newRegistry(validator.NewJSONSchema())
	for _, o := range opts {
		o(s)
	}
	s.logger = logx.WithSession(s.logger, s.sessionID)

	s.conn = protocol.New(tr,
		protocol.WithLogger(s.logger),
		protocol.WithSides(protocol.SideServer, protocol.SideClient),
		protocol.WithEnforceStrictCapabilities(s.enforceStrict),
		protocol.WithDebouncedMethods([]string{
			mcp.MethodNotificationToolsListChanged,
			mcp.MethodNotificationPromptsListChanged,
			mcp.MethodNotificationResourcesListChanged,
		}),
		protocol.WithHooks(s.beforeSendHooks, s.beforeDispatchHooks),
	)
	// Self-declared capabilities must be visible to the gate before any
	// handler registration below, under strict mode (spec §4.E); the
	// peer side is filled in once handleInitialize runs.
	s.conn.SetCapabilities(flattenServerCapabilities(s.caps), protocol.CapabilitySet{})
	s.reg.onToolsChanged = func() {
		_ = s.conn.Notification(context.Background(), mcp.MethodNotificationToolsListChanged, nil, protocol.NotificationOptions{})
	}
	s.reg.onPromptsChanged = func() {
		_ = s.conn.Notification(context.Background(), mcp.MethodNotificationPromptsListChanged, nil, protocol.NotificationOptions{})
	}
	s.reg.onResourcesChanged = func(uri string) {
		_ = s.conn.Notification(context.Background(), mcp.MethodNotificationResourcesListChanged, nil, protocol.NotificationOptions{})
	}

	s.registerHandlers()
	return s
}

// SessionID returns this server's session identifier, generated at
// construction and attached to every log line it emits (spec §3 "Session
// id"). A point-to-point Server has exactly one, unlike the teacher's
// SessionManager which allocated one per accepted transport connection.
func (s *Server) SessionID() string { return s.sessionID }

// AddTool registers a tool and its handler, announcing the change to the
// peer (debounced) if already connected.
func (s *Server) AddTool(tool mcp.Tool, handler ToolHandler) { s.reg.AddTool(tool, handler) }

// RemoveTool unregisters a tool by name.
func (s *Server) RemoveTool(name string) { s.reg.RemoveTool(name) }

// AddResource registers a resource and its reader.
func (s *Server) AddResource(resource mcp.Resource, handler ResourceHandler) {
	s.reg.AddResource(resource, handler)
}

// RemoveResource unregisters a resource by URI.
func (s *Server) RemoveResource(uri string) { s.reg.RemoveResource(uri) }

// AddResourceTemplate registers a URI template advertised by
// resources/templates/list.
func (s *Server) AddResourceTemplate(tmpl mcp.ResourceTemplate) { s.reg.AddResourceTemplate(tmpl) }

// AddPrompt registers a prompt and its renderer. Completers are attached
// to its arguments afterwards, by name, with CompletePromptArgument.
func (s *Server) AddPrompt(prompt mcp.Prompt, handler PromptHandler) {
	s.reg.AddPrompt(prompt, handler)
}

// RemovePrompt unregisters a prompt by name.
func (s *Server) RemovePrompt(name string) { s.reg.RemovePrompt(name) }

// CompletePromptArgument attaches a completer to one named argument of a
// registered prompt (spec §4.H).
func (s *Server) CompletePromptArgument(promptName, argName string, c completable.Completer) error {
	arg, ok := s.reg.findPromptArgument(promptName, argName)
	if !ok {
		return fmt.Errorf("server: no such prompt argument %s/%s", promptName, argName)
	}
	s.reg.completions.Attach(arg, c)
	return nil
}

// ResourceUpdated notifies subscribers that uri's contents changed (spec
// §4.C). A no-op if nobody subscribed.
func (s *Server) ResourceUpdated(ctx context.Context, uri string) error {
	if !s.sess.IsSubscribed(uri) {
		return nil
	}
	return s.conn.Notification(ctx, mcp.MethodNotificationResourceUpdated, mcp.ResourceUpdatedParams{URI: uri}, protocol.NotificationOptions{})
}

// Log emits notifications/message to the peer if level meets its
// configured minimum (spec §4.G).
func (s *Server) Log(ctx context.Context, level mcp.LoggingLevel, loggerName string, data any) error {
	if level.Ordinal() < mcp.LoggingLevel(s.sess.MinLogLevel()).Ordinal() {
		return nil
	}
	return s.conn.Notification(ctx, mcp.MethodNotificationLogMessage, mcp.LoggingMessageParams{
		Level: level, Logger: loggerName, Data: data,
	}, protocol.NotificationOptions{})
}

// CreateMessage asks the peer's LLM to sample a completion
// (sampling/createMessage), gated on the client having declared the
// sampling capability.
func (s *Server) CreateMessage(ctx context.Context, params mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
	raw, err := s.conn.Request(ctx, mcp.MethodCreateMessage, params, protocol.RequestOptions{})
	if err != nil {
		return nil, err
	}
	var result mcp.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("server: decode CreateMessageResult: %w", err)
	}
	return &result, nil
}

// ElicitInput asks the peer to collect input from its user
// (elicitation/create). Mode defaults to form for backwards compatibility
// (spec §4.G). For form mode, an accept result's content is validated
// against requestedSchema before being returned; decline/cancel results
// are returned unvalidated. For url mode, the response only reports
// whether the client opened the URL — final content, if any, arrives
// later via an elicitation-complete notification.
func (s *Server) ElicitInput(ctx context.Context, params mcp.ElicitCreateParams) (*mcp.ElicitResult, error) {
	if params.Mode == "" {
		params.Mode = mcp.ElicitModeForm
	}

	if !s.conn.PeerCapabilities().Has("elicitation." + string(params.Mode)) {
		return nil, mcp.NewError(mcp.CodeInvalidRequest, fmt.Sprintf("Client does not support %s elicitation.", params.Mode))
	}

	raw, err := s.conn.Request(ctx, mcp.MethodElicitCreate, params, protocol.RequestOptions{})
	if err != nil {
		return nil, err
	}
	var result mcp.ElicitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("server: decode ElicitResult: %w", err)
	}

	if params.Mode == mcp.ElicitModeForm && result.Action == mcp.ElicitAccept && len(params.RequestedSchema) > 0 {
		validate, cerr := s.reg.validate.Compile(params.RequestedSchema)
		if cerr != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "Error validating elicitation response: %v", cerr)
		}
		if _, verr := validate(result.Content); verr != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "Elicitation response content does not match requested schema: %v", verr)
		}
	}
	return &result, nil
}

// ElicitationCompletionNotifier is returned by
// CreateElicitationCompletionNotifier: invoking it emits
// notifications/elicitation/complete for the elicitationId it closes
// over (spec §4.G).
type ElicitationCompletionNotifier func(ctx context.Context) error

// CreateElicitationCompletionNotifier returns a closure that, when
// invoked, tells the peer a url-mode elicitation's result is now
// available by some out-of-band channel. Construction fails if the peer
// did not declare elicitation.url (spec §4.G).
func (s *Server) CreateElicitationCompletionNotifier(elicitationID string, relatedRequestID any) (ElicitationCompletionNotifier, error) {
	if !s.conn.PeerCapabilities().Has("elicitation.url") {
		return nil, mcp.NewError(mcp.CodeInvalidRequest, "client does not support url elicitation")
	}
	var opts protocol.NotificationOptions
	if relatedRequestID != nil {
		opts.RelatedRequestID = fmt.Sprintf("%v", relatedRequestID)
	}
	return func(ctx context.Context) error {
		return s.conn.Notification(ctx, mcp.MethodNotificationElicitationComplete, mcp.ElicitCompleteParams{
			ElicitationID:    elicitationID,
			RelatedRequestID: relatedRequestID,
		}, opts)
	}, nil
}

// ListRoots asks the peer which roots it exposes (roots/list), gated on
// the client having declared roots.
func (s *Server) ListRoots(ctx context.Context) ([]mcp.Root, error) {
	raw, err := s.conn.Request(ctx, mcp.MethodListRoots, mcp.ListRootsParams{}, protocol.RequestOptions{})
	if err != nil {
		return nil, err
	}
	var result mcp.ListRootsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("server: decode ListRootsResult: %w", err)
	}
	return result.Roots, nil
}

// Serve starts the transport and returns once the connection is Ready;
// it does not wait for the peer's initialize request. That request is
// answered by the registered initialize handler whenever it arrives,
// which negotiates the protocol version and replies with this server's
// capabilities (spec §3).
func (s *Server) Serve(ctx context.Context) error {
	return s.conn.Connect(ctx, func(context.Context) error { return nil })
}

// Close shuts the connection down, rejecting any in-flight requests.
func (s *Server) Close(reason string) { s.conn.Close(reason) }

func (s *Server) registerHandlers() {
	c := s.conn

	_ = c.SetRequestHandler(mcp.MethodInitialize, s.handleInitialize)
	c.SetNotificationHandler(mcp.MethodNotificationInitialized, func(context.Context, json.RawMessage) {})
	_ = c.SetRequestHandler(mcp.MethodPing, func(context.Context, json.RawMessage, protocol.RequestExtra) (any, error) {
		return mcp.EmptyResult{}, nil
	})

	_ = c.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		return mcp.ListToolsResult{Tools: s.reg.ListTools()}, nil
	})
	_ = c.SetRequestHandler(mcp.MethodCallTool, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.CallToolParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode CallToolParams: %v", err)
		}
		args, err := json.Marshal(p.Arguments)
		if err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "encode tool arguments: %v", err)
		}
		return s.reg.CallTool(ctx, p.Name, args)
	})

	_ = c.SetRequestHandler(mcp.MethodListPrompts, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		return mcp.ListPromptsResult{Prompts: s.reg.ListPrompts()}, nil
	})
	_ = c.SetRequestHandler(mcp.MethodGetPrompt, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.GetPromptParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode GetPromptParams: %v", err)
		}
		return s.reg.GetPrompt(ctx, p.Name, p.Arguments)
	})

	_ = c.SetRequestHandler(mcp.MethodListResources, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		return mcp.ListResourcesResult{Resources: s.reg.ListResources()}, nil
	})
	_ = c.SetRequestHandler(mcp.MethodListResourceTemplates, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		return mcp.ListResourceTemplatesResult{ResourceTemplates: s.reg.ListResourceTemplates()}, nil
	})
	_ = c.SetRequestHandler(mcp.MethodReadResource, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.ReadResourceParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode ReadResourceParams: %v", err)
		}
		return s.reg.ReadResource(ctx, p.URI)
	})
	_ = c.SetRequestHandler(mcp.MethodSubscribeResource, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.SubscribeResourceParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode SubscribeResourceParams: %v", err)
		}
		s.sess.Subscribe(p.URI)
		return mcp.EmptyResult{}, nil
	})
	_ = c.SetRequestHandler(mcp.MethodUnsubscribeResource, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.UnsubscribeResourceParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode UnsubscribeResourceParams: %v", err)
		}
		s.sess.Unsubscribe(p.URI)
		return mcp.EmptyResult{}, nil
	})

	_ = c.SetRequestHandler(mcp.MethodSetLoggingLevel, func(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
		var p mcp.SetLevelParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode SetLevelParams: %v", err)
		}
		s.sess.SetMinLogLevel(string(p.Level))
		return mcp.EmptyResult{}, nil
	})

	_ = c.SetRequestHandler(mcp.MethodComplete, s.handleComplete)
}

func (s *Server) handleInitialize(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
	var p mcp.InitializeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode InitializeParams: %v", err)
	}

	version := mcp.NegotiateServerVersion(p.ProtocolVersion, mcp.SupportedVersions)

	peerCaps := flattenClientCapabilities(mcp.NormalizeClientCapabilities(p.Capabilities))
	selfCaps := flattenServerCapabilities(s.caps)
	s.conn.SetCapabilities(selfCaps, peerCaps)

	s.logger.Info("client connected",
		zap.String("client", p.ClientInfo.Name),
		zap.String("clientVersion", p.ClientInfo.Version),
		zap.String("protocolVersion", version),
	)

	return mcp.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    s.caps,
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleComplete(ctx context.Context, raw json.RawMessage, extra protocol.RequestExtra) (any, error) {
	var p mcp.CompleteParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode CompleteParams: %v", err)
	}
	if p.Ref.Type != "ref/prompt" {
		return mcp.CompleteResult{Completion: mcp.Completion{Values: []string{}}}, nil
	}
	arg, ok := s.reg.findPromptArgument(p.Ref.Name, p.Argument.Name)
	if !ok {
		return mcp.CompleteResult{Completion: mcp.Completion{Values: []string{}}}, nil
	}
	return mcp.CompleteResult{Completion: s.reg.completions.Suggest(ctx, arg, p.Argument.Value)}, nil
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
