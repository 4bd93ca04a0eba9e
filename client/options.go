package client

import (
	"time"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
)

// Option configures a Client at construction, following the teacher's
// functional-options pattern (client/options.go) generalized to the new
// wire model.
type Option func(*Client)

// WithLogger attaches a zap logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClientInfo overrides the default clientInfo sent during initialize.
func WithClientInfo(info mcp.Implementation) Option {
	return func(c *Client) { c.info = info }
}

// WithRoots declares the filesystem/URI roots this client exposes to the
// server and enables the roots capability (spec §4.F).
func WithRoots(roots ...mcp.Root) Option {
	return func(c *Client) {
		c.roots = roots
		c.caps.Roots = &mcp.RootsCapability{ListChanged: true}
	}
}

// WithSamplingHandler enables the sampling capability and installs the
// handler invoked when the server issues sampling/createMessage.
func WithSamplingHandler(h SamplingHandler) Option {
	return func(c *Client) {
		c.caps.Sampling = &struct{}{}
		c.samplingHandler = h
	}
}

// WithElicitationHandler enables the elicitation capability (form mode,
// with default-filling) and installs the handler invoked when the server
// issues elicitation/create.
func WithElicitationHandler(h ElicitationHandler) Option {
	return func(c *Client) {
		if c.caps.Elicitation == nil {
			c.caps.Elicitation = &mcp.ElicitationCapability{}
		}
		c.caps.Elicitation.Form = &mcp.ElicitationFormCapability{ApplyDefaults: true}
		c.elicitationHandler = h
	}
}

// WithElicitationURLSupport additionally enables url-mode elicitation:
// the client can navigate its user to a URL and report back whether it
// did so, with final content delivered later out-of-band. Its capability
// composes with WithElicitationHandler's and either may be supplied
// alone; the Client keeps one elicitation handler, so when both are
// given the handler passed to the later option serves both modes.
func WithElicitationURLSupport(h ElicitationHandler) Option {
	return func(c *Client) {
		if c.caps.Elicitation == nil {
			c.caps.Elicitation = &mcp.ElicitationCapability{}
		}
		c.caps.Elicitation.URL = &struct{}{}
		c.elicitationHandler = h
	}
}

// WithDefaultTimeout overrides the default per-request timeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithEnforceStrictCapabilities gates this client's own handler
// registration (sampling, elicitation, roots/list) by its own declared
// capabilities (spec §4.E, §6).
func WithEnforceStrictCapabilities(v bool) Option {
	return func(c *Client) { c.enforceStrict = v }
}

// WithLogMessageHandler installs the callback invoked for every
// notifications/message the server sends (spec §4.G).
func WithLogMessageHandler(h func(mcp.LoggingMessageParams)) Option {
	return func(c *Client) { c.logMessageHandler = h }
}

// WithToolsChangedHandler installs the callback invoked when the server's
// tool list changes.
func WithToolsChangedHandler(h func()) Option {
	return func(c *Client) { c.toolsChangedHandler = h }
}

// WithResourceUpdatedHandler installs the callback invoked when a
// subscribed resource changes.
func WithResourceUpdatedHandler(h func(uri string)) Option {
	return func(c *Client) { c.resourceUpdatedHandler = h }
}

// WithRequestHook appends a hook run before every outbound request or
// notification's params are sent, letting a host observe or rewrite
// frames the way the teacher's ClientBeforeSendRequestHook did for
// requests alone (hooks/hooks.go), generalized here to both.
func WithRequestHook(h protocol.BeforeSendHook) Option {
	return func(c *Client) { c.beforeSendHooks = append(c.beforeSendHooks, h) }
}

// WithDispatchHook appends a hook run before every inbound request or
// notification reaches its registered handler, generalizing the
// teacher's ClientBeforeHandleRequestHook/ClientBeforeHandleNotificationHook
// pair onto the shared multiplexer.
func WithDispatchHook(h protocol.BeforeDispatchHook) Option {
	return func(c *Client) { c.beforeDispatchHooks = append(c.beforeDispatchHooks, h) }
}

func withConnOptions(c *Client) []protocol.Option {
	return []protocol.Option{
		protocol.WithLogger(c.logger),
		protocol.WithSides(protocol.SideClient, protocol.SideServer),
		protocol.WithDefaultTimeout(c.defaultTimeout),
		protocol.WithEnforceStrictCapabilities(c.enforceStrict),
		protocol.WithHooks(c.beforeSendHooks, c.beforeDispatchHooks),
	}
}
