package protocol

import (
	"context"
	"encoding/json"
)

// BeforeSendHook runs immediately before a request or notification's
// params are marshalled and handed to the transport. It mirrors the
// teacher's ClientBeforeSendRequestHook/ClientBeforeSendNotificationHook/
// ServerBeforeSendNotificationHook pair (hooks/hooks.go), collapsed onto
// the one outbound path every frame — request or notification, either
// side — now shares. Returning modified params replaces what gets sent;
// a non-nil error aborts the send and is returned to the caller instead.
type BeforeSendHook func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

// BeforeDispatchHook runs after an inbound request or notification is
// parsed but before its registered handler runs, mirroring the teacher's
// ServerBeforeHandleRequestHook/ClientBeforeHandleRequestHook pair
// generalized from request-only to every inbound frame. A non-nil error
// stops dispatch: for a request it is sent back as the error response,
// for a notification the notification is dropped and logged.
type BeforeDispatchHook func(ctx context.Context, method string, params json.RawMessage) error

// WithHooks installs hooks run around outbound requests and notifications
// and around the dispatch of inbound requests and notifications, regardless
// of method (spec "Supplemented features": the teacher's tool-call-centric
// hook set generalized to the shared multiplexer). Responses, and the
// cancellation and progress notifications the Connection sends or
// consumes itself, do not pass through them. Hooks compose in the order
// given; each beforeSend hook sees the previous one's params.
func WithHooks(beforeSend []BeforeSendHook, beforeDispatch []BeforeDispatchHook) Option {
	return func(c *Connection) {
		c.beforeSend = append(c.beforeSend, beforeSend...)
		c.beforeDispatch = append(c.beforeDispatch, beforeDispatch...)
	}
}

func (c *Connection) runBeforeSend(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	for _, h := range c.beforeSend {
		modified, err := h(ctx, method, params)
		if err != nil {
			return nil, err
		}
		params = modified
	}
	return params, nil
}

func (c *Connection) runBeforeDispatch(ctx context.Context, method string, params json.RawMessage) error {
	for _, h := range c.beforeDispatch {
		if err := h(ctx, method, params); err != nil {
			return err
		}
	}
	return nil
}
