package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
)

// NotificationOptions mirrors spec §4.D's `opts?` on notification().
type NotificationOptions struct {
	RelatedRequestID string

	// skipGate lets internally-generated notifications (cancellation,
	// progress) bypass the self-capability check and the beforeSend
	// hooks — those are plumbing, not a domain feature the caller opted
	// into.
	skipGate bool
}

// Notification sends a fire-and-forget frame. If method is configured as
// debounced (spec §6 debouncedNotificationMethods) and the caller supplied
// no params and no RelatedRequestID, concurrent emissions in the same
// scheduler tick coalesce into one frame (spec §4.D, §5).
func (c *Connection) Notification(ctx context.Context, method string, params any, opts NotificationOptions) error {
	c.mu.Lock()
	selfCaps := c.selfCaps
	self := c.self
	debounced := c.debouncedMethods[method]
	c.mu.Unlock()

	if !opts.skipGate {
		if cap := requiredCapFor(self, method); cap != "" {
			if err := requireCapability(selfCaps, self.String(), cap, method); err != nil {
				return err
			}
		}
	}

	raw, err := c.encodeNotificationMeta(params, opts)
	if err != nil {
		return err
	}
	if !opts.skipGate {
		raw, err = c.runBeforeSend(ctx, method, raw)
		if err != nil {
			return err
		}
	}

	hasParams := len(raw) > 0 && string(raw) != "null"
	if debounced && !hasParams && opts.RelatedRequestID == "" {
		c.debounce.Schedule(method, func() {
			if err := c.sendNotification(method, raw); err != nil {
				c.logger.Error("debounced notification flush failed", zap.Error(err))
			}
		})
		return nil
	}

	return c.sendNotification(method, raw)
}

func (c *Connection) sendNotification(method string, raw json.RawMessage) error {
	frame := mcp.Notification{JSONRPC: mcp.JSONRPCVersion, Method: method, Params: raw}
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("protocol: marshal notification: %w", err)
	}
	return c.transport.Send(body)
}

func (c *Connection) encodeNotificationMeta(params any, opts NotificationOptions) (json.RawMessage, error) {
	raw, err := mcp.MarshalParams(params)
	if err != nil {
		return nil, err
	}
	if opts.RelatedRequestID == "" {
		return raw, nil
	}
	obj := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("protocol: params must be a JSON object to attach _meta: %w", err)
		}
	}
	meta, _ := obj["_meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["relatedRequestId"] = opts.RelatedRequestID
	obj["_meta"] = meta
	return json.Marshal(obj)
}
