package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
)

// RequestOptions mirrors spec §4.D's `opts` on request().
type RequestOptions struct {
	Timeout                time.Duration
	MaxTotalTimeout         time.Duration
	ResetTimeoutOnProgress  bool
	OnProgress              func(progress float64, total *float64, message string)
	RelatedRequestID        string
}

// CancelledError is returned by Request when the caller's ctx was
// cancelled before a response arrived. Error() reports the cancellation
// reason verbatim (spec §7: "caller sees the supplied reason verbatim"),
// which is why it is its own type rather than being wrapped in *mcp.ErrorObj.
type CancelledError struct{ Reason string }

func (e *CancelledError) Error() string { return e.Reason }

// Request assigns the next request id, records a PendingRequest, sends
// the frame, and awaits resolution (spec §4.D). method's required peer
// capability (GLOSSARY) is checked before anything is sent.
func (c *Connection) Request(ctx context.Context, method string, params any, opts RequestOptions) (json.RawMessage, error) {
	c.mu.Lock()
	if c.state != Ready && c.state != Initializing {
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("protocol: request called in state %s", state)
	}
	peerCaps := c.peerCaps
	peer := c.peer
	c.mu.Unlock()

	if cap := requiredCapFor(peer, method); cap != "" {
		if err := requireCapability(peerCaps, peer.String(), cap, method); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	reqID := mcp.NewNumberID(id)

	var progressToken string
	if opts.OnProgress != nil {
		progressToken = reqID.String()
	}
	raw, err := c.encodeParamsWithMeta(params, opts, progressToken)
	if err != nil {
		return nil, err
	}
	raw, err = c.runBeforeSend(ctx, method, raw)
	if err != nil {
		return nil, err
	}

	frame := mcp.Request{JSONRPC: mcp.JSONRPCVersion, ID: reqID, Method: method, Params: raw}
	body, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal request: %w", err)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		c.mu.Lock()
		timeout = c.defaultTimeout
		c.mu.Unlock()
	}

	pr := &pendingRequest{
		id:                     reqID.String(),
		method:                 method,
		resultCh:                make(chan rawResult, 1),
		onProgress:             opts.OnProgress,
		resetTimeoutOnProgress: opts.ResetTimeoutOnProgress,
		startedAt:              time.Now(),
		timeout:                timeout,
		maxTotalTimeout:        opts.MaxTotalTimeout,
	}
	pr.progressToken = progressToken

	c.mu.Lock()
	c.pending[pr.id] = pr
	c.mu.Unlock()

	if err := c.transport.Send(body); err != nil {
		c.mu.Lock()
		delete(c.pending, pr.id)
		c.mu.Unlock()
		return nil, fmt.Errorf("protocol: send request: %w", err)
	}

	timer := time.NewTimer(timeout)
	pr.timer = timer
	defer timer.Stop()

	for {
		select {
		case res := <-pr.resultCh:
			c.removePending(pr.id)
			return res.result, res.err

		case <-ctx.Done():
			reason := ctx.Err().Error()
			if cause := context.Cause(ctx); cause != nil && cause != context.Canceled && cause != context.DeadlineExceeded {
				reason = cause.Error()
			}
			c.cancelOutbound(reqID, reason)
			c.removePending(pr.id)
			return nil, &CancelledError{Reason: reason}

		case <-timer.C:
			c.cancelOutbound(reqID, "timeout")
			c.removePending(pr.id)
			return nil, mcp.Errorf(mcp.CodeRequestTimeout, "request %s timed out after %s", method, timeout)

		case <-c.closed:
			c.removePending(pr.id)
			return nil, mcp.NewError(mcp.CodeConnectionClosed, "connection closed")
		}
	}
}

func (c *Connection) removePending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// cancelOutbound emits notifications/cancelled for a request this side
// issued and is giving up on (spec §4.D sendRequest-side cancellation).
func (c *Connection) cancelOutbound(id mcp.ID, reason string) {
	params := mcp.CancelledParams{RequestID: id, Reason: reason}
	_ = c.Notification(context.Background(), mcp.MethodNotificationCancelled, params, NotificationOptions{skipGate: true})
}

// encodeParamsWithMeta marshals params and, if a progress callback or
// related-request id was supplied, injects _meta.progressToken /
// _meta.relatedRequestId into the encoded object (spec §3).
func (c *Connection) encodeParamsWithMeta(params any, opts RequestOptions, progressToken string) (json.RawMessage, error) {
	raw, err := mcp.MarshalParams(params)
	if err != nil {
		return nil, err
	}
	if progressToken == "" && opts.RelatedRequestID == "" {
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
	if progressToken != "" {
		meta["progressToken"] = progressToken
	}
	if opts.RelatedRequestID != "" {
		meta["relatedRequestId"] = opts.RelatedRequestID
	}
	obj["_meta"] = meta
	return json.Marshal(obj)
}

func (c *Connection) logDebug(msg string, fields ...zap.Field) {
	c.logger.Debug(msg, fields...)
}
