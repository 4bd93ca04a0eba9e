package protocol

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/socotra/mcp-go/mcp"
)

// SetRequestHandler registers handler for method's literal name. If the
// self side is required to have declared a capability for this method
// (GLOSSARY) and enforceStrictCapabilities is on, registration fails
// synchronously with no frames sent (spec §4.E, §8 scenario 7).
func (c *Connection) SetRequestHandler(method string, handler RequestHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cap := requiredCapFor(c.self, method); cap != "" {
		if err := requireSelfCapability(c.selfCaps, c.enforceStrict, c.self.String(), cap, method); err != nil {
			return err
		}
	}
	c.reqHandlers[method] = handler
	return nil
}

// SetNotificationHandler registers handler for method's literal name.
// Handler errors are logged and swallowed, never propagated (spec §4.D).
func (c *Connection) SetNotificationHandler(method string, handler NotificationHandler) {
	c.mu.Lock()
	c.notifHandlers[method] = handler
	c.mu.Unlock()
}

type frameHead struct {
	Method *string         `json:"method"`
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// handleMessage classifies and routes one inbound frame (spec §2 data
// flow: "classified by D as request / response / notification / error").
func (c *Connection) handleMessage(raw []byte) {
	var head frameHead
	if err := json.Unmarshal(raw, &head); err != nil {
		c.logger.Error("discarding unparseable frame", zap.Error(err))
		return
	}

	switch {
	case head.Method != nil && len(head.ID) == 0:
		c.handleNotification(*head.Method, raw)
	case head.Method != nil:
		c.handleRequest(*head.Method, raw)
	case len(head.Error) > 0:
		c.handleErrorResponse(raw)
	default:
		c.handleResponse(raw)
	}
}

func (c *Connection) handleNotification(method string, raw []byte) {
	var frame mcp.Notification
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Error("discarding malformed notification", zap.Error(err))
		return
	}

	if method == mcp.MethodNotificationCancelled {
		c.handleCancelled(frame.Params)
		return
	}
	if method == mcp.MethodNotificationProgress {
		c.handleProgress(frame.Params)
		return
	}

	c.mu.Lock()
	h := c.notifHandlers[method]
	c.mu.Unlock()
	if h == nil {
		return
	}
	if err := c.runBeforeDispatch(context.Background(), method, frame.Params); err != nil {
		c.logger.Warn("notification dropped by hook", zap.String("method", method), zap.Error(err))
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("notification handler panicked", zap.Any("recover", r), zap.String("method", method))
			}
		}()
		h(context.Background(), frame.Params)
	}()
}

func (c *Connection) handleCancelled(raw json.RawMessage) {
	var p mcp.CancelledParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	id := p.RequestID.String()

	c.mu.Lock()
	cancel, ok := c.activeInbound[id]
	if ok {
		c.cancelledInbound[id] = true
	}
	c.mu.Unlock()
	if ok {
		cancel()
	}
}

func (c *Connection) handleProgress(raw json.RawMessage) {
	var p mcp.ProgressParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	token := fmt.Sprintf("%v", p.ProgressToken)

	c.mu.Lock()
	var match *pendingRequest
	for _, pr := range c.pending {
		if pr.progressToken == token {
			match = pr
			break
		}
	}
	c.mu.Unlock()
	if match == nil {
		return // unmatched tokens are silently dropped (spec §4.D)
	}
	if match.resetTimeoutOnProgress {
		match.resetTimer()
	}
	if match.onProgress != nil {
		match.onProgress(p.Progress, p.Total, p.Message)
	}
}

func (c *Connection) handleResponse(raw []byte) {
	var frame mcp.Response
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Error("discarding malformed response", zap.Error(err))
		return
	}
	c.resolvePending(frame.ID.String(), frame.Result, nil)
}

func (c *Connection) handleErrorResponse(raw []byte) {
	var frame mcp.ErrorResponse
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Error("discarding malformed error response", zap.Error(err))
		return
	}
	errObj := frame.Error
	c.resolvePending(frame.ID.String(), nil, &errObj)
}

func (c *Connection) resolvePending(id string, result json.RawMessage, errObj *mcp.ErrorObj) {
	c.mu.Lock()
	pr, ok := c.pending[id]
	c.mu.Unlock()
	if !ok {
		return // response to a request we no longer track (timed out, cancelled, or duplicate) is dropped
	}
	var err error
	if errObj != nil {
		err = errObj
	}
	select {
	case pr.resultCh <- rawResult{result: result, err: err}:
	default:
	}
}

func (c *Connection) handleRequest(method string, raw []byte) {
	var frame mcp.Request
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.logger.Error("discarding malformed request", zap.Error(err))
		return
	}

	c.mu.Lock()
	h, ok := c.reqHandlers[method]
	c.mu.Unlock()
	if !ok {
		c.sendErrorResponse(frame.ID, mcp.Errorf(mcp.CodeMethodNotFound, "method not found: %s", method))
		return
	}

	if err := c.runBeforeDispatch(context.Background(), method, frame.Params); err != nil {
		c.sendErrorResponse(frame.ID, mcp.AsErrorObj(err))
		return
	}

	var metaHolder struct {
		Meta mcp.Meta `json:"_meta"`
	}
	_ = json.Unmarshal(frame.Params, &metaHolder)
	meta := metaHolder.Meta

	id := frame.ID.String()
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.activeInbound[id] = cancel
	c.mu.Unlock()

	go func() {
		defer func() {
			c.mu.Lock()
			delete(c.activeInbound, id)
			suppressed := c.cancelledInbound[id]
			delete(c.cancelledInbound, id)
			c.mu.Unlock()
			cancel()
			if r := recover(); r != nil {
				if !suppressed {
					c.sendErrorResponse(frame.ID, mcp.Errorf(mcp.CodeInternalError, "handler panic: %v", r))
				}
				return
			}
		}()

		extra := RequestExtra{
			RequestID: frame.ID,
			Meta:      meta,
			SendProgress: func(progress float64, total *float64, message string) error {
				token := meta.ProgressToken()
				if token == nil {
					return nil
				}
				return c.Notification(context.Background(), mcp.MethodNotificationProgress, mcp.ProgressParams{
					ProgressToken: token, Progress: progress, Total: total, Message: message,
				}, NotificationOptions{skipGate: true})
			},
		}

		result, err := h(ctx, frame.Params, extra)

		c.mu.Lock()
		suppressed := c.cancelledInbound[id]
		c.mu.Unlock()
		if suppressed {
			return
		}

		if err != nil {
			c.sendErrorResponse(frame.ID, mcp.AsErrorObj(err))
			return
		}
		c.sendResult(frame.ID, result)
	}()
}

func (c *Connection) sendResult(id mcp.ID, result any) {
	resultRaw, err := json.Marshal(result)
	if err != nil {
		c.sendErrorResponse(id, mcp.Errorf(mcp.CodeInternalError, "marshal result: %v", err))
		return
	}
	frame := mcp.Response{JSONRPC: mcp.JSONRPCVersion, ID: id, Result: resultRaw}
	body, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("marshal response frame", zap.Error(err))
		return
	}
	if err := c.transport.Send(body); err != nil {
		c.logger.Error("send response", zap.Error(err))
	}
}

func (c *Connection) sendErrorResponse(id mcp.ID, errObj *mcp.ErrorObj) {
	frame := mcp.ErrorResponse{JSONRPC: mcp.JSONRPCVersion, ID: id, Error: *errObj}
	body, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("marshal error response", zap.Error(err))
		return
	}
	if err := c.transport.Send(body); err != nil {
		c.logger.Error("send error response", zap.Error(err))
	}
}
