// Package mcp defines the wire model for the Model Context Protocol: the
// JSON-RPC 2.0 envelope, method parameter/result shapes, capability
// structures, and the content union types shared by tools, prompts,
// resources, and sampling.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JSONRPCVersion is the only value the "jsonrpc" field may carry.
const JSONRPCVersion = "2.0"

// ID is a JSON-RPC request identifier: a string or a number, never both,
// never an object or array. A JSON null id decodes to an ID for which
// IsZero reports true and which marshals back to null; the Go zero value
// ID{} is not that null id, it behaves as the numeric id 0.
type ID struct {
	str    string
	num    int64
	isStr  bool
	isZero bool
}

// NewStringID wraps a string request id.
func NewStringID(s string) ID { return ID{str: s, isStr: true} }

// NewNumberID wraps an integer request id.
func NewNumberID(n int64) ID { return ID{num: n} }

// IsZero reports whether this ID was decoded from a JSON null (e.g. an
// error reply to input whose id could not be read). It is false for the
// Go zero value ID{}.
func (id ID) IsZero() bool { return id.isZero }

// String renders the id the way it would appear if interpolated into a log
// line or map key; it is not the wire representation.
func (id ID) String() string {
	if id.isStr {
		return id.str
	}
	return fmt.Sprintf("%d", id.num)
}

// MarshalJSON renders a string id as a JSON string and a numeric id as a
// JSON number, matching JSON-RPC 2.0 §Request object.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.isZero {
		return []byte("null"), nil
	}
	if id.isStr {
		return json.Marshal(id.str)
	}
	return json.Marshal(id.num)
}

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{isZero: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID{str: s, isStr: true}
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID{num: n}
		return nil
	}
	return fmt.Errorf("mcp: request id must be a string or number, got %s", data)
}

// Meta is the free-form `_meta` bag carried on params and results. The
// engine only reserves two well-known keys: progressToken (attached by the
// core when a caller supplies a progress handler) and relatedRequestId
// (attached when forwarding a notification that logically belongs to an
// in-flight request).
type Meta map[string]any

// ProgressToken reads the reserved progressToken entry, if any.
func (m Meta) ProgressToken() any {
	if m == nil {
		return nil
	}
	return m["progressToken"]
}

// RelatedRequestID reads the reserved relatedRequestId entry, if any.
func (m Meta) RelatedRequestID() any {
	if m == nil {
		return nil
	}
	return m["relatedRequestId"]
}

// WithProgressToken returns a copy of m with progressToken set.
func (m Meta) WithProgressToken(token any) Meta {
	out := Meta{}
	for k, v := range m {
		out[k] = v
	}
	out["progressToken"] = token
	return out
}

// Request is an outgoing or incoming JSON-RPC request frame.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a successful JSON-RPC reply frame.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      ID              `json:"id"`
	Result  json.RawMessage `json:"result"`
}

// ErrorResponse is a failed JSON-RPC reply frame. ID is the null id (see
// ID.IsZero) when the failure occurred before an id could be parsed out
// of malformed input.
type ErrorResponse struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      ID       `json:"id"`
	Error   ErrorObj `json:"error"`
}

// Notification is a JSON-RPC frame with no id and no expected reply.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// ErrorObj is the `error` member of a JSON-RPC error response.
type ErrorObj struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface so an ErrorObj can be returned
// directly from a handler.
func (e *ErrorObj) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC 2.0 reserved error codes, plus the SDK-defined codes
// this engine needs outside that reserved range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeRequestTimeout is SDK-defined (outside the JSON-RPC reserved
	// range) and used when a request's deadline elapses locally before a
	// response or error frame arrives.
	CodeRequestTimeout = -32001
	// CodeConnectionClosed is SDK-defined and used to reject every
	// outstanding request when the connection transitions to Closed.
	CodeConnectionClosed = -32002
)

// NewError builds an ErrorObj with the given code and message.
func NewError(code int, message string) *ErrorObj {
	return &ErrorObj{Code: code, Message: message}
}

// Errorf builds an ErrorObj with a formatted message.
func Errorf(code int, format string, args ...any) *ErrorObj {
	return &ErrorObj{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsErrorObj unwraps err into an *ErrorObj, wrapping it as InternalError if
// it does not already carry an MCP error code. Used at the dispatcher
// boundary when converting a handler's returned error into a wire frame.
func AsErrorObj(err error) *ErrorObj {
	if err == nil {
		return nil
	}
	var eo *ErrorObj
	if !errors.As(err, &eo) {
		eo = &ErrorObj{Code: CodeInternalError, Message: err.Error()}
	}
	return eo
}

// MarshalParams marshals v for use as a Request/Notification Params field.
// A nil v marshals to nil (omitted), matching "params,omitempty".
func MarshalParams(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal params: %w", err)
	}
	return b, nil
}
