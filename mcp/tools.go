package mcp

import "encoding/json"

// Tool describes a single callable tool as advertised by tools/list.
// InputSchema and OutputSchema are raw JSON Schema documents; the engine
// treats them as opaque and hands them to a validator.Validator rather
// than interpreting them itself (spec §4.A).
type Tool struct {
	Name         string          `json:"name"`
	Title        string          `json:"title,omitempty"`
	Description  string          `json:"description,omitempty"`
	InputSchema  json.RawMessage `json:"inputSchema,omitempty"`
	OutputSchema json.RawMessage `json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations `json:"annotations,omitempty"`
}

// ToolAnnotations carry optional hints about a tool's behavior.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    bool   `json:"readOnlyHint,omitempty"`
	DestructiveHint bool   `json:"destructiveHint,omitempty"`
	IdempotentHint  bool   `json:"idempotentHint,omitempty"`
	OpenWorldHint   bool   `json:"openWorldHint,omitempty"`
}

// ListToolsParams is the (optionally paginated) request for tools/list.
type ListToolsParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (ListToolsParams) Method() string { return MethodListTools }

// ListToolsResult is the tools/list response.
type ListToolsResult struct {
	Meta       Meta   `json:"_meta,omitempty"`
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams is the tools/call request payload.
type CallToolParams struct {
	Meta      Meta           `json:"_meta,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (CallToolParams) Method() string { return MethodCallTool }

// CallToolResult is the tools/call response. A tool that declared an
// OutputSchema is expected to populate StructuredContent; Content carries
// the unstructured (text/image/audio/resource) blocks shown to a human or
// model regardless.
type CallToolResult struct {
	Meta             Meta              `json:"_meta,omitempty"`
	Content          []json.RawMessage `json:"content"`
	StructuredContent json.RawMessage  `json:"structuredContent,omitempty"`
	IsError          bool              `json:"isError,omitempty"`
}

// ToolListChangedParams is the (empty) payload of
// notifications/tools/list_changed.
type ToolListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (ToolListChangedParams) Method() string { return MethodNotificationToolsListChanged }
