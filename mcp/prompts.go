package mcp

import "encoding/json"

// PromptArgument describes one named input slot a prompt template accepts.
// Schema is optional raw JSON Schema used for completion lookups (spec
// §4.H); when nil the argument is treated as an untyped string.
type PromptArgument struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Required    bool            `json:"required,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// Prompt describes a single reusable prompt template as advertised by
// prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsParams is the prompts/list request payload.
type ListPromptsParams struct {
	Meta   Meta   `json:"_meta,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (ListPromptsParams) Method() string { return MethodListPrompts }

// ListPromptsResult is the prompts/list response.
type ListPromptsResult struct {
	Meta       Meta     `json:"_meta,omitempty"`
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// GetPromptParams is the prompts/get request payload.
type GetPromptParams struct {
	Meta      Meta              `json:"_meta,omitempty"`
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

func (GetPromptParams) Method() string { return MethodGetPrompt }

// PromptMessage is one turn of a rendered prompt, in the same role +
// content shape as a sampling message.
type PromptMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// GetPromptResult is the prompts/get response.
type GetPromptResult struct {
	Meta        Meta            `json:"_meta,omitempty"`
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptListChangedParams is the (empty) payload of
// notifications/prompts/list_changed.
type PromptListChangedParams struct {
	Meta Meta `json:"_meta,omitempty"`
}

func (PromptListChangedParams) Method() string { return MethodNotificationPromptsListChanged }
