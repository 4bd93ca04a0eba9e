package mcp

import (
	"encoding/json"
	"fmt"
)

// Content is the union of content block types carried in prompt messages,
// tool results, and sampling messages: text, image, audio, or an embedded
// resource. Concrete types implement the marker method; decoding from the
// wire happens through UnmarshalContent, which switches on the "type" tag.
type Content interface {
	contentType() string
}

// TextContent is a plain text content block.
type TextContent struct {
	Type        string       `json:"type"`
	Text        string       `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (TextContent) contentType() string { return "text" }

// ImageContent carries base64-encoded image data.
type ImageContent struct {
	Type        string       `json:"type"`
	Data        string       `json:"data"`
	MIMEType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (ImageContent) contentType() string { return "image" }

// AudioContent carries base64-encoded audio data.
type AudioContent struct {
	Type        string       `json:"type"`
	Data        string       `json:"data"`
	MIMEType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

func (AudioContent) contentType() string { return "audio" }

// EmbeddedResourceContent carries a resource inlined into a prompt or tool
// result rather than referenced by URI alone.
type EmbeddedResourceContent struct {
	Type        string          `json:"type"`
	Resource    ResourceContent `json:"resource"`
	Annotations *Annotations    `json:"annotations,omitempty"`
}

func (EmbeddedResourceContent) contentType() string { return "resource" }

// Annotations carry optional hints about how a content block should be
// used: which audiences it's intended for, and how important/fresh it is.
type Annotations struct {
	Audience     []string `json:"audience,omitempty"`
	Priority     *float64 `json:"priority,omitempty"`
	LastModified string   `json:"lastModified,omitempty"`
}

// ResourceContent is either text or blob resource data, inlined into an
// EmbeddedResourceContent or returned directly from resources/read.
type ResourceContent struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// UnmarshalContent decodes a single raw content block by its "type" tag.
// Unknown types are rejected rather than silently dropped, since a handler
// that ignores an unrecognized block risks losing what the peer meant to
// send.
func UnmarshalContent(raw json.RawMessage) (Content, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("mcp: decode content tag: %w", err)
	}
	switch tag.Type {
	case "text":
		var c TextContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "image":
		var c ImageContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "audio":
		var c AudioContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "resource":
		var c EmbeddedResourceContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("mcp: unknown content type %q", tag.Type)
	}
}

// ContentList decodes a JSON array of content blocks.
func ContentList(raw json.RawMessage) ([]Content, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, fmt.Errorf("mcp: decode content list: %w", err)
	}
	out := make([]Content, 0, len(rawItems))
	for _, item := range rawItems {
		c, err := UnmarshalContent(item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
