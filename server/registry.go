package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/socotra/mcp-go/completable"
	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/validator"
)

// ToolHandler implements one tool's behavior. It receives the call's raw
// arguments (already validated against the tool's InputSchema, if any)
// and returns the content blocks / structured payload for tools/call
// (spec §4.A).
type ToolHandler func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)

// ResourceHandler serves one resource's contents for resources/read.
type ResourceHandler func(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)

// PromptHandler renders one prompt's messages for prompts/get.
type PromptHandler func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error)

type toolEntry struct {
	tool    mcp.Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource mcp.Resource
	handler  ResourceHandler
}

type promptEntry struct {
	prompt  mcp.Prompt
	args    []*mcp.PromptArgument
	handler PromptHandler
}

// registry is the server's in-memory catalog of tools, resources, and
// prompts (grounded on the teacher's server/registry.go map-of-name
// design, stripped of its reflection-based dynamic dispatch in favor of
// explicit typed handlers — idiomatic Go accepts interfaces/structs
// rather than decoding into arbitrary function signatures via reflect).
type registry struct {
	mu sync.RWMutex

	tools     map[string]toolEntry
	resources map[string]resourceEntry
	templates []mcp.ResourceTemplate
	prompts   map[string]promptEntry

	completions *completable.Registry
	validate    *validator.JSONSchema

	onToolsChanged     func()
	onPromptsChanged   func()
	onResourcesChanged func(uri string)
}

func newRegistry(v *validator.JSONSchema) *registry {
	return &registry{
		tools:       make(map[string]toolEntry),
		resources:   make(map[string]resourceEntry),
		prompts:     make(map[string]promptEntry),
		completions: completable.NewRegistry(),
		validate:    v,
	}
}

func (r *registry) AddTool(tool mcp.Tool, handler ToolHandler) {
	r.mu.Lock()
	r.tools[tool.Name] = toolEntry{tool: tool, handler: handler}
	cb := r.onToolsChanged
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (r *registry) RemoveTool(name string) {
	r.mu.Lock()
	delete(r.tools, name)
	cb := r.onToolsChanged
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (r *registry) ListTools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *registry) CallTool(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "unknown tool: %s", name)
	}

	if len(entry.tool.InputSchema) > 0 {
		validate, err := r.validate.Compile(entry.tool.InputSchema)
		if err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "compile input schema for %s: %v", name, err)
		}
		var decoded any
		if len(args) > 0 {
			if err := json.Unmarshal(args, &decoded); err != nil {
				return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode arguments for %s: %v", name, err)
			}
		}
		if _, err := validate(decoded); err != nil {
			return nil, mcp.Errorf(mcp.CodeInvalidParams, "invalid arguments for %s: %v", name, err)
		}
	}

	result, err := entry.handler(ctx, args)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []json.RawMessage{mustMarshal(mcp.TextContent{Type: "text", Text: err.Error()})},
			IsError: true,
		}, nil
	}

	if len(entry.tool.OutputSchema) > 0 && result != nil && len(result.StructuredContent) > 0 {
		validate, err := r.validate.Compile(entry.tool.OutputSchema)
		if err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "compile output schema for %s: %v", name, err)
		}
		var decoded any
		if err := json.Unmarshal(result.StructuredContent, &decoded); err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "decode structured content for %s: %v", name, err)
		}
		if _, err := validate(decoded); err != nil {
			return nil, mcp.Errorf(mcp.CodeInternalError, "tool %s produced output violating its own schema: %v", name, err)
		}
	}
	return result, nil
}

func (r *registry) AddResource(resource mcp.Resource, handler ResourceHandler) {
	r.mu.Lock()
	r.resources[resource.URI] = resourceEntry{resource: resource, handler: handler}
	cb := r.onResourcesChanged
	r.mu.Unlock()
	if cb != nil {
		cb(resource.URI)
	}
}

func (r *registry) RemoveResource(uri string) {
	r.mu.Lock()
	delete(r.resources, uri)
	cb := r.onResourcesChanged
	r.mu.Unlock()
	if cb != nil {
		cb(uri)
	}
}

func (r *registry) AddResourceTemplate(tmpl mcp.ResourceTemplate) {
	r.mu.Lock()
	r.templates = append(r.templates, tmpl)
	r.mu.Unlock()
}

func (r *registry) ListResources() []mcp.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(r.resources))
	for _, e := range r.resources {
		out = append(out, e.resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

func (r *registry) ListResourceTemplates() []mcp.ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.ResourceTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

func (r *registry) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	r.mu.RLock()
	entry, ok := r.resources[uri]
	r.mu.RUnlock()
	if !ok {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "unknown resource: %s", uri)
	}
	return entry.handler(ctx, uri)
}

// AddPrompt registers a prompt and returns the stored argument pointers
// so the caller can attach completers to specific slots via
// registry.completions (spec §4.H).
func (r *registry) AddPrompt(prompt mcp.Prompt, handler PromptHandler) []*mcp.PromptArgument {
	r.mu.Lock()
	defer r.mu.Unlock()
	args := make([]*mcp.PromptArgument, len(prompt.Arguments))
	for i := range prompt.Arguments {
		args[i] = &prompt.Arguments[i]
	}
	r.prompts[prompt.Name] = promptEntry{prompt: prompt, args: args, handler: handler}
	cb := r.onPromptsChanged
	if cb != nil {
		defer cb()
	}
	return args
}

func (r *registry) RemovePrompt(name string) {
	r.mu.Lock()
	delete(r.prompts, name)
	cb := r.onPromptsChanged
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (r *registry) ListPrompts() []mcp.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Prompt, 0, len(r.prompts))
	for _, e := range r.prompts {
		out = append(out, e.prompt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *registry) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	r.mu.RLock()
	entry, ok := r.prompts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "unknown prompt: %s", name)
	}
	return entry.handler(ctx, args)
}

// findPromptArgument locates the stored *mcp.PromptArgument for name,
// needed because completable.Registry keys completers by pointer
// identity rather than by name (spec §9 grounding).
func (r *registry) findPromptArgument(promptName, argName string) (*mcp.PromptArgument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.prompts[promptName]
	if !ok {
		return nil, false
	}
	for _, a := range entry.args {
		if a.Name == argName {
			return a, true
		}
	}
	return nil, false
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("server: marshal content block: %v", err))
	}
	return b
}
