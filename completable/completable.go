// Package completable attaches autocompletion callbacks to individual
// prompt-argument slots without altering how that argument's schema
// parses or validates (spec §4.H, §9 "Completable-as-subclass").
//
// The source this spec was distilled from models a completable argument
// as a subclass of its schema type; that has no Go counterpart, so this
// package keeps a side table keyed by the identity of the argument
// struct (its pointer) rather than by inheritance — the decision
// recorded in DESIGN.md.
package completable

import (
	"context"
	"sort"
	"sync"

	"github.com/socotra/mcp-go/mcp"
)

// Completer returns suggestions for a partially-typed argument value. It
// is invoked once per completion/complete request that targets the
// argument it is attached to.
type Completer func(ctx context.Context, value string) []string

// Registry is a side table of argument-slot -> Completer. It is owned by
// whichever component accepts the argument schema — in this module, the
// server's prompt registry (server.Server.AddPrompt).
type Registry struct {
	mu   sync.RWMutex
	byArg map[*mcp.PromptArgument]Completer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byArg: make(map[*mcp.PromptArgument]Completer)}
}

// Attach registers c as the completer for arg. A later Attach on the same
// arg replaces the prior completer.
func (r *Registry) Attach(arg *mcp.PromptArgument, c Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byArg[arg] = c
}

// IsCompletable reports whether arg has a registered completer.
func (r *Registry) IsCompletable(arg *mcp.PromptArgument) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byArg[arg]
	return ok
}

// GetCompleter returns the completer attached to arg, if any.
func (r *Registry) GetCompleter(arg *mcp.PromptArgument) (Completer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byArg[arg]
	return c, ok
}

// Suggest runs the completer attached to arg (if any), sorts its values,
// and truncates the result to mcp.MaxCompletionValues, matching spec §4.H's "truncated to
// ≤100, with hasMore and total metadata" rule. Returns the empty
// completion set when arg has no completer.
func (r *Registry) Suggest(ctx context.Context, arg *mcp.PromptArgument, value string) mcp.Completion {
	c, ok := r.GetCompleter(arg)
	if !ok {
		return mcp.Completion{Values: []string{}}
	}
	values := c(ctx, value)
	sort.Strings(values)
	return mcp.TruncateCompletion(values)
}
