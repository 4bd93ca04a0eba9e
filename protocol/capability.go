package protocol

import "fmt"

// CapabilitySet is the flattened opt-in feature bitset the multiplexer
// gates on. The client/server role layers compute this from their typed
// mcp.ClientCapabilities / mcp.ServerCapabilities before handing it to
// the Connection — the gate itself (spec §4.E) is agnostic to which side
// declared which shape, it only needs yes/no answers keyed by the
// GLOSSARY's capability names ("tools", "resources", "resources.subscribe",
// "prompts", "logging", "completions", "sampling", "elicitation",
// "roots", "roots.listChanged").
type CapabilitySet map[string]bool

// Has reports whether key was declared. An empty key (a method with no
// required capability) is always considered declared.
func (s CapabilitySet) Has(key string) bool {
	if key == "" {
		return true
	}
	return s != nil && s[key]
}

// CapabilityError is raised locally, before any frame is sent, when a
// peer (or the local side, under strict mode) has not declared a
// capability a method requires (spec §4.E, §7).
type CapabilityError struct {
	Who         string // "Server" or "Client" — whoever was required to declare it
	Capability  string
	Method      string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s does not support %s (required for %s)", e.Who, e.Capability, e.Method)
}

// requireCapability checks that caps (whichever side's declared set the
// caller passed in) includes capability before a method that needs it is
// used — by the peer for an outgoing request, or by this side itself for
// an outgoing notification or a handler registration.
func requireCapability(caps CapabilitySet, who, capability, method string) error {
	if !caps.Has(capability) {
		return &CapabilityError{Who: who, Capability: capability, Method: method}
	}
	return nil
}

// requireSelfCapability checks that this side declared capability before
// registering a handler for a method that requires it (enforced only
// when strict mode is on).
func requireSelfCapability(selfCaps CapabilitySet, strict bool, who, capability, method string) error {
	if !strict {
		return nil
	}
	if !selfCaps.Has(capability) {
		return &CapabilityError{Who: who, Capability: capability, Method: method}
	}
	return nil
}
