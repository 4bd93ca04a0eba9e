package mcp

// ClientCapabilities describes the opt-in features a client declares
// during initialize. A nil sub-struct means the feature is not declared;
// a non-nil (possibly empty) sub-struct means it is.
type ClientCapabilities struct {
	Experimental map[string]any          `json:"experimental,omitempty"`
	Roots        *RootsCapability        `json:"roots,omitempty"`
	Sampling     *struct{}               `json:"sampling,omitempty"`
	Elicitation  *ElicitationCapability  `json:"elicitation,omitempty"`
}

// RootsCapability describes the client's support for the roots/* methods.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ElicitationCapability describes which elicitation modes the client can
// service. The wire-level empty-object form (`elicitation: {}`) is
// normalized on receipt to Form-only; see NormalizeClientCapabilities.
type ElicitationCapability struct {
	Form *ElicitationFormCapability `json:"form,omitempty"`
	URL  *struct{}                  `json:"url,omitempty"`
}

// ElicitationFormCapability describes the client's form-mode elicitation
// support, including whether it auto-fills schema defaults.
type ElicitationFormCapability struct {
	ApplyDefaults bool `json:"applyDefaults,omitempty"`
}

// NormalizeClientCapabilities applies the back-compat shim from spec §4.E:
// a client capability object of `elicitation: {}` (both Form and URL nil)
// means "empty means form-mode supported." An explicit Form or URL member
// suppresses this injection. The normalized, on-the-wire value (not the
// caller's raw input) is authoritative from then on — per the Design Notes
// decision that this shim is permanent, not a transitional compatibility
// hack to be revisited.
func NormalizeClientCapabilities(caps ClientCapabilities) ClientCapabilities {
	if caps.Elicitation != nil && caps.Elicitation.Form == nil && caps.Elicitation.URL == nil {
		caps.Elicitation.Form = &ElicitationFormCapability{}
	}
	return caps
}

// ServerCapabilities describes the opt-in features a server declares
// during initialize.
type ServerCapabilities struct {
	Experimental map[string]any        `json:"experimental,omitempty"`
	Logging      *struct{}             `json:"logging,omitempty"`
	Completions  *struct{}             `json:"completions,omitempty"`
	Prompts      *ListChangedCapability `json:"prompts,omitempty"`
	Resources    *ResourcesCapability  `json:"resources,omitempty"`
	Tools        *ListChangedCapability `json:"tools,omitempty"`
}

// ListChangedCapability is the shape shared by prompts/tools capability
// declarations: a single opt-in bit for the */list_changed notification.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability additionally carries the subscribe sub-bit gating
// resources/subscribe and resources/unsubscribe.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// Implementation identifies an MCP client or server implementation by
// name and version, exchanged during initialize.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
