package mcp

// Method name constants, mirroring the teacher's protocol/constants.go
// layout but using the wire names spec.md actually specifies (the
// teacher's own names drifted from the MCP wire format mid-refactor).
const (
	MethodInitialize              = "initialize"
	MethodNotificationInitialized = "notifications/initialized"
	MethodPing                    = "ping"

	MethodNotificationCancelled = "notifications/cancelled"
	MethodNotificationProgress  = "notifications/progress"

	MethodListTools                   = "tools/list"
	MethodCallTool                    = "tools/call"
	MethodNotificationToolsListChanged = "notifications/tools/list_changed"

	MethodListPrompts                   = "prompts/list"
	MethodGetPrompt                     = "prompts/get"
	MethodNotificationPromptsListChanged = "notifications/prompts/list_changed"

	MethodListResources                   = "resources/list"
	MethodListResourceTemplates           = "resources/templates/list"
	MethodReadResource                    = "resources/read"
	MethodSubscribeResource               = "resources/subscribe"
	MethodUnsubscribeResource             = "resources/unsubscribe"
	MethodNotificationResourcesListChanged = "notifications/resources/list_changed"
	MethodNotificationResourceUpdated      = "notifications/resources/updated"

	MethodSetLoggingLevel        = "logging/setLevel"
	MethodNotificationLogMessage = "notifications/message"

	MethodCreateMessage = "sampling/createMessage"

	MethodListRoots                    = "roots/list"
	MethodNotificationRootsListChanged = "notifications/roots/list_changed"

	MethodComplete = "completion/complete"

	MethodElicitCreate                   = "elicitation/create"
	MethodNotificationElicitationComplete = "notifications/elicitation/complete"
)

// RequiredServerCapability returns the server capability key a method
// requires the server to have declared, or "" if the method is not
// server-addressed / gated. Mirrors the GLOSSARY's required-capability
// table.
func RequiredServerCapability(method string) string {
	switch method {
	case MethodSetLoggingLevel:
		return "logging"
	case MethodListPrompts, MethodGetPrompt:
		return "prompts"
	case MethodListResources, MethodListResourceTemplates, MethodReadResource:
		return "resources"
	case MethodSubscribeResource, MethodUnsubscribeResource:
		return "resources.subscribe"
	case MethodListTools, MethodCallTool:
		return "tools"
	case MethodNotificationToolsListChanged:
		return "tools"
	case MethodNotificationPromptsListChanged:
		return "prompts"
	case MethodNotificationResourcesListChanged, MethodNotificationResourceUpdated:
		return "resources"
	case MethodComplete:
		return "completions"
	}
	return ""
}

// RequiredClientCapability returns the client capability key a method
// requires the client to have declared, or "" if not client-gated.
func RequiredClientCapability(method string) string {
	switch method {
	case MethodCreateMessage:
		return "sampling"
	case MethodElicitCreate:
		return "elicitation"
	case MethodListRoots:
		return "roots"
	case MethodNotificationRootsListChanged:
		return "roots.listChanged"
	}
	return ""
}
