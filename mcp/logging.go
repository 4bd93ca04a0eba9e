package mcp

// LoggingLevel mirrors RFC 5424 syslog severities, in increasing order of
// severity. Ordinal() gives the total order the server's log-level filter
// (spec §4.G) compares against.
type LoggingLevel string

const (
	LogDebug     LoggingLevel = "debug"
	LogInfo      LoggingLevel = "info"
	LogNotice    LoggingLevel = "notice"
	LogWarning   LoggingLevel = "warning"
	LogError     LoggingLevel = "error"
	LogCritical  LoggingLevel = "critical"
	LogAlert     LoggingLevel = "alert"
	LogEmergency LoggingLevel = "emergency"
)

var levelOrdinal = map[LoggingLevel]int{
	LogDebug:     0,
	LogInfo:      1,
	LogNotice:    2,
	LogWarning:   3,
	LogError:     4,
	LogCritical:  5,
	LogAlert:     6,
	LogEmergency: 7,
}

// Ordinal returns the level's position in the severity order, defaulting
// unknown levels to the same ordinal as LogInfo.
func (l LoggingLevel) Ordinal() int {
	if o, ok := levelOrdinal[l]; ok {
		return o
	}
	return levelOrdinal[LogInfo]
}

// SetLevelParams is the logging/setLevel request payload.
type SetLevelParams struct {
	Meta  Meta         `json:"_meta,omitempty"`
	Level LoggingLevel `json:"level"`
}

func (SetLevelParams) Method() string { return MethodSetLoggingLevel }

// LoggingMessageParams is the payload of notifications/message, sent
// server-to-client and filtered against the session's minimum level.
type LoggingMessageParams struct {
	Meta   Meta         `json:"_meta,omitempty"`
	Level  LoggingLevel `json:"level"`
	Logger string       `json:"logger,omitempty"`
	Data   any          `json:"data"`
}

func (LoggingMessageParams) Method() string { return MethodNotificationLogMessage }
