package mcp

import "encoding/json"

// ElicitMode selects whether an elicitation is answered inline (a form the
// client renders itself) or out-of-band (the user visits a URL).
type ElicitMode string

const (
	ElicitModeForm ElicitMode = "form"
	ElicitModeURL  ElicitMode = "url"
)

// ElicitAction is the outcome a client reports for a form-mode
// elicitation it presented to the user.
type ElicitAction string

const (
	ElicitAccept  ElicitAction = "accept"
	ElicitDecline ElicitAction = "decline"
	ElicitCancel  ElicitAction = "cancel"
)

// ElicitCreateParams is the elicitation/create request payload, sent
// server-to-client and gated on client.elicitation. Mode defaults to Form
// when empty (spec §4.G, back-compat with pre-mode servers).
type ElicitCreateParams struct {
	Meta            Meta            `json:"_meta,omitempty"`
	Mode            ElicitMode      `json:"mode,omitempty"`
	Message         string          `json:"message"`
	RequestedSchema json.RawMessage `json:"requestedSchema,omitempty"`
	ElicitationID   string          `json:"elicitationId,omitempty"`
	URL             string          `json:"url,omitempty"`
}

func (ElicitCreateParams) Method() string { return MethodElicitCreate }

// ElicitResult is the client's reply to elicitation/create. For
// mode=form+accept, Content carries the answered fields; for mode=url the
// Opened flag reports whether the client actually navigated the user
// there (final content arrives later, out-of-band, via the completion
// notification).
type ElicitResult struct {
	Meta    Meta           `json:"_meta,omitempty"`
	Action  ElicitAction   `json:"action"`
	Content map[string]any `json:"content,omitempty"`
	Opened  bool           `json:"opened,omitempty"`
}

// ElicitCompleteParams is the payload of
// notifications/elicitation/complete, the out-of-band signal that a
// url-mode elicitation's result is now available by some side channel
// (e.g. a subsequent resources/read of a well-known URI).
type ElicitCompleteParams struct {
	Meta            Meta   `json:"_meta,omitempty"`
	ElicitationID   string `json:"elicitationId"`
	RelatedRequestID any   `json:"relatedRequestId,omitempty"`
}

func (ElicitCompleteParams) Method() string { return MethodNotificationElicitationComplete }
