package mcp

import "encoding/json"

// SamplingMessage is one turn offered to, or returned from, the client's
// LLM via sampling/createMessage.
type SamplingMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ModelHint names a model family the server would prefer, without
// requiring an exact match.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// ModelPreferences lets the server bias the client's model choice without
// dictating it outright.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// CreateMessageParams is the sampling/createMessage request payload, sent
// server-to-client and gated on client.sampling.
type CreateMessageParams struct {
	Meta             Meta              `json:"_meta,omitempty"`
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
	StopSequences    []string          `json:"stopSequences,omitempty"`
}

func (CreateMessageParams) Method() string { return MethodCreateMessage }

// CreateMessageResult is the client's reply: the sampled message plus
// which model actually produced it and why generation stopped.
type CreateMessageResult struct {
	Meta       Meta            `json:"_meta,omitempty"`
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stopReason,omitempty"`
}
