// Package validator defines the JSON Schema validator contract the
// protocol core consumes (spec §6) and a concrete implementation backed
// by github.com/google/jsonschema-go, grounded on the Resolve/Validate/
// ApplyDefaults call shape used by the official MCP Go SDK
// (other_examples/inngest-inngest__client.go — despite the filename, the
// body is the modelcontextprotocol/go-sdk client).
package validator

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
)

// ValidateFunc checks input against a schema previously compiled by
// Validator.Compile. It returns input unchanged on success (defaults are
// not filled in; see JSONSchema.ApplyDefaults for that), matching spec §6's "(input) → {valid:true, data} |
// {valid:false, errorMessage}".
type ValidateFunc func(input any) (data any, err error)

// Validator compiles a raw JSON Schema document into a reusable
// ValidateFunc. Implementations are expected to memoize compilation
// (spec §6).
type Validator interface {
	Compile(schema json.RawMessage) (ValidateFunc, error)
}

// JSONSchema is the Validator backing this module, implemented on top of
// google/jsonschema-go's Resolve/Validate/ApplyDefaults.
type JSONSchema struct {
	mu    sync.Mutex
	cache map[string]ValidateFunc
}

// NewJSONSchema returns a Validator with an empty compilation cache.
func NewJSONSchema() *JSONSchema {
	return &JSONSchema{cache: make(map[string]ValidateFunc)}
}

// Compile parses schema, resolves it, and returns a memoized
// ValidateFunc. A given schema document (compared by its raw bytes)
// compiles exactly once.
func (v *JSONSchema) Compile(schema json.RawMessage) (ValidateFunc, error) {
	key := string(schema)

	v.mu.Lock()
	if fn, ok := v.cache[key]; ok {
		v.mu.Unlock()
		return fn, nil
	}
	v.mu.Unlock()

	var s jsonschema.Schema
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, fmt.Errorf("validator: parse schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("validator: resolve schema: %w", err)
	}

	fn := func(input any) (any, error) {
		if err := resolved.Validate(input); err != nil {
			return nil, err
		}
		return input, nil
	}

	v.mu.Lock()
	v.cache[key] = fn
	v.mu.Unlock()
	return fn, nil
}

// ApplyDefaults fills missing fields of data from schema's declared
// `default` values, delegating to jsonschema-go's recursive walk (which
// descends unconditionally into oneOf/anyOf branches — see spec §9 Open
// Question, preserved rather than re-litigated here).
func (v *JSONSchema) ApplyDefaults(schema json.RawMessage, data *any) error {
	var s jsonschema.Schema
	if err := json.Unmarshal(schema, &s); err != nil {
		return fmt.Errorf("validator: parse schema: %w", err)
	}
	resolved, err := s.Resolve(nil)
	if err != nil {
		return fmt.Errorf("validator: resolve schema: %w", err)
	}
	return resolved.ApplyDefaults(data)
}
