package validator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileAndValidate(t *testing.T) {
	v := NewJSONSchema()
	schema := json.RawMessage(`{"type":"object","properties":{"x":{"type":"integer"}},"required":["x"]}`)

	fn, err := v.Compile(schema)
	require.NoError(t, err)

	_, err = fn(map[string]any{"x": 1})
	require.NoError(t, err)

	_, err = fn(map[string]any{"x": "not-an-int"})
	require.Error(t, err)
}

func TestCompileIsMemoized(t *testing.T) {
	v := NewJSONSchema()
	schema := json.RawMessage(`{"type":"object"}`)

	fn1, err := v.Compile(schema)
	require.NoError(t, err)
	fn2, err := v.Compile(schema)
	require.NoError(t, err)

	require.NotNil(t, fn1)
	require.NotNil(t, fn2)
	require.Len(t, v.cache, 1)
}

func TestApplyDefaults(t *testing.T) {
	v := NewJSONSchema()
	schema := json.RawMessage(`{
		"type":"object",
		"properties":{"enabled":{"type":"boolean","default":true}},
		"required":["enabled"]
	}`)

	var data any = map[string]any{}
	err := v.ApplyDefaults(schema, &data)
	require.NoError(t, err)
}
