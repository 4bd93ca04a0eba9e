package protocol

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/transport"
)

// TestProgressResetExtendsTimeoutPastShortDeadline exercises resetTimer
// under exactly the condition the Timer.Reset contract warns about: a
// short initial timeout, a progress notification arriving shortly before
// it would fire, and the request finishing after the original deadline
// but before the extended one instead of timing out.
func TestProgressResetExtendsTimeoutPastShortDeadline(t *testing.T) {
	client, server := newPair(t)

	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		time.Sleep(30 * time.Millisecond)
		require.NoError(t, extra.SendProgress(0.5, nil, "still working"))
		time.Sleep(30 * time.Millisecond)
		return mcp.ListToolsResult{}, nil
	})

	_, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{
		Timeout:                45 * time.Millisecond,
		ResetTimeoutOnProgress: true,
		OnProgress:             func(float64, *float64, string) {},
	})
	require.NoError(t, err)
}

func TestBeforeSendHookCanRewriteOutboundParams(t *testing.T) {
	ta, tb := transport.NewInMemoryPair()
	var seenMethod string
	client := New(ta, WithSides(SideClient, SideServer), WithHooks([]BeforeSendHook{
		func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			seenMethod = method
			return json.RawMessage(`{"name":"rewritten"}`), nil
		},
	}, nil))
	server := New(tb, WithSides(SideServer, SideClient))
	client.SetCapabilities(CapabilitySet{}, CapabilitySet{"tools": true})
	server.SetCapabilities(CapabilitySet{"tools": true}, CapabilitySet{})
	require.NoError(t, client.Connect(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, server.Connect(context.Background(), func(context.Context) error { return nil }))
	t.Cleanup(func() { client.Close("test cleanup"); server.Close("test cleanup") })

	var gotParams json.RawMessage
	server.SetRequestHandler(mcp.MethodCallTool, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		gotParams = params
		return mcp.CallToolResult{}, nil
	})

	_, err := client.Request(context.Background(), mcp.MethodCallTool, mcp.CallToolParams{Name: "original"}, RequestOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, mcp.MethodCallTool, seenMethod)
	assert.JSONEq(t, `{"name":"rewritten"}`, string(gotParams))
}

func TestBeforeDispatchHookRejectsInboundRequest(t *testing.T) {
	ta, tb := transport.NewInMemoryPair()
	client := New(ta, WithSides(SideClient, SideServer))
	server := New(tb, WithSides(SideServer, SideClient), WithHooks(nil, []BeforeDispatchHook{
		func(ctx context.Context, method string, params json.RawMessage) error {
			return mcp.Errorf(mcp.CodeInvalidRequest, "blocked by policy: %s", method)
		},
	}))
	client.SetCapabilities(CapabilitySet{}, CapabilitySet{"tools": true})
	server.SetCapabilities(CapabilitySet{"tools": true}, CapabilitySet{})
	require.NoError(t, client.Connect(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, server.Connect(context.Background(), func(context.Context) error { return nil }))
	t.Cleanup(func() { client.Close("test cleanup"); server.Close("test cleanup") })

	called := false
	server.SetRequestHandler(mcp.MethodCallTool, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		called = true
		return mcp.CallToolResult{}, nil
	})

	_, err := client.Request(context.Background(), mcp.MethodCallTool, mcp.CallToolParams{Name: "x"}, RequestOptions{Timeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by policy")
	assert.False(t, called)
}
