package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/transport"
)

func newPair(t *testing.T) (*Connection, *Connection) {
	t.Helper()
	ta, tb := transport.NewInMemoryPair()
	client := New(ta, WithSides(SideClient, SideServer))
	server := New(tb, WithSides(SideServer, SideClient))
	client.SetCapabilities(CapabilitySet{}, CapabilitySet{"tools": true, "prompts": true, "resources": true})
	server.SetCapabilities(CapabilitySet{"tools": true, "prompts": true, "resources": true}, CapabilitySet{})
	require.NoError(t, client.Connect(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, server.Connect(context.Background(), func(context.Context) error { return nil }))
	t.Cleanup(func() {
		client.Close("test cleanup")
		server.Close("test cleanup")
	})
	return client, server
}

func TestRequestRoundTrip(t *testing.T) {
	client, server := newPair(t)

	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		return mcp.ListToolsResult{Tools: []mcp.Tool{{Name: "echo"}}}, nil
	})

	raw, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{Timeout: time.Second})
	require.NoError(t, err)

	var result mcp.ListToolsResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Len(t, result.Tools, 1)
	assert.Equal(t, "echo", result.Tools[0].Name)
}

func TestRequestPeerErrorPropagates(t *testing.T) {
	client, server := newPair(t)

	server.SetRequestHandler(mcp.MethodCallTool, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "bad tool name")
	})

	_, err := client.Request(context.Background(), mcp.MethodCallTool, mcp.CallToolParams{Name: "nope"}, RequestOptions{Timeout: time.Second})
	require.Error(t, err)
	var eo *mcp.ErrorObj
	require.True(t, errors.As(err, &eo))
	assert.Equal(t, mcp.CodeInvalidParams, eo.Code)
}

func TestRequestRejectedWhenPeerLacksCapability(t *testing.T) {
	client, server := newPair(t)
	_ = server

	client.mu.Lock()
	client.peerCaps = CapabilitySet{}
	client.mu.Unlock()

	_, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{Timeout: time.Second})
	require.Error(t, err)
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "tools", capErr.Capability)
}

func TestSetRequestHandlerRejectedWhenSelfLacksCapabilityUnderStrictMode(t *testing.T) {
	ta, _ := transport.NewInMemoryPair()
	server := New(ta, WithSides(SideServer, SideClient), WithEnforceStrictCapabilities(true))
	server.SetCapabilities(CapabilitySet{}, CapabilitySet{})

	err := server.SetRequestHandler(mcp.MethodListTools, func(context.Context, json.RawMessage, RequestExtra) (any, error) {
		t.Fatal("handler must not run: registration should have failed synchronously")
		return nil, nil
	})
	require.Error(t, err)
	var capErr *CapabilityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "Server", capErr.Who)
}

func TestRequestCancelledByCallerRejectsWithVerbatimReason(t *testing.T) {
	client, server := newPair(t)

	block := make(chan struct{})
	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		<-ctx.Done()
		close(block)
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancelCause(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel(errors.New("Cancelled by test"))
	}()

	_, err := client.Request(ctx, mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{Timeout: 2 * time.Second})
	require.Error(t, err)
	assert.Equal(t, "Cancelled by test", err.Error())

	select {
	case <-block:
	case <-time.After(time.Second):
		t.Fatal("server handler was never cancelled")
	}
}

func TestRequestTimesOutAndNotifiesPeerOfCancellation(t *testing.T) {
	client, server := newPair(t)

	cancelledOnServer := make(chan struct{})
	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		<-ctx.Done()
		close(cancelledOnServer)
		return nil, ctx.Err()
	})

	_, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{Timeout: 30 * time.Millisecond})
	require.Error(t, err)
	var eo *mcp.ErrorObj
	require.True(t, errors.As(err, &eo))
	assert.Equal(t, mcp.CodeRequestTimeout, eo.Code)

	select {
	case <-cancelledOnServer:
	case <-time.After(time.Second):
		t.Fatal("server handler was never cancelled after client timeout")
	}
}

func TestProgressCallbackInvoked(t *testing.T) {
	client, server := newPair(t)

	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		require.NoError(t, extra.SendProgress(0.5, nil, "halfway"))
		return mcp.ListToolsResult{}, nil
	})

	var gotProgress float64
	var gotMessage string
	done := make(chan struct{})
	go func() {
		_, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{
			Timeout: time.Second,
			OnProgress: func(progress float64, total *float64, message string) {
				gotProgress = progress
				gotMessage = message
			},
		})
		require.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request never completed")
	}
	assert.Equal(t, 0.5, gotProgress)
	assert.Equal(t, "halfway", gotMessage)
}

func TestNotificationDebounceCoalescesBurst(t *testing.T) {
	ta, tb := transport.NewInMemoryPair()
	client := New(ta, WithSides(SideClient, SideServer), WithDebouncedMethods([]string{mcp.MethodNotificationToolsListChanged}))
	server := New(tb, WithSides(SideServer, SideClient))
	client.SetCapabilities(CapabilitySet{"tools": true}, CapabilitySet{})
	server.SetCapabilities(CapabilitySet{}, CapabilitySet{"tools": true})
	require.NoError(t, client.Connect(context.Background(), func(context.Context) error { return nil }))
	require.NoError(t, server.Connect(context.Background(), func(context.Context) error { return nil }))
	t.Cleanup(func() { client.Close("done"); server.Close("done") })

	received := make(chan struct{}, 10)
	server.SetNotificationHandler(mcp.MethodNotificationToolsListChanged, func(ctx context.Context, params json.RawMessage) {
		received <- struct{}{}
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, client.Notification(context.Background(), mcp.MethodNotificationToolsListChanged, nil, NotificationOptions{}))
	}

	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, len(received), 1, "a burst of parameterless debounced notifications must coalesce")
}

func TestCloseRejectsOutstandingRequests(t *testing.T) {
	client, server := newPair(t)

	block := make(chan struct{})
	server.SetRequestHandler(mcp.MethodListTools, func(ctx context.Context, params json.RawMessage, extra RequestExtra) (any, error) {
		<-block
		return mcp.ListToolsResult{}, nil
	})

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Request(context.Background(), mcp.MethodListTools, mcp.ListToolsParams{}, RequestOptions{Timeout: 5 * time.Second})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	client.Close("shutting down")
	close(block)

	select {
	case err := <-errCh:
		require.Error(t, err)
		var eo *mcp.ErrorObj
		require.True(t, errors.As(err, &eo))
		assert.Equal(t, mcp.CodeConnectionClosed, eo.Code)
	case <-time.After(time.Second):
		t.Fatal("request never resolved after Close")
	}
}
