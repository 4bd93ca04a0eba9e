package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
	"github.com/socotra/mcp-go/transport"
)

func newConnectedServer(t *testing.T, opts ...Option) (*Server, *protocol.Connection) {
	t.Helper()
	serverTr, peerTr := transport.NewInMemoryPair()
	srv := New(mcp.Implementation{Name: "test-server", Version: "0.0.1"}, serverTr, opts...)

	peer := protocol.New(peerTr, protocol.WithSides(protocol.SideClient, protocol.SideServer))

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	require.NoError(t, peer.Connect(ctx, func(ctx context.Context) error {
		raw, err := peer.Request(ctx, mcp.MethodInitialize, mcp.InitializeParams{
			ProtocolVersion: mcp.LatestVersion,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      mcp.Implementation{Name: "test-client", Version: "0.0.1"},
		}, protocol.RequestOptions{Timeout: time.Second})
		if err != nil {
			return err
		}
		var result mcp.InitializeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return err
		}
		peer.SetCapabilities(protocol.CapabilitySet{}, flattenServerCapabilities(result.Capabilities))
		return peer.Notification(ctx, mcp.MethodNotificationInitialized, mcp.InitializedParams{}, protocol.NotificationOptions{})
	}))
	require.NoError(t, <-errCh)

	t.Cleanup(func() {
		srv.Close("test cleanup")
		peer.Close("test cleanup")
	})
	return srv, peer
}

func TestAddToolAndCallToolRoundTrip(t *testing.T) {
	_, peer := newConnectedServer(t, func(s *Server) {
		s.AddTool(mcp.Tool{
			Name:        "echo",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
			var p struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.Unmarshal(args, &p))
			return &mcp.CallToolResult{Content: []json.RawMessage{mustMarshal(mcp.TextContent{Type: "text", Text: p.Text})}}, nil
		})
	})

	raw, err := peer.Request(context.Background(), mcp.MethodCallTool, mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{"text": "hi"},
	}, protocol.RequestOptions{Timeout: time.Second})
	require.NoError(t, err)

	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
}

func TestCallToolRejectsInvalidArguments(t *testing.T) {
	_, peer := newConnectedServer(t, func(s *Server) {
		s.AddTool(mcp.Tool{
			Name:        "echo",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
		}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{}, nil
		})
	})

	_, err := peer.Request(context.Background(), mcp.MethodCallTool, mcp.CallToolParams{
		Name:      "echo",
		Arguments: map[string]any{},
	}, protocol.RequestOptions{Timeout: time.Second})
	require.Error(t, err)
}

func TestLogLevelFiltering(t *testing.T) {
	srv, peer := newConnectedServer(t)

	notifications := make(chan mcp.LoggingMessageParams, 4)
	peer.SetNotificationHandler(mcp.MethodNotificationLogMessage, func(ctx context.Context, raw json.RawMessage) {
		var p mcp.LoggingMessageParams
		require.NoError(t, json.Unmarshal(raw, &p))
		notifications <- p
	})

	_, err := peer.Request(context.Background(), mcp.MethodSetLoggingLevel, mcp.SetLevelParams{Level: mcp.LogWarning}, protocol.RequestOptions{Timeout: time.Second})
	require.NoError(t, err)

	require.NoError(t, srv.Log(context.Background(), mcp.LogDebug, "test", "should be filtered"))
	require.NoError(t, srv.Log(context.Background(), mcp.LogWarning, "test", "should arrive"))

	select {
	case p := <-notifications:
		require.Equal(t, mcp.LogWarning, p.Level)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for warning notification")
	}

	select {
	case p := <-notifications:
		t.Fatalf("unexpected second notification: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestElicitInputRejectsUnsupportedMode(t *testing.T) {
	srv, _ := newConnectedServer(t)

	_, err := srv.ElicitInput(context.Background(), mcp.ElicitCreateParams{Mode: mcp.ElicitModeForm, Message: "name?"})
	require.Error(t, err)
}

func TestCreateElicitationCompletionNotifierRequiresURLCapability(t *testing.T) {
	srv, _ := newConnectedServer(t)

	_, err := srv.CreateElicitationCompletionNotifier("elicit-1", nil)
	require.Error(t, err)
}

func TestCompletePromptArgument(t *testing.T) {
	srv, peer := newConnectedServer(t, func(s *Server) {
		s.AddPrompt(mcp.Prompt{
			Name: "greeting",
			Arguments: []mcp.PromptArgument{
				{Name: "style"},
			},
		}, func(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{}, nil
		})
	})
	require.NoError(t, srv.CompletePromptArgument("greeting", "style", func(ctx context.Context, value string) []string {
		return []string{"formal", "casual"}
	}))

	raw, err := peer.Request(context.Background(), mcp.MethodComplete, mcp.CompleteParams{
		Ref:      mcp.CompletionReference{Type: "ref/prompt", Name: "greeting"},
		Argument: mcp.CompletionArgument{Name: "style", Value: ""},
	}, protocol.RequestOptions{Timeout: time.Second})
	require.NoError(t, err)

	var result mcp.CompleteResult
	require.NoError(t, json.Unmarshal(raw, &result))
	require.Equal(t, []string{"casual", "formal"}, result.Completion.Values)
}
