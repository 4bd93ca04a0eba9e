package client

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
	"github.com/socotra/mcp-go/server"
	"github.com/socotra/mcp-go/transport"
)

// flakyTransport fails Start the first failuresLeft times, standing in
// for a real transport a host would retry against with ConnectWithRetry.
type flakyTransport struct {
	*transport.InMemory
	failuresLeft int
}

func (f *flakyTransport) Start() error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return fmt.Errorf("simulated dial failure")
	}
	return f.InMemory.Start()
}

func newConnectedPair(t *testing.T, clientOpts []Option, serverOpts ...server.Option) (*Client, *server.Server) {
	t.Helper()
	serverTr, clientTr := transport.NewInMemoryPair()

	srv := server.New(mcp.Implementation{Name: "test-server", Version: "0.0.1"}, serverTr, serverOpts...)
	c := New(clientTr, clientOpts...)

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, <-errCh)

	t.Cleanup(func() {
		c.Close("test cleanup")
		srv.Close("test cleanup")
	})
	return c, srv
}

func TestConnectWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	serverTr, clientTr := transport.NewInMemoryPair()
	srv := server.New(mcp.Implementation{Name: "test-server", Version: "0.0.1"}, serverTr)
	c := New(&flakyTransport{InMemory: clientTr, failuresLeft: 2})

	ctx := context.Background()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		c.Close("test cleanup")
		srv.Close("test cleanup")
	})

	require.NoError(t, c.ConnectWithRetry(ctx, protocol.NewBackoff(time.Millisecond, 5*time.Millisecond), 5))
	require.NoError(t, <-errCh)
	require.Equal(t, mcp.LatestVersion, c.NegotiatedVersion())
}

func TestConnectWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	_, clientTr := transport.NewInMemoryPair()
	c := New(&flakyTransport{InMemory: clientTr, failuresLeft: 10})
	t.Cleanup(func() { c.Close("test cleanup") })

	err := c.ConnectWithRetry(context.Background(), protocol.NewBackoff(time.Millisecond, 2*time.Millisecond), 3)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestConnectNegotiatesVersionAndCapabilities(t *testing.T) {
	c, _ := newConnectedPair(t, nil)
	require.Equal(t, mcp.LatestVersion, c.NegotiatedVersion())
	require.Equal(t, "test-server", c.ServerInfo().Name)
	require.NotNil(t, c.ServerCapabilities().Tools)
}

func TestCallToolValidatesStructuredContentAgainstOutputSchema(t *testing.T) {
	outputSchema := json.RawMessage(`{"type":"object","properties":{"sum":{"type":"integer"}},"required":["sum"]}`)

	c, _ := newConnectedPair(t, nil, func(s *server.Server) {
		s.AddTool(mcp.Tool{
			Name:         "add",
			OutputSchema: outputSchema,
		}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				StructuredContent: json.RawMessage(`{"sum":3}`),
			}, nil
		})
	})

	_, err := c.ListTools(context.Background())
	require.NoError(t, err)

	result, err := c.CallTool(context.Background(), "add", map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.JSONEq(t, `{"sum":3}`, string(result.StructuredContent))
}

func TestCallToolRejectsMissingStructuredContent(t *testing.T) {
	outputSchema := json.RawMessage(`{"type":"object","properties":{"sum":{"type":"integer"}},"required":["sum"]}`)

	c, _ := newConnectedPair(t, nil, func(s *server.Server) {
		s.AddTool(mcp.Tool{
			Name:         "add",
			OutputSchema: outputSchema,
		}, func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{}, nil
		})
	})

	_, err := c.ListTools(context.Background())
	require.NoError(t, err)

	_, err = c.CallTool(context.Background(), "add", map[string]any{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "declared an output schema but returned no structuredContent")
}

func TestElicitationFormDefaultsAreApplied(t *testing.T) {
	requestedSchema := json.RawMessage(`{
		"type": "object",
		"properties": {
			"confirmed": {"type": "boolean", "default": true},
			"label": {"type": "string", "default": "unnamed"}
		},
		"required": ["confirmed", "label"]
	}`)

	var captured mcp.ElicitCreateParams
	elicitHandler := func(ctx context.Context, params mcp.ElicitCreateParams) (*mcp.ElicitResult, error) {
		captured = params
		return &mcp.ElicitResult{Action: mcp.ElicitAccept, Content: map[string]any{}}, nil
	}

	c, srv := newConnectedPair(t, []Option{WithElicitationHandler(elicitHandler)})

	result, err := srv.ElicitInput(context.Background(), mcp.ElicitCreateParams{
		Mode:            mcp.ElicitModeForm,
		Message:         "confirm?",
		RequestedSchema: requestedSchema,
	})
	require.NoError(t, err)
	require.Equal(t, mcp.ElicitAccept, result.Action)
	require.Equal(t, true, result.Content["confirmed"])
	require.Equal(t, "unnamed", result.Content["label"])
	require.Equal(t, mcp.ElicitModeForm, captured.Mode)

	_ = c
}

func TestElicitationRejectsWhenClientDeclinesModeSupport(t *testing.T) {
	c, srv := newConnectedPair(t, nil)

	_, err := srv.ElicitInput(context.Background(), mcp.ElicitCreateParams{
		Mode:    mcp.ElicitModeForm,
		Message: "confirm?",
	})
	require.Error(t, err)
	_ = c
}

func TestSamplingHandlerServicesCreateMessage(t *testing.T) {
	samplingHandler := func(ctx context.Context, params mcp.CreateMessageParams) (*mcp.CreateMessageResult, error) {
		return &mcp.CreateMessageResult{
			Role:       "assistant",
			Content:    json.RawMessage(`{"type":"text","text":"ok"}`),
			Model:      "test-model",
			StopReason: "endTurn",
		}, nil
	}

	_, srv := newConnectedPair(t, []Option{WithSamplingHandler(samplingHandler)})

	result, err := srv.CreateMessage(context.Background(), mcp.CreateMessageParams{
		Messages:    []mcp.SamplingMessage{{Role: "user", Content: json.RawMessage(`{"type":"text","text":"hi"}`)}},
		MaxTokens:   16,
	})
	require.NoError(t, err)
	require.Equal(t, "test-model", result.Model)
}

func TestRootsAreServedToPeer(t *testing.T) {
	_, srv := newConnectedPair(t, []Option{WithRoots(mcp.Root{URI: "file:///tmp", Name: "tmp"})})

	roots, err := srv.ListRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "file:///tmp", roots[0].URI)
}

func TestLogMessageHandlerReceivesFilteredNotifications(t *testing.T) {
	received := make(chan mcp.LoggingMessageParams, 1)
	c, srv := newConnectedPair(t, []Option{
		WithLogMessageHandler(func(p mcp.LoggingMessageParams) { received <- p }),
	})
	require.NoError(t, c.SetLoggingLevel(context.Background(), mcp.LogWarning))

	require.NoError(t, srv.Log(context.Background(), mcp.LogWarning, "test", "hello"))

	select {
	case p := <-received:
		require.Equal(t, mcp.LogWarning, p.Level)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for log message")
	}
}
