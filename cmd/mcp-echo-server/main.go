// Command mcp-echo-server wires a client.Client and a server.Server
// together over an in-memory transport pair and exercises one
// typed-argument tool end to end: it reflects the tool's input/output
// schema from Go structs with invopop/jsonschema, decodes the call's
// arguments into the typed struct with mitchellh/mapstructure, connects
// through a deliberately flaky transport using protocol.Backoff-driven
// retries, logs the method of every outbound request and notification
// through a request hook, and serves
// the result back through the full protocol stack (initialize,
// tools/list, tools/call). It's a runnable demonstration, not a daemon
// meant to stay up; it exits once the round trip completes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/socotra/mcp-go/client"
	"github.com/socotra/mcp-go/logx"
	"github.com/socotra/mcp-go/mcp"
	"github.com/socotra/mcp-go/protocol"
	"github.com/socotra/mcp-go/server"
	"github.com/socotra/mcp-go/transport"
)

// flakyStart wraps a Transport whose Start fails the first few calls,
// standing in for a real transport (a dialer, a listener still coming
// up) that a host would retry against with protocol.Backoff.
type flakyStart struct {
	*transport.InMemory
	failuresLeft int
}

func (f *flakyStart) Start() error {
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return fmt.Errorf("simulated transient dial failure (%d left)", f.failuresLeft)
	}
	return f.InMemory.Start()
}

// GreetArgs is the typed shape of the "greet" tool's arguments, reflected
// into a JSON Schema document for InputSchema.
type GreetArgs struct {
	Name string `json:"name" jsonschema:"required,description=Name of the person to greet"`
	Loud bool   `json:"loud,omitempty" jsonschema:"description=Uppercase the greeting"`
}

// GreetResult is the typed shape of the "greet" tool's structuredContent,
// reflected into a JSON Schema document for OutputSchema.
type GreetResult struct {
	Greeting string `json:"greeting"`
}

func reflectSchema(v any) json.RawMessage {
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	s := r.Reflect(v)
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("mcp-echo-server: reflect schema: %v", err))
	}
	return b
}

func greetHandler(ctx context.Context, raw json.RawMessage) (*mcp.CallToolResult, error) {
	var untyped map[string]any
	if err := json.Unmarshal(raw, &untyped); err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode greet arguments: %v", err)
	}

	var args GreetArgs
	if err := mapstructure.Decode(untyped, &args); err != nil {
		return nil, mcp.Errorf(mcp.CodeInvalidParams, "decode greet arguments: %v", err)
	}

	greeting := fmt.Sprintf("Hello, %s!", args.Name)
	if args.Loud {
		greeting = fmt.Sprintf("HELLO, %s!", args.Name)
	}

	result := GreetResult{Greeting: greeting}
	structured, err := json.Marshal(result)
	if err != nil {
		return nil, mcp.Errorf(mcp.CodeInternalError, "encode greet result: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []json.RawMessage{
			mustMarshal(mcp.TextContent{Type: "text", Text: greeting}),
		},
		StructuredContent: structured,
	}, nil
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func main() {
	log, err := logx.New("mcp-echo-server", -1)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	serverTransport, clientTransport := transport.NewInMemoryPair()

	srv := server.New(
		mcp.Implementation{Name: "mcp-echo-server", Version: "0.1.0"},
		serverTransport,
		server.WithLogger(log),
	)
	srv.AddTool(mcp.Tool{
		Name:         "greet",
		Description:  "Greets a person by name.",
		InputSchema:  reflectSchema(&GreetArgs{}),
		OutputSchema: reflectSchema(&GreetResult{}),
	}, greetHandler)

	ctx := context.Background()
	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Error("serve", zap.Error(err))
		}
	}()

	c := client.New(&flakyStart{InMemory: clientTransport, failuresLeft: 2},
		client.WithLogger(log),
		client.WithRequestHook(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			log.Debug("outbound", zap.String("method", method))
			return params, nil
		}),
	)
	if err := c.ConnectWithRetry(ctx, protocol.NewBackoff(10*time.Millisecond, 200*time.Millisecond), 5); err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer c.Close("done")

	if _, err := c.ListTools(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "list tools:", err)
		os.Exit(1)
	}

	result, err := c.CallTool(ctx, "greet", map[string]any{"name": "World", "loud": true})
	if err != nil {
		fmt.Fprintln(os.Stderr, "call tool:", err)
		os.Exit(1)
	}

	fmt.Println(string(result.StructuredContent))
}
