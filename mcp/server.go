package mcp

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/mathtools"
	"github.com/effective-security/mcpbench/pkg/metricskey"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "mcp")

const (
	// ServerName is the implementation name announced by the math server.
	ServerName = "Math"
	// Version is the implementation version announced by server and client.
	Version = "1.0.0"
)

// Server exposes a math tool registry over MCP.
type Server struct {
	reg *mathtools.Registry
	srv *sdk.Server
}

// ServerOption configures the server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	name         string
	version      string
	instructions string
}

// WithServerName overrides the announced server name.
func WithServerName(name string) ServerOption {
	return func(o *serverOptions) {
		o.name = name
	}
}

// WithServerVersion overrides the announced server version.
func WithServerVersion(version string) ServerOption {
	return func(o *serverOptions) {
		o.version = version
	}
}

// WithInstructions sets the instructions returned on initialize.
func WithInstructions(instructions string) ServerOption {
	return func(o *serverOptions) {
		o.instructions = instructions
	}
}

// NewServer registers every tool of reg on a new MCP server.
func NewServer(reg *mathtools.Registry, opts ...ServerOption) (*Server, error) {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	srv := sdk.NewServer(&sdk.Implementation{
		Name:    values.StringsCoalesce(o.name, ServerName),
		Version: values.StringsCoalesce(o.version, Version),
	}, &sdk.ServerOptions{
		Instructions: o.instructions,
	})

	s := &Server{
		reg: reg,
		srv: srv,
	}
	for _, t := range reg.Tools() {
		params, err := schema.ToMap(t.Parameters())
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to convert schema for tool %s", t.Name())
		}
		srv.AddTool(&sdk.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: params,
		}, s.handler(t))
	}
	return s, nil
}

// SDK returns the underlying MCP server.
func (s *Server) SDK() *sdk.Server {
	return s.srv
}

func (s *Server) handler(t *mathtools.Tool) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		defer metricskey.PerfMCPToolCall.MeasureSince(time.Now(), t.Name())

		args := "{}"
		if req != nil && req.Params != nil && len(req.Params.Arguments) > 0 {
			args = string(req.Params.Arguments)
		}

		v, err := t.Run(ctx, args)
		if err != nil {
			metricskey.StatsMCPToolCallsFailed.IncrCounter(1, t.Name())
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "failed",
				"tool", t.Name(),
				"args", args,
				"err", err.Error(),
			)
			// tool failures are results, so the model can read them and retry
			return &sdk.CallToolResult{
				IsError: true,
				Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			}, nil
		}

		metricskey.StatsMCPToolCallsSucceeded.IncrCounter(1, t.Name())
		logger.ContextKV(ctx, xlog.DEBUG,
			"status", "succeeded",
			"tool", t.Name(),
			"args", args,
			"result", v.String(),
		)
		return &sdk.CallToolResult{
			Content:           []sdk.Content{&sdk.TextContent{Text: v.String()}},
			StructuredContent: map[string]any{"result": v},
		}, nil
	}
}

// Serve runs the server on the transport until the peer disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context, t sdk.Transport) error {
	logger.ContextKV(ctx, xlog.INFO, "status", "serving", "tools", len(s.reg.Tools()))
	err := s.srv.Run(ctx, t)
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.WithStack(err)
	}
	return nil
}

// ServeStdio runs the server on stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, &sdk.StdioTransport{})
}

// Handler returns the streamable HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return s.srv
	}, nil)
}

// ListenAndServe serves streamable HTTP on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr, endpoint string) error {
	mux := http.NewServeMux()
	mux.Handle(values.StringsCoalesce(endpoint, "/mcp"), s.Handler())

	hs := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO, "status", "listening", "addr", addr, "endpoint", endpoint)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.WithStack(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.WithStack(hs.Shutdown(shutdownCtx))
	}
}
