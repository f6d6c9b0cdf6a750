package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/effective-security/mcpbench/pkg/metricskey"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrToolFailed marks errors reported by the server as tool results.
var ErrToolFailed = errors.New("tool call failed")

// ClientName is the implementation name announced by the client.
const ClientName = "mcpbench"

// ClientConfig describes how to reach the MCP server.
type ClientConfig struct {
	// URL is a streamable HTTP endpoint. When set, Command is ignored.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Command launches the server as a child process speaking stdio.
	Command string   `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env is appended to the environment of the current process.
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Client is a connected MCP session.
type Client struct {
	session *sdk.ClientSession
	// server is the in-process session of ConnectLocal
	server *sdk.ServerSession
}

// Connect starts or dials the server described by cfg and performs the handshake.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.URL != "" {
		return ConnectTransport(ctx, &sdk.StreamableClientTransport{Endpoint: cfg.URL})
	}
	if cfg.Command == "" {
		return nil, errors.New("MCP server command or URL is required")
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Dir = cfg.Dir
	// server logs go to our stderr; stdout is the protocol channel
	cmd.Stderr = os.Stderr

	logger.ContextKV(ctx, xlog.DEBUG, "status", "launching", "command", cfg.Command, "args", cfg.Args)
	return ConnectTransport(ctx, &sdk.CommandTransport{Command: cmd})
}

// ConnectTransport performs the handshake over an arbitrary transport.
func ConnectTransport(ctx context.Context, t sdk.Transport) (*Client, error) {
	c := sdk.NewClient(&sdk.Implementation{Name: ClientName, Version: Version}, nil)
	session, err := c.Connect(ctx, t, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MCP server")
	}
	return &Client{session: session}, nil
}

// Tools lists the server tools, following pagination, as agent tools.
func (c *Client) Tools(ctx context.Context) ([]tools.ITool, error) {
	var list []tools.ITool
	for t, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, errors.Wrap(err, "failed to list tools")
		}
		params, err := schema.FromAny(t.InputSchema)
		if err != nil {
			return nil, errors.WithMessagef(err, "invalid input schema of tool %s", t.Name)
		}
		list = append(list, &remoteTool{
			client:      c,
			name:        t.Name,
			description: t.Description,
			params:      params,
		})
	}
	logger.ContextKV(ctx, xlog.DEBUG, "status", "listed", "tools", tools.Names(list...))
	return list, nil
}

// CallTool calls the named tool with JSON arguments and returns its text.
// A tool-level failure is returned as an error marked with ErrToolFailed.
func (c *Client) CallTool(ctx context.Context, name, args string) (string, error) {
	raw, err := rawArguments(args)
	if err != nil {
		return "", err
	}

	res, err := c.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: raw,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool %s", name)
	}

	text := resultText(res)
	if res.IsError {
		return "", errors.Mark(errors.New(text), ErrToolFailed)
	}
	return text, nil
}

// Close ends the session and waits for the server process to exit.
func (c *Client) Close() error {
	err := c.session.Close()
	if c.server != nil {
		err = errors.CombineErrors(err, c.server.Close())
	}
	return errors.WithStack(err)
}

func rawArguments(args string) (json.RawMessage, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return json.RawMessage("{}"), nil
	}
	if json.Valid([]byte(args)) {
		return json.RawMessage(args), nil
	}
	cleaned := llmutils.CleanJSON(llmutils.BytesTrimBackticks([]byte(args)))
	if json.Valid(cleaned) {
		return json.RawMessage(cleaned), nil
	}
	return nil, errors.Wrap(tools.ErrFailedUnmarshalInput, args)
}

func resultText(res *sdk.CallToolResult) string {
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ tools.ITool = (*remoteTool)(nil)

// remoteTool adapts a server tool to tools.ITool.
type remoteTool struct {
	client      *Client
	name        string
	description string
	params      *jsonschema.Schema
}

func (t *remoteTool) Name() string {
	return t.name
}

func (t *remoteTool) Description() string {
	return t.description
}

func (t *remoteTool) Parameters() *jsonschema.Schema {
	return t.params
}

func (t *remoteTool) Call(ctx context.Context, input string) (string, error) {
	defer metricskey.PerfToolCall.MeasureSince(time.Now(), t.name)
	return t.client.CallTool(ctx, t.name, input)
}
