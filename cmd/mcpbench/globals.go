package main

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/mathtools"
	"github.com/effective-security/mcpbench/mcp"
	"github.com/effective-security/mcpbench/pkg/llmfactory"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/bedrock"
	"github.com/effective-security/mcpbench/pkg/prompts"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
)

// AssistantName is the name of the math agent, also used to pick its
// model from the assistant_models of the LLM config.
const AssistantName = "Math Assistant"

// Globals are the flags shared by all commands.
type Globals struct {
	LogLevel   string `name:"log-level" help:"Log level" default:"WARNING" enum:"DEBUG,INFO,NOTICE,WARNING,ERROR,CRITICAL"`
	ModelID    string `name:"model-id" env:"BEDROCK_MODEL_ID" help:"Model ID" default:"${default_model}"`
	Region     string `name:"region" env:"AWS_REGION" help:"AWS region of the Bedrock runtime"`
	LLMConfig  string `name:"llm-config" type:"path" help:"LLM providers config file, YAML or JSON"`
	Provider   string `name:"provider" help:"Provider type to use from the LLM config: BEDROCK, ANTHROPIC, GOOGLEAI or OPENAI"`
	Server     string `name:"server" help:"Command that launches the MCP server, its streamable HTTP URL, or local to serve the tools in process. Default: this binary with serve"`
	Recursions int    `name:"recursions" help:"Maximum number of agent steps" default:"25"`
	FewShot    string `name:"few-shot" type:"path" help:"Few-shot examples file, JSON or JSON lines"`
	Template   string `name:"template" type:"path" help:"System prompt template file"`

	ctx context.Context
}

// Level returns the xlog level of the log-level flag.
func (g *Globals) Level() xlog.LogLevel {
	switch strings.ToUpper(g.LogLevel) {
	case "DEBUG":
		return xlog.DEBUG
	case "INFO":
		return xlog.INFO
	case "NOTICE":
		return xlog.NOTICE
	case "ERROR":
		return xlog.ERROR
	case "CRITICAL":
		return xlog.CRITICAL
	}
	return xlog.WARNING
}

func (g *Globals) context() context.Context {
	if g.ctx == nil {
		return context.Background()
	}
	return g.ctx
}

// ClientConfig returns how to reach the MCP server.
func (g *Globals) ClientConfig() (mcp.ClientConfig, error) {
	server := strings.TrimSpace(g.Server)
	if strings.HasPrefix(server, "http://") || strings.HasPrefix(server, "https://") {
		return mcp.ClientConfig{URL: server}, nil
	}
	if server != "" {
		fields := strings.Fields(server)
		return mcp.ClientConfig{Command: fields[0], Args: fields[1:]}, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return mcp.ClientConfig{}, errors.Wrap(err, "failed to locate executable")
	}
	return mcp.ClientConfig{
		Command: exe,
		Args:    []string{"serve", "--log-level", g.LogLevel},
	}, nil
}

// LocalServer serves the math tools in process instead of a child process.
const LocalServer = "local"

// Connect returns a client of the MCP server.
func (g *Globals) Connect(ctx context.Context) (*mcp.Client, error) {
	if strings.TrimSpace(g.Server) == LocalServer {
		srv, err := mcp.NewServer(mathtools.Default())
		if err != nil {
			return nil, err
		}
		return mcp.ConnectLocal(ctx, srv)
	}

	cfg, err := g.ClientConfig()
	if err != nil {
		return nil, err
	}
	return mcp.Connect(ctx, cfg)
}

// Model returns the agent model from the LLM config, or from a Bedrock
// provider serving model-id when no config is given.
func (g *Globals) Model() (llms.Model, error) {
	var (
		f   llmfactory.Factory
		err error
	)
	if g.LLMConfig != "" {
		f, err = llmfactory.Load(g.LLMConfig)
		if err != nil {
			return nil, err
		}
	} else {
		f = llmfactory.New(llmfactory.BedrockConfig(g.ModelID, g.Region))
	}

	if g.Provider != "" {
		return f.ModelByType(g.Provider)
	}
	return f.AssistantModel(AssistantName, g.ModelID)
}

// Agent connects to the MCP server and returns the tool agent.
// The returned client must be closed by the caller.
func (g *Globals) Agent(ctx context.Context) (*assistants.Assistant, *mcp.Client, error) {
	model, err := g.Model()
	if err != nil {
		return nil, nil, err
	}

	client, err := g.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	list, err := client.Tools(ctx)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	agent, err := g.NewAgent(model, list...)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "agent_ready",
		"model", model.GetName(),
		"provider", model.GetProviderType(),
		"tools", len(list))
	return agent, client, nil
}

// NewAgent returns the math agent of the model with the tools.
func (g *Globals) NewAgent(model llms.Model, list ...tools.ITool) (*assistants.Assistant, error) {
	prompt, err := prompts.SystemPrompt(prompts.Config{
		TemplateFile: g.Template,
		FewShotFile:  g.FewShot,
	}, list...)
	if err != nil {
		return nil, err
	}

	agent := assistants.NewAssistant(model, prompt,
		assistants.WithRecursionLimit(g.Recursions),
		assistants.WithCallback(assistants.NewPackageLoggerCallback(logger)),
	).
		WithName(AssistantName).
		WithDescription("Answers math questions with the MCP math tools").
		WithTools(list...)
	return agent, nil
}

// kongVars are the interpolated defaults of the flags.
var kongVars = map[string]string{
	"default_model": bedrock.DefaultModel,
}
