package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/benchmark"
	"github.com/effective-security/mcpbench/mathtools"
	"github.com/effective-security/mcpbench/mocks/mockassistants"
	"github.com/effective-security/mcpbench/mocks/mockllms"
	"github.com/effective-security/mcpbench/pkg/llmfactory"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/bedrock"
	"github.com/effective-security/xlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("mcpbench"), kong.Vars(kongVars))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, kctx
}

func Test_Parse(t *testing.T) {
	t.Setenv("BEDROCK_MODEL_ID", "")
	os.Unsetenv("BEDROCK_MODEL_ID")

	cli, kctx := parse(t)
	assert.Equal(t, "chat", kctx.Command())
	assert.Equal(t, "WARNING", cli.LogLevel)
	assert.Equal(t, xlog.WARNING, cli.Level())
	assert.Equal(t, bedrock.DefaultModel, cli.ModelID)
	assert.Equal(t, 25, cli.Recursions)

	cli, kctx = parse(t, "--log-level", "DEBUG", "bench", "--parallel", "4", "--summary-format", "yaml")
	assert.Equal(t, "bench", kctx.Command())
	assert.Equal(t, xlog.DEBUG, cli.Level())
	assert.Equal(t, "results.csv", cli.Bench.Output)
	assert.Equal(t, "benchmark_summary.txt", cli.Bench.Summary)
	assert.Equal(t, "yaml", cli.Bench.SummaryFormat)
	assert.Equal(t, 4, cli.Bench.Parallel)

	cli, kctx = parse(t, "ask", "what", "is", "2", "plus", "2?")
	assert.Equal(t, "ask <question>", kctx.Command())
	assert.Equal(t, []string{"what", "is", "2", "plus", "2?"}, cli.Ask.Question)

	t.Setenv("BEDROCK_MODEL_ID", bedrock.ModelAmazonNovaMicro)
	cli, kctx = parse(t, "serve", "--http", "localhost:0", "--tool", "add", "--tool", "divide")
	assert.Equal(t, "serve", kctx.Command())
	assert.Equal(t, bedrock.ModelAmazonNovaMicro, cli.ModelID)
	assert.Equal(t, []string{"add", "divide"}, cli.Serve.Tools)
	assert.Equal(t, "/mcp", cli.Serve.Endpoint)

	parser, err := kong.New(&CLI{}, kong.Vars(kongVars))
	require.NoError(t, err)
	_, err = parser.Parse([]string{"--log-level", "LOUD"})
	assert.Error(t, err)
}

func Test_ClientConfig(t *testing.T) {
	g := &Globals{Server: "http://localhost:8080/mcp"}
	cfg, err := g.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/mcp", cfg.URL)

	g = &Globals{Server: " ./mcpbench serve --tool add "}
	cfg, err = g.ClientConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.URL)
	assert.Equal(t, "./mcpbench", cfg.Command)
	assert.Equal(t, []string{"serve", "--tool", "add"}, cfg.Args)

	g = &Globals{LogLevel: "INFO"}
	cfg, err = g.ClientConfig()
	require.NoError(t, err)
	exe, _ := os.Executable()
	assert.Equal(t, exe, cfg.Command)
	assert.Equal(t, []string{"serve", "--log-level", "INFO"}, cfg.Args)
}

type namedModel struct {
	name string
	pt   llms.ProviderType
}

func (m *namedModel) GetName() string                    { return m.name }
func (m *namedModel) GetProviderType() llms.ProviderType { return m.pt }
func (m *namedModel) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, errors.New("not implemented")
}

func Test_Model(t *testing.T) {
	saved := llmfactory.NewLLM
	t.Cleanup(func() { llmfactory.NewLLM = saved })
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferred ...string) (llms.Model, error) {
		return &namedModel{name: cfg.FindModel(preferred...), pt: cfg.ProviderType()}, nil
	}
	t.Setenv("OPENAI_API_KEY", "test")

	g := &Globals{ModelID: bedrock.ModelAmazonNovaMicro}
	m, err := g.Model()
	require.NoError(t, err)
	assert.Equal(t, bedrock.ModelAmazonNovaMicro, m.GetName())
	assert.Equal(t, llms.ProviderBedrock, m.GetProviderType())

	cfgFile := filepath.Join("..", "..", "pkg", "llmfactory", "testdata", "llm.yaml")
	g = &Globals{LLMConfig: cfgFile, Provider: "openai"}
	m, err = g.Model()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.GetName())

	g = &Globals{LLMConfig: cfgFile, ModelID: bedrock.DefaultModel}
	m, err = g.Model()
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderBedrock, m.GetProviderType())

	g = &Globals{LLMConfig: "testdata/missing.yaml"}
	_, err = g.Model()
	assert.Error(t, err)
}

func Test_NewAgent(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)

	g := &Globals{Recursions: 5}
	agent, err := g.NewAgent(llm, mathtools.Default().ITools()...)
	require.NoError(t, err)
	assert.Equal(t, AssistantName, agent.Name())
	assert.NotEmpty(t, agent.Description())

	g = &Globals{FewShot: "testdata/missing.jsonl"}
	_, err = g.NewAgent(llm)
	assert.Error(t, err)
}

func Test_REPL(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := mockassistants.NewMockIAssistant(ctrl)

	gomock.InOrder(
		agent.EXPECT().Run(gomock.Any(), "What is 2 plus 2?").
			Return(&assistants.Result{Messages: []llms.Message{
				llms.MessageFromTextParts(llms.RoleHuman, "What is 2 plus 2?"),
				llms.MessageFromTextParts(llms.RoleAI, "4"),
			}}, nil),
		agent.EXPECT().Run(gomock.Any(), "say nothing").
			Return(&assistants.Result{}, nil),
		agent.EXPECT().Run(gomock.Any(), "fail").
			Return(nil, errors.New("throttled")),
	)

	in := strings.NewReader("\n  What is 2 plus 2?  \nsay nothing\nfail\nQUIT\nnever read\n")
	var out bytes.Buffer
	err := repl(context.Background(), newPromptReader(in, &out), &out, agent)
	require.NoError(t, err)

	exp := replBanner + "\n" +
		strings.Repeat("-", 50) + "\n" +
		">>> >>> 4\n" +
		">>> [no content returned]\n" +
		">>> Error: throttled\n" +
		">>> Goodbye!\n"
	assert.Equal(t, exp, out.String())
}

func Test_REPL_EOF(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := mockassistants.NewMockIAssistant(ctrl)

	var out bytes.Buffer
	err := repl(context.Background(), newPromptReader(strings.NewReader(""), &out), &out, agent)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.String(), ">>> \nGoodbye!\n"))
}

func Test_REPL_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := mockassistants.NewMockIAssistant(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	agent.EXPECT().Run(gomock.Any(), "1+1", gomock.Any()).
		DoAndReturn(func(context.Context, string, ...assistants.Option) (*assistants.Result, error) {
			cancel()
			return nil, context.Canceled
		})

	var out bytes.Buffer
	err := repl(ctx, newPromptReader(strings.NewReader("1+1\n"), &out), &out, agent,
		assistants.WithRecursionLimit(3))
	assert.True(t, errors.Is(err, context.Canceled))
}

func Test_ResultsPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join("results", DefaultResultsFile), ResultsPath(""))
	assert.Equal(t, filepath.Join(dir, DefaultResultsFile), ResultsPath(dir))
	assert.Equal(t, filepath.Join("out", DefaultResultsFile), ResultsPath("out"+string(os.PathSeparator)))
	assert.Equal(t, filepath.Join(dir, "run.csv"), ResultsPath(filepath.Join(dir, "run.csv")))
}

func Test_BenchCmd_write(t *testing.T) {
	dir := t.TempDir()
	c := &BenchCmd{
		Output:        filepath.Join(dir, "results") + string(os.PathSeparator),
		Summary:       filepath.Join(dir, "summary", "benchmark_summary.json"),
		SummaryFormat: "json",
	}
	rows := []*benchmark.Row{
		{ID: "1", Question: "What is 2 plus 3?", UsedTool: "add", ToolGroundTruth: "add", ToolSelectionAccuracy: true, Result: int64(5), Expected: int64(5), Correct: true, Latency: 1.25},
	}

	output, err := c.write(rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results", DefaultResultsFile), output)

	csv, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(csv), "\n"))
	assert.Contains(t, string(csv), "1,What is 2 plus 3?,add,add,True,,5,5,True,1.25,,,,\n")

	summary, err := os.ReadFile(c.Summary)
	require.NoError(t, err)
	assert.Contains(t, string(summary), `"total_tasks": 1`)
	assert.Contains(t, string(summary), `"answer_accuracy": 1`)
}

func Test_ConnectLocal(t *testing.T) {
	ctx := context.Background()
	g := &Globals{Server: LocalServer}
	client, err := g.Connect(ctx)
	require.NoError(t, err)
	defer client.Close()

	list, err := client.Tools(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(mathtools.Default().Tools()))

	res, err := client.CallTool(ctx, "multiply", `{"a": 6, "b": 7}`)
	require.NoError(t, err)
	assert.Equal(t, "42", res)
}

func Test_printTools(t *testing.T) {
	sub, err := mathtools.Default().Subset("add", "sqrt")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printTools(&out, false, sub.ITools()...))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "add "))
	assert.True(t, strings.HasPrefix(lines[1], "sqrt "))

	out.Reset()
	require.NoError(t, printTools(&out, true, sub.ITools()...))
	assert.Contains(t, out.String(), `"properties"`)
}
