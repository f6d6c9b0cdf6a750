package benchmark_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/benchmark"
	"github.com/effective-security/mcpbench/mathtools"
	"github.com/effective-security/mcpbench/mocks/mockassistants"
	"github.com/effective-security/mcpbench/mocks/mockllms"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var ignoreLatency = cmpopts.IgnoreFields(benchmark.Row{}, "Latency")

func toolResult(question, tool, args, output, answer string, usage llms.Usage) *assistants.Result {
	return &assistants.Result{
		Messages: []llms.Message{
			llms.MessageFromTextParts(llms.RoleSystem, "sys"),
			llms.MessageFromTextParts(llms.RoleHuman, question),
			llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
				ID:           tool + "_0",
				Type:         "function",
				FunctionCall: &llms.FunctionCall{Name: tool, Arguments: args},
			}),
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
				ToolCallID: tool + "_0",
				Name:       tool,
				Content:    output,
			}),
			llms.MessageFromTextParts(llms.RoleAI, answer),
		},
		Usage: usage,
		Steps: 3,
	}
}

func newMockAgent(ctrl *gomock.Controller) *mockassistants.MockIAssistant {
	agent := mockassistants.NewMockIAssistant(ctrl)
	agent.EXPECT().Name().Return("Math Assistant").AnyTimes()
	return agent
}

func ptr[T any](v T) *T {
	return &v
}

func Test_RunSingle_Pass(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := newMockAgent(ctrl)
	task := &benchmark.Task{ID: "1", Question: "What is 2 plus 3?", Tool: "add", Expected: int64(5)}

	agent.EXPECT().Run(gomock.Any(), task.Question).
		Return(toolResult(task.Question, "add", `{"a": 2, "b": 3}`, " 5\n", "5", llms.NewUsage(100, 20, 0)), nil)

	var out bytes.Buffer
	r := benchmark.NewRunner(agent, benchmark.WithOutput(&out))
	row := r.RunSingle(context.Background(), task)

	exp := &benchmark.Row{
		ID:                    "1",
		Question:              task.Question,
		UsedTool:              "add",
		ToolGroundTruth:       "add",
		ToolSelectionAccuracy: true,
		Args:                  map[string]any{"a": int64(2), "b": int64(3)},
		Result:                int64(5),
		Expected:              int64(5),
		Correct:               true,
		InputTokens:           ptr(int64(100)),
		OutputTokens:          ptr(int64(20)),
		TotalTokens:           ptr(int64(120)),
	}
	if diff := cmp.Diff(exp, row, ignoreLatency); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	s := out.String()
	assert.Contains(t, s, "▶ Task 1: What is 2 plus 3?\n")
	assert.Contains(t, s, "--> Latency: ")
	assert.Contains(t, s, `--> Tool call: add({"a": 2, "b": 3})`)
	assert.Contains(t, s, "--> Raw tool result: 5\n")
	assert.Contains(t, s, "--> Tokens: input=100, output=20, total=120\n")
	assert.Contains(t, s, "--> Expected: 5 → ✅ PASS\n")
}

func Test_RunSingle_FailAndNoTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := newMockAgent(ctrl)

	wrongTool := &benchmark.Task{ID: "2", Question: "sqrt of 2", Tool: "sqrt", Expected: 1.41}
	agent.EXPECT().Run(gomock.Any(), wrongTool.Question).
		Return(toolResult(wrongTool.Question, "power", `not json`, "Error: boom. Please fix your mistakes.", "?", llms.Usage{}), nil)

	noTool := &benchmark.Task{ID: "3", Question: "hello", Tool: "add", Expected: int64(1)}
	agent.EXPECT().Run(gomock.Any(), noTool.Question).
		Return(&assistants.Result{Messages: []llms.Message{llms.MessageFromTextParts(llms.RoleAI, "hi")}}, nil)

	var out bytes.Buffer
	r := benchmark.NewRunner(agent, benchmark.WithOutput(&out))

	row := r.RunSingle(context.Background(), wrongTool)
	exp := &benchmark.Row{
		ID:              "2",
		Question:        wrongTool.Question,
		UsedTool:        "power",
		ToolGroundTruth: "sqrt",
		Args:            "not json",
		Result:          "Error: boom. Please fix your mistakes.",
		Expected:        1.41,
	}
	if diff := cmp.Diff(exp, row, ignoreLatency); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, out.String(), "--> Tokens: input=None, output=None, total=None\n")
	assert.Contains(t, out.String(), "--> Expected: 1.41 → ❌ FAIL\n")

	row = r.RunSingle(context.Background(), noTool)
	assert.Empty(t, row.UsedTool)
	assert.Nil(t, row.Args)
	assert.Nil(t, row.Result)
	assert.False(t, row.ToolSelectionAccuracy)
	assert.Contains(t, out.String(), "--> No tool call detected\n")
	assert.Contains(t, out.String(), "--> Raw tool result: None\n")
}

func Test_RunSingle_Errors(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := newMockAgent(ctrl)

	tcases := []struct {
		err    error
		prefix string
		label  string
	}{
		{errors.Mark(errors.New("Recursion limit of 25 reached without hitting a stop condition"), assistants.ErrRecursionLimit), "RecursionLimitError: Recursion limit of 25", "Recursion error"},
		{errors.Mark(errors.New("throttled"), assistants.ErrModelCall), "ModelError: throttled", "Model/Tool error"},
		{errors.WithStack(context.DeadlineExceeded), "CanceledError: context deadline exceeded", "Model/Tool error"},
		{errors.New("broken pipe"), "Error: broken pipe", "Model/Tool error"},
	}
	for i, tc := range tcases {
		task := &benchmark.Task{ID: benchmark.TaskID(fmt.Sprint(i)), Question: fmt.Sprintf("q%d", i), Tool: "add", Expected: int64(1)}
		agent.EXPECT().Run(gomock.Any(), task.Question).Return(nil, tc.err)

		var out bytes.Buffer
		row := benchmark.NewRunner(agent, benchmark.WithOutput(&out)).RunSingle(context.Background(), task)
		exp := &benchmark.Row{
			ID:              task.ID,
			Question:        task.Question,
			ToolGroundTruth: "add",
			Expected:        int64(1),
			Error:           row.Error,
		}
		if diff := cmp.Diff(exp, row, ignoreLatency); diff != "" {
			t.Errorf("row mismatch (-want +got):\n%s", diff)
		}
		assert.Contains(t, row.Error, tc.prefix)
		assert.Contains(t, out.String(), "--> ⛔ "+tc.label+" after ")
	}
}

func Test_Run_Parallel(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := newMockAgent(ctrl)

	var tasks []*benchmark.Task
	for i := range 8 {
		task := &benchmark.Task{
			ID:       benchmark.TaskID(fmt.Sprint(i)),
			Question: fmt.Sprintf("what is %d plus 0?", i),
			Tool:     "add",
			Expected: int64(i),
		}
		tasks = append(tasks, task)
		agent.EXPECT().Run(gomock.Any(), task.Question, gomock.Any()).
			DoAndReturn(func(context.Context, string, ...assistants.Option) (*assistants.Result, error) {
				time.Sleep(time.Duration(8-i) * time.Millisecond)
				return toolResult(task.Question, "add", fmt.Sprintf(`{"a": %d, "b": 0}`, i), fmt.Sprint(i), fmt.Sprint(i), llms.NewUsage(1, 1, 2)), nil
			})
	}

	var out bytes.Buffer
	r := benchmark.NewRunner(agent,
		benchmark.WithOutput(&out),
		benchmark.WithParallel(4),
		benchmark.WithRecursionLimit(5),
		benchmark.WithModelName("mock"))
	rows, err := r.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.Len(t, rows, len(tasks))
	for i, row := range rows {
		assert.Equal(t, tasks[i].ID, row.ID)
		assert.True(t, row.Correct, row.ID)
	}
	assert.Contains(t, out.String(), "[3] what is 3 plus 0? → 3 (OK)")
}

func Test_Run_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	agent := newMockAgent(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tasks := []*benchmark.Task{
		{ID: "1", Question: "first", Tool: "add", Expected: int64(1)},
		{ID: "2", Question: "second", Tool: "add", Expected: int64(2)},
	}
	agent.EXPECT().Run(gomock.Any(), "first").
		DoAndReturn(func(context.Context, string, ...assistants.Option) (*assistants.Result, error) {
			cancel()
			return toolResult("first", "add", `{"a":1,"b":0}`, "1", "1", llms.Usage{}), nil
		})

	rows, err := benchmark.NewRunner(agent).Run(ctx, tasks)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Correct)
}

func Test_Run_Trajectories(t *testing.T) {
	ctrl := gomock.NewController(t)
	llm := mockllms.NewMockModel(ctrl)
	llm.EXPECT().GetName().Return("mock-model").AnyTimes()
	llm.EXPECT().GetProviderType().Return(llms.ProviderBedrock).AnyTimes()
	gomock.InOrder(
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{Choices: []*llms.ContentChoice{{
				ToolCalls: []llms.ToolCall{{
					ID:           "c1",
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: "divide", Arguments: `{"a": 10, "b": 4}`},
				}},
				GenerationInfo: llms.NewUsage(50, 10, 0).Info(),
			}}}, nil),
		llm.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{Choices: []*llms.ContentChoice{{
				Content:        "2.5",
				GenerationInfo: llms.NewUsage(70, 2, 0).Info(),
			}}}, nil),
	)

	agent := assistants.NewAssistant(llm, "sys").WithTools(mathtools.Default().ITools()...)
	dir := t.TempDir()
	var logged bytes.Buffer
	r := benchmark.NewRunner(agent,
		benchmark.WithTrajectoryDir(dir),
		benchmark.WithCallback(assistants.NewPrinterCallback(&logged)))

	rows, err := r.Run(context.Background(), []*benchmark.Task{
		{ID: "a/1", Question: "What is 10 divided by 4?", Tool: "divide", Expected: 2.5},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Correct)
	assert.Equal(t, 2.5, rows[0].Result)
	assert.Equal(t, int64(132), *rows[0].TotalTokens)

	transcript, err := os.ReadFile(filepath.Join(dir, "task_a_1.log"))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "*** Run Started *** task a/1")
	assert.Contains(t, string(transcript), " task-a/1-")
	assert.Contains(t, string(transcript), "divide *** Tool Start ***")
	assert.Contains(t, string(transcript), "divide Output: 2.5")
	assert.Contains(t, string(transcript), "*** Run Ended.")
	assert.Contains(t, logged.String(), "Tool End: divide")
}
