package assistants_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/mocks/mockassistants"
	"github.com/effective-security/mcpbench/mocks/mockllms"
	"github.com/effective-security/mcpbench/mocks/mocktools"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/store"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textResponse(content string, in, out int64) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:        content,
			StopReason:     "end_turn",
			GenerationInfo: llms.NewUsage(in, out, 0).Info(),
		}},
	}
}

func toolResponse(in, out int64, calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			StopReason:     "tool_use",
			ToolCalls:      calls,
			GenerationInfo: llms.NewUsage(in, out, 0).Info(),
		}},
	}
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}
}

func newMockLLM(ctrl *gomock.Controller) *mockllms.MockModel {
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetName().Return("mock-model").AnyTimes()
	m.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return m
}

func newMockTool(ctrl *gomock.Controller, name string) *mocktools.MockITool {
	tool := mocktools.NewMockITool(ctrl)
	tool.EXPECT().Name().Return(name).AnyTimes()
	tool.EXPECT().Description().Return(name + " numbers").AnyTimes()
	tool.EXPECT().Parameters().Return(&jsonschema.Schema{Type: "object"}).AnyTimes()
	return tool
}

func Test_Assistant_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := assistants.NewAssistant(newMockLLM(ctrl), "sys").
		WithName("Calc").
		WithDescription("adds")
	assert.Equal(t, "Calc", a.Name())
	assert.Equal(t, "adds", a.Description())
	assert.Equal(t, "sys", a.SystemPrompt())
	assert.Empty(t, a.GetTools())

	add := newMockTool(ctrl, "add")
	a.WithTools(add, newMockTool(ctrl, "ADD"))
	assert.Len(t, a.GetTools(), 1)

	assert.Equal(t, "- `Calc`: adds\n", assistants.GetDescriptions(a))
}

func Test_Assistant_DirectAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, msgs, 2)
			assert.Equal(t, llms.RoleSystem, msgs[0].Role)
			assert.Equal(t, "sys", msgs[0].Text())
			assert.Equal(t, llms.RoleHuman, msgs[1].Role)
			assert.Equal(t, "what is 2+2?", msgs[1].Text())
			return textResponse("4", 20, 1), nil
		}).Times(1)

	a := assistants.NewAssistant(mockLLM, "sys")
	res, err := a.Run(context.Background(), "what is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, "4", res.Content())
	assert.Equal(t, 1, res.Steps)
	assert.Equal(t, llms.NewUsage(20, 1, 21), res.Usage)
	assert.Len(t, res.Messages, 3)
	assert.Empty(t, res.FirstToolCalls())
	assert.Nil(t, res.FirstToolResponse())
}

func Test_Assistant_ToolRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	add := newMockTool(ctrl, "add")
	add.EXPECT().Call(gomock.Any(), `{"a":2,"b":3}`).Return("5", nil).Times(1)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ []llms.Message, opts ...llms.CallOption) (*llms.ContentResponse, error) {
				o := llms.NewCallOptions(llms.CallOptions{}, opts...)
				require.Len(t, o.Tools, 1)
				assert.Equal(t, "add", o.Tools[0].Function.Name)
				assert.Equal(t, "add numbers", o.Tools[0].Function.Description)
				return toolResponse(10, 5, llms.ToolCall{
					FunctionCall: &llms.FunctionCall{Name: "add", Arguments: `{"a":2,"b":3}`},
				}), nil
			}),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, msgs, 4)
				assert.Equal(t, llms.RoleAI, msgs[2].Role)
				assert.Equal(t, llms.RoleTool, msgs[3].Role)
				tr := msgs[3].Parts[0].(llms.ToolCallResponse)
				assert.Equal(t, "add_0", tr.ToolCallID)
				assert.Equal(t, "5", tr.Content)
				return textResponse("5", 30, 1), nil
			}),
	)

	a := assistants.NewAssistant(mockLLM, "sys").WithTools(add)
	res, err := a.Run(context.Background(), "what is 2+3?")
	require.NoError(t, err)
	assert.Equal(t, "5", res.Content())
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, llms.NewUsage(40, 6, 46), res.Usage)

	calls := res.FirstToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "add_0", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)

	tr := res.FirstToolResponse()
	require.NotNil(t, tr)
	assert.Equal(t, "5", tr.Content)
	assert.False(t, tr.IsError)
}

func Test_Assistant_ToolErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	div := newMockTool(ctrl, "divide")
	div.EXPECT().Call(gomock.Any(), gomock.Any()).Return("", errors.New("Cannot divide by zero")).Times(1)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(1, 1,
				toolCall("c1", "divide", `{"a":1,"b":0}`),
				toolCall("c2", "sqrt", `{"a":4}`),
			), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("undefined", 1, 1), nil),
	)

	cb := mockassistants.NewMockCallback(ctrl)
	cb.EXPECT().OnAssistantStart(gomock.Any(), gomock.Any(), "divide 1 by 0").Times(1)
	cb.EXPECT().OnAssistantLLMCallStart(gomock.Any(), gomock.Any(), mockLLM, gomock.Any()).Times(2)
	cb.EXPECT().OnAssistantLLMCallEnd(gomock.Any(), gomock.Any(), mockLLM, gomock.Any()).Times(2)
	cb.EXPECT().OnToolStart(gomock.Any(), div, "Math Assistant", `{"a":1,"b":0}`).Times(1)
	cb.EXPECT().OnToolError(gomock.Any(), div, "Math Assistant", `{"a":1,"b":0}`, gomock.Any()).Times(1)
	cb.EXPECT().OnToolNotFound(gomock.Any(), gomock.Any(), "sqrt").Times(1)
	cb.EXPECT().OnAssistantEnd(gomock.Any(), gomock.Any(), "divide 1 by 0", gomock.Any()).Times(1)

	a := assistants.NewAssistant(mockLLM, "").WithTools(div)
	res, err := a.Run(context.Background(), "divide 1 by 0", assistants.WithCallback(cb))
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Content())

	// no system prompt: human, AI tool calls, two tool responses, final
	require.Len(t, res.Messages, 5)
	r1 := res.Messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "c1", r1.ToolCallID)
	assert.True(t, r1.IsError)
	assert.Equal(t, "Error: Cannot divide by zero. Please fix your mistakes.", r1.Content)

	r2 := res.Messages[3].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "c2", r2.ToolCallID)
	assert.True(t, r2.IsError)
	assert.Equal(t, "Error: sqrt is not a valid tool, try one of [divide].", r2.Content)
}

func Test_Assistant_ParallelToolCallsKeepOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	slow := newMockTool(ctrl, "slow")
	fast := newMockTool(ctrl, "fast")

	var running atomic.Int32
	slow.EXPECT().Call(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) (string, error) {
		running.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "slow", nil
	})
	fast.EXPECT().Call(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, string) (string, error) {
		running.Add(1)
		return "fast", nil
	})

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(1, 1, toolCall("a", "slow", "{}"), toolCall("b", "fast", "{}")), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("done", 1, 1), nil),
	)

	a := assistants.NewAssistant(mockLLM, "").WithTools(slow, fast)
	res, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, int32(2), running.Load())
	assert.Equal(t, "slow", res.Messages[2].Parts[0].(llms.ToolCallResponse).Content)
	assert.Equal(t, "fast", res.Messages[3].Parts[0].(llms.ToolCallResponse).Content)
}

func Test_Assistant_RecursionLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	add := newMockTool(ctrl, "add")
	add.EXPECT().Call(gomock.Any(), gomock.Any()).Return("2", nil).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolResponse(1, 1, toolCall("", "add", `{"a":1,"b":1}`)), nil).AnyTimes()

	var buf bytes.Buffer
	a := assistants.NewAssistant(mockLLM, "sys", assistants.WithRecursionLimit(4)).WithTools(add)
	_, err := a.Run(context.Background(), "loop", assistants.WithCallback(assistants.NewPrinterCallback(&buf)))
	require.Error(t, err)
	assert.True(t, assistants.IsRecursionLimit(err))
	assert.Equal(t, "Recursion limit of 4 reached without hitting a stop condition", err.Error())
	assert.Contains(t, buf.String(), "Assistant Error: Math Assistant")

	// default limit
	_, err = assistants.NewAssistant(mockLLM, "").WithTools(add).Run(context.Background(), "loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Recursion limit of 25 reached")
}

func Test_Assistant_EmptyResponseRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, llms.ErrEmptyResponse),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("  ", 3, 0), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("42", 3, 1), nil),
	)

	a := assistants.NewAssistant(mockLLM, "")
	res, err := a.Run(context.Background(), "answer")
	require.NoError(t, err)
	assert.Equal(t, "42", res.Content())
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, int64(6), res.Usage.InputTokens)

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil).Times(3)
	_, err = a.Run(context.Background(), "answer", assistants.WithMaxRetries(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, llms.ErrEmptyResponse))
	assert.True(t, assistants.IsModelError(err))
	assert.Equal(t, "assistant Math Assistant: LLM returned empty response after 2 retries", err.Error())
}

func Test_Assistant_EmptyResponseDefaultRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{}, nil).Times(assistants.DefaultMaxRetries),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("7", 1, 1), nil),
	)

	a := assistants.NewAssistant(mockLLM, "")
	res, err := a.Run(context.Background(), "answer")
	require.NoError(t, err)
	assert.Equal(t, "7", res.Content())

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llms.ContentResponse{}, nil).Times(assistants.DefaultMaxRetries + 1)
	_, err = a.Run(context.Background(), "answer")
	require.Error(t, err)
	assert.Equal(t, "assistant Math Assistant: LLM returned empty response after 3 retries", err.Error())
}

func Test_Assistant_LLMError(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("throttled"))

	_, err := assistants.NewAssistant(mockLLM, "").Run(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, "failed to generate content from LLM: throttled", err.Error())
	assert.True(t, assistants.IsModelError(err))
	assert.False(t, assistants.IsRecursionLimit(err))
}

func Test_Assistant_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := assistants.NewAssistant(mockLLM, "").Run(ctx, "x")
	assert.True(t, errors.Is(err, context.Canceled))
}

func Test_Assistant_NoFunctionCalling(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("plain").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderType("PLAIN")).AnyTimes()

	_, err := assistants.NewAssistant(mockLLM, "").
		WithTools(newMockTool(ctrl, "add")).
		Run(context.Background(), "x")
	assert.True(t, errors.Is(err, assistants.ErrNoFunctionCalling))
}

func Test_Assistant_MessageStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockLLM := newMockLLM(ctrl)
	st := store.NewMemoryStore()
	ctx := chatmodel.WithChatID(context.Background(), "chat1")

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("4", 1, 1), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, msgs []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
				// system, previous question and answer, new question
				require.Len(t, msgs, 4)
				assert.Equal(t, "what is 2+2?", msgs[1].Text())
				assert.Equal(t, "4", msgs[2].Text())
				assert.Equal(t, "and doubled?", msgs[3].Text())
				return textResponse("8", 1, 1), nil
			}),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("16", 1, 1), nil),
	)

	a := assistants.NewAssistant(mockLLM, "sys", assistants.WithStore(st))
	_, err := a.Run(ctx, "what is 2+2?")
	require.NoError(t, err)
	assert.Len(t, st.Messages(ctx), 2)

	res, err := a.Run(ctx, "and doubled?")
	require.NoError(t, err)
	assert.Equal(t, "8", res.Content())
	assert.Len(t, st.Messages(ctx), 4)

	_, err = a.Run(ctx, "again", assistants.WithSkipMessageHistory(true))
	require.NoError(t, err)
	assert.Len(t, st.Messages(ctx), 4)
}
