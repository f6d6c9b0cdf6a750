package llms_test

import (
	"encoding/json"
	"testing"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParts(t *testing.T) {
	t.Parallel()
	mc := llms.MessageFromTextParts(llms.RoleHuman, "a", "b", "c")
	assert.Equal(t, llms.RoleHuman, mc.Role)
	assert.Equal(t, []llms.ContentPart{llms.TextPart("a"), llms.TextPart("b"), llms.TextPart("c")}, mc.Parts)
	assert.Equal(t, "abc", mc.Text())
	assert.Empty(t, mc.ToolCalls())
}

func Test_Message_JSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		msg     llms.Message
		js      string
		content string
	}{
		{
			"single_text",
			llms.MessageFromTextParts(llms.RoleHuman, "What is 2+3?"),
			`{"role":"human","text":"What is 2+3?"}`,
			"What is 2+3?\n",
		},
		{
			"multi_text",
			llms.MessageFromTextParts(llms.RoleAI, "a", "b"),
			`{"role":"ai","parts":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}`,
			"a\nb\n",
		},
		{
			"tool_call",
			llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{ID: "123", Type: "function", FunctionCall: &llms.FunctionCall{Name: "add", Arguments: `{"a":1,"b":2}`}}),
			`{"role":"ai","parts":[{"type":"tool_call","tool_call":{"id":"123","type":"function","function":{"name":"add","arguments":"{\"a\":1,\"b\":2}"}}}]}`,
			"Tool Call: {\"id\":\"123\",\"type\":\"function\",\"function\":{\"name\":\"add\",\"arguments\":\"{\\\"a\\\":1,\\\"b\\\":2}\"}}\n",
		},
		{
			"tool_response",
			llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "123", Name: "add", Content: "3"}),
			`{"role":"tool","parts":[{"type":"tool_response","tool_response":{"tool_call_id":"123","name":"add","content":"3"}}]}`,
			"Response: {\"tool_call_id\":\"123\",\"name\":\"add\",\"content\":\"3\"}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			js, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.js, string(js))
			assert.Equal(t, tt.content, tt.msg.GetContent())

			var back llms.Message
			require.NoError(t, json.Unmarshal(js, &back))
			assert.Equal(t, tt.msg, back)
		})
	}
}

func Test_Message_UnmarshalErrors(t *testing.T) {
	t.Parallel()
	var m llms.Message
	assert.EqualError(t, json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"image"}]}`), &m), "unknown content part type: image")
	assert.EqualError(t, json.Unmarshal([]byte(`{"role":"ai","parts":[{"type":"tool_call"}]}`), &m), "tool_call field is required for tool_call type")
}

func Test_Message_ToolCalls(t *testing.T) {
	t.Parallel()
	msg := llms.MessageFromToolCalls(llms.RoleAI,
		llms.ToolCall{ID: "1", FunctionCall: &llms.FunctionCall{Name: "add"}},
		llms.ToolCall{ID: "2", FunctionCall: &llms.FunctionCall{Name: "sqrt"}},
	)
	calls := msg.ToolCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "sqrt", calls[1].FunctionCall.Name)

	resp := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{ToolCallID: "1", Name: "add", Content: " 5 "})
	assert.Equal(t, " 5 ", resp.Text())
}

func Test_ProviderCapabilities(t *testing.T) {
	t.Parallel()
	for _, p := range []llms.ProviderType{llms.ProviderBedrock, llms.ProviderAnthropic, llms.ProviderGoogleAI, llms.ProviderOpenAI} {
		assert.True(t, p.Supports(llms.CapabilityFunctionCalling), p)
		assert.True(t, p.Supports(llms.CapabilitySystemPrompt), p)
	}
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}

func Test_Usage(t *testing.T) {
	t.Parallel()

	u := llms.NewUsage(10, 5, 0)
	assert.Equal(t, int64(15), u.TotalTokens)
	assert.False(t, u.IsZero())
	assert.True(t, llms.Usage{}.IsZero())

	u.Add(llms.UsageFromInfo(map[string]any{
		llms.InfoInputTokens:  int32(3),
		llms.InfoOutputTokens: float64(2),
		llms.InfoTotalTokens:  7,
	}))
	assert.Equal(t, llms.Usage{InputTokens: 13, OutputTokens: 7, TotalTokens: 22}, u)

	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{GenerationInfo: u.Info()}},
	}
	assert.Equal(t, u, llms.UsageOf(resp))
	assert.True(t, llms.UsageOf(nil).IsZero())
	assert.True(t, llms.UsageOf(&llms.ContentResponse{}).IsZero())
}
