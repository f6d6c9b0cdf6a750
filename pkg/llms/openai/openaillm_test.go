package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/openai"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")

	_, err := openai.New()
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	llm, err := openai.New(openai.WithToken("fake"))
	require.NoError(t, err)
	assert.Equal(t, openai.DefaultChatModel, llm.GetName())
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())

	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_MODEL", "qwen2.5")
	llm, err = openai.New()
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", llm.GetName())
}

func Test_ConvertMessages(t *testing.T) {
	t.Parallel()

	msgs, err := openai.ConvertMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "be brief"),
		llms.MessageFromTextParts(llms.RoleHuman, "2+3?"),
		llms.MessageFromToolCalls(llms.RoleAI,
			llms.ToolCall{ID: "c1", FunctionCall: &llms.FunctionCall{Name: "add", Arguments: `{"a":2,"b":3}`}},
			llms.ToolCall{ID: "c2", FunctionCall: &llms.FunctionCall{Name: "multiply", Arguments: `{"a":2,"b":3}`}},
		),
		llms.MessageFromParts(llms.RoleTool,
			llms.ToolCallResponse{ToolCallID: "c1", Content: "5"},
			llms.ToolCallResponse{ToolCallID: "c2", Content: "6"},
		),
		llms.MessageFromTextParts(llms.RoleAI, "5 and 6"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 6)

	js, err := json.Marshal(msgs)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(js, &decoded))

	roles := make([]any, 0, len(decoded))
	for _, m := range decoded {
		roles = append(roles, m["role"])
	}
	assert.Equal(t, []any{"system", "user", "assistant", "tool", "tool", "assistant"}, roles)
	assert.Len(t, decoded[2]["tool_calls"], 2)
	assert.Equal(t, "c2", decoded[4]["tool_call_id"])

	_, err = openai.ConvertMessages([]llms.Message{
		llms.MessageFromTextParts(llms.RoleTool, "5"),
	})
	assert.Error(t, err)
}

func Test_GenerateContent(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer fake", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "sqrt", "arguments": "{\"n\": 16}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 70, "completion_tokens": 12, "total_tokens": 82}
		}`)
	}))
	defer srv.Close()

	llm, err := openai.New(openai.WithToken("fake"), openai.WithBaseURL(srv.URL), openai.WithMaxRetries(0))
	require.NoError(t, err)

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "sqrt of 16?"),
	},
		llms.WithTools([]llms.Tool{{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        "sqrt",
				Description: "Square root of n.",
				Parameters: schema.MustFromAny(map[string]any{
					"type":       "object",
					"required":   []string{"n"},
					"properties": map[string]any{"n": map[string]any{"type": "number"}},
				}),
			},
		}}),
		llms.WithToolChoice(llms.ToolChoiceAny),
		llms.WithMaxTokens(100),
	)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "required", body["tool_choice"])
	assert.EqualValues(t, 100, body["max_completion_tokens"])

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, "tool_calls", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.Equal(t, "call_1", choice.ToolCalls[0].ID)
	assert.Equal(t, "sqrt", choice.ToolCalls[0].FunctionCall.Name)
	assert.Equal(t, `{"n": 16}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.Equal(t, llms.Usage{InputTokens: 70, OutputTokens: 12, TotalTokens: 82}, llms.UsageOf(resp))
}

func Test_GenerateContent_NoChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	llm, err := openai.New(openai.WithToken("fake"), openai.WithBaseURL(srv.URL), openai.WithMaxRetries(0))
	require.NoError(t, err)

	_, err = llm.GenerateContent(context.Background(), []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hi"),
	})
	assert.ErrorIs(t, err, llms.ErrEmptyResponse)
}
