package googleai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/googleai"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, reply string, body *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"), r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		if body != nil {
			_ = json.Unmarshal(raw, body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func Test_GenerateContent_ToolCall(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var body map[string]any
	srv := newServer(t, `{
		"candidates": [{
			"content": {"role": "model", "parts": [
				{"functionCall": {"name": "add", "args": {"a": 2, "b": 3}}}
			]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 8, "totalTokenCount": 48}
	}`, &body)

	llm, err := googleai.New(ctx, googleai.WithAPIKey("fake"), googleai.WithBaseURL(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", llm.GetName())
	assert.Equal(t, llms.ProviderGoogleAI, llm.GetProviderType())

	resp, err := llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a calculator."),
		llms.MessageFromTextParts(llms.RoleHuman, "2+3?"),
	}, llms.WithTools([]llms.Tool{{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "add",
			Description: "Add a and b.",
			Parameters: schema.MustFromAny(map[string]any{
				"type":     "object",
				"required": []string{"a", "b"},
				"properties": map[string]any{
					"a": map[string]any{"type": "number"},
					"b": map[string]any{"type": "number"},
				},
			}),
		},
	}}))
	require.NoError(t, err)

	assert.NotNil(t, body["systemInstruction"])
	assert.Len(t, body["tools"], 1)
	assert.Len(t, body["contents"], 1)

	require.Len(t, resp.Choices, 1)
	choice := resp.Choices[0]
	assert.Equal(t, "STOP", choice.StopReason)
	require.Len(t, choice.ToolCalls, 1)
	assert.True(t, strings.HasPrefix(choice.ToolCalls[0].ID, "call_"))
	assert.Equal(t, "add", choice.ToolCalls[0].FunctionCall.Name)
	assert.JSONEq(t, `{"a":2,"b":3}`, choice.ToolCalls[0].FunctionCall.Arguments)
	assert.Equal(t, llms.Usage{InputTokens: 40, OutputTokens: 8, TotalTokens: 48}, llms.UsageOf(resp))
}

func Test_GenerateContent_History(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var body map[string]any
	srv := newServer(t, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "The answer is 5."}]},
			"finishReason": "STOP"
		}]
	}`, &body)

	llm, err := googleai.New(ctx, googleai.WithAPIKey("fake"), googleai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	resp, err := llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "2+3?"),
		llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
			ID:           "call_1",
			FunctionCall: &llms.FunctionCall{Name: "add", Arguments: `{"a":2,"b":3}`},
		}),
		llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: "call_1",
			Name:       "add",
			Content:    "5",
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 5.", resp.Choices[0].Content)
	assert.True(t, llms.UsageOf(resp).IsZero())

	contents, ok := body["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])
	assert.Equal(t, "user", contents[2].(map[string]any)["role"])
}

func Test_GenerateContent_Empty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := newServer(t, `{"candidates": []}`, nil)
	llm, err := googleai.New(ctx, googleai.WithAPIKey("fake"), googleai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = llm.GenerateContent(ctx, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "2+3?"),
	})
	assert.ErrorIs(t, err, llms.ErrEmptyResponse)
}

func Test_EnsureAuthPresent(t *testing.T) {
	t.Setenv(googleai.APIKeyEnvVarName, "env-key")

	o := googleai.DefaultOptions()
	o.EnsureAuthPresent()
	assert.Equal(t, "env-key", o.APIKey)

	o = googleai.DefaultOptions()
	googleai.WithAPIKey("explicit")(&o)
	o.EnsureAuthPresent()
	assert.Equal(t, "explicit", o.APIKey)
}
