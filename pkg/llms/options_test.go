package llms_test

import (
	"testing"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name: "add",
			},
		},
	}
	meta := map[string]any{"task": "1"}

	opts := llms.NewCallOptions(llms.CallOptions{Model: "default", MaxTokens: 100},
		llms.WithModel("us.amazon.nova-lite-v1:0"),
		llms.WithMaxTokens(512),
		llms.WithTemperature(0.1),
		llms.WithStopWords([]string{"stop"}),
		llms.WithTopK(5),
		llms.WithTopP(0.9),
		llms.WithSeed(42),
		llms.WithTools(tools),
		llms.WithToolChoice(llms.ToolChoiceAuto),
		llms.WithMetadata(meta),
	)
	assert.Equal(t, llms.CallOptions{
		Model:       "us.amazon.nova-lite-v1:0",
		MaxTokens:   512,
		Temperature: 0.1,
		StopWords:   []string{"stop"},
		TopK:        5,
		TopP:        0.9,
		Seed:        42,
		Tools:       tools,
		ToolChoice:  llms.ToolChoiceAuto,
		Metadata:    meta,
	}, opts)

	replaced := llms.NewCallOptions(opts, llms.WithOptions(llms.CallOptions{Model: "other"}))
	assert.Equal(t, llms.CallOptions{Model: "other"}, replaced)

	defaults := llms.NewCallOptions(llms.CallOptions{Model: "default"})
	assert.Equal(t, "default", defaults.Model)
}
