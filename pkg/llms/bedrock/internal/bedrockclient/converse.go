package bedrockclient

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/schema"
)

const defaultMaxTokens = 2048

func converseInput(modelID, family string, messages []llms.Message, options llms.CallOptions) (*bedrockruntime.ConverseInput, error) {
	system, msgs, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: msgs,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(min(getMaxTokens(options.MaxTokens, defaultMaxTokens), math.MaxInt32))),
		},
	}
	if options.Temperature > 0 {
		input.InferenceConfig.Temperature = aws.Float32(float32(options.Temperature))
	}
	if options.TopP > 0 {
		input.InferenceConfig.TopP = aws.Float32(float32(options.TopP))
	}
	if len(options.StopWords) > 0 {
		input.InferenceConfig.StopSequences = options.StopWords
	}

	if len(options.Tools) > 0 && options.ToolChoice != llms.ToolChoiceNone {
		tc, err := toolConfig(options.Tools)
		if err != nil {
			return nil, err
		}
		if supportsToolChoice(family) {
			switch options.ToolChoice {
			case llms.ToolChoiceAny:
				tc.ToolChoice = &types.ToolChoiceMemberAny{Value: types.AnyToolChoice{}}
			case llms.ToolChoiceAuto:
				tc.ToolChoice = &types.ToolChoiceMemberAuto{Value: types.AutoToolChoice{}}
			}
		}
		input.ToolConfig = tc
	}
	return input, nil
}

func getMaxTokens(maxTokens, defaultValue int) int {
	if maxTokens <= 0 {
		return defaultValue
	}
	return maxTokens
}

func toolConfig(tools []llms.Tool) (*types.ToolConfiguration, error) {
	tc := &types.ToolConfiguration{}
	for _, tool := range tools {
		if tool.Function == nil {
			return nil, errors.Newf("bedrock: unsupported tool type %q", tool.Type)
		}
		m, err := schema.ToMap(tool.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "bedrock: schema of tool %s", tool.Function.Name)
		}
		// the Converse API rejects draft references
		delete(m, "$schema")

		tc.Tools = append(tc.Tools, &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Function.Name),
				Description: aws.String(tool.Function.Description),
				InputSchema: &types.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(m),
				},
			},
		})
	}
	return tc, nil
}

// processMessages splits system text from the conversation, and merges
// consecutive messages of the same Converse role, which must alternate.
func processMessages(messages []llms.Message) ([]types.SystemContentBlock, []types.Message, error) {
	var system []types.SystemContentBlock
	var msgs []types.Message

	for _, m := range messages {
		if m.Role == llms.RoleSystem {
			if text := m.Text(); text != "" {
				system = append(system, &types.SystemContentBlockMemberText{Value: text})
			}
			continue
		}

		role, err := converseRole(m.Role)
		if err != nil {
			return nil, nil, err
		}

		blocks, err := contentBlocks(m)
		if err != nil {
			return nil, nil, err
		}
		if len(blocks) == 0 {
			continue
		}

		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, blocks...)
			continue
		}
		msgs = append(msgs, types.Message{
			Role:    role,
			Content: blocks,
		})
	}
	return system, msgs, nil
}

func converseRole(role llms.Role) (types.ConversationRole, error) {
	switch role {
	case llms.RoleHuman, llms.RoleTool:
		return types.ConversationRoleUser, nil
	case llms.RoleAI:
		return types.ConversationRoleAssistant, nil
	default:
		return "", errors.Newf("bedrock: unsupported role %q", role)
	}
}

func contentBlocks(m llms.Message) ([]types.ContentBlock, error) {
	var blocks []types.ContentBlock
	for _, part := range m.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			if strings.TrimSpace(p.Text) != "" {
				blocks = append(blocks, &types.ContentBlockMemberText{Value: p.Text})
			}
		case llms.ToolCall:
			blocks = append(blocks, &types.ContentBlockMemberToolUse{
				Value: types.ToolUseBlock{
					ToolUseId: aws.String(p.ID),
					Name:      aws.String(p.FunctionCall.Name),
					Input:     document.NewLazyDocument(toolInput(p.FunctionCall.Arguments)),
				},
			})
		case llms.ToolCallResponse:
			status := types.ToolResultStatusSuccess
			if p.IsError {
				status = types.ToolResultStatusError
			}
			blocks = append(blocks, &types.ContentBlockMemberToolResult{
				Value: types.ToolResultBlock{
					ToolUseId: aws.String(p.ToolCallID),
					Content: []types.ToolResultContentBlock{
						&types.ToolResultContentBlockMemberText{Value: p.Content},
					},
					Status: status,
				},
			})
		default:
			return nil, errors.Newf("bedrock: unsupported content part %T", part)
		}
	}
	return blocks, nil
}

// toolInput decodes tool call arguments into the object the API requires.
func toolInput(args string) map[string]any {
	m := map[string]any{}
	if strings.TrimSpace(args) == "" {
		return m
	}
	if err := json.Unmarshal([]byte(args), &m); err != nil {
		return map[string]any{"input": args}
	}
	return m
}

func contentResponse(out *bedrockruntime.ConverseOutput) (*llms.ContentResponse, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, errors.Wrapf(llms.ErrEmptyResponse, "bedrock: unexpected output %T", out.Output)
	}

	choice := &llms.ContentChoice{
		StopReason: string(out.StopReason),
	}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *types.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *types.ContentBlockMemberToolUse:
			args := "{}"
			if b.Value.Input != nil {
				js, err := b.Value.Input.MarshalSmithyDocument()
				if err != nil {
					return nil, errors.Wrap(err, "bedrock: failed to marshal tool input")
				}
				args = string(js)
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   aws.ToString(b.Value.ToolUseId),
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      aws.ToString(b.Value.Name),
					Arguments: args,
				},
			})
		}
	}
	choice.Content = text.String()

	var usage llms.Usage
	if out.Usage != nil {
		usage = llms.NewUsage(
			int64(aws.ToInt32(out.Usage.InputTokens)),
			int64(aws.ToInt32(out.Usage.OutputTokens)),
			int64(aws.ToInt32(out.Usage.TotalTokens)),
		)
	}
	choice.GenerationInfo = usage.Info()

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}
