package openai

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "openai")

var (
	ErrMissingToken  = errors.New("openai: missing API key, set it in the OPENAI_API_KEY environment variable")
	ErrEmptyResponse = errors.Mark(errors.New("openai: no choices in response"), llms.ErrEmptyResponse)
)

type LLM struct {
	client openai.Client
	model  string
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      values.StringsCoalesce(os.Getenv(baseURLEnvVarName), os.Getenv(baseAPIBaseEnvVarName)),
		organization: os.Getenv(organizationEnvVarName),
		maxRetries:   2,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, ErrMissingToken
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(o.token),
		option.WithBaseURL(values.StringsCoalesce(o.baseURL, DefaultBaseURL)),
		option.WithMaxRetries(o.maxRetries),
	}
	if o.organization != "" {
		reqOpts = append(reqOpts, option.WithOrganization(o.organization))
	}
	if o.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(o.httpClient))
	}

	return &LLM{
		client: openai.NewClient(reqOpts...),
		model:  values.StringsCoalesce(o.model, DefaultChatModel),
	}, nil
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: o.model}, options...)

	chatMsgs, err := ConvertMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(opts.Model),
		Messages: chatMsgs,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed != 0 {
		params.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, err
		}
		params.Tools = append(params.Tools, t)
	}
	if len(params.Tools) > 0 && opts.ToolChoice != "" {
		choice := opts.ToolChoice
		if choice == llms.ToolChoiceAny {
			choice = string(openai.ChatCompletionToolChoiceOptionAutoRequired)
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
	}

	result, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "openai: failed to create chat completion")
	}
	if len(result.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	usage := llms.NewUsage(result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:        c.Message.Content,
			StopReason:     c.FinishReason,
			GenerationInfo: usage.Info(),
		}
		for _, tc := range c.Message.ToolCalls {
			if tc.Type != "function" {
				logger.ContextKV(ctx, xlog.DEBUG, "reason", "skip_tool_call", "type", tc.Type)
				continue
			}
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// ConvertMessages converts messages to chat completion message parameters.
// A tool message becomes one tool message per response.
func ConvertMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	chatMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, mc := range messages {
		switch mc.Role {
		case llms.RoleSystem:
			chatMsgs = append(chatMsgs, openai.SystemMessage(mc.Text()))
		case llms.RoleHuman:
			chatMsgs = append(chatMsgs, openai.UserMessage(mc.Text()))
		case llms.RoleAI:
			calls := mc.ToolCalls()
			if len(calls) == 0 {
				chatMsgs = append(chatMsgs, openai.AssistantMessage(mc.Text()))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{}
			if text := mc.Text(); text != "" {
				assistant.Content.OfString = openai.String(text)
			}
			for _, tc := range calls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.FunctionCall.Name,
							Arguments: tc.FunctionCall.Arguments,
						},
					},
				})
			}
			chatMsgs = append(chatMsgs, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case llms.RoleTool:
			for _, part := range mc.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.Errorf("openai: expected part of type ToolCallResponse for role %v, got %T", mc.Role, part)
				}
				chatMsgs = append(chatMsgs, openai.ToolMessage(resp.Content, resp.ToolCallID))
			}
		default:
			return nil, errors.Errorf("openai: role %v not supported", mc.Role)
		}
	}
	return chatMsgs, nil
}

// toolFromTool converts an llms.Tool to a chat completion tool.
func toolFromTool(t llms.Tool) (openai.ChatCompletionToolUnionParam, error) {
	if t.Type != "function" || t.Function == nil {
		return openai.ChatCompletionToolUnionParam{}, errors.Errorf("openai: tool type %v not supported", t.Type)
	}
	params, err := schema.ToMap(t.Function.Parameters)
	if err != nil {
		return openai.ChatCompletionToolUnionParam{}, errors.WithMessagef(err, "openai: schema of tool %s", t.Function.Name)
	}
	def := shared.FunctionDefinitionParam{
		Name:        t.Function.Name,
		Description: openai.String(t.Function.Description),
		Parameters:  shared.FunctionParameters(params),
	}
	if t.Function.Strict {
		def.Strict = openai.Bool(true)
	}
	return openai.ChatCompletionFunctionTool(def), nil
}
