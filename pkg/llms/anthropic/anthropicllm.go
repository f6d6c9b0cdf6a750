package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/schema"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "anthropic")

var (
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("anthropic: invalid content type")
	ErrUnsupportedMessageType = errors.New("anthropic: unsupported message type")
	ErrUnsupportedContentType = errors.New("anthropic: unsupported content type")
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultMaxTokens = 4096
)

type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.Model = (*LLM)(nil)

// New creates a new Anthropic LLM client using the official Anthropic SDK.
//
// If no token is provided via options, the API key is read
// from the ANTHROPIC_API_KEY environment variable. The model is required.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
		MaxRetries: 2,
		Timeout:    5 * time.Minute,
		MaxTokens:  DefaultMaxTokens,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}
	if options.Model == "" {
		return nil, errors.New("anthropic: model is required")
	}

	return &LLM{
		Client:  newClient(options),
		Options: options,
	}, nil
}

func newClient(options *Options) *anthropic.Client {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(options.MaxRetries),
		option.WithRequestTimeout(options.Timeout),
	}

	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}
	if options.HTTPClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HTTPClient))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &client
}

// GetName implements the Model interface.
func (o *LLM) GetName() string {
	return o.Options.Model
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
//
// System messages are sent as the system prompt, tool messages as user
// messages carrying tool result blocks. The response is returned as a single
// choice with the concatenated text and every tool use block in order.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{Model: o.Options.Model}, options...)

	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return nil, err
	}

	tools, err := ToTools(opts.Tools)
	if err != nil {
		return nil, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), int64(o.Options.MaxTokens), DefaultMaxTokens),
		Tools:     tools,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}

	choice := &llms.ContentChoice{
		StopReason: string(result.StopReason),
	}
	var text strings.Builder
	for _, block := range result.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		case anthropic.ToolUseBlock:
			args := string(content.Input)
			if args == "" {
				args = "{}"
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   content.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      content.Name,
					Arguments: args,
				},
			})
		default:
			logger.ContextKV(ctx, xlog.DEBUG, "reason", "skip_block", "type", block.Type)
		}
	}
	choice.Content = text.String()

	usage := llms.NewUsage(result.Usage.InputTokens, result.Usage.OutputTokens, 0)
	choice.GenerationInfo = usage.Info()
	choice.GenerationInfo["ID"] = result.ID

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

// ToTools converts LLM tool definitions to Anthropic SDK tool parameters.
// Returns nil if no tools are provided.
func ToTools(tools []llms.Tool) ([]anthropic.ToolUnionParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool.Function == nil {
			return nil, errors.WithMessagef(ErrUnsupportedContentType, "tool type %q", tool.Type)
		}
		m, err := schema.ToMap(tool.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "anthropic: schema of tool %s", tool.Function.Name)
		}

		inputSchema := anthropic.ToolInputSchemaParam{
			Type: "object",
		}
		if props, ok := m["properties"]; ok {
			inputSchema.Properties = props
		}
		if tool.Function.Parameters != nil && len(tool.Function.Parameters.Required) > 0 {
			inputSchema.Required = tool.Function.Parameters.Required
		}

		sdkTools = append(sdkTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return sdkTools, nil
}

// ProcessMessages converts messages to Anthropic SDK message parameters,
// returning the joined system prompt separately.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	var system []string
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		switch msg.Role {
		case llms.RoleSystem:
			content, err := HandleSystemMessage(msg)
			if err != nil {
				return nil, "", err
			}
			system = append(system, content)
		case llms.RoleHuman:
			chatMessage, err := HandleHumanMessage(msg)
			if err != nil {
				return nil, "", err
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleAI:
			chatMessage, err := HandleAIMessage(msg)
			if err != nil {
				return nil, "", err
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			chatMessage, err := HandleToolMessage(msg)
			if err != nil {
				return nil, "", err
			}
			chatMessages = append(chatMessages, chatMessage)
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "role %q", msg.Role)
		}
	}
	return chatMessages, strings.Join(system, "\n"), nil
}

// HandleSystemMessage extracts text content from system messages.
func HandleSystemMessage(msg llms.Message) (string, error) {
	for _, part := range msg.Parts {
		if _, ok := part.(llms.TextContent); !ok {
			return "", errors.WithMessagef(ErrInvalidContentType, "system message part %T", part)
		}
	}
	return msg.Text(), nil
}

// HandleHumanMessage converts human messages to Anthropic user message format.
func HandleHumanMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		p, ok := part.(llms.TextContent)
		if !ok {
			return anthropic.MessageParam{}, errors.WithMessagef(ErrInvalidContentType, "human message part %T", part)
		}
		contents = append(contents, anthropic.NewTextBlock(p.Text))
	}
	return anthropic.NewUserMessage(contents...), nil
}

// HandleAIMessage converts AI messages, text and tool calls,
// to Anthropic assistant message format.
func HandleAIMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.ToolCall:
			inputJSON := json.RawMessage(p.FunctionCall.Arguments)
			if !json.Valid(inputJSON) {
				// the API requires an object, the raw text is kept for the model to see
				js, _ := json.Marshal(map[string]string{"input": p.FunctionCall.Arguments})
				inputJSON = js
			}
			contents = append(contents, anthropic.NewToolUseBlock(p.ID, inputJSON, p.FunctionCall.Name))
		case llms.TextContent:
			if p.Text != "" {
				contents = append(contents, anthropic.NewTextBlock(p.Text))
			}
		default:
			return anthropic.MessageParam{}, errors.WithMessagef(ErrInvalidContentType, "AI message part %T", part)
		}
	}
	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in AI message")
	}
	return anthropic.NewAssistantMessage(contents...), nil
}

// HandleToolMessage converts tool responses to a user message with tool result blocks.
func HandleToolMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion
	for _, part := range msg.Parts {
		resp, ok := part.(llms.ToolCallResponse)
		if !ok {
			return anthropic.MessageParam{}, errors.WithMessagef(ErrInvalidContentType, "tool message part %T", part)
		}
		contents = append(contents, anthropic.NewToolResultBlock(resp.ToolCallID, resp.Content, resp.IsError))
	}
	return anthropic.NewUserMessage(contents...), nil
}
