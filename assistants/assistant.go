package assistants

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/effective-security/mcpbench/pkg/metricskey"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Assistant is a react agent: it calls the model with the tool definitions
// and executes the requested tools until the model answers in plain text.
// Assistant holds no per-run state and Run is safe for concurrent use.
type Assistant struct {
	LLM llms.Model

	toolsByName map[string]tools.ITool
	toolsNames  []string
	tools       []tools.ITool
	llmToolDefs []llms.Tool

	cfg         *Config
	name        string
	description string
	sysprompt   string
}

var _ IAssistant = (*Assistant)(nil)

// NewAssistant returns an assistant that uses systemPrompt for every run.
func NewAssistant(llmModel llms.Model, systemPrompt string, options ...Option) *Assistant {
	return &Assistant{
		cfg:         NewConfig(options...),
		LLM:         llmModel,
		sysprompt:   systemPrompt,
		name:        "Math Assistant",
		description: "An AI assistant that answers math questions with tools.",
	}
}

// WithName sets the name of the Agent, when used in a prompt of another Agents or LLMs.
func (a *Assistant) WithName(name string) *Assistant {
	a.name = name
	return a
}

// WithDescription sets the description of the Agent, to be used in the prompt of other Agents or LLMs.
func (a *Assistant) WithDescription(description string) *Assistant {
	a.description = description
	return a
}

// Name returns the name of the Agent.
func (a *Assistant) Name() string {
	return a.name
}

// Description returns the description of the Agent.
func (a *Assistant) Description() string {
	return a.description
}

// SystemPrompt returns the system prompt of the Agent.
func (a *Assistant) SystemPrompt() string {
	return a.sysprompt
}

func (a *Assistant) GetTools() []tools.ITool {
	return a.tools
}

// WithTools adds new tools to the Assistant,
// existing tools are not replaced.
func (a *Assistant) WithTools(list ...tools.ITool) *Assistant {
	if a.toolsByName == nil {
		a.toolsByName = make(map[string]tools.ITool)
	}
	for _, tool := range list {
		name := tool.Name()
		// use lowercase for the key
		nameLowerCase := strings.ToLower(name)
		if a.toolsByName[nameLowerCase] == nil {
			a.toolsByName[nameLowerCase] = tool
			a.toolsNames = append(a.toolsNames, name)
			a.tools = append(a.tools, tool)
			a.llmToolDefs = append(a.llmToolDefs, llms.Tool{
				Type: "function",
				Function: &llms.FunctionDefinition{
					Name:        name,
					Description: tool.Description(),
					Parameters:  tool.Parameters(),
				},
			})
		}
	}
	return a
}

// Run answers input. The options override the assistant config for this run.
func (a *Assistant) Run(ctx context.Context, input string, options ...Option) (*Result, error) {
	started := time.Now()
	defer metricskey.PerfAssistantCall.MeasureSince(started, a.Name())

	cfg := a.cfg.Apply(options...)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnAssistantStart(ctx, a, input)
	}

	res, messages, err := a.run(ctx, cfg, input)
	if err != nil {
		metricskey.StatsAssistantCallsFailed.IncrCounter(1, a.Name())
		if callback != nil {
			callback.OnAssistantError(ctx, a, input, err, messages)
		}
		return nil, err
	}
	metricskey.StatsAssistantCallsSucceeded.IncrCounter(1, a.Name())
	if callback != nil {
		callback.OnAssistantEnd(ctx, a, input, res)
	}
	return res, nil
}

// run executes the react loop. The messages are returned on error for callbacks.
func (a *Assistant) run(ctx context.Context, cfg *Config, input string) (*Result, []llms.Message, error) {
	assistantName := a.Name()
	modelName := a.LLM.GetName()

	var messageHistory []llms.Message
	if a.sysprompt != "" {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleSystem, a.sysprompt))
	}
	if cfg.Store != nil {
		prevMessages := cfg.Store.Messages(ctx)
		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", assistantName,
			"chat_id", chatmodel.GetChatID(ctx),
			"message_history", len(prevMessages))
		messageHistory = append(messageHistory, prevMessages...)
	}

	var runMessages []llms.Message
	if input != "" {
		userMessage := llms.MessageFromTextParts(llms.RoleHuman, input)
		messageHistory = append(messageHistory, userMessage)
		runMessages = append(runMessages, userMessage)
	}

	if len(a.llmToolDefs) > 0 && !a.LLM.GetProviderType().Supports(llms.CapabilityFunctionCalling) {
		return nil, messageHistory, errors.Wrapf(ErrNoFunctionCalling, "assistant %s", assistantName)
	}
	callOpts := cfg.GetCallOptions(a.llmToolDefs)

	limit := values.NumbersCoalesce(cfg.RecursionLimit, DefaultRecursionLimit)
	maxRetries := values.NumbersCoalesce(cfg.MaxRetries, DefaultMaxRetries)

	res := &Result{}
	retryCount := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, messageHistory, errors.WithStack(err)
		}
		if res.Steps >= limit {
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", assistantName,
				"status", "recursion_limit",
				"input", slices.StringUpto(input, 64),
				"steps", res.Steps,
			)
			return nil, messageHistory, recursionLimitError(limit)
		}
		res.Steps++

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnAssistantLLMCallStart(ctx, a, a.LLM, messageHistory)
		}

		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), assistantName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), assistantName, modelName)

		resp, err := a.LLM.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil && !errors.Is(err, llms.ErrEmptyResponse) {
			return nil, messageHistory, errors.Mark(errors.WithMessagef(err, "failed to generate content from LLM"), ErrModelCall)
		}

		if resp != nil {
			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnAssistantLLMCallEnd(ctx, a, a.LLM, resp)
			}

			bytesReceived := llmutils.CountResponseContentSize(resp)
			metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), assistantName, modelName)
			metricskey.StatsLLMBytesTotal.IncrCounter(float64(bytesSent+bytesReceived), assistantName, modelName)

			tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
			metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), assistantName, modelName)
			metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), assistantName, modelName)
			metricskey.StatsLLMTotalTokens.IncrCounter(float64(tokensTotal), assistantName, modelName)
			res.Usage.Add(llms.NewUsage(tokensIn, tokensOut, tokensTotal))
		}

		if isEmptyResponse(resp) {
			metricskey.StatsAssistantEmptyResponses.IncrCounter(1, assistantName)
			retryCount++
			if retryCount > maxRetries {
				logger.ContextKV(ctx, xlog.ERROR,
					"assistant", assistantName,
					"status", "max_retries_exceeded",
					"input", slices.StringUpto(input, 64),
					"retry_count", maxRetries,
				)
				err := errors.Mark(
					errors.Newf("assistant %s: LLM returned empty response after %d retries", assistantName, maxRetries),
					llms.ErrEmptyResponse)
				return nil, messageHistory, errors.Mark(err, ErrModelCall)
			}
			metricskey.StatsAssistantCallsRetried.IncrCounter(1, assistantName)
			logger.ContextKV(ctx, xlog.WARNING,
				"assistant", assistantName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}
		retryCount = 0
		res.Response = resp

		choice := resp.Choices[0]
		if len(choice.ToolCalls) == 0 {
			final := llms.MessageFromTextParts(llms.RoleAI, choice.Content)
			messageHistory = append(messageHistory, final)
			runMessages = append(runMessages, final)
			break
		}

		if res.Steps >= limit {
			// the tool round would exceed the limit
			return nil, messageHistory, recursionLimitError(limit)
		}
		res.Steps++

		callMsg, responses := a.executeToolCalls(ctx, cfg, choice)
		messageHistory = append(messageHistory, callMsg)
		messageHistory = append(messageHistory, responses...)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"assistant", assistantName,
		"status", "completed",
		"steps", res.Steps,
		"input_tokens", res.Usage.InputTokens,
		"output_tokens", res.Usage.OutputTokens,
	)

	if cfg.Store != nil && !cfg.SkipMessageHistory && len(runMessages) > 0 {
		if err := cfg.Store.Add(ctx, runMessages...); err != nil {
			logger.ContextKV(ctx, xlog.ERROR,
				"assistant", assistantName,
				"reason", "store_add",
				"err", err.Error(),
			)
		}
	}

	res.Messages = messageHistory
	return res, messageHistory, nil
}

func isEmptyResponse(resp *llms.ContentResponse) bool {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return true
	}
	c := resp.Choices[0]
	return len(c.ToolCalls) == 0 && strings.TrimSpace(c.Content) == ""
}

// executeToolCalls runs the tool calls of the choice in parallel, and returns
// the AI message requesting them and the tool responses in call order.
func (a *Assistant) executeToolCalls(ctx context.Context, cfg *Config, choice *llms.ContentChoice) (llms.Message, []llms.Message) {
	toolCalls := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for i, toolCall := range choice.ToolCalls {
		if toolCall.FunctionCall == nil {
			continue
		}
		if toolCall.ID == "" {
			toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
		}
		toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
		toolCalls = append(toolCalls, toolCall)

		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", a.name,
			"status", "tool_call_found",
			"tool_call_id", toolCall.ID,
			"tool", toolCall.FunctionCall.Name,
		)
	}

	callMsg := llms.MessageFromToolCalls(llms.RoleAI, toolCalls...)
	if txt := strings.TrimSpace(choice.Content); txt != "" {
		callMsg.Parts = append([]llms.ContentPart{llms.TextPart(txt)}, callMsg.Parts...)
	}

	responses := make([]llms.Message, len(toolCalls))
	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses[i] = llms.MessageFromToolResponse(llms.RoleTool, a.callTool(ctx, cfg, tc))
		}()
	}
	wg.Wait()

	return callMsg, responses
}

func (a *Assistant) callTool(ctx context.Context, cfg *Config, tc llms.ToolCall) llms.ToolCallResponse {
	toolName := tc.FunctionCall.Name
	toolArgs := tc.FunctionCall.Arguments
	resp := llms.ToolCallResponse{
		ToolCallID: tc.ID,
		Name:       toolName,
	}

	tool := a.toolsByName[strings.ToLower(toolName)]
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, toolName)
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnToolNotFound(ctx, a, toolName)
		}

		availableTools := strings.Join(a.toolsNames, ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"assistant", a.name,
			"status", "tool_not_found",
			"tool", toolName,
			"available_tools", availableTools,
		)
		resp.Content = fmt.Sprintf("Error: %s is not a valid tool, try one of [%s].", toolName, availableTools)
		resp.IsError = true
		return resp
	}

	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolStart(ctx, tool, a.name, toolArgs)
	}

	started := time.Now()
	res, err := tool.Call(ctx, toolArgs)
	metricskey.PerfToolCall.MeasureSince(started, toolName)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, toolName)
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnToolError(ctx, tool, a.name, toolArgs, err)
		}
		logger.ContextKV(ctx, xlog.DEBUG,
			"assistant", a.name,
			"status", "tool_call_failed",
			"tool", toolName,
			"err", err.Error(),
		)
		resp.Content = fmt.Sprintf("Error: %s. Please fix your mistakes.", strings.TrimSuffix(err.Error(), "."))
		resp.IsError = true
		return resp
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, toolName)
	if cfg.CallbackHandler != nil {
		cfg.CallbackHandler.OnToolEnd(ctx, tool, a.name, toolArgs, res)
	}
	resp.Content = res
	return resp
}
