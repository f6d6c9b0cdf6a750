package assistants

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "assistants")

//go:generate mockgen -source=assistants.go -destination=../mocks/mockassistants/assistants_mock.gen.go -package mockassistants

var (
	// ErrRecursionLimit is returned when the agent exceeds the number of steps
	// without the model producing a final answer.
	ErrRecursionLimit = errors.New("recursion limit reached")
	// ErrNoFunctionCalling is returned when tools are configured
	// for a model that can not call them.
	ErrNoFunctionCalling = errors.New("the LLM does not support function calling")
	// ErrModelCall marks failures of the model provider,
	// including empty responses after retries.
	ErrModelCall = errors.New("model call failed")
)

type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// Description returns the description of the Assistant, to be used in the prompt of other Assistants or LLMs.
	Description() string
	// Run answers the input, calling tools as the model requests.
	Run(ctx context.Context, input string, options ...Option) (*Result, error)
}

type Callback interface {
	tools.Callback
	OnAssistantStart(ctx context.Context, agent IAssistant, input string)
	OnAssistantEnd(ctx context.Context, agent IAssistant, input string, res *Result)
	OnAssistantError(ctx context.Context, agent IAssistant, input string, err error, messages []llms.Message)
	OnAssistantLLMCallStart(ctx context.Context, agent IAssistant, llm llms.Model, payload []llms.Message)
	OnAssistantLLMCallEnd(ctx context.Context, agent IAssistant, llm llms.Model, resp *llms.ContentResponse)
	OnToolNotFound(ctx context.Context, agent IAssistant, tool string)
}

// Result is the outcome of a single Run.
type Result struct {
	// Messages is the full trace of the run, starting with the system prompt.
	Messages []llms.Message
	// Response is the last model response.
	Response *llms.ContentResponse
	// Usage is the token usage summed over every model call.
	Usage llms.Usage
	// Steps is the number of model calls and tool rounds.
	Steps int
}

// Content returns the text of the final message,
// or an empty string when the run produced none.
func (r *Result) Content() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[len(r.Messages)-1].GetContent()
}

// FirstToolCalls returns the tool calls of the first AI message requesting any.
func (r *Result) FirstToolCalls() []llms.ToolCall {
	if r == nil {
		return nil
	}
	for _, msg := range r.Messages {
		if msg.Role != llms.RoleAI {
			continue
		}
		if calls := msg.ToolCalls(); len(calls) > 0 {
			return calls
		}
	}
	return nil
}

// FirstToolResponse returns the first tool response of the run.
func (r *Result) FirstToolResponse() *llms.ToolCallResponse {
	if r == nil {
		return nil
	}
	for _, msg := range r.Messages {
		if msg.Role != llms.RoleTool {
			continue
		}
		for _, p := range msg.Parts {
			if tr, ok := p.(llms.ToolCallResponse); ok {
				return &tr
			}
		}
	}
	return nil
}

// IsRecursionLimit returns true if the error reports the recursion limit.
func IsRecursionLimit(err error) bool {
	return errors.Is(err, ErrRecursionLimit)
}

// IsModelError returns true if the error was returned by the model provider.
func IsModelError(err error) bool {
	return errors.Is(err, ErrModelCall)
}

func recursionLimitError(limit int) error {
	return errors.Mark(
		errors.Newf("Recursion limit of %d reached without hitting a stop condition", limit),
		ErrRecursionLimit)
}

func GetDescriptions(list ...IAssistant) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}
