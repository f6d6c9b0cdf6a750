package assistants

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/tools"
	"github.com/effective-security/xlog"
)

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnAssistantStart(context.Context, IAssistant, string)        {}
func (l *NoopCallback) OnAssistantEnd(context.Context, IAssistant, string, *Result) {}
func (l *NoopCallback) OnAssistantError(context.Context, IAssistant, string, error, []llms.Message) {
}
func (l *NoopCallback) OnAssistantLLMCallStart(context.Context, IAssistant, llms.Model, []llms.Message) {
}
func (l *NoopCallback) OnAssistantLLMCallEnd(context.Context, IAssistant, llms.Model, *llms.ContentResponse) {
}
func (l *NoopCallback) OnToolStart(context.Context, tools.ITool, string, string)        {}
func (l *NoopCallback) OnToolEnd(context.Context, tools.ITool, string, string, string)  {}
func (l *NoopCallback) OnToolError(context.Context, tools.ITool, string, string, error) {}
func (l *NoopCallback) OnToolNotFound(context.Context, IAssistant, string)              {}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnAssistantStart(_ context.Context, assistant IAssistant, input string) {
	fmt.Fprintf(l.Out, "Assistant Start: %s\n", assistant.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnAssistantEnd(_ context.Context, assistant IAssistant, _ string, res *Result) {
	fmt.Fprintf(l.Out, "Assistant End: %s, steps=%d, tokens=%d\n", assistant.Name(), res.Steps, res.Usage.TotalTokens)
	if content := res.Content(); content != "" {
		fmt.Fprintln(l.Out, content)
	}
}

func (l *PrinterCallback) OnAssistantError(_ context.Context, assistant IAssistant, _ string, err error, _ []llms.Message) {
	fmt.Fprintf(l.Out, "Assistant Error: %s: %s\n", assistant.Name(), err.Error())
}

func (l *PrinterCallback) OnAssistantLLMCallStart(_ context.Context, _ IAssistant, llm llms.Model, payload []llms.Message) {
	fmt.Fprintf(l.Out, "LLM Call: %s, messages=%d\n", llm.GetName(), len(payload))
}

func (l *PrinterCallback) OnAssistantLLMCallEnd(_ context.Context, _ IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	u := llms.UsageOf(resp)
	fmt.Fprintf(l.Out, "LLM Response: %s, input_tokens=%d, output_tokens=%d\n", llm.GetName(), u.InputTokens, u.OutputTokens)
}

func (l *PrinterCallback) OnToolStart(_ context.Context, tool tools.ITool, _ string, input string) {
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnToolEnd(_ context.Context, tool tools.ITool, _ string, _ string, output string) {
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Output: %s\n", output)
}

func (l *PrinterCallback) OnToolError(_ context.Context, tool tools.ITool, _ string, _ string, err error) {
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name(), err.Error())
}

func (l *PrinterCallback) OnToolNotFound(_ context.Context, _ IAssistant, tool string) {
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", tool)
}

// PackageLoggerCallback is a callback handler that prints to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnAssistantStart(ctx context.Context, assistant IAssistant, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_start",
		"assistant", assistant.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnAssistantEnd(ctx context.Context, assistant IAssistant, _ string, res *Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_end",
		"assistant", assistant.Name(),
		"steps", res.Steps,
		"total_tokens", res.Usage.TotalTokens,
		"result", res.Content(),
	)
}

func (l *PackageLoggerCallback) OnAssistantError(ctx context.Context, assistant IAssistant, _ string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "assistant_error",
		"assistant", assistant.Name(),
		"messages", len(messages),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnAssistantLLMCallStart(ctx context.Context, agent IAssistant, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"assistant", agent.Name(),
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLoggerCallback) OnAssistantLLMCallEnd(ctx context.Context, agent IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	u := llms.UsageOf(resp)
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"assistant", agent.Name(),
		"model", llm.GetName(),
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"assistant", assistantName,
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, _ string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"assistant", assistantName,
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, tool tools.ITool, assistantName, _ string, err error) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_error",
		"assistant", assistantName,
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnToolNotFound(ctx context.Context, agent IAssistant, tool string) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "tool_not_found",
		"assistant", agent.Name(),
		"tool", tool,
	)
}
