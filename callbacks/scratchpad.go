package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llmutils"
	"github.com/effective-security/mcpbench/tools"
)

var _ assistants.Callback = (*Scratchpad)(nil)

var TimeNowFn = time.Now

type RunStats struct {
	ChatID string

	Duration             time.Duration
	TotalMessages        uint32
	LLMBytesOut          uint64
	LLMBytesIn           uint64
	LLMInputTokens       uint64
	LLMOutputTokens      uint64
	LLMTotalTokens       uint64
	AssistantCalls       uint32
	AssistantCallsFailed uint32
	AssistantLLMCalls    uint32
	ToolsCalls           uint32
	ToolsCallsSucceeded  uint32
	ToolsCallsFailed     uint32
	ToolNotFound         uint32
}

// Scratchpad records the trajectory of runs, one transcript per chat ID
// from the context. Events of chats without a started run are ignored.
type Scratchpad struct {
	runs map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewScratchpad(mode Mode) *Scratchpad {
	return &Scratchpad{
		runs: make(map[string]*run),
		mode: mode,
	}
}

// StartRun starts recording the chat from ctx.
func (l *Scratchpad) StartRun(ctx context.Context) {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return
	}

	r := &run{
		chatID:  chatID,
		started: time.Now(),
		stats:   RunStats{ChatID: chatID},
	}

	l.lock.Lock()
	l.runs[chatID] = r
	l.lock.Unlock()

	if task := chatmodel.GetTaskID(ctx); task != "" {
		r.print("*** Run Started *** task", task)
	} else {
		r.print("*** Run Started ***")
	}
}

// EndRun stops recording the chat from ctx, and returns its stats and transcript.
func (l *Scratchpad) EndRun(ctx context.Context) (*RunStats, []byte) {
	run := l.getRun(ctx)
	if run == nil {
		return nil, nil
	}

	stats := run.snapshot()
	stats.Duration = time.Since(run.started)

	run.print(fmt.Sprintf("Assistant calls: %d, Failed: %d",
		stats.AssistantCalls,
		stats.AssistantCallsFailed,
	))
	run.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	run.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.AssistantLLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	run.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	l.lock.Lock()
	delete(l.runs, run.chatID)
	l.lock.Unlock()

	return &stats, run.bytes()
}

func (l *Scratchpad) getRun(ctx context.Context) *run {
	chatID := chatmodel.GetChatID(ctx)
	if chatID == "" {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatID]
}

func (l *Scratchpad) OnAssistantStart(ctx context.Context, assistant assistants.IAssistant, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.AssistantCalls, 1)
	run.print(assistant.Name(), "*** Assistant Start ***")
	run.print(assistant.Name(), "Input:", input)
}

func (l *Scratchpad) OnAssistantEnd(ctx context.Context, assistant assistants.IAssistant, _ string, res *assistants.Result) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	if l.mode == ModeVerbose {
		run.print(assistant.Name(), printMessages(res.Messages))
	}
	run.print(assistant.Name(), "Output:", res.Content())
	run.print(assistant.Name(), "*** Assistant End ***", fmt.Sprintf("%d steps", res.Steps))
}

func (l *Scratchpad) OnAssistantError(ctx context.Context, assistant assistants.IAssistant, _ string, err error, messages []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.AssistantCallsFailed, 1)
	run.print(assistant.Name(), "*** Error ***", err.Error())
	run.print(assistant.Name(), printMessages(messages))
}

func printMessages(messages []llms.Message) string {
	var buf strings.Builder
	buf.WriteString("Messages:\n")
	for idx, msg := range messages {
		fmt.Fprintf(&buf, "[%d] %s:\n", idx, msg.Role)
		textParts := 0
		toolParts := 0
		toolResponseParts := 0
		for _, part := range msg.Parts {
			switch typ := part.(type) {
			case llms.TextContent:
				textParts++
			case llms.ToolCall:
				toolParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			case llms.ToolCallResponse:
				toolResponseParts++
				buf.WriteString("  - ")
				buf.WriteString(typ.String())
				buf.WriteString("\n")
			}
		}

		fmt.Fprintf(&buf, "  - %d texts, %d tool calls, %d tool responses\n", textParts, toolParts, toolResponseParts)
	}
	return buf.String()
}

func (l *Scratchpad) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&run.stats.AssistantLLMCalls, 1)
	count := uint32(len(payload))
	atomic.AddUint32(&run.stats.TotalMessages, count)

	run.print(agent.Name(), "*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
	if l.mode == ModeVerbose {
		run.print(agent.Name(), printMessages(payload))
	}
}

func (l *Scratchpad) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}

	atomic.AddUint64(&run.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&run.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&run.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&run.stats.LLMTotalTokens, uint64(tokensTotal))

	run.print(agent.Name(), "*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens", llm.GetName(), tokensIn, tokensOut, tokensTotal))
}

func (l *Scratchpad) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCalls, 1)
	run.print(assistantName, tool.Name(), "*** Tool Start ***")
	run.print(assistantName, tool.Name(), "Input:", input)
}

func (l *Scratchpad) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, _ string, output string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsSucceeded, 1)
	run.print(assistantName, tool.Name(), "Output:", output)
	run.print(assistantName, tool.Name(), "*** Tool End ***")
}

func (l *Scratchpad) OnToolError(ctx context.Context, tool tools.ITool, assistantName, _ string, err error) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolsCallsFailed, 1)
	run.print(assistantName, tool.Name(), "*** Tool Error ***", err.Error())
}

func (l *Scratchpad) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	run := l.getRun(ctx)
	if run == nil {
		return
	}
	atomic.AddUint32(&run.stats.ToolNotFound, 1)
	run.print(agent.Name(), "*** Tool Not Found ***", tool)
}

type run struct {
	chatID  string
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

func (r *run) snapshot() RunStats {
	return RunStats{
		ChatID:               r.chatID,
		TotalMessages:        atomic.LoadUint32(&r.stats.TotalMessages),
		LLMBytesOut:          atomic.LoadUint64(&r.stats.LLMBytesOut),
		LLMBytesIn:           atomic.LoadUint64(&r.stats.LLMBytesIn),
		LLMInputTokens:       atomic.LoadUint64(&r.stats.LLMInputTokens),
		LLMOutputTokens:      atomic.LoadUint64(&r.stats.LLMOutputTokens),
		LLMTotalTokens:       atomic.LoadUint64(&r.stats.LLMTotalTokens),
		AssistantCalls:       atomic.LoadUint32(&r.stats.AssistantCalls),
		AssistantCallsFailed: atomic.LoadUint32(&r.stats.AssistantCallsFailed),
		AssistantLLMCalls:    atomic.LoadUint32(&r.stats.AssistantLLMCalls),
		ToolsCalls:           atomic.LoadUint32(&r.stats.ToolsCalls),
		ToolsCallsSucceeded:  atomic.LoadUint32(&r.stats.ToolsCallsSucceeded),
		ToolsCallsFailed:     atomic.LoadUint32(&r.stats.ToolsCallsFailed),
		ToolNotFound:         atomic.LoadUint32(&r.stats.ToolNotFound),
	}
}

func (r *run) bytes() []byte {
	r.lock.Lock()
	defer r.lock.Unlock()
	return bytes.Clone(r.w.Bytes())
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatID)
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
