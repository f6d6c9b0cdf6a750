// Package callbacks provides assistant callbacks that combine other callbacks
// or record per chat run transcripts.
package callbacks

import (
	"context"
	"sync"

	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/tools"
)

var (
	_ assistants.Callback = (*Fanout)(nil)
	_ tools.Callback      = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []assistants.Callback
	lock      sync.RWMutex
}

func NewFanout(callbacks ...assistants.Callback) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback assistants.Callback) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) each(fn func(assistants.Callback)) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	for _, cb := range l.callbacks {
		fn(cb)
	}
}

func (l *Fanout) OnAssistantStart(ctx context.Context, assistant assistants.IAssistant, input string) {
	l.each(func(cb assistants.Callback) { cb.OnAssistantStart(ctx, assistant, input) })
}

func (l *Fanout) OnAssistantEnd(ctx context.Context, assistant assistants.IAssistant, input string, res *assistants.Result) {
	l.each(func(cb assistants.Callback) { cb.OnAssistantEnd(ctx, assistant, input, res) })
}

func (l *Fanout) OnAssistantError(ctx context.Context, assistant assistants.IAssistant, input string, err error, messages []llms.Message) {
	l.each(func(cb assistants.Callback) { cb.OnAssistantError(ctx, assistant, input, err, messages) })
}

func (l *Fanout) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	l.each(func(cb assistants.Callback) { cb.OnAssistantLLMCallStart(ctx, agent, llm, payload) })
}

func (l *Fanout) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	l.each(func(cb assistants.Callback) { cb.OnAssistantLLMCallEnd(ctx, agent, llm, resp) })
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, assistantName, input string) {
	l.each(func(cb assistants.Callback) { cb.OnToolStart(ctx, tool, assistantName, input) })
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, assistantName, input string, output string) {
	l.each(func(cb assistants.Callback) { cb.OnToolEnd(ctx, tool, assistantName, input, output) })
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, assistantName, input string, err error) {
	l.each(func(cb assistants.Callback) { cb.OnToolError(ctx, tool, assistantName, input, err) })
}

func (l *Fanout) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	l.each(func(cb assistants.Callback) { cb.OnToolNotFound(ctx, agent, tool) })
}
