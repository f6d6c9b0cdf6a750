package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/assistants"
	"github.com/effective-security/mcpbench/callbacks"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/metricskey"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "benchmark")

const separator = "------------------------------------------------------------"

// Error kinds reported in the error column.
const (
	ErrorKindRecursionLimit = "RecursionLimitError"
	ErrorKindModel          = "ModelError"
	ErrorKindCanceled       = "CanceledError"
	ErrorKindOther          = "Error"
)

// Row is the outcome of a single task.
type Row struct {
	ID                    TaskID
	Question              string
	UsedTool              string
	ToolGroundTruth       string
	ToolSelectionAccuracy bool
	// Args are the decoded arguments of the tool call, or raw text.
	Args any
	// Result is the decoded first tool response, or raw text.
	Result   any
	Expected any
	Correct  bool
	// Latency in seconds, rounded to milliseconds.
	Latency      float64
	InputTokens  *int64
	OutputTokens *int64
	TotalTokens  *int64
	Error        string
}

// Option configures the Runner.
type Option func(*Runner)

// WithOutput sets the writer of progress lines.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		r.out = w
	}
}

// WithParallel sets the number of tasks run at once.
func WithParallel(n int) Option {
	return func(r *Runner) {
		r.parallel = n
	}
}

// WithModelName sets the model tag of the metrics.
func WithModelName(name string) Option {
	return func(r *Runner) {
		r.model = name
	}
}

// WithRecursionLimit overrides the recursion limit of the agent.
func WithRecursionLimit(limit int) Option {
	return func(r *Runner) {
		r.recursionLimit = limit
	}
}

// WithCallback adds a callback to every agent run.
func WithCallback(cb assistants.Callback) Option {
	return func(r *Runner) {
		r.callback = cb
	}
}

// WithTrajectoryDir writes the transcript of every task to dir.
func WithTrajectoryDir(dir string) Option {
	return func(r *Runner) {
		r.trajectoryDir = dir
	}
}

// Runner answers tasks with the agent.
type Runner struct {
	agent          assistants.IAssistant
	out            io.Writer
	model          string
	parallel       int
	recursionLimit int
	callback       assistants.Callback
	trajectoryDir  string
	scratchpad     *callbacks.Scratchpad

	lock sync.Mutex
}

// NewRunner returns a runner of the agent.
func NewRunner(agent assistants.IAssistant, opts ...Option) *Runner {
	r := &Runner{
		agent: agent,
		out:   io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.model = values.StringsCoalesce(r.model, agent.Name())

	var cbs []assistants.Callback
	if r.trajectoryDir != "" {
		r.scratchpad = callbacks.NewScratchpad(callbacks.ModeVerbose)
		cbs = append(cbs, r.scratchpad)
	}
	if r.callback != nil {
		cbs = append(cbs, r.callback)
	}
	switch len(cbs) {
	case 0:
		r.callback = nil
	case 1:
		r.callback = cbs[0]
	default:
		r.callback = callbacks.NewFanout(cbs...)
	}
	return r
}

// Run answers the tasks and returns the rows in task order.
// On cancellation no new task is started, and the rows completed so far
// are returned with the context error.
func (r *Runner) Run(ctx context.Context, tasks []*Task) ([]*Row, error) {
	rows := make([]*Row, len(tasks))

	if r.parallel <= 1 {
		for i, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			rows[i] = r.RunSingle(ctx, task)
			r.printOutcome(rows[i])
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(r.parallel)
		for i, task := range tasks {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				rows[i] = r.RunSingle(ctx, task)
				r.printOutcome(rows[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	completed := make([]*Row, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			completed = append(completed, row)
		}
	}
	return completed, errors.WithStack(ctx.Err())
}

// RunSingle answers one task. Agent failures are reported in the row.
func (r *Runner) RunSingle(ctx context.Context, task *Task) *Row {
	var buf bytes.Buffer
	defer r.flush(&buf)

	fmt.Fprintf(&buf, "▶ Task %s: %s\n", task.ID, task.Question)

	var opts []assistants.Option
	if r.callback != nil {
		opts = append(opts, assistants.WithCallback(r.callback))
	}
	if r.recursionLimit > 0 {
		opts = append(opts, assistants.WithRecursionLimit(r.recursionLimit))
	}
	if r.scratchpad != nil {
		ctx = chatmodel.WithChat(ctx, chatmodel.NewTaskChat(task.ID.String()))
		r.scratchpad.StartRun(ctx)
	}

	started := time.Now()
	res, err := r.agent.Run(ctx, task.Question, opts...)
	elapsed := time.Since(started)
	metricskey.PerfBenchmarkTask.MeasureSince(started, r.model)

	if r.scratchpad != nil {
		r.saveTrajectory(ctx, task)
	}

	row := &Row{
		ID:              task.ID,
		Question:        task.Question,
		ToolGroundTruth: task.Tool,
		Expected:        task.Expected,
		Latency:         roundLatency(elapsed),
	}

	if err != nil {
		kind := errorKind(err)
		row.Error = kind + ": " + err.Error()
		metricskey.StatsBenchmarkTasksFailed.IncrCounter(1, r.model)
		logger.ContextKV(ctx, xlog.WARNING,
			"task_id", task.ID,
			"reason", "agent_failed",
			"kind", kind,
			"err", err.Error())

		label := "Model/Tool error"
		if kind == ErrorKindRecursionLimit {
			label = "Recursion error"
		}
		fmt.Fprintf(&buf, "--> ⛔ %s after %.3fs: %s\n", label, elapsed.Seconds(), row.Error)
		fmt.Fprintln(&buf, separator)
		return row
	}

	fmt.Fprintf(&buf, "--> Latency: %.3fs\n", elapsed.Seconds())

	if calls := res.FirstToolCalls(); len(calls) > 0 {
		last := calls[len(calls)-1]
		row.UsedTool = last.FunctionCall.Name
		row.Args = ParseValue(last.FunctionCall.Arguments)
		fmt.Fprintf(&buf, "--> Tool call: %s(%s)\n", row.UsedTool, FormatValue(row.Args))
	} else {
		fmt.Fprintln(&buf, "--> No tool call detected")
	}

	if tr := res.FirstToolResponse(); tr != nil {
		row.Result = ParseValue(tr.Content)
	}
	fmt.Fprintf(&buf, "--> Raw tool result: %s\n", FormatValue(row.Result))

	if !res.Usage.IsZero() {
		row.InputTokens = &res.Usage.InputTokens
		row.OutputTokens = &res.Usage.OutputTokens
		row.TotalTokens = &res.Usage.TotalTokens
	}
	fmt.Fprintf(&buf, "--> Tokens: input=%s, output=%s, total=%s\n",
		FormatValue(row.InputTokens), FormatValue(row.OutputTokens), FormatValue(row.TotalTokens))

	row.ToolSelectionAccuracy = row.UsedTool == task.Tool
	row.Correct = Correct(task.Expected, row.Result)

	status := "✅ PASS"
	if row.Correct {
		metricskey.StatsBenchmarkTasksCorrect.IncrCounter(1, r.model)
	} else {
		status = "❌ FAIL"
		metricskey.StatsBenchmarkTasksIncorrect.IncrCounter(1, r.model)
	}
	fmt.Fprintf(&buf, "--> Expected: %s → %s\n", FormatValue(task.Expected), status)
	fmt.Fprintln(&buf, separator)

	logger.ContextKV(ctx, xlog.DEBUG,
		"task_id", task.ID,
		"tool", row.UsedTool,
		"correct", row.Correct,
		"latency", row.Latency)
	return row
}

func (r *Runner) printOutcome(row *Row) {
	status := "ERR"
	if row.Correct {
		status = "OK"
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	fmt.Fprintf(r.out, "[%s] %s → %s (%s)\n", row.ID, row.Question, FormatValue(row.Result), status)
}

func (r *Runner) flush(buf *bytes.Buffer) {
	r.lock.Lock()
	defer r.lock.Unlock()
	_, _ = r.out.Write(buf.Bytes())
}

func (r *Runner) saveTrajectory(ctx context.Context, task *Task) {
	stats, transcript := r.scratchpad.EndRun(ctx)
	if stats == nil {
		return
	}
	if err := os.MkdirAll(r.trajectoryDir, 0o755); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "mkdir", "err", err.Error())
		return
	}
	name := filepath.Join(r.trajectoryDir, "task_"+sanitizeFileName(task.ID.String())+".log")
	if err := os.WriteFile(name, transcript, 0o644); err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "write_trajectory", "err", err.Error())
	}
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

func errorKind(err error) string {
	switch {
	case assistants.IsRecursionLimit(err):
		return ErrorKindRecursionLimit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorKindCanceled
	case assistants.IsModelError(err), errors.Is(err, llms.ErrEmptyResponse), errors.Is(err, assistants.ErrNoFunctionCalling):
		return ErrorKindModel
	}
	return ErrorKindOther
}

func roundLatency(d time.Duration) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(d.Seconds(), 'f', 3, 64), 64)
	return f
}
