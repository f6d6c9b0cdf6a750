package benchmark

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/encoding"
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{
	"id",
	"question",
	"used_tool",
	"tool_ground_truth",
	"tool_selection_accuracy",
	"args",
	"result",
	"expected",
	"correct_ans",
	"latency",
	"input_tokens",
	"output_tokens",
	"total_tokens",
	"error",
}

// FormatText is the human readable summary format.
const FormatText = "text"

// cell renders a CSV value, nil is an empty cell.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case *int64:
		if t == nil {
			return ""
		}
	case string:
		return t
	case map[string]any, []any:
		return string(marshalValue(t))
	}
	return FormatValue(v)
}

// WriteCSV writes the header and a line per row.
func WriteCSV(w io.Writer, rows []*Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.WithStack(err)
	}
	for _, r := range rows {
		var usedTool any
		if r.UsedTool != "" {
			usedTool = r.UsedTool
		}
		record := []string{
			r.ID.String(),
			r.Question,
			cell(usedTool),
			r.ToolGroundTruth,
			cell(r.ToolSelectionAccuracy),
			cell(r.Args),
			cell(r.Result),
			cell(r.Expected),
			cell(r.Correct),
			cell(r.Latency),
			cell(r.InputTokens),
			cell(r.OutputTokens),
			cell(r.TotalTokens),
			r.Error,
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	cw.Flush()
	return errors.WithStack(cw.Error())
}

// Summary aggregates the rows of a run. Nil values are absent.
type Summary struct {
	TotalTasks            int      `json:"total_tasks" yaml:"total_tasks" toml:"total_tasks"`
	AvgLatencyS           *float64 `json:"avg_latency_s" yaml:"avg_latency_s" toml:"avg_latency_s,omitempty"`
	AvgInputTokens        *float64 `json:"avg_input_tokens" yaml:"avg_input_tokens" toml:"avg_input_tokens,omitempty"`
	AvgOutputTokens       *float64 `json:"avg_output_tokens" yaml:"avg_output_tokens" toml:"avg_output_tokens,omitempty"`
	AvgTotalTokens        *float64 `json:"avg_total_tokens" yaml:"avg_total_tokens" toml:"avg_total_tokens,omitempty"`
	ToolSelectionAccuracy *float64 `json:"tool_selection_accuracy" yaml:"tool_selection_accuracy" toml:"tool_selection_accuracy,omitempty"`
	AnswerAccuracy        *float64 `json:"answer_accuracy" yaml:"answer_accuracy" toml:"answer_accuracy,omitempty"`
}

type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v float64) {
	m.sum += v
	m.count++
}

func (m *mean) value() *float64 {
	if m.count == 0 {
		return nil
	}
	v := m.sum / float64(m.count)
	return &v
}

// Summarize computes averages over present values and accuracies over all rows.
func Summarize(rows []*Row) *Summary {
	var latency, in, out, total, toolAcc, ansAcc mean
	for _, r := range rows {
		latency.add(r.Latency)
		if r.InputTokens != nil {
			in.add(float64(*r.InputTokens))
		}
		if r.OutputTokens != nil {
			out.add(float64(*r.OutputTokens))
		}
		if r.TotalTokens != nil {
			total.add(float64(*r.TotalTokens))
		}
		toolAcc.add(boolToFloat(r.ToolSelectionAccuracy))
		ansAcc.add(boolToFloat(r.Correct))
	}
	return &Summary{
		TotalTasks:            len(rows),
		AvgLatencyS:           latency.value(),
		AvgInputTokens:        in.value(),
		AvgOutputTokens:       out.value(),
		AvgTotalTokens:        total.value(),
		ToolSelectionAccuracy: toolAcc.value(),
		AnswerAccuracy:        ansAcc.value(),
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// WriteSummary writes the summary as text, json, yaml or toml.
func WriteSummary(w io.Writer, s *Summary, format string) error {
	format = strings.ToLower(format)
	if format == "" || format == FormatText {
		return writeSummaryText(w, s)
	}

	enc, err := encoding.PredefinedEncoder(format)
	if err != nil {
		return err
	}
	bs, err := enc.Marshal(s)
	if err != nil {
		return errors.WithMessage(err, "failed to encode summary")
	}
	_, err = w.Write(bs)
	return errors.WithStack(err)
}

func writeSummaryText(w io.Writer, s *Summary) error {
	var b strings.Builder
	b.WriteString("MCPBench Summary\n")
	b.WriteString("----------------\n")
	for _, kv := range []struct {
		key string
		val any
	}{
		{"total_tasks", int64(s.TotalTasks)},
		{"avg_latency_s", s.AvgLatencyS},
		{"avg_input_tokens", s.AvgInputTokens},
		{"avg_output_tokens", s.AvgOutputTokens},
		{"avg_total_tokens", s.AvgTotalTokens},
		{"tool_selection_accuracy", s.ToolSelectionAccuracy},
		{"answer_accuracy", s.AnswerAccuracy},
	} {
		fmt.Fprintf(&b, "%-25s: %s\n", titleLabel(kv.key), FormatValue(kv.val))
	}
	_, err := io.WriteString(w, b.String())
	return errors.WithStack(err)
}

// titleLabel turns a snake_case key into Title Cased words.
func titleLabel(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
