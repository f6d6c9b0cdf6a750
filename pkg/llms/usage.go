package llms

// Usage is the token usage of one or more model calls.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// NewUsage returns usage with the total computed when the provider omits it.
func NewUsage(input, output, total int64) Usage {
	if total == 0 {
		total = input + output
	}
	return Usage{
		InputTokens:  input,
		OutputTokens: output,
		TotalTokens:  total,
	}
}

// Add accumulates o into u.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// IsZero reports whether no tokens were counted.
func (u Usage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0
}

// Info returns the usage as GenerationInfo entries.
func (u Usage) Info() map[string]any {
	return map[string]any{
		InfoInputTokens:  u.InputTokens,
		InfoOutputTokens: u.OutputTokens,
		InfoTotalTokens:  u.TotalTokens,
	}
}

// UsageFromInfo reads the usage entries of GenerationInfo,
// accepting any integer or float representation.
func UsageFromInfo(info map[string]any) Usage {
	return NewUsage(
		infoInt(info, InfoInputTokens),
		infoInt(info, InfoOutputTokens),
		infoInt(info, InfoTotalTokens),
	)
}

// UsageOf returns the usage reported by the response.
// Providers report the usage of the whole call on every choice,
// so only the first choice is read.
func UsageOf(resp *ContentResponse) Usage {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return Usage{}
	}
	return UsageFromInfo(resp.Choices[0].GenerationInfo)
}

func infoInt(info map[string]any, key string) int64 {
	switch v := info[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float32:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
