package googleai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/googleai/internal/genaiutils"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

var (
	ErrNoContentInResponse = errors.Mark(errors.New("googleai: no content in generation response"), llms.ErrEmptyResponse)
)

const (
	CITATIONS = "citations"
	SAFETY    = "safety"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:       g.opts.DefaultModel,
		MaxTokens:   g.opts.DefaultMaxTokens,
		Temperature: g.opts.DefaultTemperature,
		TopP:        g.opts.DefaultTopP,
		TopK:        g.opts.DefaultTopK,
	}, options...)

	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		CandidateCount:  1,
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genaiutils.Float32Ptr(float32(opts.Temperature)),
		TopP:            genaiutils.Float32Ptr(float32(opts.TopP)),
		TopK:            genaiutils.Float32Ptr(float32(opts.TopK)),
		Seed:            genaiutils.Int32Ptr(int32(opts.Seed)),
	}

	for _, category := range []genai.HarmCategory{
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
	} {
		callCfg.SafetySettings = append(callCfg.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: g.opts.HarmThreshold,
		})
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}
	if len(callCfg.Tools) > 0 {
		switch opts.ToolChoice {
		case llms.ToolChoiceAny:
			callCfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAny}}
		case llms.ToolChoiceNone:
			callCfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeNone}}
		}
	}

	history := make([]*genai.Content, 0, len(messages))
	var system []*genai.Part
	for _, mc := range messages {
		if mc.Role == llms.RoleSystem {
			system = append(system, genai.NewPartFromText(mc.Text()))
			continue
		}
		content, err := convertContent(mc)
		if err != nil {
			return nil, err
		}
		history = append(history, content)
	}
	if len(system) > 0 {
		callCfg.SystemInstruction = genai.NewContentFromParts(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, opts.Model, history, callCfg)
	if err != nil {
		return nil, errors.Wrapf(err, "googleai: generate content with %s", opts.Model)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoContentInResponse
	}

	res, err := convertCandidates(resp.Candidates, resp.UsageMetadata)
	if err != nil {
		return nil, err
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"model", opts.Model,
		"stop_reason", res.Choices[0].StopReason,
		"tool_calls", len(res.Choices[0].ToolCalls),
	)
	return res, nil
}

// convertCandidates converts a sequence of genai.Candidate to a response.
func convertCandidates(candidates []*genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) (*llms.ContentResponse, error) {
	var contentResponse llms.ContentResponse

	var info llms.Usage
	if usage != nil {
		info = llms.NewUsage(
			int64(usage.PromptTokenCount),
			int64(usage.CandidatesTokenCount+usage.ToolUsePromptTokenCount+usage.ThoughtsTokenCount),
			int64(usage.TotalTokenCount),
		)
	}

	for _, candidate := range candidates {
		var buf strings.Builder
		var toolCalls []llms.ToolCall

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				switch {
				case part.FunctionCall != nil:
					b, err := json.Marshal(part.FunctionCall.Args)
					if err != nil {
						return nil, errors.WithStack(err)
					}
					if part.FunctionCall.Args == nil {
						b = []byte("{}")
					}
					id := part.FunctionCall.ID
					if id == "" {
						// the Gemini API does not always assign call IDs
						id = "call_" + uuid.NewString()
					}
					toolCalls = append(toolCalls, llms.ToolCall{
						ID:   id,
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      part.FunctionCall.Name,
							Arguments: string(b),
						},
					})
				case part.Thought:
					// reasoning is not part of the answer
				case part.Text != "":
					buf.WriteString(part.Text)
				}
			}
		}

		metadata := info.Info()
		metadata[CITATIONS] = candidate.CitationMetadata
		metadata[SAFETY] = candidate.SafetyRatings

		contentResponse.Choices = append(contentResponse.Choices,
			&llms.ContentChoice{
				Content:        buf.String(),
				StopReason:     string(candidate.FinishReason),
				GenerationInfo: metadata,
				ToolCalls:      toolCalls,
			})
	}
	return &contentResponse, nil
}

// convertParts converts message parts to genai parts.
func convertParts(parts []llms.ContentPart) ([]*genai.Part, error) {
	convertedParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		switch p := part.(type) {
		case llms.TextContent:
			convertedParts = append(convertedParts, genai.NewPartFromText(p.Text))
		case llms.ToolCall:
			args := map[string]any{}
			if strings.TrimSpace(p.FunctionCall.Arguments) != "" {
				if err := json.Unmarshal([]byte(p.FunctionCall.Arguments), &args); err != nil {
					args = map[string]any{"input": p.FunctionCall.Arguments}
				}
			}
			convertedParts = append(convertedParts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   p.ID,
					Name: p.FunctionCall.Name,
					Args: args,
				},
			})
		case llms.ToolCallResponse:
			key := "output"
			if p.IsError {
				key = "error"
			}
			convertedParts = append(convertedParts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       p.ToolCallID,
					Name:     p.Name,
					Response: map[string]any{key: p.Content},
				},
			})
		default:
			return nil, errors.Errorf("googleai: unsupported content part %T", part)
		}
	}
	return convertedParts, nil
}

// convertContent converts a message to genai content.
func convertContent(content llms.Message) (*genai.Content, error) {
	parts, err := convertParts(content.Parts)
	if err != nil {
		return nil, err
	}

	var role genai.Role
	switch content.Role {
	case llms.RoleAI:
		role = genai.RoleModel
	case llms.RoleHuman, llms.RoleTool:
		role = genai.RoleUser
	default:
		return nil, errors.Errorf("googleai: role %v not supported", content.Role)
	}
	return genai.NewContentFromParts(parts, role), nil
}
