package bedrockclient

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "bedrock")

// ConverseAPI is the subset of the Bedrock runtime client used to chat.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client is a Bedrock client.
type Client struct {
	api ConverseAPI
}

// Model families found in Bedrock model IDs.
const (
	FamilyAmazon    = "amazon"
	FamilyAnthropic = "anthropic"
	FamilyMeta      = "meta"
	FamilyMistral   = "mistral"
	FamilyCohere    = "cohere"
	FamilyAI21      = "ai21"
)

// profileRegions are the prefixes of cross-region inference profiles.
var profileRegions = map[string]bool{
	"us": true, "eu": true, "apac": true, "jp": true, "au": true, "ca": true, "us-gov": true, "global": true,
}

// ModelFamily returns the model family of a Bedrock model ID, skipping
// the region of a cross-region inference profile, as in
// "us.amazon.nova-lite-v1:0".
func ModelFamily(modelID string) string {
	first, rest, ok := strings.Cut(modelID, ".")
	if !ok {
		return modelID
	}
	if profileRegions[first] {
		family, _, _ := strings.Cut(rest, ".")
		return family
	}
	return first
}

// supportsToolChoice reports whether the family accepts an explicit tool choice.
func supportsToolChoice(family string) bool {
	switch family {
	case FamilyAnthropic, FamilyAmazon, FamilyMistral:
		return true
	}
	return false
}

// NewClient creates a new Bedrock client.
func NewClient(api ConverseAPI) *Client {
	return &Client{
		api: api,
	}
}

// CreateCompletion sends the messages to the Converse API
// and converts the reply to a single choice.
func (c *Client) CreateCompletion(ctx context.Context,
	modelID string,
	messages []llms.Message,
	options llms.CallOptions,
) (*llms.ContentResponse, error) {
	family := ModelFamily(modelID)
	switch family {
	case FamilyAmazon, FamilyAnthropic, FamilyMeta, FamilyMistral, FamilyCohere, FamilyAI21:
	default:
		return nil, errors.Newf("bedrock: unsupported provider: %s", family)
	}

	input, err := converseInput(modelID, family, messages, options)
	if err != nil {
		return nil, err
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return nil, errors.Wrapf(err, "bedrock: converse with %s", modelID)
	}

	resp, err := contentResponse(out)
	if err != nil {
		return nil, err
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"model", modelID,
		"stop_reason", resp.Choices[0].StopReason,
		"tool_calls", len(resp.Choices[0].ToolCalls),
	)
	return resp, nil
}
