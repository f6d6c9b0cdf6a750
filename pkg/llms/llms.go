package llms

import (
	"context"
)

//go:generate mockgen -source=llms.go -destination=../../mocks/mockllms/llm_mock.gen.go -package mockllms

// ProviderType is the type of provider.
type ProviderType string

const (
	// ProviderAnthropic is the Anthropic Messages API.
	ProviderAnthropic ProviderType = "ANTHROPIC"
	// ProviderBedrock is the AWS Bedrock Converse API.
	ProviderBedrock ProviderType = "BEDROCK"
	// ProviderGoogleAI is the Gemini API.
	ProviderGoogleAI ProviderType = "GOOGLEAI"
	// ProviderOpenAI is the OpenAI chat completions API, or a compatible endpoint.
	ProviderOpenAI ProviderType = "OPENAI"
)

// Model is an interface multi-modal models implement.
type Model interface {
	// GetName returns the model name.
	GetName() string
	// GetProviderType returns the type of provider.
	GetProviderType() ProviderType
	// GenerateContent asks the model to generate content from a sequence of
	// messages. It's the most general interface for LLMs that support
	// chat-like interactions with tool calling.
	GenerateContent(ctx context.Context, messages []Message, options ...CallOption) (*ContentResponse, error)
}

// Capability is a bitmask indicating supported features of an LLM provider.
type Capability uint64

const (
	// Basic text or chat generation
	CapabilityText Capability = 1 << iota

	// Function/tool calling
	CapabilityFunctionCalling
	CapabilityMultiToolCalling

	// System prompt support
	CapabilitySystemPrompt
)

var providerCapabilities = map[ProviderType]Capability{
	ProviderOpenAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderAnthropic: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	ProviderGoogleAI: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,

	// Converse API normalizes tool use across model families
	ProviderBedrock: CapabilityText |
		CapabilityFunctionCalling |
		CapabilityMultiToolCalling |
		CapabilitySystemPrompt,
}

func ProviderCapabilities(pt ProviderType) Capability {
	return providerCapabilities[pt]
}

func (p ProviderType) Supports(cap Capability) bool {
	return ProviderCapabilities(p)&cap != 0
}
