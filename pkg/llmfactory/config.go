package llmfactory

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/bedrock"
	"github.com/effective-security/x/configloader"
	"github.com/effective-security/x/values"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// AssistantModels specifies the mapping of assistants to models.
	// key is the assistant name, value is the model name.
	// Use `default: <model_name>` as the default model for assistants.
	AssistantModels map[string][]string `json:"assistant_models" yaml:"assistant_models"`
}

// ProviderConfig describes one model provider.
type ProviderConfig struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// APIType specifies the type of API to use:
	// BEDROCK|ANTHROPIC|GOOGLEAI|OPENAI
	APIType         string   `json:"api_type" yaml:"api_type" validate:"required"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// BaseURL overrides the provider endpoint, for OpenAI compatible servers
	// and proxies.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	// OrgID specifies which OpenAI organization's quota and billing should be used.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	// Region and Profile select the AWS region and shared config profile for Bedrock.
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
	Profile string `json:"profile,omitempty" yaml:"profile,omitempty"`
}

// ProviderType returns the normalized API type of the provider.
func (c *ProviderConfig) ProviderType() llms.ProviderType {
	t := strings.ToUpper(strings.TrimSpace(c.APIType))
	switch t {
	case "OPEN_AI":
		return llms.ProviderOpenAI
	case "GOOGLE_AI", "GEMINI":
		return llms.ProviderGoogleAI
	case "AWS", "AWS_BEDROCK":
		return llms.ProviderBedrock
	}
	return llms.ProviderType(t)
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Validate checks required fields and the provider types.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid LLM config")
	}
	for _, p := range c.Providers {
		switch p.ProviderType() {
		case llms.ProviderAnthropic, llms.ProviderBedrock, llms.ProviderGoogleAI, llms.ProviderOpenAI:
		default:
			return errors.Errorf("unsupported provider type: %s", p.APIType)
		}
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BedrockConfig returns a config with a single Bedrock provider
// serving modelID, or the Nova Lite model when it is empty.
func BedrockConfig(modelID, region string) *Config {
	modelID = values.StringsCoalesce(modelID, bedrock.DefaultModel)
	return &Config{
		DefaultProvider: "bedrock",
		Providers: []*ProviderConfig{
			{
				Name:            "bedrock",
				APIType:         string(llms.ProviderBedrock),
				DefaultModel:    modelID,
				AvailableModels: []string{modelID},
				Region:          region,
			},
		},
	}
}
