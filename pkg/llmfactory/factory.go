package llmfactory

import (
	"context"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/pkg/llms/anthropic"
	"github.com/effective-security/mcpbench/pkg/llms/bedrock"
	"github.com/effective-security/mcpbench/pkg/llms/googleai"
	"github.com/effective-security/mcpbench/pkg/llms/openai"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "llmfactory")

// NewLLM is a wrapper for CreateLLM to allow for overriding the default implementation.
var NewLLM = CreateLLM

// Factory is the interface for creating and managing LLM models.
type Factory interface {
	// DefaultModel returns the default LLM model.
	DefaultModel() (llms.Model, error)
	// ModelByType returns an LLM model by its type, e.g.
	// BEDROCK, ANTHROPIC, GOOGLEAI, OPENAI
	ModelByType(providerType string) (llms.Model, error)
	// ModelByName returns an LLM model by its name,
	// if the model is not found, it will return the default model.
	ModelByName(preferredModels ...string) (llms.Model, error)
	// AssistantModel returns an assistant model by its name.
	AssistantModel(assistantName string, preferredModels ...string) (llms.Model, error)
}

// Load returns the factory for the config file at location.
func Load(location string) (Factory, error) {
	cfg, err := LoadConfig(location)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

type factory struct {
	cfg *Config

	defaultProvider *ProviderConfig
	assistantModels map[string][]string
	byType          map[llms.ProviderType]llms.Model
	byName          map[string]llms.Model
	lock            sync.Mutex
}

// New creates a new LLM factory
func New(cfg *Config) Factory {
	f := &factory{
		cfg:             cfg,
		byType:          make(map[llms.ProviderType]llms.Model),
		byName:          make(map[string]llms.Model),
		assistantModels: make(map[string][]string),
	}

	for k, v := range cfg.AssistantModels {
		f.assistantModels[k] = slices.Clone(v)
	}

	if cfg.DefaultProvider != "" {
		for _, provider := range cfg.Providers {
			if provider.Name == cfg.DefaultProvider {
				f.defaultProvider = provider
				break
			}
		}
	}

	if f.defaultProvider == nil && len(f.cfg.Providers) > 0 {
		f.defaultProvider = f.cfg.Providers[0]
	}

	return f
}

// CreateLLM creates the model of the provider, choosing the first of
// preferredModels the provider offers, or its default model.
func CreateLLM(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	switch cfg.ProviderType() {
	case llms.ProviderOpenAI:
		return newOpenAI(cfg, preferredModels...)
	case llms.ProviderAnthropic:
		return newAnthropic(cfg, preferredModels...)
	case llms.ProviderGoogleAI:
		return newGoogleAI(cfg, preferredModels...)
	case llms.ProviderBedrock:
		return newBedrock(cfg, preferredModels...)
	}
	return nil, errors.Errorf("unsupported provider type: %s", cfg.APIType)
}

func newOpenAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []openai.Option
	model := cfg.FindModel(preferredModels...)
	opts = append(opts, openai.WithModel(model))

	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.OrgID != "" {
		opts = append(opts, openai.WithOrganization(cfg.OrgID))
	}
	return openai.New(opts...)
}

func newAnthropic(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []anthropic.Option
	model := cfg.FindModel(preferredModels...)
	opts = append(opts, anthropic.WithModel(model))
	if cfg.Token != "" {
		opts = append(opts, anthropic.WithToken(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newGoogleAI(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []googleai.Option
	model := cfg.FindModel(preferredModels...)
	if model != "" {
		opts = append(opts, googleai.WithDefaultModel(model))
	}
	if cfg.Token != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.Token))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, googleai.WithBaseURL(cfg.BaseURL))
	}
	return googleai.New(context.Background(), opts...)
}

func newBedrock(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	var opts []bedrock.Option
	model := cfg.FindModel(preferredModels...)
	if model != "" {
		opts = append(opts, bedrock.WithModel(model))
	}
	if cfg.Region != "" {
		opts = append(opts, bedrock.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, bedrock.WithProfile(cfg.Profile))
	}
	return bedrock.New(context.Background(), opts...)
}

// DefaultModel returns the default model of the default provider.
func (f *factory) DefaultModel() (llms.Model, error) {
	if len(f.cfg.Providers) == 0 || f.defaultProvider == nil {
		return nil, errors.New("no providers configured")
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	return f.create(f.defaultProvider, f.defaultProvider.DefaultModel)
}

func (f *factory) create(cfg *ProviderConfig, preferredModels ...string) (llms.Model, error) {
	name := cfg.FindModel(preferredModels...)
	if client, ok := f.byName[name]; ok && name != "" {
		return client, nil
	}

	model, err := NewLLM(cfg, preferredModels...)
	if err != nil {
		return nil, err
	}

	logger.KV(xlog.DEBUG,
		"status", "created_llm",
		"type", cfg.APIType,
		"name", cfg.Name,
		"model", name)

	if name != "" {
		f.byName[name] = model
	}
	return model, nil
}

func (f *factory) ModelByType(providerType string) (llms.Model, error) {
	pt := (&ProviderConfig{APIType: providerType}).ProviderType()

	f.lock.Lock()
	defer f.lock.Unlock()

	if client, ok := f.byType[pt]; ok {
		return client, nil
	}

	for _, cfg := range f.cfg.Providers {
		if cfg.ProviderType() == pt {
			model, err := f.create(cfg, cfg.DefaultModel)
			if err != nil {
				return nil, err
			}
			f.byType[pt] = model
			return model, nil
		}
	}
	return nil, errors.Errorf("provider not found for type: %s", providerType)
}

func (f *factory) ModelByName(modelNames ...string) (llms.Model, error) {
	if model, found, err := f.modelByName(modelNames...); found || err != nil {
		return model, err
	}
	return f.DefaultModel()
}

func (f *factory) modelByName(modelNames ...string) (llms.Model, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	for _, modelName := range modelNames {
		if client, ok := f.byName[modelName]; ok {
			return client, true, nil
		}

		for _, cfg := range f.cfg.Providers {
			if slices.Contains(cfg.AvailableModels, modelName) {
				model, err := f.create(cfg, modelName)
				if err != nil {
					logger.KV(xlog.ERROR,
						"reason", "NewLLM",
						"type", cfg.APIType,
						"name", cfg.Name,
						"model", modelName,
						"err", err.Error(),
					)
					continue
				}
				return model, true, nil
			}
		}
	}
	return nil, false, nil
}

// AssistantModel returns an assistant model by its name.
func (f *factory) AssistantModel(assistantName string, preferredModels ...string) (llms.Model, error) {
	// Check if we have a specific model mapping for this assistant
	if modelNames, ok := f.assistantModels[assistantName]; ok {
		return f.ModelByName(modelNames...)
	}

	// Check for default model mapping
	if modelNames, ok := f.assistantModels["default"]; ok {
		return f.ModelByName(modelNames...)
	}

	// Fallback to default provider
	return f.ModelByName(preferredModels...)
}
