package llmfactory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llmfactory"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useFakeLLM(t *testing.T) {
	t.Helper()
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...), pt: cfg.ProviderType()}, nil
	}
	t.Cleanup(func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	})
}

func Test_Factory(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "fakekey")
	t.Setenv("ANTHROPIC_API_KEY", "fakekey")
	t.Setenv("GOOGLE_API_KEY", "fakekey")

	cfg, err := llmfactory.LoadConfig("testdata/llm.yaml")
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 4)
	assert.Equal(t, "fakekey", cfg.Providers[1].Token)
	assert.Equal(t, "us-west-2", cfg.Providers[0].Region)

	useFakeLLM(t)

	f := llmfactory.New(cfg)
	model, err := f.DefaultModel()
	require.NoError(t, err)
	fm := model.(*fakeLLM)
	assert.Equal(t, "us.amazon.nova-lite-v1:0", fm.model)
	assert.Equal(t, "bedrock", fm.provider)

	model, err = f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o-mini", fm.model)
	assert.Equal(t, "openai", fm.provider)

	// first known model wins
	model, err = f.ModelByName("unknown", "claude-3-7-sonnet-latest")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "claude-3-7-sonnet-latest", fm.model)
	assert.Equal(t, "anthropic", fm.provider)

	// unknown falls back to the default
	model, err = f.ModelByName("non-existent-model")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "us.amazon.nova-lite-v1:0", fm.model)

	model, err = f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gpt-4o", fm.model)
	assert.Equal(t, llms.ProviderOpenAI, fm.GetProviderType())

	model, err = f.ModelByType("GOOGLEAI")
	require.NoError(t, err)
	fm = model.(*fakeLLM)
	assert.Equal(t, "gemini-2.5-flash", fm.model)

	_, err = f.ModelByType("PERPLEXITY")
	assert.EqualError(t, err, "provider not found for type: PERPLEXITY")

	model, err = f.AssistantModel("math")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", model.(*fakeLLM).model)

	model, err = f.AssistantModel("other", "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "us.amazon.nova-micro-v1:0", model.(*fakeLLM).model)
}

func Test_Load(t *testing.T) {
	f, err := llmfactory.Load("testdata/llm.yaml")
	require.NoError(t, err)
	require.NotNil(t, f)

	_, err = llmfactory.Load("testdata/non-existent.yaml")
	require.Error(t, err)
}

func Test_LoadConfig(t *testing.T) {
	cfg, err := llmfactory.LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Providers)

	_, err = llmfactory.LoadConfig("testdata/non-existent.yaml")
	require.Error(t, err)

	_, err = llmfactory.LoadConfig("testdata/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid LLM config")

	_, err = llmfactory.LoadConfig("testdata/unsupported.yaml")
	assert.EqualError(t, err, "unsupported provider type: PERPLEXITY")
}

func Test_ProviderType(t *testing.T) {
	tcases := []struct {
		apiType string
		exp     llms.ProviderType
	}{
		{"OPEN_AI", llms.ProviderOpenAI},
		{"openai", llms.ProviderOpenAI},
		{"gemini", llms.ProviderGoogleAI},
		{"GOOGLEAI", llms.ProviderGoogleAI},
		{" bedrock ", llms.ProviderBedrock},
		{"AWS_BEDROCK", llms.ProviderBedrock},
		{"anthropic", llms.ProviderAnthropic},
		{"other", "OTHER"},
	}
	for _, tc := range tcases {
		cfg := &llmfactory.ProviderConfig{APIType: tc.apiType}
		assert.Equal(t, tc.exp, cfg.ProviderType(), tc.apiType)
	}
}

func Test_BedrockConfig(t *testing.T) {
	cfg := llmfactory.BedrockConfig("", "")
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Providers, 1)
	assert.Equal(t, "us.amazon.nova-lite-v1:0", cfg.Providers[0].DefaultModel)

	cfg = llmfactory.BedrockConfig("us.amazon.nova-micro-v1:0", "us-east-1")
	assert.Equal(t, "us.amazon.nova-micro-v1:0", cfg.Providers[0].DefaultModel)
	assert.Equal(t, "us-east-1", cfg.Providers[0].Region)

	useFakeLLM(t)
	model, err := llmfactory.New(cfg).DefaultModel()
	require.NoError(t, err)
	assert.Equal(t, "us.amazon.nova-micro-v1:0", model.(*fakeLLM).model)
	assert.Equal(t, llms.ProviderBedrock, model.GetProviderType())
}

func Test_CreateLLM(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := &llmfactory.ProviderConfig{
		Name:            "test-provider",
		APIType:         "OPEN_AI",
		Token:           "fakekey",
		AvailableModels: []string{"gpt-4o"},
		DefaultModel:    "gpt-4o",
	}

	model, err := llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", model.GetName())
	assert.Equal(t, llms.ProviderOpenAI, model.GetProviderType())

	cfg.APIType = "ANTHROPIC"
	cfg.DefaultModel = "claude-3-7-sonnet-latest"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderAnthropic, model.GetProviderType())

	cfg.APIType = "GOOGLEAI"
	cfg.DefaultModel = "gemini-2.5-flash"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderGoogleAI, model.GetProviderType())

	cfg.APIType = "BEDROCK"
	cfg.DefaultModel = "us.amazon.nova-lite-v1:0"
	cfg.Region = "us-west-2"
	model, err = llmfactory.CreateLLM(cfg)
	require.NoError(t, err)
	assert.Equal(t, "us.amazon.nova-lite-v1:0", model.GetName())

	cfg.APIType = "UNSUPPORTED"
	_, err = llmfactory.CreateLLM(cfg)
	assert.EqualError(t, err, "unsupported provider type: UNSUPPORTED")
}

func Test_ModelCaching(t *testing.T) {
	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "openai",
				APIType:         "OPENAI",
				AvailableModels: []string{"gpt-4o", "gpt-4o-mini"},
				DefaultModel:    "gpt-4o",
			},
		},
	}

	var created int
	var lock sync.Mutex
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		lock.Lock()
		created++
		lock.Unlock()
		return &fakeLLM{provider: cfg.Name, model: cfg.FindModel(preferredModels...)}, nil
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	f := llmfactory.New(cfg)

	model1, err := f.ModelByType("OPENAI")
	require.NoError(t, err)
	model2, err := f.ModelByType("OPEN_AI")
	require.NoError(t, err)
	assert.Same(t, model1, model2)

	// the default model is cached by name too
	model3, err := f.DefaultModel()
	require.NoError(t, err)
	assert.Same(t, model1, model3)

	model4, err := f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	model5, err := f.ModelByName("gpt-4o-mini")
	require.NoError(t, err)
	assert.Same(t, model4, model5)
	assert.Equal(t, 2, created)
}

func Test_ModelByName_Error(t *testing.T) {
	cfg := &llmfactory.Config{
		Providers: []*llmfactory.ProviderConfig{
			{
				Name:            "broken",
				APIType:         "OPENAI",
				AvailableModels: []string{"broken-model"},
				DefaultModel:    "broken-model",
			},
		},
	}
	llmfactory.NewLLM = func(cfg *llmfactory.ProviderConfig, preferredModels ...string) (llms.Model, error) {
		return nil, errors.New("boom")
	}
	defer func() {
		llmfactory.NewLLM = llmfactory.CreateLLM
	}()

	_, err := llmfactory.New(cfg).ModelByName("broken-model")
	assert.EqualError(t, err, "boom")
}

func Test_EmptyConfig(t *testing.T) {
	f := llmfactory.New(&llmfactory.Config{})

	_, err := f.DefaultModel()
	assert.EqualError(t, err, "no providers configured")

	_, err = f.ModelByName("gpt-4o")
	assert.EqualError(t, err, "no providers configured")

	_, err = f.AssistantModel("math")
	assert.EqualError(t, err, "no providers configured")
}

func Test_ConcurrentAccess(t *testing.T) {
	useFakeLLM(t)
	f := llmfactory.New(llmfactory.BedrockConfig("", ""))

	var wg sync.WaitGroup
	models := make([]llms.Model, 10)
	for i := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := f.ModelByName("us.amazon.nova-lite-v1:0")
			if err == nil {
				models[i] = m
			}
		}()
	}
	wg.Wait()
	for _, m := range models {
		assert.Same(t, models[0], m)
	}
}

type fakeLLM struct {
	provider string
	model    string
	pt       llms.ProviderType
}

func (f *fakeLLM) GetName() string {
	return f.model
}

func (f *fakeLLM) GetProviderType() llms.ProviderType {
	return f.pt
}

func (f *fakeLLM) GenerateContent(_ context.Context, _ []llms.Message, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}
