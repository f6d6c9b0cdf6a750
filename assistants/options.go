package assistants

import (
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/mcpbench/store"
)

const (
	// DefaultRecursionLimit is the default number of steps of a run.
	DefaultRecursionLimit = 25
	// DefaultMaxRetries is the number of retries on empty model responses.
	DefaultMaxRetries = 3
)

// Option is a function that can be used to modify the behavior of the Agent Config.
type Option func(*Config)

type Config struct {
	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// ToolChoice is the choice of tool to use: "none", "auto" or "any".
	ToolChoice    string
	toolChoiceSet bool

	//
	// Below are the options for the Agent, not related to LLM call
	//

	// RecursionLimit is the maximum number of steps, model calls and tool rounds, of a run.
	RecursionLimit int
	// MaxRetries is the number of attempts on empty model responses.
	MaxRetries int
	// CallbackHandler is the callback handler for the run.
	CallbackHandler Callback
	// Store keeps the conversation history per chat.
	Store store.MessageStore
	// SkipMessageHistory disables adding the run to the Store.
	SkipMessageHistory bool
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		RecursionLimit: DefaultRecursionLimit,
		MaxRetries:     DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with opts applied.
func (c *Config) Apply(opts ...Option) *Config {
	cfg := *c
	cfg.StopWords = append([]string(nil), c.StopWords...)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithRecursionLimit sets the maximum number of steps of a run.
func WithRecursionLimit(limit int) Option {
	return func(o *Config) {
		o.RecursionLimit = limit
	}
}

// WithMaxRetries sets the number of attempts on empty model responses.
func WithMaxRetries(n int) Option {
	return func(o *Config) {
		o.MaxRetries = n
	}
}

// WithStore is an option that allows to specify the message history store.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithSkipMessageHistory is an option that allows to skip adding Assistant messages to History.
func WithSkipMessageHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipMessageHistory = skip
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithToolChoice is an option for LLM.Call.
func WithToolChoice(choice string) Option {
	return func(o *Config) {
		o.ToolChoice = choice
		o.toolChoiceSet = true
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// GetCallOptions returns the LLM call options of the config,
// with the tool definitions when provided.
func (c *Config) GetCallOptions(toolDefs []llms.Tool) []llms.CallOption {
	var callOptions []llms.CallOption
	if c.modelSet {
		callOptions = append(callOptions, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOptions = append(callOptions, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOptions = append(callOptions, llms.WithTemperature(c.Temperature))
	}
	if c.stopWordsSet {
		callOptions = append(callOptions, llms.WithStopWords(c.StopWords))
	}
	if c.seedSet {
		callOptions = append(callOptions, llms.WithSeed(c.Seed))
	}
	if len(toolDefs) > 0 {
		callOptions = append(callOptions, llms.WithTools(toolDefs))
	}
	if c.toolChoiceSet {
		callOptions = append(callOptions, llms.WithToolChoice(c.ToolChoice))
	}
	return callOptions
}
