package anthropic

import (
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

// TokenEnvVarName is the environment variable of the default API key.
const TokenEnvVarName = "ANTHROPIC_API_KEY" //nolint:gosec

// Options configure the Messages API client.
type Options struct {
	Token      string
	Model      string
	BaseURL    string
	HTTPClient option.HTTPClient
	MaxRetries int
	// Timeout bounds a single request, retries included.
	Timeout time.Duration
	// MaxTokens is used when a call does not set its own limit.
	MaxTokens int
}

type Option func(*Options)

// WithToken passes the Anthropic API token to the client. If not set, the token
// is read from the ANTHROPIC_API_KEY environment variable.
func WithToken(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

// WithModel sets the model, e.g. claude-3-7-sonnet-latest.
func WithModel(model string) Option {
	return func(opts *Options) {
		opts.Model = model
	}
}

// WithBaseURL points the client to a proxy or a compatible server.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

func WithHTTPClient(client option.HTTPClient) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithMaxRetries sets how many times the SDK retries a failed request.
func WithMaxRetries(n int) Option {
	return func(opts *Options) {
		opts.MaxRetries = n
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = d
	}
}

// WithMaxTokens sets the default limit of generated tokens.
func WithMaxTokens(n int) Option {
	return func(opts *Options) {
		opts.MaxTokens = n
	}
}
