package googleai

import (
	"net/http"
	"os"

	"cloud.google.com/go/auth"
	"google.golang.org/genai"
)

// APIKeyEnvVarName is the environment variable read when no key or credentials are set.
const APIKeyEnvVarName = "GOOGLE_API_KEY" //nolint:gosec

// Options is a set of options for GoogleAI and Vertex clients.
type Options struct {
	CloudProject       string
	CloudLocation      string
	Vertex             bool
	BaseURL            string
	DefaultModel       string
	DefaultMaxTokens   int
	DefaultTemperature float64
	DefaultTopK        int
	DefaultTopP        float64
	HarmThreshold      genai.HarmBlockThreshold
	APIKey             string
	Credentials        *auth.Credentials
	HTTPClient         *http.Client
}

func DefaultOptions() Options {
	return Options{
		DefaultModel:       "gemini-2.5-flash",
		DefaultMaxTokens:   2048,
		DefaultTemperature: 0,
		DefaultTopP:        0.95,
		HarmThreshold:      genai.HarmBlockThresholdBlockOnlyHigh,
	}
}

// EnsureAuthPresent falls back to the GOOGLE_API_KEY environment variable
// when neither a key nor credentials are configured.
func (o *Options) EnsureAuthPresent() {
	if o.Credentials == nil && o.APIKey == "" {
		if key := os.Getenv(APIKeyEnvVarName); key != "" {
			WithAPIKey(key)(o)
		}
	}
}

type Option func(*Options)

// WithAPIKey passes the API KEY (token) to the client.
func WithAPIKey(apiKey string) Option {
	return func(opts *Options) {
		opts.APIKey = apiKey
	}
}

// WithCredentials authenticates API calls with the given credentials.
func WithCredentials(credentials *auth.Credentials) Option {
	return func(opts *Options) {
		if credentials == nil {
			return
		}
		opts.Credentials = credentials
	}
}

// WithHTTPClient uses the provided HTTP client to make requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithVertex selects the Vertex AI backend in the given project and location.
func WithVertex(project, location string) Option {
	return func(opts *Options) {
		opts.Vertex = true
		opts.CloudProject = project
		opts.CloudLocation = location
	}
}

// WithDefaultModel passes a default content model name to the client. This
// model name is used if not explicitly provided in specific client invocations.
func WithDefaultModel(defaultModel string) Option {
	return func(opts *Options) {
		opts.DefaultModel = defaultModel
	}
}

// WithDefaultMaxTokens sets the maximum token count for the model.
func WithDefaultMaxTokens(maxTokens int) Option {
	return func(opts *Options) {
		opts.DefaultMaxTokens = maxTokens
	}
}

// WithDefaultTemperature sets the sampling temperature for the model.
func WithDefaultTemperature(defaultTemperature float64) Option {
	return func(opts *Options) {
		opts.DefaultTemperature = defaultTemperature
	}
}

// WithDefaultTopK sets the TopK for the model.
func WithDefaultTopK(defaultTopK int) Option {
	return func(opts *Options) {
		opts.DefaultTopK = defaultTopK
	}
}

// WithDefaultTopP sets the TopP for the model.
func WithDefaultTopP(defaultTopP float64) Option {
	return func(opts *Options) {
		opts.DefaultTopP = defaultTopP
	}
}

// WithHarmThreshold sets the safety/harm setting for the model, potentially
// limiting any harmful content it may generate.
func WithHarmThreshold(ht genai.HarmBlockThreshold) Option {
	return func(opts *Options) {
		opts.HarmThreshold = ht
	}
}
