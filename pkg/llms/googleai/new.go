// Package googleai implements the Gemini model provider over google.golang.org/genai.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/xlog"
	"google.golang.org/genai"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "googleai")

// GoogleAI is a Gemini API or Vertex AI client.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.Model = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	clientOptions.EnsureAuthPresent()

	cfg := &genai.ClientConfig{
		Project:     clientOptions.CloudProject,
		Location:    clientOptions.CloudLocation,
		APIKey:      clientOptions.APIKey,
		Credentials: clientOptions.Credentials,
		HTTPClient:  clientOptions.HTTPClient,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: clientOptions.BaseURL,
		},
	}
	if clientOptions.Vertex {
		cfg.Backend = genai.BackendVertexAI
		// Vertex authenticates with credentials, not keys
		cfg.APIKey = ""
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "googleai: failed to create client")
	}
	return &GoogleAI{
		client: client,
		opts:   clientOptions,
	}, nil
}
