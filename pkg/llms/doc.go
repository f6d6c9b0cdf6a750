// Package llms provides a unified, tool-calling oriented interface over the
// supported LLM providers.
//
// Each subpackage holds one provider implementation: bedrock (Converse API),
// anthropic, googleai and openai. The internal directories within these
// subpackages contain provider-specific conversion code.
//
// The `llms.go` file contains the Model interface and provider capabilities.
//
// The `options.go` file provides options and functions to configure the calls.
package llms
