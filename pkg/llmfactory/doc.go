// Package llmfactory creates LLM models from provider configuration,
// supporting Bedrock, Anthropic, Gemini and OpenAI compatible providers,
// and resolves the model an assistant should use.
package llmfactory
