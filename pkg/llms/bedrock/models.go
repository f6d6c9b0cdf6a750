package bedrock

// Model IDs of the cross-region inference profiles used by the benchmark.
const (
	ModelAnthropicClaude37Sonnet = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
	ModelAnthropicClaude35Haiku  = "us.anthropic.claude-3-5-haiku-20241022-v1:0"
	ModelAmazonNovaLite          = "us.amazon.nova-lite-v1:0"
	ModelAmazonNovaMicro         = "us.amazon.nova-micro-v1:0"
	ModelAmazonNovaPro           = "us.amazon.nova-pro-v1:0"
	ModelMetaLlama33_70B         = "us.meta.llama3-3-70b-instruct-v1:0"
)

// DefaultModel is used when no model is configured.
const DefaultModel = defaultModel
