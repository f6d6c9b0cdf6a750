package bedrock

// Option is an option for the Bedrock LLM.
type Option func(*options)

type options struct {
	modelID string
	client  ConverseAPI

	region          string
	profile         string
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
}

// WithModel allows setting a custom modelId.
//
// If not set, the default model is used,
// i.e. "us.amazon.nova-lite-v1:0".
func WithModel(modelID string) Option {
	return func(o *options) {
		o.modelID = modelID
	}
}

// WithClient allows setting a custom Converse client,
// usually a *bedrockruntime.Client.
func WithClient(client ConverseAPI) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithRegion overrides the AWS region of the default configuration.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithProfile selects a shared configuration profile.
func WithProfile(profile string) Option {
	return func(o *options) {
		o.profile = profile
	}
}

// WithCredentials uses static credentials instead of the default chain.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(o *options) {
		o.accessKeyID = accessKeyID
		o.secretAccessKey = secretAccessKey
		o.sessionToken = sessionToken
	}
}
