package quill

// GenerationRequest flows through a generator's pipz pipeline.
// It contains the prompt, parameters, and response data.
type GenerationRequest struct {
	// Input fields
	Prompt      *Prompt // The prompt to send to the LLM
	Temperature float32 // Temperature parameter for response generation

	// Metadata fields
	RequestID    string // Unique identifier for this request
	Stage        string // Stage issuing the request
	ProviderName string // Name of the provider being used

	// Output fields (populated by pipeline)
	Text  Text       // Generated text from provider
	Usage TokenUsage // Token usage from provider response
}
