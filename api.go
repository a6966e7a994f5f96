// Package quill chains language-model calls into a research, write and
// critique pipeline that turns a topic into a reviewed article.
//
// A run threads a single State value through an ordered list of stages.
// Each stage reads one field, builds a prompt, calls a Provider and
// produces exactly one new field:
//
//   - Researcher: query -> research_summary (search + summarize)
//   - Writer: research_summary -> draft_article
//   - Critic: draft_article -> reviewed_article
//
// Stages declare what they require and produce, and NewPipeline checks the
// declarations before anything runs. Generation results are a two-variant
// Text so a provider response without extractable text degrades to a raw
// rendering instead of failing the run.
//
// All stages support composable per-call options (timeout, circuit breaker,
// fallback provider) and emit capitan hooks for monitoring and debugging.
//
// Basic usage:
//
//	provider := openai.New(openai.Config{APIKey: apiKey, Model: "gpt-4o-mini"})
//	searcher := duckduckgo.New(duckduckgo.Config{})
//	pipeline, _ := quill.NewArticlePipeline(searcher, provider)
//	state, _ := pipeline.Run(ctx, "Explain photosynthesis")
//	article, _ := state.Get(quill.FieldReviewedArticle)
package quill

import "context"

// Provider defines the interface for LLM providers.
// Providers accept conversation messages and return responses with usage stats.
type Provider interface {
	// Call sends messages to the LLM and returns the response with usage stats.
	// Messages should be in chronological order (oldest first).
	Call(ctx context.Context, messages []Message, temperature float32) (*ProviderResponse, error)

	// Name returns the provider identifier (e.g., "openai", "anthropic")
	Name() string
}

// Searcher defines the interface for search backends.
// Search returns unstructured result text for a literal query string.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)

	// Name returns the searcher identifier (e.g., "duckduckgo")
	Name() string
}

// TokenUsage contains token counts from a provider response.
type TokenUsage struct {
	Prompt     int // Tokens used by the prompt/messages
	Completion int // Tokens used by the completion/response
	Total      int // Total tokens used
}

// ProviderResponse contains the response from an LLM provider.
type ProviderResponse struct {
	Text  Text       // Extracted text, or a raw rendering when none was present
	Usage TokenUsage // Token usage statistics
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string // RoleUser, RoleAssistant, or RoleSystem
	Content string // The message content
}

// Role constants for message types.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
