package quill

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider simulates LLM behavior for testing.
// It returns deterministic responses based on the stage instruction found in
// the prompt.
type MockProvider struct {
	name      string
	available bool
	mu        sync.RWMutex
}

// NewMockProvider creates a new mock provider for testing.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithName("mock")
}

// NewMockProviderWithName creates a new mock provider with a specific name.
func NewMockProviderWithName(name string) *MockProvider {
	return &MockProvider{
		name:      name,
		available: true,
	}
}

// Call simulates an LLM call with deterministic responses.
func (m *MockProvider) Call(_ context.Context, messages []Message, _ float32) (*ProviderResponse, error) {
	m.mu.RLock()
	available := m.available
	m.mu.RUnlock()
	if !available {
		return nil, fmt.Errorf("provider %s is unavailable", m.name)
	}

	prompt := lastUserContent(messages)
	return &ProviderResponse{
		Text:  ExtractedText(m.generateResponse(prompt)),
		Usage: TokenUsage{Prompt: len(prompt), Completion: 10, Total: len(prompt) + 10},
	}, nil
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	return m.name
}

// SetAvailable sets the availability status (for testing failures).
func (m *MockProvider) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// generateResponse creates a response based on prompt patterns.
func (*MockProvider) generateResponse(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, ResearchInstruction):
		return "Mock summary"
	case strings.HasPrefix(prompt, WriterInstruction):
		return "# Mock Article\n\nMock body."
	case strings.HasPrefix(prompt, CriticInstruction):
		return "Feedback:\nMock feedback.\n\nImproved Article:\n# Mock Article\n\nMock body, improved."
	default:
		return "Mock response"
	}
}

// lastUserContent returns the content of the last user message.
func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// NewMockProviderWithResponse creates a mock that always returns a specific response.
func NewMockProviderWithResponse(response string) Provider {
	return &mockProviderFixed{text: ExtractedText(response)}
}

// NewMockProviderWithFallback creates a mock whose responses never carry
// extractable text; raw is returned as a RawFallback.
func NewMockProviderWithFallback(raw string) Provider {
	return &mockProviderFixed{text: RawFallback(raw)}
}

// NewMockProviderWithCallback creates a mock that calls a function to generate responses.
func NewMockProviderWithCallback(callback func(prompt string, temperature float32) (string, error)) Provider {
	return &mockProviderCallback{callback: callback}
}

// NewMockProviderWithError creates a mock that always fails with err.
func NewMockProviderWithError(err error) Provider {
	return &mockProviderCallback{callback: func(string, float32) (string, error) {
		return "", err
	}}
}

// mockProviderFixed always returns a fixed response.
type mockProviderFixed struct {
	text Text
}

func (m *mockProviderFixed) Call(_ context.Context, _ []Message, _ float32) (*ProviderResponse, error) {
	return &ProviderResponse{Text: m.text}, nil
}

func (*mockProviderFixed) Name() string {
	return "mock-fixed"
}

// mockProviderCallback uses a callback to generate responses.
type mockProviderCallback struct {
	callback func(string, float32) (string, error)
}

func (m *mockProviderCallback) Call(_ context.Context, messages []Message, temperature float32) (*ProviderResponse, error) {
	response, err := m.callback(lastUserContent(messages), temperature)
	if err != nil {
		return nil, err
	}
	return &ProviderResponse{Text: ExtractedText(response)}, nil
}

func (*mockProviderCallback) Name() string {
	return "mock-callback"
}

// MockSearcher returns fixed results and counts calls.
type MockSearcher struct {
	results string
	err     error
	mu      sync.Mutex
	queries []string
}

// NewMockSearcher creates a searcher that always returns results.
func NewMockSearcher(results string) *MockSearcher {
	return &MockSearcher{results: results}
}

// NewMockSearcherWithError creates a searcher that always fails with err.
func NewMockSearcherWithError(err error) *MockSearcher {
	return &MockSearcher{err: err}
}

// Search records the query and returns the configured result.
func (m *MockSearcher) Search(_ context.Context, query string) (string, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.results, nil
}

// Name returns the searcher identifier.
func (*MockSearcher) Name() string {
	return "mock-search"
}

// Queries returns the queries received so far.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	queries := make([]string, len(m.queries))
	copy(queries, m.queries)
	return queries
}
