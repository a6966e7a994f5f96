// Package testing provides utilities for testing quill pipelines.
package testing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/quill"
)

// Provider name constants for test helpers.
const (
	SequencedProviderName = "sequenced-mock"
	FailingProviderName   = "failing-mock"
	HashingProviderName   = "hashing-mock"
	StaticSearcherName    = "static-search"
	FailingSearcherName   = "failing-search"
)

// PromptHash returns the hex sha256 digest of a rendered prompt.
func PromptHash(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// Summarize returns the text a HashingProvider answers for prompt.
func Summarize(prompt string) string {
	return "SUM:" + PromptHash(prompt)
}

// HashingProvider answers every prompt with "SUM:" and the prompt's hash,
// so each output is a deterministic function of its exact input.
type HashingProvider struct {
	calls atomic.Int64
}

// NewHashingProvider creates a deterministic hashing provider.
func NewHashingProvider() *HashingProvider {
	return &HashingProvider{}
}

// Call hashes the last user message.
func (p *HashingProvider) Call(_ context.Context, messages []quill.Message, _ float32) (*quill.ProviderResponse, error) {
	p.calls.Add(1)
	prompt := lastUserContent(messages)
	return &quill.ProviderResponse{
		Text: quill.ExtractedText(Summarize(prompt)),
		Usage: quill.TokenUsage{
			Prompt:     len(prompt),
			Completion: 68,
			Total:      len(prompt) + 68,
		},
	}, nil
}

// Name returns the provider identifier.
func (*HashingProvider) Name() string {
	return HashingProviderName
}

// CallCount returns the number of calls made.
func (p *HashingProvider) CallCount() int {
	return int(p.calls.Load())
}

// SequencedProvider returns responses in sequence.
// After all responses are exhausted, it returns the last response repeatedly.
type SequencedProvider struct {
	responses []string
	index     atomic.Int64
	mu        sync.Mutex
}

// NewSequencedProvider creates a provider that returns responses in order.
func NewSequencedProvider(responses ...string) *SequencedProvider {
	if len(responses) == 0 {
		responses = []string{"no responses configured"}
	}
	return &SequencedProvider{
		responses: responses,
	}
}

// Call returns the next response in sequence.
func (p *SequencedProvider) Call(_ context.Context, _ []quill.Message, _ float32) (*quill.ProviderResponse, error) {
	idx := p.index.Add(1) - 1
	p.mu.Lock()
	defer p.mu.Unlock()

	// Clamp to last response if exhausted
	if int(idx) >= len(p.responses) {
		idx = int64(len(p.responses) - 1)
	}

	return &quill.ProviderResponse{
		Text: quill.ExtractedText(p.responses[idx]),
		Usage: quill.TokenUsage{
			Prompt:     100,
			Completion: 50,
			Total:      150,
		},
	}, nil
}

// Name returns the provider identifier.
func (*SequencedProvider) Name() string {
	return SequencedProviderName
}

// CallCount returns the number of calls made.
func (p *SequencedProvider) CallCount() int {
	return int(p.index.Load())
}

// Reset resets the call counter.
func (p *SequencedProvider) Reset() {
	p.index.Store(0)
}

// FailingProvider succeeds a number of times and then fails every call.
// It models a provider that breaks partway through a run.
type FailingProvider struct {
	successCount int
	currentCount atomic.Int64
	successResp  string
	failError    string
}

// NewFailingProvider creates a provider that answers successCount calls,
// then fails.
func NewFailingProvider(successCount int) *FailingProvider {
	return &FailingProvider{
		successCount: successCount,
		successResp:  "ok",
		failError:    "simulated provider failure",
	}
}

// WithSuccessResponse sets the response returned before failures start.
func (p *FailingProvider) WithSuccessResponse(response string) *FailingProvider {
	p.successResp = response
	return p
}

// WithFailError sets the error message for failures.
func (p *FailingProvider) WithFailError(errMsg string) *FailingProvider {
	p.failError = errMsg
	return p
}

// Call succeeds until successCount is reached, then fails.
func (p *FailingProvider) Call(_ context.Context, _ []quill.Message, _ float32) (*quill.ProviderResponse, error) {
	count := p.currentCount.Add(1)
	if int(count) > p.successCount {
		return nil, fmt.Errorf("%s (call %d)", p.failError, count)
	}

	return &quill.ProviderResponse{
		Text: quill.ExtractedText(p.successResp),
		Usage: quill.TokenUsage{
			Prompt:     100,
			Completion: 50,
			Total:      150,
		},
	}, nil
}

// Name returns the provider identifier.
func (*FailingProvider) Name() string {
	return FailingProviderName
}

// CallCount returns the number of calls made.
func (p *FailingProvider) CallCount() int {
	return int(p.currentCount.Load())
}

// Reset resets the call counter.
func (p *FailingProvider) Reset() {
	p.currentCount.Store(0)
}

// RecordedCall represents a single call to a provider.
type RecordedCall struct {
	Messages    []quill.Message
	Temperature float32
}

// Prompt returns the last user message of the call.
func (c RecordedCall) Prompt() string {
	return lastUserContent(c.Messages)
}

// CallRecorder wraps a provider and records all calls made to it.
type CallRecorder struct {
	provider quill.Provider
	journal  *Journal
	calls    []RecordedCall
	mu       sync.Mutex
}

// NewCallRecorder wraps a provider with call recording.
func NewCallRecorder(provider quill.Provider) *CallRecorder {
	return &CallRecorder{
		provider: provider,
		calls:    make([]RecordedCall, 0),
	}
}

// WithJournal records every call into j as well.
func (r *CallRecorder) WithJournal(j *Journal) *CallRecorder {
	r.journal = j
	return r
}

// Call delegates to the wrapped provider and records the call.
func (r *CallRecorder) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	// Record the call (copy messages to avoid aliasing)
	msgCopy := make([]quill.Message, len(messages))
	copy(msgCopy, messages)

	r.mu.Lock()
	r.calls = append(r.calls, RecordedCall{
		Messages:    msgCopy,
		Temperature: temperature,
	})
	r.mu.Unlock()

	if r.journal != nil {
		r.journal.Record("generate", lastUserContent(messages))
	}

	return r.provider.Call(ctx, messages, temperature)
}

// Name returns the wrapped provider's name.
func (r *CallRecorder) Name() string {
	return r.provider.Name()
}

// Calls returns a copy of all recorded calls.
func (r *CallRecorder) Calls() []RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]RecordedCall, len(r.calls))
	copy(calls, r.calls)
	return calls
}

// CallCount returns the number of calls recorded.
func (r *CallRecorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// LastCall returns the most recent call, or nil if no calls made.
func (r *CallRecorder) LastCall() *RecordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.calls) == 0 {
		return nil
	}
	call := r.calls[len(r.calls)-1]
	return &call
}

// Reset clears all recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make([]RecordedCall, 0)
}

// LatencyProvider wraps a provider and adds artificial latency.
type LatencyProvider struct {
	provider quill.Provider
	delay    time.Duration
}

// NewLatencyProvider wraps a provider with artificial delay.
// The delay is applied before each provider call and respects context cancellation.
func NewLatencyProvider(provider quill.Provider, delay time.Duration) *LatencyProvider {
	return &LatencyProvider{
		provider: provider,
		delay:    delay,
	}
}

// Call adds latency then delegates to the wrapped provider.
// Respects context cancellation during the delay period.
func (p *LatencyProvider) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
			// Delay completed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.provider.Call(ctx, messages, temperature)
}

// Name returns the wrapped provider's name.
func (p *LatencyProvider) Name() string {
	return p.provider.Name()
}

// StaticSearcher returns the same results for every query.
type StaticSearcher struct {
	results string
	journal *Journal
	mu      sync.Mutex
	queries []string
}

// NewStaticSearcher creates a searcher returning results.
func NewStaticSearcher(results string) *StaticSearcher {
	return &StaticSearcher{results: results}
}

// WithJournal records every search into j as well.
func (s *StaticSearcher) WithJournal(j *Journal) *StaticSearcher {
	s.journal = j
	return s
}

// Search records the query and returns the configured results.
func (s *StaticSearcher) Search(_ context.Context, query string) (string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.journal != nil {
		s.journal.Record("search", query)
	}
	return s.results, nil
}

// Name returns the searcher identifier.
func (*StaticSearcher) Name() string {
	return StaticSearcherName
}

// CallCount returns the number of searches made.
func (s *StaticSearcher) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

// Queries returns a copy of the queries received.
func (s *StaticSearcher) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	queries := make([]string, len(s.queries))
	copy(queries, s.queries)
	return queries
}

// FailingSearcher fails every search.
type FailingSearcher struct {
	err   error
	calls atomic.Int64
}

// NewFailingSearcher creates a searcher that always returns err.
func NewFailingSearcher(err error) *FailingSearcher {
	return &FailingSearcher{err: err}
}

// Search returns the configured error.
func (s *FailingSearcher) Search(_ context.Context, _ string) (string, error) {
	s.calls.Add(1)
	return "", s.err
}

// Name returns the searcher identifier.
func (*FailingSearcher) Name() string {
	return FailingSearcherName
}

// CallCount returns the number of searches made.
func (s *FailingSearcher) CallCount() int {
	return int(s.calls.Load())
}

// Entry is one collaborator call recorded by a Journal.
type Entry struct {
	Kind  string
	Input string
}

// Journal records calls across collaborators in the order they happen.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an entry.
func (j *Journal) Record(kind, input string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{Kind: kind, Input: input})
}

// Entries returns a copy of the recorded entries.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries := make([]Entry, len(j.entries))
	copy(entries, j.entries)
	return entries
}

// Kinds returns the kinds of the recorded entries in order.
func (j *Journal) Kinds() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	kinds := make([]string, len(j.entries))
	for i, e := range j.entries {
		kinds[i] = e.Kind
	}
	return kinds
}

// Len returns the number of recorded entries.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// UsageAccumulator tracks total token usage across multiple runs.
type UsageAccumulator struct {
	promptTokens     atomic.Int64
	completionTokens atomic.Int64
	totalTokens      atomic.Int64
	callCount        atomic.Int64
}

// NewUsageAccumulator creates a new usage accumulator.
func NewUsageAccumulator() *UsageAccumulator {
	return &UsageAccumulator{}
}

// Add accumulates every exchange of a run's final state.
func (a *UsageAccumulator) Add(state quill.State) {
	for _, exchange := range state.Exchanges() {
		usage := exchange.Usage
		a.AddUsage(&usage)
	}
}

// AddUsage accumulates usage directly.
func (a *UsageAccumulator) AddUsage(usage *quill.TokenUsage) {
	if usage != nil {
		a.promptTokens.Add(int64(usage.Prompt))
		a.completionTokens.Add(int64(usage.Completion))
		a.totalTokens.Add(int64(usage.Total))
		a.callCount.Add(1)
	}
}

// PromptTokens returns total prompt tokens.
func (a *UsageAccumulator) PromptTokens() int {
	return int(a.promptTokens.Load())
}

// CompletionTokens returns total completion tokens.
func (a *UsageAccumulator) CompletionTokens() int {
	return int(a.completionTokens.Load())
}

// TotalTokens returns total tokens.
func (a *UsageAccumulator) TotalTokens() int {
	return int(a.totalTokens.Load())
}

// CallCount returns number of calls accumulated.
func (a *UsageAccumulator) CallCount() int {
	return int(a.callCount.Load())
}

// Reset clears all accumulated values.
func (a *UsageAccumulator) Reset() {
	a.promptTokens.Store(0)
	a.completionTokens.Store(0)
	a.totalTokens.Store(0)
	a.callCount.Store(0)
}

func lastUserContent(messages []quill.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == quill.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
