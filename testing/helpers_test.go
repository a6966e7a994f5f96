package testing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/quill"
)

func userMessage(content string) []quill.Message {
	return []quill.Message{{Role: quill.RoleUser, Content: content}}
}

func TestHashingProvider_Deterministic(t *testing.T) {
	provider := NewHashingProvider()
	ctx := context.Background()

	first, err := provider.Call(ctx, userMessage("prompt"), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.Call(ctx, userMessage("prompt"), 0.4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.Text.String() != second.Text.String() {
		t.Errorf("expected identical output for identical prompt, got %q and %q", first.Text, second.Text)
	}
	if !strings.HasPrefix(first.Text.String(), "SUM:") {
		t.Errorf("expected SUM: prefix, got %q", first.Text)
	}
	if first.Text.String() != Summarize("prompt") {
		t.Errorf("expected %q, got %q", Summarize("prompt"), first.Text)
	}
	if provider.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", provider.CallCount())
	}
}

func TestPromptHash_Distinct(t *testing.T) {
	if PromptHash("a") == PromptHash("b") {
		t.Error("expected different hashes for different prompts")
	}
	if len(PromptHash("a")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(PromptHash("a")))
	}
}

func TestSequencedProvider_ReturnsInOrder(t *testing.T) {
	provider := NewSequencedProvider("first", "second", "third")
	ctx := context.Background()

	for _, expected := range []string{"first", "second", "third"} {
		resp, err := provider.Call(ctx, nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text.String() != expected {
			t.Errorf("expected %q, got %q", expected, resp.Text)
		}
	}

	if provider.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", provider.CallCount())
	}
}

func TestSequencedProvider_ClampsToLast(t *testing.T) {
	provider := NewSequencedProvider("only")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := provider.Call(ctx, nil, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Text.String() != "only" {
			t.Errorf("call %d: expected 'only', got %q", i, resp.Text)
		}
	}

	provider.Reset()
	if provider.CallCount() != 0 {
		t.Errorf("expected 0 calls after reset, got %d", provider.CallCount())
	}
}

func TestFailingProvider_FailsAfterSuccesses(t *testing.T) {
	provider := NewFailingProvider(1).WithSuccessResponse("fine").WithFailError("writer down")
	ctx := context.Background()

	resp, err := provider.Call(ctx, nil, 0)
	if err != nil {
		t.Fatalf("first call should succeed: %v", err)
	}
	if resp.Text.String() != "fine" {
		t.Errorf("expected 'fine', got %q", resp.Text)
	}

	_, err = provider.Call(ctx, nil, 0)
	if err == nil || !strings.Contains(err.Error(), "writer down") {
		t.Errorf("expected writer down error, got %v", err)
	}
	if provider.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", provider.CallCount())
	}
}

func TestCallRecorder_RecordsCalls(t *testing.T) {
	journal := NewJournal()
	recorder := NewCallRecorder(NewSequencedProvider("x")).WithJournal(journal)
	ctx := context.Background()

	if recorder.LastCall() != nil {
		t.Error("expected nil last call before any calls")
	}

	if _, err := recorder.Call(ctx, userMessage("one"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := recorder.Call(ctx, userMessage("two"), 0.4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if recorder.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", recorder.CallCount())
	}
	last := recorder.LastCall()
	if last.Prompt() != "two" || last.Temperature != 0.4 {
		t.Errorf("unexpected last call: %+v", last)
	}
	if recorder.Name() != SequencedProviderName {
		t.Errorf("expected wrapped name, got %s", recorder.Name())
	}
	if journal.Len() != 2 {
		t.Errorf("expected 2 journal entries, got %d", journal.Len())
	}

	recorder.Reset()
	if recorder.CallCount() != 0 {
		t.Error("expected no calls after reset")
	}
}

func TestLatencyProvider_RespectsCancellation(t *testing.T) {
	provider := NewLatencyProvider(NewSequencedProvider("slow"), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := provider.Call(ctx, nil, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLatencyProvider_Delays(t *testing.T) {
	provider := NewLatencyProvider(NewSequencedProvider("slow"), 20*time.Millisecond)

	start := time.Now()
	resp, err := provider.Call(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("expected call to be delayed")
	}
	if resp.Text.String() != "slow" {
		t.Errorf("expected 'slow', got %q", resp.Text)
	}
}

func TestStaticSearcher(t *testing.T) {
	journal := NewJournal()
	searcher := NewStaticSearcher("plants use sunlight").WithJournal(journal)

	got, err := searcher.Search(context.Background(), "Explain photosynthesis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "plants use sunlight" {
		t.Errorf("unexpected results %q", got)
	}
	if searcher.CallCount() != 1 || searcher.Queries()[0] != "Explain photosynthesis" {
		t.Errorf("unexpected queries %v", searcher.Queries())
	}
	if kinds := journal.Kinds(); len(kinds) != 1 || kinds[0] != "search" {
		t.Errorf("unexpected journal %v", kinds)
	}
}

func TestFailingSearcher(t *testing.T) {
	boom := errors.New("search down")
	searcher := NewFailingSearcher(boom)

	_, err := searcher.Search(context.Background(), "q")
	if !errors.Is(err, boom) {
		t.Errorf("expected configured error, got %v", err)
	}
	if searcher.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", searcher.CallCount())
	}
}

func TestJournal_ConcurrentRecord(t *testing.T) {
	journal := NewJournal()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			journal.Record("generate", "p")
		}()
	}
	wg.Wait()

	if journal.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", journal.Len())
	}
}

func TestUsageAccumulator_FromState(t *testing.T) {
	pipeline, err := quill.NewArticlePipeline(NewStaticSearcher("r"), NewSequencedProvider("a", "b", "c"))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	state, err := pipeline.Run(context.Background(), "topic")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	acc := NewUsageAccumulator()
	acc.Add(state)

	if acc.CallCount() != 3 {
		t.Errorf("expected 3 calls, got %d", acc.CallCount())
	}
	if acc.TotalTokens() != 450 {
		t.Errorf("expected 450 total tokens, got %d", acc.TotalTokens())
	}
	if acc.PromptTokens() != 300 || acc.CompletionTokens() != 150 {
		t.Errorf("unexpected split %d/%d", acc.PromptTokens(), acc.CompletionTokens())
	}

	acc.Reset()
	if acc.TotalTokens() != 0 || acc.CallCount() != 0 {
		t.Error("expected zero after reset")
	}
}
