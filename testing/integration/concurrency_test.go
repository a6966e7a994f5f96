package integration

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/quill"
	quillt "github.com/zoobzio/quill/testing"
)

func TestConcurrency_IndependentRuns(t *testing.T) {
	// One pipeline, many concurrent runs with distinct queries
	pipeline, err := quill.NewArticlePipeline(quillt.NewStaticSearcher("shared results"), quillt.NewHashingProvider())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	var errorCount atomic.Int64

	goroutines := 50
	results := make([]quill.Record, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			state, err := pipeline.Run(ctx, fmt.Sprintf("topic %d", i))
			if err != nil {
				errorCount.Add(1)
				return
			}
			results[i] = state.Record()
		}(i)
	}

	wg.Wait()

	if errorCount.Load() != 0 {
		t.Fatalf("expected no errors, got %d", errorCount.Load())
	}
	for i, record := range results {
		if record.Query != fmt.Sprintf("topic %d", i) {
			t.Errorf("run %d: state leaked between runs, query %q", i, record.Query)
		}
		if record.ReviewedArticle == "" {
			t.Errorf("run %d: missing reviewed article", i)
		}
	}
}

func TestConcurrency_SameQuerySameOutput(t *testing.T) {
	pipeline, err := quill.NewArticlePipeline(quillt.NewStaticSearcher("plants use sunlight"), quillt.NewHashingProvider())
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx := context.Background()
	reference, err := pipeline.Run(ctx, "Explain photosynthesis")
	if err != nil {
		t.Fatalf("reference run failed: %v", err)
	}

	var wg sync.WaitGroup
	var mismatches atomic.Int64
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := pipeline.Run(ctx, "Explain photosynthesis")
			if err != nil || state.Record() != reference.Record() {
				mismatches.Add(1)
			}
		}()
	}
	wg.Wait()

	if mismatches.Load() != 0 {
		t.Errorf("expected identical output for every run, got %d mismatches", mismatches.Load())
	}
}

func TestConcurrency_TimeoutPerCall(t *testing.T) {
	provider := quillt.NewLatencyProvider(quillt.NewHashingProvider(), 200*time.Millisecond)
	pipeline, err := quill.NewArticlePipeline(quillt.NewStaticSearcher("r"), provider, quill.WithTimeout(20*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pipeline.Run(context.Background(), "topic"); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if failures.Load() != 10 {
		t.Errorf("expected every run to time out, got %d failures", failures.Load())
	}
}

func TestConcurrency_CancelledContext(t *testing.T) {
	provider := quillt.NewLatencyProvider(quillt.NewHashingProvider(), time.Second)
	pipeline, err := quill.NewArticlePipeline(quillt.NewStaticSearcher("r"), provider)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, err := pipeline.Run(ctx, "topic"); err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("run did not stop promptly after cancellation")
	}
}
