package logging

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
)

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		signal   capitan.Signal
		expected Severity
	}{
		{quill.PipelineStarted, SeverityDebug},
		{quill.PipelineCompleted, SeverityInfo},
		{quill.PipelineFailed, SeverityError},
		{quill.StageFailed, SeverityError},
		{quill.ProviderCallFailed, SeverityError},
		{quill.ResponseFallback, SeverityWarning},
		{quill.RequestCompleted, SeverityInfo},
		{capitan.NewSignal("custom.event", "Custom event"), SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(string(tt.signal), func(t *testing.T) {
			if got := SeverityOf(tt.signal); got != tt.expected {
				t.Errorf("expected severity %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestSetLevel(_ *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "warning", "error", "", "bogus"} {
		SetLevel(level)
	}
	SetLevel("info")
}

func TestFormat(t *testing.T) {
	signal := capitan.NewSignal("logging.test.completed", "Logging test event")
	captured := make(chan string, 1)

	listener := capitan.Hook(signal, func(_ context.Context, e *capitan.Event) {
		captured <- Format(e)
	})
	defer listener.Close()

	capitan.Info(context.Background(), signal,
		quill.StageKey.Field("writer"),
		quill.ProviderKey.Field("openai"),
		quill.PromptKey.Field("a very long prompt"),
		quill.DurationMsKey.Field(42),
		quill.ErrorTypeKey.Field("timeout"),
	)

	select {
	case line := <-captured:
		if !strings.HasPrefix(line, "logging.test.completed") {
			t.Errorf("expected signal first, got %q", line)
		}
		for _, want := range []string{`stage="writer"`, `provider="openai"`, `error_type="timeout"`, "duration_ms=42"} {
			if !strings.Contains(line, want) {
				t.Errorf("expected %q in %q", want, line)
			}
		}
		if strings.Contains(line, "a very long prompt") {
			t.Errorf("prompt should not be logged: %q", line)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestSink(t *testing.T) {
	done := make(chan struct{})
	observer := capitan.Observe(func(ctx context.Context, e *capitan.Event) {
		if e.Signal() != quill.PipelineFailed {
			return
		}
		Sink(ctx, e)
		close(done)
	})
	defer observer.Close()

	capitan.Error(context.Background(), quill.PipelineFailed, quill.ErrorKey.Field("boom"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sink")
	}
}
