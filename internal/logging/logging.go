// Package logging renders quill events through alog.
package logging

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
	"go.alis.build/alog"
)

// Severity of an event line.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

// SetLevel sets the minimum alog level from a config string.
// Unknown values fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		alog.SetLevel(alog.LevelDebug)
	case "warn", "warning":
		alog.SetLevel(alog.LevelWarning)
	case "error":
		alog.SetLevel(alog.LevelError)
	default:
		alog.SetLevel(alog.LevelInfo)
	}
}

// SeverityOf maps a signal to a log severity by its lifecycle suffix.
func SeverityOf(signal capitan.Signal) Severity {
	name := signal.Name()
	switch {
	case strings.HasSuffix(name, ".failed"):
		return SeverityError
	case strings.HasSuffix(name, ".fallback"):
		return SeverityWarning
	case strings.HasSuffix(name, ".started"):
		return SeverityDebug
	default:
		return SeverityInfo
	}
}

// Sink writes one log line per event. Attach it with capitan.Observe.
func Sink(ctx context.Context, e *capitan.Event) {
	line := Format(e)
	switch SeverityOf(e.Signal()) {
	case SeverityError:
		alog.Error(ctx, line)
	case SeverityWarning:
		alog.Warn(ctx, line)
	case SeverityDebug:
		alog.Debug(ctx, line)
	default:
		alog.Info(ctx, line)
	}
}

type stringField struct {
	name string
	from func(*capitan.Event) (string, bool)
}

type intField struct {
	name string
	from func(*capitan.Event) (int, bool)
}

var stringFields = []stringField{
	{"run", quill.RunIDKey.From},
	{"request", quill.RequestIDKey.From},
	{"stage", quill.StageKey.From},
	{"phase", quill.PhaseKey.From},
	{"field", quill.FieldKey.From},
	{"searcher", quill.SearcherKey.From},
	{"provider", quill.ProviderKey.From},
	{"model", quill.ModelKey.From},
	{"source", quill.SourceKey.From},
	{"finish", quill.ResponseFinishReasonKey.From},
	{"api_error", quill.APIErrorTypeKey.From},
	{"error", quill.ErrorKey.From},
	{"error_type", quill.ErrorTypeKey.From},
}

var intFields = []intField{
	{"stages", quill.StagesKey.From},
	{"status", quill.HTTPStatusCodeKey.From},
	{"output_len", quill.OutputLenKey.From},
	{"result_len", quill.ResultLengthKey.From},
	{"tokens", quill.TotalTokensKey.From},
	{"duration_ms", quill.DurationMsKey.From},
}

// Format renders the signal followed by the identifying fields it carries.
// Prompts and responses are left out; they can be large.
func Format(e *capitan.Event) string {
	var b strings.Builder
	b.WriteString(e.Signal().Name())
	for _, f := range stringFields {
		if v, ok := f.from(e); ok && v != "" {
			fmt.Fprintf(&b, " %s=%q", f.name, v)
		}
	}
	for _, f := range intFields {
		if v, ok := f.from(e); ok {
			fmt.Fprintf(&b, " %s=%d", f.name, v)
		}
	}
	return b.String()
}
