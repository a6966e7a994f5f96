package quill

import (
	"time"

	"github.com/zoobzio/pipz"
)

// Option modifies a generation pipeline for reliability features.
// Options never retry: a failed call fails the stage.
type Option func(pipz.Chainable[*GenerationRequest]) pipz.Chainable[*GenerationRequest]

// WithTimeout adds timeout protection to the pipeline.
// Operations exceeding this duration will be canceled.
func WithTimeout(duration time.Duration) Option {
	return func(pipeline pipz.Chainable[*GenerationRequest]) pipz.Chainable[*GenerationRequest] {
		return pipz.NewTimeout(TimeoutID, pipeline, duration)
	}
}

// WithCircuitBreaker adds circuit breaker protection to the pipeline.
// After 'failures' consecutive failures, the circuit opens for 'recovery' duration.
func WithCircuitBreaker(failures int, recovery time.Duration) Option {
	return func(pipeline pipz.Chainable[*GenerationRequest]) pipz.Chainable[*GenerationRequest] {
		return pipz.NewCircuitBreaker(CircuitBreakerID, pipeline, failures, recovery)
	}
}

// WithErrorHandler adds error handling to the pipeline.
// The handler observes the failure; the error still fails the stage.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*GenerationRequest]]) Option {
	return func(pipeline pipz.Chainable[*GenerationRequest]) pipz.Chainable[*GenerationRequest] {
		return pipz.NewHandle(ErrorHandlerID, pipeline, handler)
	}
}

// PipelineProvider is implemented by types that can provide a pipeline for composition.
type PipelineProvider interface {
	GetPipeline() pipz.Chainable[*GenerationRequest]
}

// WithFallback adds a fallback generator for resilience.
// If the primary provider fails, the fallback is called once instead.
func WithFallback(fallback PipelineProvider) Option {
	return func(pipeline pipz.Chainable[*GenerationRequest]) pipz.Chainable[*GenerationRequest] {
		return pipz.NewFallback(FallbackID, pipeline, fallback.GetPipeline())
	}
}
