package quill

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Generator sends prompts to a provider through a pipz pipeline.
// Options wrap the terminal call, so reliability features apply per call.
type Generator struct {
	pipeline     pipz.Chainable[*GenerationRequest]
	providerName string
}

// NewGenerator creates a generator bound to a provider.
func NewGenerator(provider Provider, opts ...Option) *Generator {
	pipeline := NewTerminal(provider)
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return &Generator{
		pipeline:     pipeline,
		providerName: provider.Name(),
	}
}

// Identities of the processors a generator is built from.
var (
	TerminalID       = pipz.NewIdentity("llm-call", "Sends the rendered prompt to the provider")
	TimeoutID        = pipz.NewIdentity("timeout", "Bounds a single provider call")
	CircuitBreakerID = pipz.NewIdentity("circuit-breaker", "Stops calling a provider that keeps failing")
	ErrorHandlerID   = pipz.NewIdentity("error-handler", "Observes failed provider calls")
	FallbackID       = pipz.NewIdentity("with-fallback", "Calls the fallback generator when the primary fails")
)

// NewTerminal creates the terminal processor that calls the provider with
// the rendered prompt as a single user message.
//
// The result is written to a copy of the request. A timed out call keeps
// running in the background and must not touch the request a fallback is
// already working on.
func NewTerminal(provider Provider) pipz.Chainable[*GenerationRequest] {
	return pipz.Apply(TerminalID, func(ctx context.Context, req *GenerationRequest) (*GenerationRequest, error) {
		messages := []Message{{
			Role:    RoleUser,
			Content: req.Prompt.Render(),
		}}

		resp, err := provider.Call(ctx, messages, req.Temperature)
		if err != nil {
			return req, err
		}
		out := *req
		out.Text = resp.Text
		out.Usage = resp.Usage
		return &out, nil
	})
}

// GetPipeline returns the internal pipeline for composition.
// This is used by WithFallback to combine pipelines.
func (g *Generator) GetPipeline() pipz.Chainable[*GenerationRequest] {
	return g.pipeline
}

// ProviderName returns the name of the primary provider.
func (g *Generator) ProviderName() string {
	return g.providerName
}

// Generate runs a prompt through the pipeline and returns the processed
// request. Provider errors are returned unmodified.
//
// A response without extractable text is not an error: the request carries a
// RawFallback Text and a ResponseFallback hook is emitted.
func (g *Generator) Generate(ctx context.Context, stage string, prompt *Prompt, temperature float32) (*GenerationRequest, error) {
	requestID := uuid.New().String()
	rendered := prompt.Render()

	request := &GenerationRequest{
		Prompt:       prompt,
		Temperature:  temperature,
		RequestID:    requestID,
		Stage:        stage,
		ProviderName: g.providerName,
	}

	capitan.Info(ctx, RequestStarted,
		RequestIDKey.Field(requestID),
		StageKey.Field(stage),
		ProviderKey.Field(g.providerName),
		PromptKey.Field(rendered),
		TemperatureKey.Field(float64(temperature)),
	)

	processed, err := g.pipeline.Process(ctx, request)
	if err != nil {
		errType := errorType(err)
		err = unwrapPipzError[*GenerationRequest](err)
		capitan.Error(ctx, RequestFailed,
			RequestIDKey.Field(requestID),
			StageKey.Field(stage),
			ProviderKey.Field(g.providerName),
			ErrorKey.Field(err.Error()),
			ErrorTypeKey.Field(errType),
		)
		return nil, err
	}

	if processed.Text.IsFallback() {
		capitan.Info(ctx, ResponseFallback,
			RequestIDKey.Field(requestID),
			StageKey.Field(stage),
			ProviderKey.Field(g.providerName),
			ResponseKey.Field(processed.Text.String()),
		)
	}

	capitan.Info(ctx, RequestCompleted,
		RequestIDKey.Field(requestID),
		StageKey.Field(stage),
		ProviderKey.Field(g.providerName),
		ResponseKey.Field(processed.Text.String()),
		SourceKey.Field(processed.Text.Source().String()),
		TotalTokensKey.Field(processed.Usage.Total),
	)

	return processed, nil
}

// Error types reported on RequestFailed.
const (
	ErrorTypeTimeout  = "timeout"
	ErrorTypeCanceled = "canceled"
	ErrorTypeProvider = "provider"
)

// errorType classifies a failed generation for the RequestFailed hook.
func errorType(err error) string {
	var perr *pipz.Error[*GenerationRequest]
	if errors.As(err, &perr) {
		if perr.Timeout {
			return ErrorTypeTimeout
		}
		if perr.Canceled {
			return ErrorTypeCanceled
		}
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	default:
		return ErrorTypeProvider
	}
}

// unwrapPipzError returns the error a processor raised, stripped of the
// pipz path wrapper.
func unwrapPipzError[T any](err error) error {
	var perr *pipz.Error[T]
	for errors.As(err, &perr) && perr.Err != nil {
		err = perr.Err
	}
	return err
}
