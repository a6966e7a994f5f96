package quill

import "github.com/zoobzio/capitan"

// Signals for hook events.
var (
	PipelineStarted       = capitan.NewSignal("pipeline.run.started", "Pipeline run accepted a query")
	PipelineCompleted     = capitan.NewSignal("pipeline.run.completed", "Pipeline run produced a reviewed article")
	PipelineFailed        = capitan.NewSignal("pipeline.run.failed", "Pipeline run stopped on a stage error")
	StageStarted          = capitan.NewSignal("pipeline.stage.started", "Stage began running")
	StageCompleted        = capitan.NewSignal("pipeline.stage.completed", "Stage produced its output field")
	StageFailed           = capitan.NewSignal("pipeline.stage.failed", "Stage returned an error")
	SearchCallStarted     = capitan.NewSignal("search.call.started", "Search backend called")
	SearchCallCompleted   = capitan.NewSignal("search.call.completed", "Search backend returned results")
	SearchCallFailed      = capitan.NewSignal("search.call.failed", "Search backend returned an error")
	RequestStarted        = capitan.NewSignal("llm.request.started", "Generation request sent to the pipeline")
	RequestCompleted      = capitan.NewSignal("llm.request.completed", "Generation request returned text")
	RequestFailed         = capitan.NewSignal("llm.request.failed", "Generation request failed")
	ProviderCallStarted   = capitan.NewSignal("llm.provider.call.started", "Provider HTTP call started")
	ProviderCallCompleted = capitan.NewSignal("llm.provider.call.completed", "Provider HTTP call succeeded")
	ProviderCallFailed    = capitan.NewSignal("llm.provider.call.failed", "Provider HTTP call failed")
	ResponseFallback      = capitan.NewSignal("llm.response.fallback", "Provider response had no extractable text")
)

// Keys for hook event fields.
var (
	// Run identification.
	RunIDKey     = capitan.NewStringKey("pipeline.run.id")
	QueryKey     = capitan.NewStringKey("pipeline.query")
	StageKey     = capitan.NewStringKey("pipeline.stage")
	FieldKey     = capitan.NewStringKey("pipeline.field")
	PhaseKey     = capitan.NewStringKey("pipeline.phase")
	StagesKey    = capitan.NewIntKey("pipeline.stages")
	OutputLenKey = capitan.NewIntKey("pipeline.output.length")

	// Request identification.
	RequestIDKey   = capitan.NewStringKey("llm.request.id")
	TemperatureKey = capitan.NewFloat64Key("llm.temperature")

	// Input/Output data.
	PromptKey   = capitan.NewStringKey("llm.prompt")
	ResponseKey = capitan.NewStringKey("llm.response")
	SourceKey   = capitan.NewStringKey("llm.response.source")

	// Search data.
	SearcherKey     = capitan.NewStringKey("search.backend")
	ResultLengthKey = capitan.NewIntKey("search.result.length")

	// Error information.
	ErrorKey     = capitan.NewStringKey("llm.error")
	ErrorTypeKey = capitan.NewStringKey("llm.error.type")

	// Provider information.
	ProviderKey = capitan.NewStringKey("llm.provider")
	ModelKey    = capitan.NewStringKey("llm.model")

	// Provider metrics.
	PromptTokensKey     = capitan.NewIntKey("llm.tokens.prompt")
	CompletionTokensKey = capitan.NewIntKey("llm.tokens.completion")
	TotalTokensKey      = capitan.NewIntKey("llm.tokens.total")
	DurationMsKey       = capitan.NewIntKey("llm.duration.ms")

	// HTTP/API metadata.
	HTTPStatusCodeKey = capitan.NewIntKey("llm.http.status.code")
	APIErrorTypeKey   = capitan.NewStringKey("llm.api.error.type")
	APIErrorCodeKey   = capitan.NewStringKey("llm.api.error.code")

	// Response metadata.
	ResponseIDKey           = capitan.NewStringKey("llm.response.id")
	ResponseFinishReasonKey = capitan.NewStringKey("llm.response.finish.reason")
	ResponseCreatedKey      = capitan.NewIntKey("llm.response.created")
)
