package quill

import "errors"

// Errors returned by pipeline construction and runs.
var (
	// ErrEmptyQuery is returned when a run starts without a query.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrNoStages is returned when a pipeline is built without stages.
	ErrNoStages = errors.New("pipeline requires at least one stage")

	// ErrUnknownField is returned when a stage names a field State does not carry.
	ErrUnknownField = errors.New("unknown state field")

	// ErrUnsatisfiedInput is returned when a stage requires a field no
	// earlier stage produces.
	ErrUnsatisfiedInput = errors.New("stage input is not produced by an earlier stage")

	// ErrDuplicateOutput is returned when two stages produce the same field,
	// or a stage produces the query.
	ErrDuplicateOutput = errors.New("stage output is already produced")
)
