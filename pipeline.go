package quill

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// PipelineID identifies the stage sequence.
var PipelineID = pipz.NewIdentity("article-pipeline", "Runs the stages in order against one State")

// Pipeline runs stages in a fixed order against a single State.
//
// A Pipeline is immutable after construction and safe for concurrent use;
// every run works on its own State.
type Pipeline struct {
	stages   []*Stage
	sequence pipz.Chainable[State]
}

// NewPipeline validates the stage declarations and builds the run sequence.
//
// Every stage must name known fields, require either the query or a field
// produced by an earlier stage, and produce a field nothing else produces.
func NewPipeline(stages ...*Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, ErrNoStages
	}

	available := map[Field]bool{FieldQuery: true}
	processors := make([]pipz.Chainable[State], 0, len(stages))
	for i, stage := range stages {
		if !stage.Requires().IsKnown() {
			return nil, fmt.Errorf("stage %d (%s) requires %q: %w", i, stage.Name(), stage.Requires(), ErrUnknownField)
		}
		if !stage.Produces().IsKnown() {
			return nil, fmt.Errorf("stage %d (%s) produces %q: %w", i, stage.Name(), stage.Produces(), ErrUnknownField)
		}
		if !available[stage.Requires()] {
			return nil, fmt.Errorf("stage %d (%s) requires %q: %w", i, stage.Name(), stage.Requires(), ErrUnsatisfiedInput)
		}
		if available[stage.Produces()] {
			return nil, fmt.Errorf("stage %d (%s) produces %q: %w", i, stage.Name(), stage.Produces(), ErrDuplicateOutput)
		}
		available[stage.Produces()] = true
		processors = append(processors, pipz.Apply(pipz.NewIdentity(stage.Name(), fmt.Sprintf("Produces %s from %s", stage.Produces(), stage.Requires())), stage.Run))
	}

	return &Pipeline{
		stages:   stages,
		sequence: pipz.NewSequence(PipelineID, processors...),
	}, nil
}

// NewArticlePipeline builds the research, writer and critic pipeline.
// The options apply to every stage's generation call.
func NewArticlePipeline(searcher Searcher, provider Provider, opts ...Option) (*Pipeline, error) {
	return NewPipeline(
		Researcher(searcher, provider, opts...),
		Writer(provider, opts...),
		Critic(provider, opts...),
	)
}

// Stages returns the stages in run order.
func (p *Pipeline) Stages() []*Stage {
	stages := make([]*Stage, len(p.stages))
	copy(stages, p.stages)
	return stages
}

// GetPipeline returns the underlying pipz sequence for composition.
func (p *Pipeline) GetPipeline() pipz.Chainable[State] {
	return p.sequence
}

// Run starts a run from a query and returns the final state.
func (p *Pipeline) Run(ctx context.Context, query string) (State, error) {
	return p.Invoke(ctx, NewState(query))
}

// Invoke runs every stage in order, each receiving its predecessor's
// output. The first stage error ends the run and is returned unmodified;
// no partial state is returned with it.
func (p *Pipeline) Invoke(ctx context.Context, state State) (State, error) {
	if state.Query() == "" {
		return State{}, ErrEmptyQuery
	}

	runID := uuid.New().String()
	start := time.Now()
	capitan.Info(ctx, PipelineStarted,
		RunIDKey.Field(runID),
		QueryKey.Field(state.Query()),
		StagesKey.Field(len(p.stages)),
	)

	final, err := p.sequence.Process(ctx, state)
	if err != nil {
		err = unwrapPipzError[State](err)
		capitan.Error(ctx, PipelineFailed,
			RunIDKey.Field(runID),
			QueryKey.Field(state.Query()),
			ErrorKey.Field(err.Error()),
			DurationMsKey.Field(int(time.Since(start).Milliseconds())),
		)
		return State{}, err
	}

	usage := final.Usage()
	capitan.Info(ctx, PipelineCompleted,
		RunIDKey.Field(runID),
		QueryKey.Field(state.Query()),
		PhaseKey.Field(string(final.Phase())),
		PromptTokensKey.Field(usage.Prompt),
		CompletionTokensKey.Field(usage.Completion),
		TotalTokensKey.Field(usage.Total),
		DurationMsKey.Field(int(time.Since(start).Milliseconds())),
	)
	return final, nil
}
