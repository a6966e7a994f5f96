package quill

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Stage names.
const (
	StageResearch = "research"
	StageWriter   = "writer"
	StageCritic   = "critic"
)

// inputFunc turns the required field's value into the text embedded in the
// stage prompt.
type inputFunc func(ctx context.Context, value string) (string, error)

// Stage is one pipeline step. It reads one field, generates text from a
// prompt built around it, and produces exactly one new field.
type Stage struct {
	name        string
	requires    Field
	produces    Field
	temperature float32
	input       inputFunc
	prompt      func(input string) *Prompt
	generator   *Generator
}

// NewStage creates a stage that embeds the required field's value directly
// into the prompt.
func NewStage(name string, requires, produces Field, prompt func(string) *Prompt, temperature float32, provider Provider, opts ...Option) *Stage {
	return &Stage{
		name:        name,
		requires:    requires,
		produces:    produces,
		temperature: temperature,
		input:       passthrough,
		prompt:      prompt,
		generator:   NewGenerator(provider, opts...),
	}
}

// Researcher creates the research stage.
// It searches for the query and summarizes the raw results into
// research_summary.
func Researcher(searcher Searcher, provider Provider, opts ...Option) *Stage {
	s := NewStage(StageResearch, FieldQuery, FieldResearchSummary, ResearchPrompt, ResearchTemperature, provider, opts...)
	s.input = searchInput(searcher)
	return s
}

// Writer creates the drafting stage.
// It turns research_summary into draft_article.
func Writer(provider Provider, opts ...Option) *Stage {
	return NewStage(StageWriter, FieldResearchSummary, FieldDraftArticle, WriterPrompt, WriterTemperature, provider, opts...)
}

// Critic creates the review stage.
// The whole response, feedback and improved article together, becomes
// reviewed_article.
func Critic(provider Provider, opts ...Option) *Stage {
	return NewStage(StageCritic, FieldDraftArticle, FieldReviewedArticle, CriticPrompt, CriticTemperature, provider, opts...)
}

// WithTemperature overrides the stage's default temperature.
func (s *Stage) WithTemperature(temperature float32) *Stage {
	s.temperature = temperature
	return s
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Requires returns the field the stage reads.
func (s *Stage) Requires() Field { return s.requires }

// Produces returns the field the stage writes.
func (s *Stage) Produces() Field { return s.produces }

// Temperature returns the temperature used for generation.
func (s *Stage) Temperature() float32 { return s.temperature }

// Run executes the stage against a state and returns the successor state.
// An absent or empty input is rendered into the prompt as-is.
func (s *Stage) Run(ctx context.Context, state State) (State, error) {
	start := time.Now()
	capitan.Info(ctx, StageStarted,
		StageKey.Field(s.name),
		FieldKey.Field(string(s.requires)),
		PhaseKey.Field(string(state.Phase())),
	)

	input, err := s.input(ctx, state.Value(s.requires))
	if err != nil {
		s.failed(ctx, err, start)
		return state, err
	}

	prompt := s.prompt(input)
	generated, err := s.generator.Generate(ctx, s.name, prompt, s.temperature)
	if err != nil {
		s.failed(ctx, err, start)
		return state, err
	}

	next := state.With(s.produces, generated.Text.String()).withExchange(Exchange{
		Stage:  s.name,
		Prompt: prompt.Render(),
		Text:   generated.Text,
		Usage:  generated.Usage,
	})

	capitan.Info(ctx, StageCompleted,
		StageKey.Field(s.name),
		FieldKey.Field(string(s.produces)),
		PhaseKey.Field(string(next.Phase())),
		OutputLenKey.Field(len(generated.Text.String())),
		DurationMsKey.Field(int(time.Since(start).Milliseconds())),
	)
	return next, nil
}

func (s *Stage) failed(ctx context.Context, err error, start time.Time) {
	capitan.Error(ctx, StageFailed,
		StageKey.Field(s.name),
		ErrorKey.Field(err.Error()),
		DurationMsKey.Field(int(time.Since(start).Milliseconds())),
	)
}

func passthrough(_ context.Context, value string) (string, error) {
	return value, nil
}

// searchInput runs the query through the searcher and returns the raw
// result text.
func searchInput(searcher Searcher) inputFunc {
	return func(ctx context.Context, query string) (string, error) {
		start := time.Now()
		capitan.Info(ctx, SearchCallStarted,
			SearcherKey.Field(searcher.Name()),
			QueryKey.Field(query),
		)

		results, err := searcher.Search(ctx, query)
		if err != nil {
			capitan.Error(ctx, SearchCallFailed,
				SearcherKey.Field(searcher.Name()),
				QueryKey.Field(query),
				ErrorKey.Field(err.Error()),
			)
			return "", err
		}

		capitan.Info(ctx, SearchCallCompleted,
			SearcherKey.Field(searcher.Name()),
			ResultLengthKey.Field(len(results)),
			DurationMsKey.Field(int(time.Since(start).Milliseconds())),
		)
		return results, nil
	}
}
