package quill

import "slices"

// Field names a value carried by State.
type Field string

// Fields of the article pipeline state.
const (
	FieldQuery           Field = "query"
	FieldResearchSummary Field = "research_summary"
	FieldDraftArticle    Field = "draft_article"
	FieldReviewedArticle Field = "reviewed_article"
)

// Phase is the position of a State in the linear run.
type Phase string

// Phases, in the only order they can occur.
const (
	PhaseEmpty      Phase = "empty"
	PhaseResearched Phase = "researched"
	PhaseDrafted    Phase = "drafted"
	PhaseReviewed   Phase = "reviewed"
)

// Exchange records one stage's generation call.
type Exchange struct {
	Stage  string     // Stage name
	Prompt string     // Rendered prompt sent to the provider
	Text   Text       // Generated text
	Usage  TokenUsage // Token usage reported by the provider
}

// State is the value threaded through a pipeline run.
//
// State has value semantics: With returns a new State and never changes the
// receiver, so every stage sees exactly what its predecessor produced.
// A field is either absent or set; a set field may hold an empty string.
type State struct {
	values    map[Field]string
	exchanges []Exchange
}

// NewState creates a State holding only the query.
func NewState(query string) State {
	return State{values: map[Field]string{FieldQuery: query}}
}

// Get returns the value of a field and whether it has been set.
func (s State) Get(f Field) (string, bool) {
	v, ok := s.values[f]
	return v, ok
}

// Value returns the value of a field, or "" when it is absent.
func (s State) Value(f Field) string {
	return s.values[f]
}

// Has reports whether a field has been set.
func (s State) Has(f Field) bool {
	_, ok := s.values[f]
	return ok
}

// Query returns the query the run started from.
func (s State) Query() string {
	return s.values[FieldQuery]
}

// With returns a copy of the state with f set to v.
func (s State) With(f Field, v string) State {
	values := make(map[Field]string, len(s.values)+1)
	for k, val := range s.values {
		values[k] = val
	}
	values[f] = v
	return State{values: values, exchanges: s.exchanges}
}

// withExchange returns a copy of the state with an exchange appended.
func (s State) withExchange(e Exchange) State {
	exchanges := slices.Clone(s.exchanges)
	exchanges = append(exchanges, e)
	return State{values: s.values, exchanges: exchanges}
}

// Exchanges returns a copy of the generation calls made so far.
func (s State) Exchanges() []Exchange {
	return slices.Clone(s.exchanges)
}

// Usage sums token usage across all exchanges.
func (s State) Usage() TokenUsage {
	var total TokenUsage
	for _, e := range s.exchanges {
		total.Prompt += e.Usage.Prompt
		total.Completion += e.Usage.Completion
		total.Total += e.Usage.Total
	}
	return total
}

// Phase reports how far the run has progressed.
func (s State) Phase() Phase {
	switch {
	case s.Has(FieldReviewedArticle):
		return PhaseReviewed
	case s.Has(FieldDraftArticle):
		return PhaseDrafted
	case s.Has(FieldResearchSummary):
		return PhaseResearched
	default:
		return PhaseEmpty
	}
}

// Record is the exported snapshot of a State.
// Its json tags are the canonical field names.
type Record struct {
	Query           string `json:"query"`
	ResearchSummary string `json:"research_summary,omitempty"`
	DraftArticle    string `json:"draft_article,omitempty"`
	ReviewedArticle string `json:"reviewed_article,omitempty"`
}

// Record returns the snapshot of the state; absent fields are empty.
func (s State) Record() Record {
	return Record{
		Query:           s.Value(FieldQuery),
		ResearchSummary: s.Value(FieldResearchSummary),
		DraftArticle:    s.Value(FieldDraftArticle),
		ReviewedArticle: s.Value(FieldReviewedArticle),
	}
}
