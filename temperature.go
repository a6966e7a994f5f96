package quill

// Default temperatures for the article stages.
// Research and critique stay deterministic; drafting gets some room to vary.
const (
	// ResearchTemperature is used when summarizing search results.
	ResearchTemperature float32 = 0

	// WriterTemperature is used when drafting the article.
	WriterTemperature float32 = 0.4

	// CriticTemperature is used when reviewing the draft.
	CriticTemperature float32 = 0
)
