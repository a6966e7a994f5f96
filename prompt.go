package quill

import "strings"

// Prompt is a stage instruction wrapped around the stage input.
//
// Render places the instruction first, then the input, then the closing
// line, separated by blank lines. The input is rendered even when empty so
// a missing upstream value shows up verbatim in the prompt.
type Prompt struct {
	Instruction string // Fixed instruction for the stage
	Input       string // Upstream content embedded verbatim
	Closing     string // Optional trailing guidance
}

// Render converts the prompt to the string sent to the provider.
func (p *Prompt) Render() string {
	var b strings.Builder
	b.WriteString(p.Instruction)
	b.WriteString("\n\n")
	b.WriteString(p.Input)
	if p.Closing != "" {
		b.WriteString("\n\n")
		b.WriteString(p.Closing)
	}
	return b.String()
}

// Stage instructions.
const (
	ResearchInstruction = "Summarize key insights from the following search results:"
	WriterInstruction   = "Write a short beginner-friendly article using the following research:"
	WriterClosing       = "Use headings and simple language."
	CriticInstruction   = "Review the article below for clarity, accuracy, and flow. " +
		"Provide concise feedback and an improved version formatted with 'Feedback:' and 'Improved Article:'."
)

// ResearchPrompt builds the summarize prompt around raw search results.
func ResearchPrompt(results string) *Prompt {
	return &Prompt{Instruction: ResearchInstruction, Input: results}
}

// WriterPrompt builds the drafting prompt around a research summary.
func WriterPrompt(summary string) *Prompt {
	return &Prompt{Instruction: WriterInstruction, Input: summary, Closing: WriterClosing}
}

// CriticPrompt builds the review prompt around a draft.
// The Feedback/Improved Article layout is requested, never enforced.
func CriticPrompt(draft string) *Prompt {
	return &Prompt{Instruction: CriticInstruction, Input: draft}
}
