package quill

// TextSource records where a generated Text came from.
type TextSource int

const (
	// SourceExtracted means the provider response carried a text field.
	SourceExtracted TextSource = iota
	// SourceRawFallback means no text field was present and the value is a
	// string rendering of the raw response.
	SourceRawFallback
)

// String returns the source name used in hook fields.
func (s TextSource) String() string {
	switch s {
	case SourceExtracted:
		return "extracted"
	case SourceRawFallback:
		return "raw_fallback"
	default:
		return "unknown"
	}
}

// Text is the result of a generation call.
// It is either ExtractedText or RawFallback; both carry a string and both
// count as success.
type Text struct {
	value  string
	source TextSource
}

// ExtractedText wraps text read from the provider's response text field.
func ExtractedText(s string) Text {
	return Text{value: s, source: SourceExtracted}
}

// RawFallback wraps a string rendering of a response that had no
// extractable text.
func RawFallback(raw string) Text {
	return Text{value: raw, source: SourceRawFallback}
}

// String returns the text regardless of its source.
func (t Text) String() string {
	return t.value
}

// Source reports which variant this is.
func (t Text) Source() TextSource {
	return t.source
}

// IsFallback reports whether the text is a raw rendering.
func (t Text) IsFallback() bool {
	return t.source == SourceRawFallback
}
