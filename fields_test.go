package quill

import "testing"

func TestField_IsKnown(t *testing.T) {
	known := []Field{FieldQuery, FieldResearchSummary, FieldDraftArticle, FieldReviewedArticle}
	for _, f := range known {
		if !f.IsKnown() {
			t.Errorf("Expected %s to be known", f)
		}
	}

	unknown := []Field{"", "draft", "ResearchSummary", "feedback"}
	for _, f := range unknown {
		if f.IsKnown() {
			t.Errorf("Expected %q to be unknown", f)
		}
	}
}

func TestKnownFields_MatchesRecord(t *testing.T) {
	fields := knownFields()
	if len(fields) != 4 {
		t.Errorf("Expected 4 fields from Record, got %d: %v", len(fields), fields)
	}
}
