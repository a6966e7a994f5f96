package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name       string
		maxResults int
		body       string
		expected   string
	}{
		{
			name: "Abstract and related topics",
			body: `{
				"AbstractText": "Photosynthesis converts light.",
				"RelatedTopics": [
					{"Text": "Chlorophyll absorbs light.", "FirstURL": "https://duckduckgo.com/Chlorophyll"},
					{"Name": "Biology", "Topics": [{"Text": "Plants use sunlight."}]}
				]
			}`,
			expected: "Photosynthesis converts light. Chlorophyll absorbs light. Plants use sunlight.",
		},
		{
			name:     "Answer and definition",
			body:     `{"Answer": "42", "Definition": "A number."}`,
			expected: "42 A number.",
		},
		{
			name:       "Limited results",
			maxResults: 2,
			body: `{
				"RelatedTopics": [{"Text": "one"}, {"Text": "two"}, {"Text": "three"}]
			}`,
			expected: "one two",
		},
		{
			name:       "Negative limit uses default",
			maxResults: -1,
			body: `{
				"RelatedTopics": [{"Text": "one"}, {"Text": "two"}, {"Text": "three"}, {"Text": "four"}, {"Text": "five"}]
			}`,
			expected: "one two three four",
		},
		{
			name:     "Nothing found",
			body:     `{"AbstractText": "", "RelatedTopics": []}`,
			expected: NoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			searcher := New(Config{BaseURL: server.URL, MaxResults: tt.maxResults})
			got, err := searcher.Search(context.Background(), "photosynthesis")
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSearchQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("q") != "Explain photosynthesis" {
			t.Errorf("Expected query to be passed through, got %q", q.Get("q"))
		}
		if q.Get("format") != "json" || q.Get("no_html") != "1" || q.Get("skip_disambig") != "1" {
			t.Errorf("Unexpected parameters: %v", q)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	searcher := New(Config{BaseURL: server.URL + "/"})
	if _, err := searcher.Search(context.Background(), "Explain photosynthesis"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		body          string
		expectedError string
	}{
		{name: "Server error", statusCode: http.StatusServiceUnavailable, body: ``, expectedError: "duckduckgo error: status 503"},
		{name: "Malformed body", statusCode: http.StatusOK, body: `<html>`, expectedError: "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(Config{BaseURL: server.URL}).Search(context.Background(), "q")
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("Expected error containing %q, got %q", tt.expectedError, err.Error())
			}
		})
	}
}

func TestSearcherName(t *testing.T) {
	if New(Config{}).Name() != "duckduckgo" {
		t.Error("Expected name duckduckgo")
	}
}
