// Package duckduckgo implements a quill Searcher backed by the DuckDuckGo
// Instant Answer API.
package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NoResults is returned as the search text when nothing usable was found.
const NoResults = "No good DuckDuckGo Search Result was found"

// Searcher implements the quill Searcher interface for DuckDuckGo.
type Searcher struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
	name       string
}

// Config holds configuration for the DuckDuckGo searcher.
type Config struct {
	BaseURL    string        // Optional, defaults to "https://api.duckduckgo.com"
	MaxResults int           // Optional, defaults to 4 snippets when not positive
	Timeout    time.Duration // Optional, defaults to 15s
}

// New creates a new DuckDuckGo searcher.
func New(config Config) *Searcher {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.duckduckgo.com"
	}
	if config.MaxResults <= 0 {
		config.MaxResults = 4
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	return &Searcher{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		maxResults: config.MaxResults,
		name:       "duckduckgo",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the searcher identifier.
func (s *Searcher) Name() string {
	return s.name
}

// Search queries DuckDuckGo and returns the result snippets joined by a
// single space. An answer with no snippets yields NoResults.
func (s *Searcher) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("duckduckgo error: status %d", resp.StatusCode)
	}

	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	snippets := answer.snippets(s.maxResults)
	if len(snippets) == 0 {
		return NoResults, nil
	}
	return strings.Join(snippets, " "), nil
}

// snippets collects non-empty texts in relevance order, flattening topic
// groups, up to limit entries.
func (a instantAnswer) snippets(limit int) []string {
	var out []string
	add := func(text string) bool {
		text = strings.TrimSpace(text)
		if text != "" {
			out = append(out, text)
		}
		return len(out) >= limit
	}

	for _, text := range []string{a.AbstractText, a.Answer, a.Definition} {
		if add(text) {
			return out
		}
	}
	for _, topic := range a.RelatedTopics {
		if topic.Text != "" {
			if add(topic.Text) {
				return out
			}
			continue
		}
		for _, sub := range topic.Topics {
			if add(sub.Text) {
				return out
			}
		}
	}
	return out
}

// Response types for the Instant Answer API

type instantAnswer struct {
	Heading       string  `json:"Heading"`
	AbstractText  string  `json:"AbstractText"`
	AbstractURL   string  `json:"AbstractURL"`
	Answer        string  `json:"Answer"`
	Definition    string  `json:"Definition"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

type topic struct {
	Text     string  `json:"Text"`
	FirstURL string  `json:"FirstURL"`
	Name     string  `json:"Name"`
	Topics   []topic `json:"Topics"`
}
