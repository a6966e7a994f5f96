// Package gemini implements a quill Provider for the Google Gemini API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
)

// Provider implements the quill Provider interface for Google Gemini API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Gemini provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gemini-1.5-flash", "gemini-1.5-pro"
	BaseURL string        // Optional, defaults to "https://generativelanguage.googleapis.com/v1beta"
	Timeout time.Duration // Optional, defaults to 60s
}

// New creates a new Gemini provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "gemini",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Model returns the configured model.
func (p *Provider) Model() string {
	return p.model
}

// Call sends messages to Gemini and returns the response with usage stats.
// A response without candidate text is returned as a RawFallback of the body.
func (p *Provider) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	startTime := time.Now()

	capitan.Info(ctx, quill.ProviderCallStarted,
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(p.model),
	)

	// Extract system messages and conversation messages
	var systemParts []string
	var contents []content
	for _, msg := range messages {
		if msg.Role == quill.RoleSystem {
			systemParts = append(systemParts, msg.Content)
			continue
		}
		role := msg.Role
		// Gemini uses "model" instead of "assistant"
		if role == quill.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{
			Role:  role,
			Parts: []part{{Text: msg.Content}},
		})
	}

	requestBody := generateContentRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature: temperature,
		},
	}

	if len(systemParts) > 0 {
		requestBody.SystemInstruction = &content{
			Parts: []part{{Text: strings.Join(systemParts, "\n\n")}},
		}
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Handle errors
	if resp.StatusCode != http.StatusOK {
		duration := time.Since(startTime)
		var errorResp errorResponse

		fields := []capitan.Field{
			quill.ProviderKey.Field(p.name),
			quill.ModelKey.Field(p.model),
			quill.HTTPStatusCodeKey.Field(resp.StatusCode),
			quill.DurationMsKey.Field(int(duration.Milliseconds())),
		}

		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			fields = append(fields,
				quill.ErrorKey.Field(errorResp.Error.Message),
				quill.APIErrorTypeKey.Field(errorResp.Error.Status),
			)

			capitan.Error(ctx, quill.ProviderCallFailed, fields...)

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("rate limit exceeded: %s", errorResp.Error.Message)
			}
			return nil, fmt.Errorf("gemini error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}

		fields = append(fields, quill.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		capitan.Error(ctx, quill.ProviderCallFailed, fields...)
		return nil, fmt.Errorf("gemini error: status %d", resp.StatusCode)
	}

	var generateResp generateContentResponse
	if err := json.Unmarshal(body, &generateResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	duration := time.Since(startTime)

	promptTokens := generateResp.UsageMetadata.PromptTokenCount
	completionTokens := generateResp.UsageMetadata.CandidatesTokenCount
	totalTokens := generateResp.UsageMetadata.TotalTokenCount

	fields := []capitan.Field{
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(p.model),
		quill.PromptTokensKey.Field(promptTokens),
		quill.CompletionTokensKey.Field(completionTokens),
		quill.TotalTokensKey.Field(totalTokens),
		quill.DurationMsKey.Field(int(duration.Milliseconds())),
		quill.HTTPStatusCodeKey.Field(resp.StatusCode),
	}

	if len(generateResp.Candidates) > 0 && generateResp.Candidates[0].FinishReason != "" {
		fields = append(fields, quill.ResponseFinishReasonKey.Field(generateResp.Candidates[0].FinishReason))
	}

	capitan.Info(ctx, quill.ProviderCallCompleted, fields...)

	return &quill.ProviderResponse{
		Text: extractText(generateResp, body),
		Usage: quill.TokenUsage{
			Prompt:     promptTokens,
			Completion: completionTokens,
			Total:      totalTokens,
		},
	}, nil
}

// extractText concatenates the first candidate's text parts, or returns the
// raw body when the candidate has no parts.
func extractText(resp generateContentResponse, body []byte) quill.Text {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return quill.RawFallback(string(body))
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return quill.ExtractedText(b.String())
}

// Request/Response types for Gemini API

type generateContentRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateContentResponse struct {
	Candidates    []candidate   `json:"candidates"`
	UsageMetadata usageMetadata `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
	Index        int     `json:"index"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
