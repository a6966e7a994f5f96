// Package openai implements a quill Provider for the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
)

// Provider implements the quill Provider interface for OpenAI API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey  string
	Model   string        // e.g. "gpt-4o-mini", "gpt-4o"
	BaseURL string        // Optional, defaults to "https://api.openai.com/v1"
	Timeout time.Duration // Optional, defaults to 60s
}

// New creates a new OpenAI provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Provider{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		name:    "openai",
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

// Call sends messages to OpenAI and returns the response with usage stats.
// A completion without message content (no choices, or a null content) is
// returned as a RawFallback of the response body.
func (p *Provider) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	startTime := time.Now()

	// Emit provider.call.started hook
	capitan.Info(ctx, quill.ProviderCallStarted,
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(p.model),
	)

	apiMessages := make([]message, len(messages))
	for i, msg := range messages {
		content := msg.Content
		apiMessages[i] = message{
			Role:    msg.Role,
			Content: &content,
		}
	}

	requestBody := chatCompletionRequest{
		Model:       p.model,
		Messages:    apiMessages,
		Temperature: temperature,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
				quill.APIErrorTypeKey.Field(errorResp.Error.Type),
			)
			if errorResp.Error.Code != "" {
				fields = append(fields, quill.APIErrorCodeKey.Field(errorResp.Error.Code))
			}

			capitan.Error(ctx, quill.ProviderCallFailed, fields...)

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("rate limit exceeded: %s", errorResp.Error.Message)
			}
			return nil, fmt.Errorf("openai error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}

		fields = append(fields, quill.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		capitan.Error(ctx, quill.ProviderCallFailed, fields...)
		return nil, fmt.Errorf("openai error: status %d", resp.StatusCode)
	}

	var completionResp chatCompletionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	duration := time.Since(startTime)

	fields := []capitan.Field{
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(completionResp.Model),
		quill.PromptTokensKey.Field(completionResp.Usage.PromptTokens),
		quill.CompletionTokensKey.Field(completionResp.Usage.CompletionTokens),
		quill.TotalTokensKey.Field(completionResp.Usage.TotalTokens),
		quill.DurationMsKey.Field(int(duration.Milliseconds())),
		quill.HTTPStatusCodeKey.Field(resp.StatusCode),
		quill.ResponseIDKey.Field(completionResp.ID),
		quill.ResponseCreatedKey.Field(int(completionResp.Created)),
	}

	if len(completionResp.Choices) > 0 && completionResp.Choices[0].FinishReason != "" {
		fields = append(fields, quill.ResponseFinishReasonKey.Field(completionResp.Choices[0].FinishReason))
	}

	capitan.Info(ctx, quill.ProviderCallCompleted, fields...)

	return &quill.ProviderResponse{
		Text: extractText(completionResp, body),
		Usage: quill.TokenUsage{
			Prompt:     completionResp.Usage.PromptTokens,
			Completion: completionResp.Usage.CompletionTokens,
			Total:      completionResp.Usage.TotalTokens,
		},
	}, nil
}

// extractText returns the first choice's content, or the raw body when the
// completion carries none.
func extractText(resp chatCompletionResponse, body []byte) quill.Text {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return quill.RawFallback(string(body))
	}
	return quill.ExtractedText(*resp.Choices[0].Message.Content)
}

// Request/Response types for OpenAI API

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type message struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   usage    `json:"usage"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
