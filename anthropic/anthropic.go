// Package anthropic implements a quill Provider for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
)

// Provider implements the quill Provider interface for Anthropic API.
type Provider struct {
	apiKey     string
	model      string
	version    string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Anthropic provider.
type Config struct {
	APIKey    string
	Model     string        // e.g. "claude-sonnet-4-20250514", "claude-3-5-haiku-20241022"
	Version   string        // API version, defaults to "2023-06-01"
	BaseURL   string        // Optional, defaults to "https://api.anthropic.com"
	MaxTokens int           // Optional, defaults to 4096
	Timeout   time.Duration // Optional, defaults to 60s
}

// New creates a new Anthropic provider.
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-20250514"
	}
	if config.Version == "" {
		config.Version = "2023-06-01"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.anthropic.com"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 4096
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Provider{
		apiKey:    config.APIKey,
		model:     config.Model,
		version:   config.Version,
		baseURL:   config.BaseURL,
		maxTokens: config.MaxTokens,
		name:      "anthropic",
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

// Call sends messages to Anthropic and returns the response with usage stats.
// A response without a text block is returned as a RawFallback of the body.
func (p *Provider) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	startTime := time.Now()

	capitan.Info(ctx, quill.ProviderCallStarted,
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(p.model),
	)

	// Extract system messages and conversation messages
	var systemParts []string
	var apiMessages []message
	for _, msg := range messages {
		if msg.Role == quill.RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			apiMessages = append(apiMessages, message{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	requestBody := messagesRequest{
		Model:       p.model,
		Messages:    apiMessages,
		MaxTokens:   p.maxTokens,
		Temperature: temperature,
	}

	if len(systemParts) > 0 {
		requestBody.System = strings.Join(systemParts, "\n\n")
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", p.version)

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

			capitan.Error(ctx, quill.ProviderCallFailed, fields...)

			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("rate limit exceeded: %s", errorResp.Error.Message)
			}
			return nil, fmt.Errorf("anthropic error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}

		fields = append(fields, quill.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		capitan.Error(ctx, quill.ProviderCallFailed, fields...)
		return nil, fmt.Errorf("anthropic error: status %d", resp.StatusCode)
	}

	var messagesResp messagesResponse
	if err := json.Unmarshal(body, &messagesResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	duration := time.Since(startTime)
	total := messagesResp.Usage.InputTokens + messagesResp.Usage.OutputTokens

	fields := []capitan.Field{
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(messagesResp.Model),
		quill.PromptTokensKey.Field(messagesResp.Usage.InputTokens),
		quill.CompletionTokensKey.Field(messagesResp.Usage.OutputTokens),
		quill.TotalTokensKey.Field(total),
		quill.DurationMsKey.Field(int(duration.Milliseconds())),
		quill.HTTPStatusCodeKey.Field(resp.StatusCode),
		quill.ResponseIDKey.Field(messagesResp.ID),
	}

	if messagesResp.StopReason != "" {
		fields = append(fields, quill.ResponseFinishReasonKey.Field(messagesResp.StopReason))
	}

	capitan.Info(ctx, quill.ProviderCallCompleted, fields...)

	return &quill.ProviderResponse{
		Text: extractText(messagesResp, body),
		Usage: quill.TokenUsage{
			Prompt:     messagesResp.Usage.InputTokens,
			Completion: messagesResp.Usage.OutputTokens,
			Total:      total,
		},
	}, nil
}

// extractText returns the first text block, or the raw body when there is none.
func extractText(resp messagesResponse, body []byte) quill.Text {
	for _, block := range resp.Content {
		if block.Type == "text" {
			return quill.ExtractedText(block.Text)
		}
	}
	return quill.RawFallback(string(body))
}

// Request/Response types for Anthropic API

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature"`
	System      string    `json:"system,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
