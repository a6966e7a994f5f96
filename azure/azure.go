// Package azure implements a quill Provider for Azure OpenAI Service.
package azure

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

// Provider implements the quill Provider interface for Azure OpenAI Service.
type Provider struct {
	endpoint   string
	apiKey     string
	deployment string
	apiVersion string
	httpClient *http.Client
	name       string
}

// Config holds configuration for the Azure provider.
type Config struct {
	Endpoint   string        // Your Azure OpenAI endpoint (https://{your-resource}.openai.azure.com)
	APIKey     string        // Your Azure API key
	Deployment string        // Your deployment name
	APIVersion string        // API version, defaults to "2024-02-01"
	Timeout    time.Duration // Optional, defaults to 60s
}

// New creates a new Azure OpenAI provider.
func New(config Config) *Provider {
	if config.APIVersion == "" {
		config.APIVersion = "2024-02-01"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Provider{
		endpoint:   strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		deployment: config.Deployment,
		apiVersion: config.APIVersion,
		name:       "azure",
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.name
}

// Call sends messages to the deployment and returns the response.
// A completion without message content is returned as a RawFallback of the
// response body.
func (p *Provider) Call(ctx context.Context, messages []quill.Message, temperature float32) (*quill.ProviderResponse, error) {
	startTime := time.Now()

	capitan.Info(ctx, quill.ProviderCallStarted,
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(p.deployment),
	)

	apiMessages := make([]message, len(messages))
	for i, msg := range messages {
		content := msg.Content
		apiMessages[i] = message{Role: msg.Role, Content: &content}
	}

	jsonBody, err := json.Marshal(chatCompletionRequest{
		Messages:    apiMessages,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Build Azure-specific URL
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, url.PathEscape(p.deployment), url.QueryEscape(p.apiVersion))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)

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
		fields := []capitan.Field{
			quill.ProviderKey.Field(p.name),
			quill.ModelKey.Field(p.deployment),
			quill.HTTPStatusCodeKey.Field(resp.StatusCode),
			quill.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		}

		var errorResp errorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			fields = append(fields,
				quill.ErrorKey.Field(errorResp.Error.Message),
				quill.APIErrorCodeKey.Field(errorResp.Error.Code),
			)
			capitan.Error(ctx, quill.ProviderCallFailed, fields...)

			// Check for rate limit
			if resp.StatusCode == http.StatusTooManyRequests {
				return nil, fmt.Errorf("rate limit exceeded: %s", errorResp.Error.Message)
			}
			return nil, fmt.Errorf("azure error (%d): %s", resp.StatusCode, errorResp.Error.Message)
		}

		fields = append(fields, quill.ErrorKey.Field(fmt.Sprintf("status %d", resp.StatusCode)))
		capitan.Error(ctx, quill.ProviderCallFailed, fields...)
		return nil, fmt.Errorf("azure error: status %d", resp.StatusCode)
	}

	var completionResp chatCompletionResponse
	if err := json.Unmarshal(body, &completionResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	capitan.Info(ctx, quill.ProviderCallCompleted,
		quill.ProviderKey.Field(p.name),
		quill.ModelKey.Field(completionResp.Model),
		quill.TotalTokensKey.Field(completionResp.Usage.TotalTokens),
		quill.DurationMsKey.Field(int(time.Since(startTime).Milliseconds())),
		quill.HTTPStatusCodeKey.Field(resp.StatusCode),
		quill.ResponseIDKey.Field(completionResp.ID),
	)

	text := quill.RawFallback(string(body))
	if len(completionResp.Choices) > 0 && completionResp.Choices[0].Message.Content != nil {
		text = quill.ExtractedText(*completionResp.Choices[0].Message.Content)
	}

	return &quill.ProviderResponse{
		Text: text,
		Usage: quill.TokenUsage{
			Prompt:     completionResp.Usage.PromptTokens,
			Completion: completionResp.Usage.CompletionTokens,
			Total:      completionResp.Usage.TotalTokens,
		},
	}, nil
}

// Request/Response types (compatible with OpenAI)

type chatCompletionRequest struct {
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
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
