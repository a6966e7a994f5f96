package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zoobzio/quill"
)

func TestProviderCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify headers
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("Expected api-key header, got %s", r.Header.Get("api-key"))
		}

		// Verify URL structure
		expectedPath := "/openai/deployments/test-deployment/chat/completions"
		if r.URL.Path != expectedPath {
			t.Errorf("Expected path %s, got %s", expectedPath, r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-02-01" {
			t.Errorf("Expected default api-version, got %s", r.URL.Query().Get("api-version"))
		}

		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.Temperature != 0.4 {
			t.Errorf("Expected temperature 0.4, got %f", req.Temperature)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "test-id",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "test response"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 2, "total_tokens": 6}
		}`))
	}))
	defer server.Close()

	provider := New(Config{
		Endpoint:   server.URL + "/",
		APIKey:     "test-key",
		Deployment: "test-deployment",
	})

	response, err := provider.Call(context.Background(), []quill.Message{{Role: quill.RoleUser, Content: "test prompt"}}, 0.4)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if response.Text.String() != "test response" {
		t.Errorf("Expected 'test response', got '%s'", response.Text.String())
	}
	if response.Usage.Total != 6 {
		t.Errorf("Expected 6 tokens, got %d", response.Usage.Total)
	}
}

func TestProviderRawFallback(t *testing.T) {
	body := `{"id":"x","choices":[]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	provider := New(Config{Endpoint: server.URL, APIKey: "k", Deployment: "d"})
	response, err := provider.Call(context.Background(), []quill.Message{{Role: quill.RoleUser, Content: "p"}}, 0)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if !response.Text.IsFallback() || response.Text.String() != body {
		t.Errorf("Expected raw fallback of body, got %q", response.Text.String())
	}
}

func TestProviderErrorHandling(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectedError string
	}{
		{
			name:          "Rate limit error",
			statusCode:    http.StatusTooManyRequests,
			responseBody:  `{"error": {"message": "Too many requests", "code": "429"}}`,
			expectedError: "rate limit exceeded",
		},
		{
			name:          "API error",
			statusCode:    http.StatusNotFound,
			responseBody:  `{"error": {"message": "Deployment not found", "code": "DeploymentNotFound"}}`,
			expectedError: "azure error (404): Deployment not found",
		},
		{
			name:          "Generic error",
			statusCode:    http.StatusInternalServerError,
			responseBody:  `not json`,
			expectedError: "azure error: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			provider := New(Config{Endpoint: server.URL, APIKey: "test-key", Deployment: "test"})

			_, err := provider.Call(context.Background(), []quill.Message{{Role: quill.RoleUser, Content: "test"}}, 0)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("Expected error containing %q, got %q", tt.expectedError, err.Error())
			}
		})
	}
}
