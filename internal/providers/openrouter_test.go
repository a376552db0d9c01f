package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeChatResponse(w http.ResponseWriter, content string) {
	resp := map[string]any{
		"id":    "test-id",
		"model": "openai/gpt-4o-mini",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
			"cost":              0.0002,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func fastClient(url string) *OpenRouterClient {
	return NewOpenRouterClient(OpenRouterConfig{
		APIKey:     "test-key",
		BaseURL:    url,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
}

func TestOpenRouterClient_Chat(t *testing.T) {
	t.Run("successful chat", func(t *testing.T) {
		var received openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			if id := r.Header.Get("X-Request-ID"); id != "req-1" {
				t.Errorf("X-Request-ID = %q, want req-1", id)
			}
			json.NewDecoder(r.Body).Decode(&received)
			writeChatResponse(w, "Ginkgo biloba")
		}))
		defer server.Close()

		client := fastClient(server.URL)
		result, err := client.Chat(context.Background(), &ChatRequest{
			Messages: []Message{
				{Role: "system", Content: "Answer concisely."},
				{Role: "user", Content: "Name the herb"},
			},
			RequestID: "req-1",
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if !result.Success {
			t.Error("expected Success = true")
		}
		if result.Content != "Ginkgo biloba" {
			t.Errorf("Content = %q", result.Content)
		}
		if result.TotalTokens != 18 {
			t.Errorf("TotalTokens = %d, want 18", result.TotalTokens)
		}
		if result.CostUSD != 0.0002 {
			t.Errorf("CostUSD = %v, want 0.0002", result.CostUSD)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
		if received.Model != "openai/gpt-4o-mini" {
			t.Errorf("request model = %q, want default", received.Model)
		}
		if received.Temperature == nil || *received.Temperature != 0 {
			t.Errorf("request temperature = %v, want explicit 0", received.Temperature)
		}
		if len(received.Messages) != 2 || received.Messages[0].Role != "system" {
			t.Errorf("request messages = %+v", received.Messages)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream unavailable"))
				return
			}
			writeChatResponse(w, "ok")
		}))
		defer server.Close()

		result, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
		if result.Content != "ok" {
			t.Errorf("Content = %q, want ok", result.Content)
		}
	})

	t.Run("honors retry-after on 429", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"slow down"}`))
				return
			}
			writeChatResponse(w, "ok")
		}))
		defer server.Close()

		start := time.Now()
		result, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if result.Attempts != 2 {
			t.Errorf("Attempts = %d, want 2", result.Attempts)
		}
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("elapsed = %v, want at least the Retry-After delay", elapsed)
		}
	})

	t.Run("rate limit exhausts retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		result, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsRateLimitError(err) {
			t.Errorf("IsRateLimitError(%v) = false, want true", err)
		}
		if result.ErrorType != "rate_limit" {
			t.Errorf("ErrorType = %q, want rate_limit", result.ErrorType)
		}
		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"bad model"}}`))
		}))
		defer server.Close()

		result, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "status 400") {
			t.Errorf("error = %v, want status 400", err)
		}
		if calls.Load() != 1 {
			t.Errorf("server calls = %d, want 1", calls.Load())
		}
		if result.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"x","model":"m","choices":[]}`))
		}))
		defer server.Close()

		_, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if !errors.Is(err, ErrEmptyResponse) {
			t.Errorf("Chat() error = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("Chat() error = %v, want ErrInvalidResponse", err)
		}
	})

	t.Run("api level error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"context length exceeded","code":"context_length"}}`))
		}))
		defer server.Close()

		_, err := fastClient(server.URL).Chat(context.Background(), &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil || !strings.Contains(err.Error(), "context length exceeded") {
			t.Errorf("Chat() error = %v, want API error message", err)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			writeChatResponse(w, "late")
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := fastClient(server.URL).Chat(ctx, &ChatRequest{
			Messages: []Message{{Role: "user", Content: "test"}},
		})
		if err == nil {
			t.Error("expected error from cancelled context")
		}
	})
}

func TestOpenRouterClient_Config(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key"})

		if client.Name() != OpenRouterName {
			t.Errorf("Name() = %s, want %s", client.Name(), OpenRouterName)
		}
		if client.baseURL != OpenRouterBaseURL {
			t.Errorf("baseURL = %s, want %s", client.baseURL, OpenRouterBaseURL)
		}
		if client.Model() != "openai/gpt-4o-mini" {
			t.Errorf("Model() = %s", client.Model())
		}
		if client.MaxRetries() != 3 {
			t.Errorf("MaxRetries() = %d, want 3", client.MaxRetries())
		}
	})

	t.Run("rate limit properties", func(t *testing.T) {
		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:     "test-key",
			RPS:        50.0,
			MaxRetries: 5,
		})

		if client.RequestsPerSecond() != 50.0 {
			t.Errorf("RequestsPerSecond() = %f, want 50.0", client.RequestsPerSecond())
		}
		if client.MaxRetries() != 5 {
			t.Errorf("MaxRetries() = %d, want 5", client.MaxRetries())
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 2 ", 2 * time.Second},
		{"0", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
