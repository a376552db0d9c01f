package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for tests and offline runs. Responses are chosen
// by the first Rule whose Match is a substring of the last user message;
// otherwise ResponseText is returned.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Model        string

	mu    sync.RWMutex
	rules []MockRule

	// State
	requestCount atomic.Int64
}

// MockRule scripts a response for prompts containing Match.
type MockRule struct {
	Match    string
	Response string
	Err      error
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseText: "mock response",
		Model:        "mock-model",
	}
}

// On adds a scripted response and returns the client for chaining.
func (c *MockClient) On(match, response string) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, MockRule{Match: match, Response: response})
	return c
}

// OnError scripts a failure for prompts containing match.
func (c *MockClient) OnError(match string, err error) *MockClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, MockRule{Match: match, Err: err})
	return c
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestCount returns the number of Chat calls made so far.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Chat answers a chat request from the configured script.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	model := req.Model
	if model == "" {
		model = c.Model
	}
	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: model,
		Attempts:  1,
	}

	if c.ShouldFail {
		return result, result.fail("mock_failure", fmt.Errorf("mock client configured to fail"), start)
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return result, result.fail("mock_failure", fmt.Errorf("mock client failed after %d requests", c.FailAfter), start)
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return result, result.fail("context_cancelled", ctx.Err(), start)
	}

	prompt := lastUserMessage(req.Messages)
	content := c.ResponseText
	if rule, ok := c.match(prompt); ok {
		if rule.Err != nil {
			return result, result.fail("mock_failure", rule.Err, start)
		}
		content = rule.Response
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	// Rough token estimate
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	return result, nil
}

func (c *MockClient) match(prompt string) (MockRule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rules {
		if strings.Contains(prompt, r.Match) {
			return r, true
		}
	}
	return MockRule{}, false
}

func lastUserMessage(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
