package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockClient(t *testing.T) {
	ctx := context.Background()

	t.Run("scripted responses", func(t *testing.T) {
		m := NewMockClient()
		m.Latency = 0
		m.On("Extract the title", "Herbal Remedies").On("authors", "A. Smith")

		res, err := m.Chat(ctx, &ChatRequest{Messages: []Message{
			{Role: "system", Content: "authors"},
			{Role: "user", Content: "Extract the title:\n\npaper"},
		}})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if res.Content != "Herbal Remedies" {
			t.Errorf("Content = %q, want Herbal Remedies", res.Content)
		}
		if m.RequestCount() != 1 {
			t.Errorf("RequestCount() = %d, want 1", m.RequestCount())
		}
	})

	t.Run("default response", func(t *testing.T) {
		m := NewMockClient()
		m.Latency = 0
		res, err := m.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "anything"}}})
		if err != nil {
			t.Fatalf("Chat() error = %v", err)
		}
		if res.Content != "mock response" {
			t.Errorf("Content = %q, want mock response", res.Content)
		}
	})

	t.Run("scripted error", func(t *testing.T) {
		boom := errors.New("boom")
		m := NewMockClient()
		m.Latency = 0
		m.OnError("explode", boom)

		res, err := m.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: "please explode"}}})
		if !errors.Is(err, boom) {
			t.Errorf("Chat() error = %v, want boom", err)
		}
		if res.Success {
			t.Error("expected Success = false")
		}
	})

	t.Run("fail after", func(t *testing.T) {
		m := NewMockClient()
		m.Latency = 0
		m.FailAfter = 1
		req := &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}
		if _, err := m.Chat(ctx, req); err != nil {
			t.Fatalf("first Chat() error = %v", err)
		}
		if _, err := m.Chat(ctx, req); err == nil {
			t.Error("second Chat() should fail")
		}
	})

	t.Run("cancellation during latency", func(t *testing.T) {
		m := NewMockClient()
		m.Latency = time.Second
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := m.Chat(cctx, &ChatRequest{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Chat() error = %v, want context.Canceled", err)
		}
	})
}
