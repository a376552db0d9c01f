// Package generation adapts provider chat clients to the extract.Generator
// interface, applying rate limits and recording every call.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jackzampolin/fieldfill/internal/extract"
	"github.com/jackzampolin/fieldfill/internal/llmcall"
	"github.com/jackzampolin/fieldfill/internal/providers"
	"github.com/jackzampolin/fieldfill/internal/schema"
)

// ErrNoClient is returned by New when Config.Client is nil.
var ErrNoClient = errors.New("generation: client is required")

// DefaultSystemPrompt frames each field prompt.
const DefaultSystemPrompt = "You extract information from documents. Answer with the requested value only, without preamble. If the document does not contain it, say so briefly."

// Config configures a Generator.
type Config struct {
	Client       providers.LLMClient
	Model        string // Uses the client default if empty
	SystemPrompt string // Empty disables the system message
	Temperature  float64
	MaxTokens    int

	// CacheSize enables an LRU of successful responses keyed by model and
	// prompt hash. Zero disables caching.
	CacheSize int

	// Optional
	Limiter  *providers.RateLimiter
	Recorder *llmcall.Recorder
	Logger   *slog.Logger
}

// Generator sends each prompt as a single-turn chat request.
type Generator struct {
	client       providers.LLMClient
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
	limiter      *providers.RateLimiter
	recorder     *llmcall.Recorder
	cache        *lru.Cache[string, string]
	logger       *slog.Logger
}

// New creates a Generator backed by cfg.Client.
func New(cfg Config) (*Generator, error) {
	if cfg.Client == nil {
		return nil, ErrNoClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var cache *lru.Cache[string, string]
	if cfg.CacheSize > 0 {
		c, err := lru.New[string, string](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("generation: failed to create cache: %w", err)
		}
		cache = c
	}
	return &Generator{
		client:       cfg.Client,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		limiter:      cfg.Limiter,
		recorder:     cfg.Recorder,
		cache:        cache,
		logger:       logger.With("component", "generator", "provider", cfg.Client.Name()),
	}, nil
}

// Generate implements extract.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	info, _ := extract.CallInfoFrom(ctx)
	promptHash := schema.HashText(prompt)

	cacheKey := g.model + "\x00" + promptHash
	if g.cache != nil {
		if content, ok := g.cache.Get(cacheKey); ok {
			g.logger.Debug("cache hit", "phase", info.Phase, "field", info.Field)
			return content, nil
		}
	}

	if g.limiter != nil && !g.limiter.TryConsume() {
		g.logger.Debug("rate limited, waiting for token", "phase", info.Phase, "field", info.Field)
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	messages := make([]providers.Message, 0, 2)
	if g.systemPrompt != "" {
		messages = append(messages, providers.Message{Role: "system", Content: g.systemPrompt})
	}
	messages = append(messages, providers.Message{Role: "user", Content: prompt})

	req := &providers.ChatRequest{
		Messages:    messages,
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		RequestID:   uuid.New().String(),
	}

	result, err := g.client.Chat(ctx, req)

	if g.limiter != nil {
		var rle *providers.RateLimitError
		if errors.As(err, &rle) {
			g.limiter.Record429(rle.RetryAfter)
		}
	}

	temperature := g.temperature
	g.recorder.Record(result, llmcall.RecordOptions{
		Phase:       string(info.Phase),
		Field:       info.Field,
		PromptHash:  promptHash,
		Temperature: &temperature,
		Err:         err,
	})

	if err != nil {
		g.logger.Debug("chat request failed",
			"phase", info.Phase,
			"field", info.Field,
			"request_id", req.RequestID,
			"error", err)
		if errors.Is(err, providers.ErrEmptyResponse) || errors.Is(err, providers.ErrInvalidResponse) {
			return "", fmt.Errorf("%w: %v", extract.ErrMalformedResponse, err)
		}
		return "", err
	}
	if result == nil {
		return "", fmt.Errorf("%w: provider returned no result", extract.ErrMalformedResponse)
	}

	g.logger.Debug("chat request complete",
		"phase", info.Phase,
		"field", info.Field,
		"model", result.ModelUsed,
		"tokens", result.TotalTokens,
		"attempts", result.Attempts,
		"latency", result.ExecutionTime)

	if g.cache != nil && result.Content != "" {
		g.cache.Add(cacheKey, result.Content)
	}
	return result.Content, nil
}

// CacheLen returns the number of cached responses.
func (g *Generator) CacheLen() int {
	if g.cache == nil {
		return 0
	}
	return g.cache.Len()
}

var _ extract.Generator = (*Generator)(nil)
