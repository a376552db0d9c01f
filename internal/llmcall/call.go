// Package llmcall provides LLM call recording for traceability.
// Every generation call is recorded with the phase and field that issued it,
// a hash of the rendered prompt, and usage metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/fieldfill/internal/providers"
)

// Call represents a recorded LLM API call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Pipeline references
	Phase string `json:"phase,omitempty"`
	Field string `json:"field,omitempty"`

	// Prompt traceability
	PromptHash string `json:"prompt_hash,omitempty"` // sha256 of the rendered prompt

	// Model info
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`

	// Response
	Response string `json:"response"`
	Attempts int    `json:"attempts,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording an LLM call.
type RecordOptions struct {
	Phase      string
	Field      string
	PromptHash string

	// Request parameters (pointer to distinguish "not set" from "set to 0")
	Temperature *float64

	// Err is used when the provider returned an error without a result message.
	Err error
}

// FromChatResult creates a Call from a ChatResult.
// Returns nil if result is nil.
func FromChatResult(result *providers.ChatResult, opts RecordOptions) *Call {
	if result == nil {
		return nil
	}

	call := &Call{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		LatencyMs:    int(result.TotalTime.Milliseconds()),
		Phase:        opts.Phase,
		Field:        opts.Field,
		PromptHash:   opts.PromptHash,
		Provider:     result.Provider,
		Model:        result.ModelUsed,
		Temperature:  opts.Temperature,
		InputTokens:  result.PromptTokens,
		OutputTokens: result.CompletionTokens,
		CostUSD:      result.CostUSD,
		Response:     result.Content,
		Attempts:     result.Attempts,
		Success:      result.Success,
	}
	if call.LatencyMs == 0 {
		call.LatencyMs = int(result.ExecutionTime.Milliseconds())
	}

	if !result.Success {
		call.Error = result.ErrorMessage
		if call.Error == "" && opts.Err != nil {
			call.Error = opts.Err.Error()
		}
	}

	return call
}
