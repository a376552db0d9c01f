package llmcall

import (
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/jackzampolin/fieldfill/internal/providers"
)

// Recorder keeps every recorded call in memory and optionally streams each one
// as a JSON line to a sink.
type Recorder struct {
	mu     sync.Mutex
	calls  []*Call
	sink   io.Writer
	enc    *json.Encoder
	logger *slog.Logger
}

// NewRecorder creates a new LLM call recorder. sink may be nil.
func NewRecorder(sink io.Writer, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{sink: sink, logger: logger}
	if sink != nil {
		r.enc = json.NewEncoder(sink)
	}
	return r
}

// Record captures an LLM call from a provider result.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) {
	if r == nil {
		return
	}
	r.RecordCall(FromChatResult(result, opts))
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || call == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	if r.enc != nil {
		if err := r.enc.Encode(call); err != nil {
			r.logger.Warn("failed to write LLM call record", "id", call.ID, "error", err)
		}
	}
}

// Calls returns a copy of the recorded calls in recording order.
func (r *Recorder) Calls() []*Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Len returns the number of recorded calls.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// CountFor returns how many calls were recorded for phase and field.
// An empty field matches every field of the phase.
func (r *Recorder) CountFor(phase, field string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Phase == phase && (field == "" || c.Field == field) {
			n++
		}
	}
	return n
}

// PhaseSummary aggregates the calls made in one phase.
type PhaseSummary struct {
	Phase        string  `json:"phase" yaml:"phase"`
	Calls        int     `json:"calls" yaml:"calls"`
	Succeeded    int     `json:"succeeded" yaml:"succeeded"`
	Failed       int     `json:"failed" yaml:"failed"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	CostUSD      float64 `json:"cost_usd" yaml:"cost_usd"`
	LatencyMs    int     `json:"latency_ms" yaml:"latency_ms"`
}

// Summary aggregates recorded calls per phase, sorted by phase name.
func (r *Recorder) Summary() []PhaseSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	byPhase := make(map[string]*PhaseSummary)
	for _, c := range r.calls {
		s, ok := byPhase[c.Phase]
		if !ok {
			s = &PhaseSummary{Phase: c.Phase}
			byPhase[c.Phase] = s
		}
		s.Calls++
		if c.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.InputTokens += c.InputTokens
		s.OutputTokens += c.OutputTokens
		s.CostUSD += c.CostUSD
		s.LatencyMs += c.LatencyMs
	}

	out := make([]PhaseSummary, 0, len(byPhase))
	for _, s := range byPhase {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Phase < out[j].Phase })
	return out
}
