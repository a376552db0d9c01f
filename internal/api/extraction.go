package api

import (
	"fmt"
	"slices"
	"time"

	"github.com/jackzampolin/fieldfill/internal/extract"
	"github.com/jackzampolin/fieldfill/internal/llmcall"
	"github.com/jackzampolin/fieldfill/internal/pipeline"
	"github.com/jackzampolin/fieldfill/internal/providers"
	"github.com/jackzampolin/fieldfill/internal/schema"
	"github.com/jackzampolin/fieldfill/internal/validate"
)

// maxTableValue caps value width in table output.
const maxTableValue = 60

// FieldOutput is one field of an extraction result.
type FieldOutput struct {
	Name       string          `json:"name" yaml:"name"`
	Value      string          `json:"value" yaml:"value"`
	Status     validate.Status `json:"status" yaml:"status"`
	Confidence float64         `json:"confidence" yaml:"confidence"`
	Repaired   bool            `json:"repaired,omitempty" yaml:"repaired,omitempty"`

	// Call counts are filled in when a CallReport is attached.
	ExtractCalls int `json:"extract_calls,omitempty" yaml:"extract_calls,omitempty"`
	RepairCalls  int `json:"repair_calls,omitempty" yaml:"repair_calls,omitempty"`
}

// CallReport summarizes provider usage for one run.
type CallReport struct {
	Phases          []llmcall.PhaseSummary       `json:"phases" yaml:"phases"`
	RateLimit       *providers.RateLimiterStatus `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	CachedResponses int                          `json:"cached_responses,omitempty" yaml:"cached_responses,omitempty"`

	rec *llmcall.Recorder
}

// NewCallReport snapshots rec and limiter. Either may be nil.
func NewCallReport(rec *llmcall.Recorder, limiter *providers.RateLimiter, cached int) *CallReport {
	r := &CallReport{CachedResponses: cached, rec: rec}
	if rec != nil {
		r.Phases = rec.Summary()
	}
	if limiter != nil {
		status := limiter.Status()
		r.RateLimit = &status
	}
	return r
}

// ExtractionOutput is the rendered result of `fieldfill extract`.
type ExtractionOutput struct {
	Schema      string           `json:"schema" yaml:"schema"`
	Record      *schema.Record   `json:"record" yaml:"record"`
	Summary     validate.Summary `json:"summary" yaml:"summary"`
	Fields      []FieldOutput    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Calls       *CallReport      `json:"calls,omitempty" yaml:"calls,omitempty"`
	Interrupted bool             `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
	Duration    string           `json:"duration" yaml:"duration"`

	rows []FieldOutput
}

// NewExtractionOutput builds output from a pipeline result. Per-field detail
// is included when detail is true; calls may be nil.
func NewExtractionOutput(res *pipeline.Result, calls *CallReport, detail bool) *ExtractionOutput {
	report := res.Report()
	out := &ExtractionOutput{
		Schema:      res.Record.Schema().Name(),
		Record:      res.Record,
		Summary:     report.Summary(),
		Calls:       calls,
		Interrupted: res.Interrupted,
		Duration:    res.Duration.Round(time.Millisecond).String(),
	}
	for _, e := range report.Entries() {
		row := FieldOutput{
			Name:       e.Field,
			Value:      e.Value,
			Status:     e.Status,
			Confidence: e.Confidence,
			Repaired:   slices.Contains(res.Accepted, e.Field),
		}
		if calls != nil && calls.rec != nil {
			row.ExtractCalls = calls.rec.CountFor(string(extract.PhaseExtract), e.Field)
			row.RepairCalls = calls.rec.CountFor(string(extract.PhaseRepair), e.Field)
		}
		out.rows = append(out.rows, row)
	}
	if detail {
		out.Fields = out.rows
	}
	return out
}

// TableHeader implements Tabular.
func (o *ExtractionOutput) TableHeader() []string {
	return []string{"FIELD", "STATUS", "CONFIDENCE", "REPAIRED", "VALUE"}
}

// TableRows implements Tabular. Rows follow schema order.
func (o *ExtractionOutput) TableRows() [][]string {
	rows := make([][]string, 0, len(o.rows))
	for _, f := range o.rows {
		repaired := ""
		if f.Repaired {
			repaired = "yes"
		}
		rows = append(rows, []string{
			f.Name,
			f.Status.String(),
			fmt.Sprintf("%.0f%%", f.Confidence*100),
			repaired,
			truncateValue(f.Value),
		})
	}
	return rows
}

func truncateValue(s string) string {
	r := []rune(s)
	if len(r) <= maxTableValue {
		return s
	}
	return string(r[:maxTableValue-3]) + "..."
}
