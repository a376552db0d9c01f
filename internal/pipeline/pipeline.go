// Package pipeline runs the extract, validate, repair, validate sequence over a
// single document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackzampolin/fieldfill/internal/extract"
	"github.com/jackzampolin/fieldfill/internal/schema"
	"github.com/jackzampolin/fieldfill/internal/validate"
)

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoSchema      = errors.New("no schema configured")
	ErrNoGenerator   = errors.New("no generator configured")
)

// Config configures a Pipeline.
type Config struct {
	Schema    *schema.Schema
	Generator extract.Generator

	// Concurrency caps in-flight calls per stage. Zero means extract.DefaultConcurrency.
	Concurrency int
	// CallTimeout bounds each generation call. Zero means no per-call limit.
	CallTimeout time.Duration
	// SkipRepair stops after the first validation.
	SkipRepair bool
	// SkipFinalValidation leaves Result.Final nil.
	SkipFinalValidation bool

	Logger *slog.Logger
}

// Pipeline orchestrates one extraction run per document. It is safe to reuse
// across documents and goroutines.
type Pipeline struct {
	schema     *schema.Schema
	extractor  *extract.Extractor
	repairer   *extract.Repairer
	skipRepair bool
	skipFinal  bool
	logger     *slog.Logger
}

// New validates cfg and builds a Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Schema == nil {
		return nil, ErrNoSchema
	}
	if cfg.Generator == nil {
		return nil, ErrNoGenerator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := extract.Options{
		Concurrency: cfg.Concurrency,
		CallTimeout: cfg.CallTimeout,
		Logger:      logger,
	}

	return &Pipeline{
		schema:     cfg.Schema,
		extractor:  extract.NewExtractor(cfg.Generator, opts),
		repairer:   extract.NewRepairer(cfg.Generator, opts),
		skipRepair: cfg.SkipRepair,
		skipFinal:  cfg.SkipFinalValidation,
		logger:     logger.With("schema", cfg.Schema.Name()),
	}, nil
}

// Schema returns the schema the pipeline extracts.
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Result is the outcome of one run.
type Result struct {
	Record  *schema.Record   `json:"record"`
	Initial *validate.Report `json:"initial"`
	Final   *validate.Report `json:"final,omitempty"`

	// Repaired lists the fields selected for repair; Accepted those whose
	// repair value was adopted.
	Repaired []string `json:"repaired,omitempty"`
	Accepted []string `json:"accepted,omitempty"`

	Extraction extract.Stats  `json:"extraction"`
	Repair     *extract.Stats `json:"repair,omitempty"`

	// Unattempted counts calls that never started because ctx was done,
	// including repairs that were due when the run was interrupted.
	Unattempted int  `json:"unattempted"`
	Interrupted bool `json:"interrupted"`

	Duration time.Duration `json:"duration"`
}

// Calls returns the number of generation calls attempted across stages.
func (r *Result) Calls() int {
	n := r.Extraction.Attempted
	if r.Repair != nil {
		n += r.Repair.Attempted
	}
	return n
}

// Report returns the final report when present, else the initial one.
func (r *Result) Report() *validate.Report {
	if r.Final != nil {
		return r.Final
	}
	return r.Initial
}

// Run extracts every schema field from document, repairing weak fields once.
//
// Per-field failures are absorbed. If ctx is canceled the partial Result is
// returned with Interrupted set and a nil error; values already obtained are
// kept.
func (p *Pipeline) Run(ctx context.Context, document string) (*Result, error) {
	if strings.TrimSpace(document) == "" {
		return nil, ErrEmptyDocument
	}

	start := time.Now()
	logger := p.logger.With("document_chars", utf8.RuneCountInString(document))

	logger.Info("extracting fields", "fields", p.schema.Len())
	rec, exStats := p.extractor.Extract(ctx, document, p.schema)
	logger.Info("initial extraction complete",
		"succeeded", exStats.Succeeded,
		"failed", exStats.Failed,
		"duration", exStats.Duration)

	res := &Result{
		Extraction:  exStats,
		Unattempted: exStats.Unattempted,
	}

	res.Initial = validate.Validate(rec, p.schema)
	needs := validate.MissingOrPartial(res.Initial)
	logger.Info("validation complete", "needs_attention", len(needs))
	for _, name := range needs {
		e, _ := res.Initial.Entry(name)
		logger.Info("field needs attention",
			"field", name,
			"status", e.Status.String(),
			"confidence", fmt.Sprintf("%.1f%%", e.Confidence*100))
	}

	switch {
	case ctx.Err() != nil:
		pending := p.repairable(needs)
		res.Unattempted += pending
		logger.Warn("run interrupted before repair", "pending_repairs", pending, "error", ctx.Err())
	case len(needs) == 0:
		logger.Info("all fields complete, no repair needed")
	case p.skipRepair:
		logger.Info("repair disabled", "needs_attention", len(needs))
	default:
		res.Repaired = needs
		logger.Info("repairing fields", "fields", len(needs))
		repaired, rpStats := p.repairer.Repair(ctx, document, needs, rec, p.schema)
		rec = repaired
		res.Repair = &rpStats
		res.Accepted = rpStats.Accepted
		res.Unattempted += rpStats.Unattempted
		logger.Info("repair complete",
			"attempted", rpStats.Attempted,
			"accepted", len(rpStats.Accepted),
			"skipped", len(rpStats.Skipped),
			"duration", rpStats.Duration)
	}

	res.Record = rec
	if !p.skipFinal {
		res.Final = validate.Validate(rec, p.schema)
		logger.Info("final validation",
			"complete", fmt.Sprintf("%d/%d", res.Final.CompleteCount(), p.schema.Len()))
	}

	res.Interrupted = ctx.Err() != nil
	res.Duration = time.Since(start)
	if res.Interrupted {
		logger.Warn("run interrupted, returning partial result",
			"unattempted", res.Unattempted,
			"error", ctx.Err())
	}
	return res, nil
}

// repairable counts the named fields that carry a repair prompt.
func (p *Pipeline) repairable(names []string) int {
	n := 0
	for _, name := range names {
		if f, ok := p.schema.Field(name); ok && f.HasRepair() {
			n++
		}
	}
	return n
}

// Run builds a Pipeline from cfg and runs it once.
func Run(ctx context.Context, cfg Config, document string) (*Result, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, document)
}
