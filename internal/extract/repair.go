package extract

import (
	"context"
	"strings"
	"time"

	"github.com/jackzampolin/fieldfill/internal/schema"
)

// baseEmptyMarkers are always rejected as repair values, compared lower-cased.
var baseEmptyMarkers = []string{"not mentioned", "not available", ""}

// Repairer re-asks for weak fields using their repair prompts.
type Repairer struct {
	runner
}

// NewRepairer creates a Repairer backed by gen.
func NewRepairer(gen Generator, opts Options) *Repairer {
	return &Repairer{runner: newRunner(gen, opts, "repairer")}
}

// Repair makes one call per named field that has a repair prompt and returns an
// updated copy of rec; rec itself is left untouched. A field's value is replaced
// only when the response passes Acceptable, so repair never clears a value.
// Unknown names and fields without a repair prompt are skipped.
func (r *Repairer) Repair(ctx context.Context, document string, fieldsToFix []string, rec *schema.Record, s *schema.Schema) (*schema.Record, Stats) {
	start := time.Now()
	out := rec.Clone()

	var (
		targets []*schema.Field
		skipped []string
	)
	seen := make(map[string]bool, len(fieldsToFix))
	for _, name := range fieldsToFix {
		if seen[name] {
			continue
		}
		seen[name] = true

		f, ok := s.Field(name)
		if !ok {
			r.logger.Warn("repair requested for unknown field", "field", name)
			skipped = append(skipped, name)
			continue
		}
		if !f.HasRepair() {
			r.logger.Debug("no repair prompt, skipping", "field", name)
			skipped = append(skipped, name)
			continue
		}
		targets = append(targets, f)
	}

	outcomes := r.run(ctx, targets, func(ctx context.Context, f *schema.Field) Outcome {
		prompt, err := f.RenderRepairPrompt(document)
		if err != nil {
			r.logger.Warn("failed to render repair prompt", "field", f.Name(), "error", err)
			return promptFailure(f, err)
		}

		o := r.call(ctx, PhaseRepair, f, prompt)
		if !o.OK() {
			r.logger.Warn("field repair failed",
				"field", f.Name(),
				"failure", o.Failure.String(),
				"error", o.Err)
			return o
		}

		if !Acceptable(s, f, o.Value) {
			r.logger.Debug("repair value rejected", "field", f.Name(), "value", o.Value)
			return o
		}
		if err := out.Set(f.Name(), o.Value); err != nil {
			r.logger.Warn("failed to store repaired value", "field", f.Name(), "error", err)
			return o
		}
		o.Accepted = true
		r.logger.Debug("field repaired", "field", f.Name(), "duration", o.Duration)
		return o
	})

	st := newStats(PhaseRepair, outcomes)
	st.Skipped = skipped
	st.Duration = time.Since(start)
	return out, st
}

// Acceptable reports whether a repair response may replace a field's value: it
// must be non-blank and, trimmed and lower-cased, must not be a recognized empty
// marker. The markers are "not mentioned", "not available", the schema's empty
// values, and the field's sentinel.
func Acceptable(s *schema.Schema, f *schema.Field, value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	for _, m := range baseEmptyMarkers {
		if v == m {
			return false
		}
	}
	for _, m := range s.EmptyValues() {
		if v == strings.ToLower(strings.TrimSpace(m)) {
			return false
		}
	}
	return v != strings.ToLower(strings.TrimSpace(f.Sentinel()))
}
