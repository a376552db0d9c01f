package extract

import (
	"context"
	"time"

	"github.com/jackzampolin/fieldfill/internal/schema"
)

// Extractor performs the first pass: one call per schema field.
type Extractor struct {
	runner
}

// NewExtractor creates an Extractor backed by gen.
func NewExtractor(gen Generator, opts Options) *Extractor {
	return &Extractor{runner: newRunner(gen, opts, "extractor")}
}

// Extract fills a new record from document. Every field starts at its sentinel
// and keeps it if its call fails; a failure never affects other fields. An empty
// response is stored as "".
func (e *Extractor) Extract(ctx context.Context, document string, s *schema.Schema) (*schema.Record, Stats) {
	start := time.Now()
	rec := s.NewRecord()

	outcomes := e.run(ctx, s.Fields(), func(ctx context.Context, f *schema.Field) Outcome {
		prompt, err := f.RenderPrompt(document)
		if err != nil {
			e.logger.Warn("failed to render prompt", "field", f.Name(), "error", err)
			return promptFailure(f, err)
		}

		o := e.call(ctx, PhaseExtract, f, prompt)
		if !o.OK() {
			e.logger.Warn("field extraction failed",
				"field", f.Name(),
				"failure", o.Failure.String(),
				"error", o.Err)
			return o
		}

		rec.SetAt(f.Index(), o.Value)
		e.logger.Debug("field extracted", "field", f.Name(), "duration", o.Duration)
		return o
	})

	st := newStats(PhaseExtract, outcomes)
	st.Duration = time.Since(start)
	return rec, st
}
