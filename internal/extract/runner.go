package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/fieldfill/internal/schema"
)

// DefaultConcurrency bounds in-flight generation calls per stage.
const DefaultConcurrency = 4

// Options configures an Extractor or Repairer.
type Options struct {
	// Concurrency caps in-flight calls. Zero means DefaultConcurrency.
	Concurrency int
	// CallTimeout bounds each generation call. Zero means no per-call limit.
	CallTimeout time.Duration
	Logger      *slog.Logger
}

// runner fans per-field tasks out over a bounded errgroup.
type runner struct {
	gen         Generator
	concurrency int
	callTimeout time.Duration
	logger      *slog.Logger
}

func newRunner(gen Generator, opts Options, component string) runner {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return runner{
		gen:         gen,
		concurrency: concurrency,
		callTimeout: opts.CallTimeout,
		logger:      logger.With("component", component),
	}
}

// run executes fn once per field. Fields whose task has not started when ctx is
// done get an unattempted Outcome. Each task owns outcomes[i] exclusively.
func (r runner) run(ctx context.Context, fields []*schema.Field, fn func(ctx context.Context, f *schema.Field) Outcome) []Outcome {
	outcomes := make([]Outcome, len(fields))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)

	for i, f := range fields {
		if ctx.Err() != nil {
			outcomes[i] = Outcome{Field: f.Name()}
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = Outcome{Field: f.Name()}
				return nil
			}
			outcomes[i] = fn(ctx, f)
			return nil
		})
	}

	// Tasks never return errors; failures live in their Outcome.
	_ = g.Wait()
	return outcomes
}

// call issues one generation call and returns the trimmed response.
func (r runner) call(ctx context.Context, phase Phase, f *schema.Field, prompt string) Outcome {
	o := Outcome{Field: f.Name(), Attempted: true}

	ctx = WithCallInfo(ctx, CallInfo{Phase: phase, Field: f.Name()})
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, prompt)
	o.Duration = time.Since(start)

	if err != nil {
		o.Failure = classifyFailure(err)
		o.Err = err
		return o
	}
	o.Value = strings.TrimSpace(text)
	return o
}

func promptFailure(f *schema.Field, err error) Outcome {
	return Outcome{Field: f.Name(), Failure: FailurePrompt, Err: err}
}
