package extract

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies a failed generation call.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureTransport
	FailureTimeout
	FailureCanceled
	FailureMalformed
	FailurePrompt
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTransport:
		return "transport"
	case FailureTimeout:
		return "timeout"
	case FailureCanceled:
		return "canceled"
	case FailureMalformed:
		return "malformed"
	case FailurePrompt:
		return "prompt"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one per-field task.
type Outcome struct {
	Field     string        `json:"field"`
	Attempted bool          `json:"attempted"`
	Value     string        `json:"value,omitempty"`
	Failure   FailureKind   `json:"failure"`
	Err       error         `json:"-"`
	Accepted  bool          `json:"accepted,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// OK reports whether the call returned a usable value.
func (o Outcome) OK() bool {
	return o.Attempted && o.Failure == FailureNone
}

// Unattempted reports whether the task never ran because the context was done.
func (o Outcome) Unattempted() bool {
	return !o.Attempted && o.Failure == FailureNone
}

func classifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformed
	default:
		return FailureTransport
	}
}

// Stats aggregates the outcomes of one stage.
type Stats struct {
	Phase       Phase               `json:"phase"`
	Requested   int                 `json:"requested"`
	Attempted   int                 `json:"attempted"`
	Succeeded   int                 `json:"succeeded"`
	Failed      int                 `json:"failed"`
	Unattempted int                 `json:"unattempted"`
	Skipped     []string            `json:"skipped,omitempty"`
	Accepted    []string            `json:"accepted,omitempty"`
	Failures    map[FailureKind]int `json:"failures,omitempty"`
	Outcomes    []Outcome           `json:"outcomes"`
	Duration    time.Duration       `json:"duration"`
}

func newStats(phase Phase, outcomes []Outcome) Stats {
	st := Stats{Phase: phase, Requested: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Attempted {
			st.Attempted++
		}
		switch {
		case o.OK():
			st.Succeeded++
		case o.Unattempted():
			st.Unattempted++
		default:
			st.Failed++
			if st.Failures == nil {
				st.Failures = make(map[FailureKind]int)
			}
			st.Failures[o.Failure]++
		}
		if o.Accepted {
			st.Accepted = append(st.Accepted, o.Field)
		}
	}
	return st
}
