// Package extract fills schema records by prompting a text generator once per
// field, and repairs weak values with targeted follow-up prompts.
package extract

import (
	"context"
	"errors"
)

// ErrMalformedResponse marks a generator response that could not be used.
var ErrMalformedResponse = errors.New("malformed generation response")

// Generator produces text for a prompt. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Phase identifies which stage issued a generation call.
type Phase string

const (
	PhaseExtract Phase = "extract"
	PhaseRepair  Phase = "repair"
)

// CallInfo describes the field a generation call is for.
type CallInfo struct {
	Phase Phase
	Field string
}

type callInfoKey struct{}

// WithCallInfo attaches call metadata to ctx for generators that record calls.
func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFrom returns the call metadata attached to ctx, if any.
func CallInfoFrom(ctx context.Context) (CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}
