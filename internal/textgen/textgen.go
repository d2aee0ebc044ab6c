package textgen

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the upstream model answers with no
// usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// Generator is the text-completion contract: one prompt in, one completion
// out. Implementations must bound their own call time; callers treat any
// error as a degraded-service condition, never as fatal.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
