// Package shaping defines the interface to an optional remote
// collaborator that tightens a compressed context block. Shaping is
// always best-effort: callers must keep a deterministic fallback,
// because a collaborator can fail, hang, or overflow the budget.
package shaping

import (
	"context"
)

// Option is a function that configures a shaping request.
type Option func(*Options)

// Options holds configuration for a shaping request.
type Options struct {
	// Temperature controls randomness in generation (0.0-1.0). Shaping
	// wants faithful rewrites, so the default is low.
	Temperature float64

	// MaxTokens limits the length of the generated response.
	MaxTokens int

	// Model specifies which model variant to use.
	Model string
}

// DefaultOptions returns default shaping options.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.2,
		MaxTokens:   1024,
		Model:       "", // Empty means use the adapter's default
	}
}

// WithTemperature sets the temperature option.
func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

// WithMaxTokens sets the max tokens option.
func WithMaxTokens(tokens int) Option {
	return func(o *Options) {
		o.MaxTokens = tokens
	}
}

// WithModel sets the model option.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Shaper is the interface for remote collaborators that rewrite a
// deterministic context block into tighter prose.
type Shaper interface {
	// Shape rewrites block for the given task, aiming for at most
	// budget characters. The returned text is advisory; callers must
	// enforce the budget themselves.
	Shape(ctx context.Context, task, block string, budget int, opts ...Option) (string, error)
}
