// Package llm holds the provider-neutral LLM contract, the shared JSON-over-HTTP
// transport, and the normalizer that turns model output into sheets.
package llm

import "context"

// Client sends one prompt and returns the model's raw text reply.
// Implementations make exactly one request per call; retries are the caller's business.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
	Model() string
}

// ClientFunc adapts a function to Client. Handy for tests and probes.
type ClientFunc func(ctx context.Context, prompt string) (string, error)

func (f ClientFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f ClientFunc) Name() string  { return "func" }
func (f ClientFunc) Model() string { return "" }
