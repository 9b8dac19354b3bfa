package driven

import "context"

// CompletionService is a stateless text completion capability.
//
// Implementations report failures wrapped around one of
// domain.ErrRateLimited, domain.ErrTimeout or domain.ErrUnrecoverable so
// callers can decide whether to retry. Retry policy is the caller's concern.
type CompletionService interface {
	// Complete returns the generated text for a prompt.
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionOptions configures a completion request.
type CompletionOptions struct {
	// MaxOutputSize limits the generated output, in tokens.
	MaxOutputSize int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
