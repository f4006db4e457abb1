package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text for the prompt. The context bounds the
	// call; a hung model invocation must not block forever.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
