package compose

import "context"

// Generator produces free text from a prompt. Implemented by transport/gemini.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
