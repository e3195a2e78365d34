package llm

import "context"

// Completer is the external language-model capability the pipeline depends
// on: a single-turn, text-to-text request.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
