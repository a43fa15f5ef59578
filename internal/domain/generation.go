package domain

import "context"

// TextGenerator completes a prompt with a hosted text model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// Generation is a completed prompt with its token usage.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}
