package judge

import (
	"context"
)

// Request carries one prompt to the judging LLM.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// Judge is the single operation the evaluation engine needs from an LLM
// backend: text in, raw text (expected JSON) out. Implementations must be
// safe for concurrent use.
type Judge interface {
	Judge(ctx context.Context, req Request) (string, error)
}
