package llm

import (
	"context"
)

// LLMClient abstracts the model provider behind the judge. Both the
// OpenAI and the Bedrock client implement it, and tests substitute a
// scripted fake.
type LLMClient interface {
	InvokeModel(ctx context.Context, request LLMRequest) (*LLMResponse, error)
	InvokeModelWithRetry(ctx context.Context, request LLMRequest) (*LLMResponse, error)
}
