package judge

import (
	"context"
	"fmt"
	"time"

	"github.com/openjudge/content-evaluator/internal/llm"
	"github.com/rs/zerolog"
)

// LLMJudge adapts an llm.LLMClient to the Judge interface, with transport
// retries handled by the client.
type LLMJudge struct {
	llmClient llm.LLMClient
	logger    *zerolog.Logger
}

func NewLLMJudge(llmClient llm.LLMClient, logger *zerolog.Logger) *LLMJudge {
	return &LLMJudge{
		llmClient: llmClient,
		logger:    logger,
	}
}

func (j *LLMJudge) Judge(ctx context.Context, req Request) (string, error) {
	now := time.Now()

	resp, err := j.llmClient.InvokeModelWithRetry(ctx, llm.LLMRequest{
		SystemPrompt: req.SystemPrompt,
		Prompt:       req.UserPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		j.logger.Error().
			Err(err).
			Dur("duration", time.Since(now)).
			Msg("LLM call failed")
		return "", fmt.Errorf("judge call failed: %w", err)
	}

	j.logger.Debug().
		Dur("duration", time.Since(now)).
		Str("stop_reason", resp.StopReason).
		Msg("judge call completed")

	return resp.Content, nil
}
