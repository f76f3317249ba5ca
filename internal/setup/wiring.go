package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/openjudge/content-evaluator/internal/config"
	"github.com/openjudge/content-evaluator/internal/engine"
	"github.com/openjudge/content-evaluator/internal/judge"
	"github.com/openjudge/content-evaluator/internal/llm"
	"github.com/openjudge/content-evaluator/internal/llm/bedrock"
	"github.com/openjudge/content-evaluator/internal/llm/gpt"
	"github.com/openjudge/content-evaluator/internal/schema"
)

type Dependencies struct {
	Registry *schema.Registry
	Engine   *engine.Engine
	Logger   *zerolog.Logger
}

// Wire builds the full evaluation chain: LLM client, concurrency-limited
// judge, scheme registry and engine.
func Wire(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Dependencies, error) {
	llmClient, err := createLLMClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	registry, err := schema.LoadDir(cfg.SchemesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load schemes from %s: %w", cfg.SchemesDir, err)
	}
	logger.Info().
		Int("schemes", registry.Len()).
		Str("dir", cfg.SchemesDir).
		Msg("Schemes loaded")

	j := judge.NewLimited(
		judge.NewLLMJudge(llmClient, logger),
		int64(cfg.MaxConcurrentLLMCalls),
		time.Duration(cfg.OpenAITimeoutSeconds)*time.Second,
	)

	eng := engine.New(registry, j, cfg.ModelID(), logger)

	return &Dependencies{
		Registry: registry,
		Engine:   eng,
		Logger:   logger,
	}, nil
}

func createLLMClient(ctx context.Context, cfg *config.Config) (llm.LLMClient, error) {
	switch cfg.LLMProvider {
	case "bedrock":
		return bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID, cfg.MaxRetries)
	case "openai":
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL,
			time.Duration(cfg.OpenAITimeoutSeconds)*time.Second, cfg.MaxRetries)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
