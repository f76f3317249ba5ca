package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.APIPort)
	}
	if cfg.MaxConcurrentLLMCalls != 20 {
		t.Errorf("expected default concurrency 20, got %d", cfg.MaxConcurrentLLMCalls)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("expected default provider openai, got %q", cfg.LLMProvider)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %q", cfg.OpenAIModel)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("expected default retry count 2, got %d", cfg.MaxRetries)
	}
	if cfg.SchemesDir != "schemes" {
		t.Errorf("expected default schemes dir, got %q", cfg.SchemesDir)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAX_CONCURRENT_LLM_CALLS", "7")
	t.Setenv("LLM_PROVIDER", "bedrock")
	t.Setenv("CLAUDE_MODEL_ID", "anthropic.claude-3-5-sonnet-20241022-v2:0")

	cfg := Load()

	if cfg.MaxConcurrentLLMCalls != 7 {
		t.Errorf("expected concurrency 7, got %d", cfg.MaxConcurrentLLMCalls)
	}
	if cfg.ModelID() != "anthropic.claude-3-5-sonnet-20241022-v2:0" {
		t.Errorf("expected bedrock model id, got %q", cfg.ModelID())
	}
}

func TestLoadIgnoresBadInt(t *testing.T) {
	t.Setenv("API_PORT", "not-a-number")

	cfg := Load()
	if cfg.APIPort != 8080 {
		t.Errorf("expected fallback to default port, got %d", cfg.APIPort)
	}
}
