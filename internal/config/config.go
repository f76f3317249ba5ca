package config

import (
	"os"
	"strconv"
)

// Config collects every environment-driven setting of the service.
type Config struct {
	// HTTP surface
	APIHost            string
	APIPort            int
	HTTPTimeoutSeconds int

	// Schemes
	SchemesDir string

	// LLM provider selection: "openai" or "bedrock"
	LLMProvider string

	// OpenAI
	OpenAIKey            string
	OpenAIModel          string
	OpenAIBaseURL        string
	OpenAITimeoutSeconds int

	// Bedrock
	AWSRegion     string
	ClaudeModelID string

	// Evaluation
	MaxConcurrentLLMCalls int
	MaxRetries            int

	// Redis streaming
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RequestStream string
	ResultStream  string
	ConsumerGroup string
	ConsumerName  string

	LogLevel string
}

func Load() *Config {
	return &Config{
		APIHost:            getEnv("API_HOST", "0.0.0.0"),
		APIPort:            getEnvInt("API_PORT", 8080),
		HTTPTimeoutSeconds: getEnvInt("HTTP_TIMEOUT_SECONDS", 60),

		SchemesDir: getEnv("SCHEMES_DIR", "schemes"),

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),

		OpenAIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", ""),
		OpenAITimeoutSeconds: getEnvInt("OPENAI_TIMEOUT_SECONDS", 60),

		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID: getEnv("CLAUDE_MODEL_ID", ""),

		MaxConcurrentLLMCalls: getEnvInt("MAX_CONCURRENT_LLM_CALLS", 20),
		MaxRetries:            getEnvInt("LLM_MAX_RETRIES", 2),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RequestStream: getEnv("REDIS_REQUEST_STREAM", "evaluation:requests"),
		ResultStream:  getEnv("REDIS_RESULT_STREAM", "evaluation:results"),
		ConsumerGroup: getEnv("REDIS_CONSUMER_GROUP", "evaluators"),
		ConsumerName:  getEnv("REDIS_CONSUMER_NAME", "evaluator-1"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// ModelID reports the model name of the active provider, for response metadata.
func (c *Config) ModelID() string {
	if c.LLMProvider == "bedrock" {
		return c.ClaudeModelID
	}
	return c.OpenAIModel
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		value = defaultValue
	}

	return value
}
