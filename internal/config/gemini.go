package config

import (
	"sync"
	"time"
)

type GeminiConfig struct {
	APIKey         string        `mapstructure:"gemini_api_key"`
	ChatModel      string        `mapstructure:"gemini_chat_model"`
	JudgeModel     string        `mapstructure:"gemini_judge_model"`
	EmbeddingModel string        `mapstructure:"gemini_embedding_model"`
	MaxRetries     int           `mapstructure:"gemini_max_retries"`
	RequestTimeout time.Duration `mapstructure:"gemini_request_timeout"`
}

var (
	geminiConfig *GeminiConfig
	geminiOnce   sync.Once
)

func LoadGeminiConfig() *GeminiConfig {
	geminiOnce.Do(func() {
		cfg := &GeminiConfig{}
		loadEnv(map[string]any{
			"gemini_api_key":         "",
			"gemini_chat_model":      "gemini-2.5-flash",
			"gemini_judge_model":     "gemini-2.5-pro",
			"gemini_embedding_model": "gemini-embedding-001",
			"gemini_max_retries":     0,
			"gemini_request_timeout": "90s",
		}, cfg)
		geminiConfig = cfg
	})
	return geminiConfig
}
