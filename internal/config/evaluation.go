package config

import (
	"sync"
)

const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type EvaluationConfig struct {
	SummarizerProvider string `mapstructure:"eval_summarizer_provider"`
	SummarizerModel    string `mapstructure:"eval_summarizer_model"`
	ChatMaxToolRounds  int    `mapstructure:"chat_max_tool_rounds"`
	UsageQueueSize     int    `mapstructure:"usage_queue_size"`
}

var (
	evaluationConfig *EvaluationConfig
	evaluationOnce   sync.Once
)

func LoadEvaluationConfig() *EvaluationConfig {
	evaluationOnce.Do(func() {
		cfg := &EvaluationConfig{}
		loadEnv(map[string]any{
			"eval_summarizer_provider": ProviderGemini,
			"eval_summarizer_model":    "gemini-2.5-flash",
			"chat_max_tool_rounds":     5,
			"usage_queue_size":         256,
		}, cfg)
		evaluationConfig = cfg
	})
	return evaluationConfig
}
