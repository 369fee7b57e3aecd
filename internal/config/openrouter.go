package config

import (
	"sync"
)

type OpenRouterConfig struct {
	APIKey  string `mapstructure:"openrouter_api_key"`
	Model   string `mapstructure:"openrouter_model"`
	BaseURL string `mapstructure:"openrouter_base_url"`
}

var (
	openRouterConfig *OpenRouterConfig
	openRouterOnce   sync.Once
)

func LoadOpenRouterConfig() *OpenRouterConfig {
	openRouterOnce.Do(func() {
		cfg := &OpenRouterConfig{}
		loadEnv(map[string]any{
			"openrouter_api_key":  "",
			"openrouter_model":    "openai/gpt-4o-mini",
			"openrouter_base_url": "https://openrouter.ai/api/v1",
		}, cfg)
		openRouterConfig = cfg
	})
	return openRouterConfig
}
