package config

import (
	"log"
	"os"
	"sync"
)

type AppConfig struct {
	Name    string `mapstructure:"app_name"`
	Env     string `mapstructure:"app_env"`
	Port    string `mapstructure:"app_port"`
	BaseURL string `mapstructure:"app_url"`
	LogJSON bool   `mapstructure:"app_log_json"`
	Debug   bool   `mapstructure:"app_debug"`
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		if os.Getenv("APP_ENV") == "" {
			log.Printf("Warning: APP_ENV not set, defaulting to development")
		}
		cfg := &AppConfig{}
		loadEnv(map[string]any{
			"app_name":     "interview-coach",
			"app_env":      "development",
			"app_port":     ":8080",
			"app_url":      "http://localhost:8080",
			"app_log_json": false,
			"app_debug":    false,
		}, cfg)
		appConfig = cfg
	})
	return appConfig
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
