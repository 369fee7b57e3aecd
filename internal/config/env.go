package config

import (
	"log"

	"github.com/spf13/viper"
)

// loadEnv decodes environment variables into out. Every key read must have a
// default so viper's AutomaticEnv can resolve it during Unmarshal.
func loadEnv(defaults map[string]any, out any) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	if err := v.Unmarshal(out); err != nil {
		log.Printf("Warning: could not decode configuration: %v", err)
	}
}
