// Package main is the interview-coach command: the HTTP server plus the
// maintenance commands that share its configuration.
package main

import (
	"fmt"
	"os"

	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "interview-coach",
	Short: "System design mock interview server",
	Long: "interview-coach runs phase-driven system design interviews against a language model, " +
		"tracks a weighted criteria checklist and produces a consensus evaluation when a session is concluded.",
	SilenceUsage: true,
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Could not load .env file, using the environment")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	appConfig := config.LoadAppConfig()
	return logger.New(appConfig.LogJSON, appConfig.Debug)
}
