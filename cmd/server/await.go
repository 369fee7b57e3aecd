package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fadilmartias/interview-coach/internal/client"
	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	awaitBaseURL string
	awaitTimeout time.Duration
)

var awaitCmd = &cobra.Command{
	Use:   "await-evaluation <session-id>",
	Short: "Poll a server until the evaluation of a concluded session is ready",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		baseURL := awaitBaseURL
		if baseURL == "" {
			baseURL = config.LoadAppConfig().BaseURL
		}
		poller := client.NewEvaluationPoller(baseURL, client.WithTimeout(awaitTimeout), client.WithLogger(log))
		res, err := poller.Wait(cmd.Context(), id)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"status": res.Status, "evaluation": res.Evaluation})
	},
}

func init() {
	awaitCmd.Flags().StringVar(&awaitBaseURL, "url", "", "Server base URL (defaults to APP_URL)")
	awaitCmd.Flags().DurationVar(&awaitTimeout, "timeout", client.DefaultPollTimeout, "Give up after this long; the server job keeps running")
	rootCmd.AddCommand(awaitCmd)
}
