package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/repository"
	"github.com/fadilmartias/interview-coach/internal/service"
	"github.com/fadilmartias/interview-coach/internal/usage"
	"github.com/fadilmartias/interview-coach/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedEmbed  bool
	indexBatch int
)

var seedCmd = &cobra.Command{
	Use:   "seed-problems <file.yaml>",
	Short: "Create the problems of a YAML seed file, skipping existing titles",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

var indexCmd = &cobra.Command{
	Use:   "index-problems",
	Short: "Embed problems that have no embedding yet",
	RunE:  runIndex,
}

func init() {
	seedCmd.Flags().BoolVar(&seedEmbed, "embed", false, "Embed seeded problems with Gemini")
	indexCmd.Flags().IntVar(&indexBatch, "batch", 50, "Maximum number of problems to embed")
	rootCmd.AddCommand(seedCmd, indexCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	return withProblemUsecase(cmd.Context(), seedEmbed, func(uc *usecase.ProblemUsecase, log *zap.Logger) error {
		res, err := uc.Seed(cmd.Context(), data)
		if err != nil {
			return err
		}
		log.Info("seed finished", zap.Strings("created", res.Created), zap.Strings("skipped", res.Skipped))
		return nil
	})
}

func runIndex(cmd *cobra.Command, _ []string) error {
	return withProblemUsecase(cmd.Context(), true, func(uc *usecase.ProblemUsecase, log *zap.Logger) error {
		n, err := uc.IndexEmbeddings(cmd.Context(), indexBatch)
		if err != nil {
			return err
		}
		log.Info("problems indexed", zap.Int("count", n))
		return nil
	})
}

// withProblemUsecase wires the problem use case, with a metered Gemini
// embedder when embed is set, and flushes usage records afterwards.
func withProblemUsecase(ctx context.Context, embed bool, fn func(*usecase.ProblemUsecase, *zap.Logger) error) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	db, err := ConnectDB()
	if err != nil {
		return err
	}

	var embedder llm.Embedder
	if embed {
		geminiConfig := config.LoadGeminiConfig()
		gemini, err := service.NewGeminiService(ctx, geminiConfig, log)
		if err != nil {
			return err
		}
		meter := usage.NewMeter(repository.NewUsageRepository(db), usage.DefaultPricing(), config.LoadEvaluationConfig().UsageQueueSize, log)
		defer meter.Close()
		embedder = usage.NewMeteredEmbedder(gemini, meter, geminiConfig.EmbeddingModel)
	}

	uc := usecase.NewProblemUsecase(repository.NewProblemRepository(db), embedder, log)
	return fn(uc, log)
}
