package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/domain/fiber/handler"
	"github.com/fadilmartias/interview-coach/internal/evaluation"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/middleware"
	"github.com/fadilmartias/interview-coach/internal/repository"
	"github.com/fadilmartias/interview-coach/internal/service"
	"github.com/fadilmartias/interview-coach/internal/usage"
	"github.com/fadilmartias/interview-coach/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Migrate the database schema before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	appConfig := config.LoadAppConfig()
	geminiConfig := config.LoadGeminiConfig()
	evalConfig := config.LoadEvaluationConfig()

	db, err := ConnectDB()
	if err != nil {
		return err
	}
	if serveMigrate {
		if err := Migrate(db); err != nil {
			return err
		}
	}

	sessionRepo := repository.NewInterviewSessionRepository(db)
	problemRepo := repository.NewProblemRepository(db)
	usageRepo := repository.NewUsageRepository(db)

	gemini, err := service.NewGeminiService(ctx, geminiConfig, log)
	if err != nil {
		return err
	}
	summarizer, summarizerModel, err := newSummarizer(gemini, evalConfig, log)
	if err != nil {
		return err
	}

	meter := usage.NewMeter(usageRepo, usage.DefaultPricing(), evalConfig.UsageQueueSize, log)
	catalog := interview.DefaultCatalog()

	orchestrator := evaluation.NewOrchestrator(
		usage.NewMeteredJSONGenerator(gemini, meter),
		usage.NewMeteredJSONGenerator(summarizer, meter),
		catalog,
		evaluation.Options{
			JudgeModel:      geminiConfig.JudgeModel,
			SummarizerModel: summarizerModel,
			Logger:          log.Named("evaluation"),
		},
	)

	interviews := usecase.NewInterviewUsecase(
		sessionRepo,
		problemRepo,
		usage.NewMeteredChatModel(gemini, meter),
		catalog,
		evalConfig.ChatMaxToolRounds,
		log,
	)
	workflow := usecase.NewConclusionWorkflow(sessionRepo, problemRepo, orchestrator, log)
	problems := usecase.NewProblemUsecase(
		problemRepo,
		usage.NewMeteredEmbedder(gemini, meter, geminiConfig.EmbeddingModel),
		log,
	)

	app := newApp(appConfig, log)
	handler.NewInterviewHandler(interviews, workflow, usageRepo, log).RegisterRoutes(app)
	handler.NewProblemHandler(problems, log).RegisterRoutes(app)

	go monitorGoroutines(ctx, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server running", zap.String("port", appConfig.Port))
		errCh <- app.Listen(appConfig.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	// Evaluations already accepted finish before the usage queue is drained.
	workflow.Wait()
	meter.Close()
	log.Info("server stopped", zap.Int64("usage_events_dropped", meter.Dropped()))
	return nil
}

// newSummarizer picks the provider of the consensus pass.
func newSummarizer(gemini *service.GeminiService, cfg *config.EvaluationConfig, log *zap.Logger) (llm.JSONGenerator, string, error) {
	switch cfg.SummarizerProvider {
	case config.ProviderGemini, "":
		return gemini, cfg.SummarizerModel, nil
	case config.ProviderOpenRouter:
		openRouterConfig := config.LoadOpenRouterConfig()
		openRouter, err := service.NewOpenRouterService(openRouterConfig, log)
		if err != nil {
			return nil, "", err
		}
		return openRouter, openRouterConfig.Model, nil
	default:
		return nil, "", fmt.Errorf("unknown summarizer provider %q", cfg.SummarizerProvider)
	}
}

func newApp(appConfig *config.AppConfig, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}
			return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
		},
	})
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New())
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.RateLimiter(50, 1*time.Minute))
	return app
}

func monitorGoroutines(ctx context.Context, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Debug("runtime", zap.Int("goroutines", runtime.NumGoroutine()))
		}
	}
}
