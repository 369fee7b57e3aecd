package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/fadilmartias/interview-coach/internal/util"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// OpenRouterService generates JSON through OpenRouter's OpenAI-compatible
// chat completions endpoint.
type OpenRouterService struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

func NewOpenRouterService(cfg *config.OpenRouterConfig, log *zap.Logger) (*OpenRouterService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENROUTER_API_KEY not set")
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(90 * time.Second)

	return &OpenRouterService{client: client, model: cfg.Model, logger: log.Named("openrouter")}, nil
}

func (s *OpenRouterService) Provider() string {
	return config.ProviderOpenRouter
}

func (s *OpenRouterService) GenerateJSON(ctx context.Context, req llm.JSONRequest) (*llm.Completion, error) {
	modelName := firstNonEmpty(req.Model, s.model)
	log := logger.WithCommonFields(s.logger, s.Provider(), modelName)

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.SystemInstruction) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemInstruction})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})

	log.Debug("request", zap.String("prompt_preview", util.TruncateForLog(req.Prompt, 200)))

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":           modelName,
			"messages":        messages,
			"temperature":     req.Temperature,
			"response_format": map[string]string{"type": "json_object"},
		}).
		Post("/chat/completions")
	if err != nil {
		return nil, &apperror.ProviderError{Provider: s.Provider(), Message: "generate json", Cause: err}
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = util.TruncateForLog(body, 300)
		}
		log.Warn("request failed", zap.Int("status", resp.StatusCode()), zap.String("error", msg))
		return nil, &apperror.ProviderError{
			Provider: s.Provider(),
			Message:  "generate json",
			Cause:    fmt.Errorf("status %d: %s", resp.StatusCode(), msg),
		}
	}

	text := strings.TrimSpace(gjson.Get(body, "choices.0.message.content").String())
	if text == "" {
		return nil, &apperror.ProviderError{Provider: s.Provider(), Message: "generate json", Cause: errors.New("no response from LLM")}
	}

	if served := gjson.Get(body, "model").String(); served != "" {
		modelName = served
	}
	return &llm.Completion{
		Text:     text,
		Model:    modelName,
		Provider: s.Provider(),
		Usage: llm.Usage{
			PromptTokens: int(gjson.Get(body, "usage.prompt_tokens").Int()),
			OutputTokens: int(gjson.Get(body, "usage.completion_tokens").Int()),
		},
	}, nil
}
