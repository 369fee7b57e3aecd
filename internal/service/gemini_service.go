package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/config"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/fadilmartias/interview-coach/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const maxEmbeddingChars = 10000

// generativeModels is the subset of *genai.Models the service calls.
type generativeModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// sleep waits for d or until ctx is done. Tests replace it.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GeminiService implements chat with function calling, JSON generation and
// embeddings on top of the Gemini API. Calls are retried with exponential
// backoff when MaxRetries > 0 and rejected while the circuit breaker is open.
// An open breaker lets one trial call through after CircuitCooldown.
type GeminiService struct {
	models         generativeModels
	chatModel      string
	judgeModel     string
	embeddingModel string
	logger         *zap.Logger

	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout  time.Duration
	CircuitCooldown time.Duration

	mu                sync.Mutex
	consecutiveErrors int
	circuitBreakerMax int
	openedAt          time.Time
	now               func() time.Time
}

func NewGeminiService(ctx context.Context, cfg *config.GeminiConfig, log *zap.Logger) (*GeminiService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiService(client.Models, cfg, log), nil
}

func newGeminiService(models generativeModels, cfg *config.GeminiConfig, log *zap.Logger) *GeminiService {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &GeminiService{
		models:            models,
		chatModel:         cfg.ChatModel,
		judgeModel:        cfg.JudgeModel,
		embeddingModel:    cfg.EmbeddingModel,
		logger:            log.Named("gemini"),
		MaxRetries:        cfg.MaxRetries,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		RequestTimeout:    timeout,
		CircuitCooldown:   30 * time.Second,
		circuitBreakerMax: 5,
		now:               time.Now,
	}
}

func (s *GeminiService) Provider() string {
	return config.ProviderGemini
}

// Chat runs one interviewer turn. Tool calls requested by the model are
// returned alongside any text.
func (s *GeminiService) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	modelName := firstNonEmpty(req.Model, s.chatModel)
	contents := toGeminiContents(req.History)
	if len(contents) == 0 {
		return nil, s.providerError("chat", errors.New("conversation history is empty"))
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
		Tools:       toGeminiTools(req.Tools),
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := s.generate(ctx, "chat", modelName, contents, genConfig)
	if err != nil {
		return nil, err
	}

	out := &llm.ChatResponse{Model: modelName, Usage: usageOf(resp)}
	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, model.ToolInvocation{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		if text := strings.TrimSpace(part.Text); text != "" && !part.Thought {
			texts = append(texts, text)
		}
	}
	out.Text = strings.Join(texts, "\n")
	return out, nil
}

// GenerateJSON asks for an application/json response.
func (s *GeminiService) GenerateJSON(ctx context.Context, req llm.JSONRequest) (*llm.Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, s.providerError("generate json", errors.New("prompt cannot be empty"))
	}
	modelName := firstNonEmpty(req.Model, s.judgeModel)

	genConfig := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: "application/json",
	}
	if strings.TrimSpace(req.SystemInstruction) != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	resp, err := s.generate(ctx, "generate json", modelName, genai.Text(req.Prompt), genConfig)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, s.providerError("generate json", errors.New("empty response"))
	}
	return &llm.Completion{Text: text, Model: modelName, Provider: s.Provider(), Usage: usageOf(resp)}, nil
}

// Embed returns the embedding of text, truncated to maxEmbeddingChars.
func (s *GeminiService) Embed(ctx context.Context, text string) ([]float32, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, s.providerError("embed", errors.New("text for embedding cannot be empty"))
	}
	if runes := []rune(trimmed); len(runes) > maxEmbeddingChars {
		s.logger.Warn("embedding text exceeds limit, truncating", zap.Int("length", len(runes)))
		trimmed = string(runes[:maxEmbeddingChars])
	}

	contents := []*genai.Content{genai.NewContentFromText(trimmed, genai.RoleUser)}
	var values []float32
	err := s.withRetry(ctx, "embed", s.embeddingModel, func(callCtx context.Context) error {
		resp, err := s.models.EmbedContent(callCtx, s.embeddingModel, contents, nil)
		if err != nil {
			return err
		}
		values, err = validateEmbeddingResponse(resp)
		if err != nil {
			return permanent(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (s *GeminiService) generate(ctx context.Context, op, modelName string, contents []*genai.Content, genConfig *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	var resp *genai.GenerateContentResponse
	err := s.withRetry(ctx, op, modelName, func(callCtx context.Context) error {
		result, err := s.models.GenerateContent(callCtx, modelName, contents, genConfig)
		if err != nil {
			return err
		}
		if err := validateGenerateResponse(result); err != nil {
			return permanent(err)
		}
		resp = result
		return nil
	})
	return resp, err
}

// permanentError marks a failure that must not be retried.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

func (s *GeminiService) withRetry(ctx context.Context, op, modelName string, call func(context.Context) error) error {
	log := logger.WithCommonFields(s.logger, s.Provider(), modelName).With(zap.String("op", op))

	if count, open := s.CircuitBreakerStatus(); open {
		return s.providerError(op, fmt.Errorf("circuit breaker open: too many consecutive errors (%d)", count))
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			log.Info("retrying", zap.Int("attempt", attempt), zap.Int("max_retries", s.MaxRetries), zap.Duration("delay", delay))
			if err := sleep(timeoutCtx, delay); err != nil {
				if ctx.Err() == nil {
					s.recordFailure()
				}
				return s.providerError(op, fmt.Errorf("context timeout during retry: %w", err))
			}
		}

		start := time.Now()
		err := call(timeoutCtx)
		if err == nil {
			s.recordSuccess()
			log.Debug("call succeeded", zap.Duration("elapsed", time.Since(start)))
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// The caller gave up; that says nothing about the provider.
			log.Debug("call cancelled by caller", zap.Error(err))
			return s.providerError(op, err)
		}
		if !isRetryableError(err) {
			log.Warn("non-retryable error", zap.Error(err))
			s.recordFailure()
			return s.providerError(op, err)
		}
		log.Warn("retryable error", zap.Int("attempt", attempt+1), zap.String("error", util.TruncateForLog(err.Error(), 300)))
	}

	s.recordFailure()
	return s.providerError(op, fmt.Errorf("max retries (%d) exceeded: %w", s.MaxRetries, lastErr))
}

func (s *GeminiService) providerError(op string, err error) error {
	return &apperror.ProviderError{Provider: s.Provider(), Message: op, Cause: err}
}

func (s *GeminiService) calculateBackoff(attempt int) time.Duration {
	delay := s.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > s.MaxDelay {
		delay = s.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25)
	if jitter <= 0 {
		return delay
	}
	return delay - jitter/2 + time.Duration(rand.Int64N(int64(jitter)))
}

func (s *GeminiService) recordSuccess() {
	s.mu.Lock()
	s.consecutiveErrors = 0
	s.openedAt = time.Time{}
	s.mu.Unlock()
}

// recordFailure restarts the cooldown whenever the breaker is at or past its
// threshold, so a failed trial call keeps it open.
func (s *GeminiService) recordFailure() {
	s.mu.Lock()
	s.consecutiveErrors++
	if s.consecutiveErrors >= s.circuitBreakerMax {
		s.openedAt = s.now()
	}
	s.mu.Unlock()
}

func (s *GeminiService) ResetCircuitBreaker() {
	s.recordSuccess()
	s.logger.Info("circuit breaker reset")
}

// CircuitBreakerStatus reports the failure streak and whether calls are
// currently rejected. The breaker is half-open once CircuitCooldown has
// elapsed since the last failure that kept it tripped.
func (s *GeminiService) CircuitBreakerStatus() (consecutiveErrors int, isOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consecutiveErrors < s.circuitBreakerMax {
		return s.consecutiveErrors, false
	}
	return s.consecutiveErrors, s.now().Sub(s.openedAt) < s.CircuitCooldown
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var perm permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case 0:
	default:
		return false
	}

	msg := err.Error()
	for _, transient := range []string{"connection refused", "connection reset", "timeout", "temporary failure", "EOF"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}

func validateGenerateResponse(resp *genai.GenerateContentResponse) error {
	switch {
	case resp == nil:
		return errors.New("response is nil")
	case len(resp.Candidates) == 0:
		return errors.New("no candidates in response")
	case resp.Candidates[0].Content == nil:
		return errors.New("candidate content is nil")
	case len(resp.Candidates[0].Content.Parts) == 0:
		return errors.New("no parts in content")
	}
	return nil
}

func validateEmbeddingResponse(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil {
		return nil, errors.New("response is nil")
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("no embeddings returned")
	}
	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, errors.New("embedding vector is empty")
	}
	for i, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("invalid embedding value at index %d: %v", i, v)
		}
	}
	return values, nil
}

func usageOf(resp *genai.GenerateContentResponse) llm.Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return llm.Usage{}
	}
	return llm.Usage{
		PromptTokens: int(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
