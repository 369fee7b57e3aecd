// Package client talks to a running interview-coach server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultPollTimeout  = 2 * time.Minute
	DefaultPollInterval = 2 * time.Second
)

// ErrPollTimeout is returned when the evaluation is still running after the
// poller's own timeout. The server job keeps running.
var ErrPollTimeout = errors.New("timed out waiting for evaluation")

// EvaluationResult is the terminal answer of the evaluation route.
type EvaluationResult struct {
	Status     model.SessionStatus
	Evaluation *model.FinalEvaluation
}

type EvaluationPoller struct {
	client   *resty.Client
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

type PollerOption func(*EvaluationPoller)

func WithTimeout(d time.Duration) PollerOption {
	return func(p *EvaluationPoller) { p.timeout = d }
}

func WithInterval(d time.Duration) PollerOption {
	return func(p *EvaluationPoller) { p.interval = d }
}

func WithLogger(log *zap.Logger) PollerOption {
	return func(p *EvaluationPoller) { p.logger = log }
}

func NewEvaluationPoller(baseURL string, opts ...PollerOption) *EvaluationPoller {
	p := &EvaluationPoller{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("Accept", "application/json").
			SetTimeout(15 * time.Second),
		timeout:  DefaultPollTimeout,
		interval: DefaultPollInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls the evaluation status of session id until it is completed or
// evaluation_failed, ctx is done or the poller timeout elapses.
func (p *EvaluationPoller) Wait(ctx context.Context, id uuid.UUID) (*EvaluationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		res, err := p.fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		if res.Status.Terminal() {
			return res, nil
		}
		p.logger.Debug("evaluation pending", zap.String("session_id", id.String()), zap.String("status", string(res.Status)))

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrPollTimeout
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *EvaluationPoller) fetch(ctx context.Context, id uuid.UUID) (*EvaluationResult, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", id.String()).
		Get("/sessions/{id}/evaluation")
	if err != nil {
		if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrPollTimeout
		}
		return nil, fmt.Errorf("fetch evaluation: %w", err)
	}
	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "message").String()
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("fetch evaluation: status %d: %s", resp.StatusCode(), msg)
	}

	res := &EvaluationResult{Status: model.SessionStatus(gjson.Get(body, "data.status").String())}
	if ev := gjson.Get(body, "data.evaluation"); ev.IsObject() {
		var final model.FinalEvaluation
		if err := json.Unmarshal([]byte(ev.Raw), &final); err != nil {
			return nil, fmt.Errorf("decode evaluation: %w", err)
		}
		res.Evaluation = &final
	}
	return res, nil
}
