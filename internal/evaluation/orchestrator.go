// Package evaluation turns a finished interview into a FinalEvaluation by
// running independent judge passes concurrently and reconciling them with a
// summarizer pass.
package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/fadilmartias/interview-coach/internal/prompts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JudgePasses is the number of independent judge calls per evaluation.
const JudgePasses = 2

// Operation names attached to model calls for usage accounting.
const (
	OperationJudge     = "judge"
	OperationSummarize = "summarize"
)

const (
	judgeTemperature      = 0.2
	summarizerTemperature = 0.0
)

// Input is the snapshot of a session that gets evaluated.
type Input struct {
	Problem      model.Problem
	Conversation []model.Turn
	BoardState   string
	Checklist    model.Checklist
}

type Options struct {
	JudgeModel      string
	SummarizerModel string
	Logger          *zap.Logger
}

type Orchestrator struct {
	judge      llm.JSONGenerator
	summarizer llm.JSONGenerator
	catalog    *interview.Catalog
	opts       Options
	logger     *zap.Logger
}

func NewOrchestrator(judge, summarizer llm.JSONGenerator, catalog *interview.Catalog, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		judge:      judge,
		summarizer: summarizer,
		catalog:    catalog,
		opts:       opts,
		logger:     log,
	}
}

// Evaluate runs the judge passes concurrently, waits for all of them and then
// runs the summarizer. Any failing pass fails the whole evaluation; there is
// no partial result and no retry.
func (o *Orchestrator) Evaluate(ctx context.Context, in Input) (*model.FinalEvaluation, error) {
	req := llm.JSONRequest{
		Model:             o.opts.JudgeModel,
		SystemInstruction: prompts.MustGet(prompts.EvaluationFile, "judge-system"),
		Prompt:            o.judgePrompt(in),
		Temperature:       judgeTemperature,
	}
	log := logger.WithCommonFields(o.logger, o.judge.Provider(), o.opts.JudgeModel)

	judges := make([]*model.JudgeEvaluation, JudgePasses)
	g, gctx := errgroup.WithContext(ctx)
	for i := range judges {
		g.Go(func() error {
			je, err := o.runJudge(withOperation(gctx, OperationJudge), req)
			if err != nil {
				log.Warn("judge pass failed", zap.Int("pass", i), zap.Error(err))
				return err
			}
			judges[i] = je
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := o.summarize(withOperation(ctx, OperationSummarize), in, judges)
	if err != nil {
		return nil, &apperror.SummarizationError{Cause: err}
	}

	final := Consensus(judges, summary)
	log.Info("evaluation completed",
		zap.Ints("judge_scores", final.JudgeScores),
		zap.Int("overall_score", final.OverallScore),
	)
	return final, nil
}

func (o *Orchestrator) runJudge(ctx context.Context, req llm.JSONRequest) (*model.JudgeEvaluation, error) {
	completion, err := o.judge.GenerateJSON(ctx, req)
	if err != nil {
		return nil, asProviderError(o.judge.Provider(), err)
	}
	return ParseJudgeEvaluation("judge", completion.Text)
}

func (o *Orchestrator) summarize(ctx context.Context, in Input, judges []*model.JudgeEvaluation) (*model.JudgeEvaluation, error) {
	a, err := json.MarshalIndent(judges[0], "", "  ")
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(judges[1], "", "  ")
	if err != nil {
		return nil, err
	}
	prompt := prompts.Format(prompts.MustGet(prompts.EvaluationFile, "summarizer"), map[string]string{
		"Title":     in.Problem.Title,
		"Criteria":  o.renderCriteria(),
		"Checklist": interview.RenderChecklist(o.catalog, in.Checklist),
		"JudgeA":    string(a),
		"JudgeB":    string(b),
	})

	completion, err := o.summarizer.GenerateJSON(ctx, llm.JSONRequest{
		Model:             o.opts.SummarizerModel,
		SystemInstruction: prompts.MustGet(prompts.EvaluationFile, "summarizer-system"),
		Prompt:            prompt,
		Temperature:       summarizerTemperature,
	})
	if err != nil {
		return nil, asProviderError(o.summarizer.Provider(), err)
	}
	return ParseJudgeEvaluation("summarizer", completion.Text)
}

func (o *Orchestrator) judgePrompt(in Input) string {
	board := strings.TrimSpace(in.BoardState)
	if board == "" {
		board = "(empty)"
	}
	return prompts.Format(prompts.MustGet(prompts.EvaluationFile, "judge"), map[string]string{
		"Title":        in.Problem.Title,
		"Description":  in.Problem.Description,
		"Requirements": interview.RenderRequirements(in.Problem.Requirements),
		"Criteria":     o.renderCriteria(),
		"Checklist":    interview.RenderChecklist(o.catalog, in.Checklist),
		"Board":        board,
		"Transcript":   RenderTranscript(in.Conversation),
	})
}

func (o *Orchestrator) renderCriteria() string {
	var b strings.Builder
	for _, cr := range o.catalog.List() {
		kind := "adds"
		if cr.IsRedFlag {
			kind = "red flag, deducts"
		}
		fmt.Fprintf(&b, "- %s (%d%%, %s): %s\n", cr.Name, cr.WeightPercent, kind, cr.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTranscript writes the candidate and interviewer turns as plain text.
// Tool traffic and system markers are left out.
func RenderTranscript(turns []model.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		var speaker string
		switch t.Role {
		case model.RoleUser:
			speaker = "Candidate"
		case model.RoleModel:
			speaker = "Interviewer"
		default:
			continue
		}
		text := t.Text()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, text)
	}
	if b.Len() == 0 {
		return "(no conversation)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func withOperation(ctx context.Context, op string) context.Context {
	info := llm.CallInfoFrom(ctx)
	info.Operation = op
	return llm.WithCallInfo(ctx, info)
}

func asProviderError(provider string, err error) error {
	var pe *apperror.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &apperror.ProviderError{Provider: provider, Message: "generate json", Cause: err}
}
