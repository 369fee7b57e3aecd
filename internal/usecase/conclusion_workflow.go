package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/evaluation"
	"github.com/fadilmartias/interview-coach/internal/llm"
	"github.com/fadilmartias/interview-coach/internal/logger"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxConcludeAttempts = 3

type Evaluator interface {
	Evaluate(ctx context.Context, in evaluation.Input) (*model.FinalEvaluation, error)
}

// EvaluationStatus is the polling view of a concluded session.
type EvaluationStatus struct {
	Status      model.SessionStatus    `json:"status"`
	Evaluation  *model.FinalEvaluation `json:"evaluation"`
	ConcludedAt *time.Time             `json:"concluded_at"`
	EvaluatedAt *time.Time             `json:"evaluated_at"`
}

// ConclusionWorkflow moves a session from active to evaluating and runs the
// evaluation in the background until it is completed or evaluation_failed.
type ConclusionWorkflow struct {
	sessions  SessionStore
	problems  ProblemReader
	evaluator Evaluator
	logger    *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewConclusionWorkflow(sessions SessionStore, problems ProblemReader, evaluator Evaluator, log *zap.Logger) *ConclusionWorkflow {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConclusionWorkflow{
		sessions:  sessions,
		problems:  problems,
		evaluator: evaluator,
		logger:    log.Named("conclusion"),
		now:       time.Now,
	}
}

// Conclude accepts the session for evaluation and returns immediately. The
// evaluating status is stored before the background job starts; of two
// concurrent calls the compare-and-swap lets exactly one through and the
// other observes evaluating and fails with ErrAlreadyConcluded.
func (w *ConclusionWorkflow) Conclude(ctx context.Context, id uuid.UUID) error {
	for attempt := 0; attempt < maxConcludeAttempts; attempt++ {
		s, err := w.sessions.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if s.Status != model.StatusActive {
			return apperror.AlreadyConcluded(string(s.Status))
		}

		now := w.now()
		s.Status = model.StatusEvaluating
		s.ConcludedAt = &now

		err = w.sessions.Save(ctx, s)
		if errors.Is(err, apperror.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return err
		}

		logger.WithSession(w.logger, id.String(), string(s.Phase)).Info("session concluded, evaluation started")
		w.launch(id)
		return nil
	}
	return &apperror.StateConflictError{Reason: apperror.ErrVersionConflict, Message: "session kept changing while concluding"}
}

// EvaluationStatus returns the current status and, once completed, the
// evaluation.
func (w *ConclusionWorkflow) EvaluationStatus(ctx context.Context, id uuid.UUID) (*EvaluationStatus, error) {
	s, err := w.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &EvaluationStatus{
		Status:      s.Status,
		Evaluation:  s.Evaluation,
		ConcludedAt: s.ConcludedAt,
		EvaluatedAt: s.EvaluatedAt,
	}, nil
}

// Wait blocks until every background evaluation has finished.
func (w *ConclusionWorkflow) Wait() {
	w.wg.Wait()
}

func (w *ConclusionWorkflow) launch(id uuid.UUID) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx := llm.WithCallInfo(context.Background(), llm.CallInfo{SessionID: id.String()})
		defer func() {
			if r := recover(); r != nil {
				w.fail(ctx, id, fmt.Errorf("panic during evaluation: %v", r))
			}
		}()
		w.run(ctx, id)
	}()
}

func (w *ConclusionWorkflow) run(ctx context.Context, id uuid.UUID) {
	log := logger.WithSession(w.logger, id.String(), "")
	start := w.now()

	s, err := w.sessions.FindByID(ctx, id)
	if err != nil {
		w.fail(ctx, id, err)
		return
	}
	problem, err := w.problems.FindByID(ctx, s.ProblemID)
	if err != nil {
		w.fail(ctx, id, err)
		return
	}

	final, err := w.evaluator.Evaluate(ctx, evaluation.Input{
		Problem:      *problem,
		Conversation: s.Conversation,
		BoardState:   s.BoardState,
		Checklist:    s.Checklist,
	})
	if err != nil {
		w.fail(ctx, id, err)
		return
	}

	_, err = updateSession(ctx, w.sessions, id, func(s *model.InterviewSession) error {
		if s.Status != model.StatusEvaluating {
			return fmt.Errorf("unexpected status %s", s.Status)
		}
		now := w.now()
		s.Conversation = append(s.Conversation, model.TextTurn(model.RoleSystem, model.EvaluationMarker, now))
		s.Status = model.StatusCompleted
		s.Evaluation = final
		s.EvaluatedAt = &now
		return nil
	})
	if err != nil {
		log.Error("failed to store evaluation", zap.Error(err))
		w.fail(ctx, id, err)
		return
	}
	log.Info("evaluation stored",
		zap.Int("overall_score", final.OverallScore),
		zap.Duration("elapsed", w.now().Sub(start)),
	)
}

// fail records evaluation_failed without an evaluation. Errors are logged
// only; there is no retry.
func (w *ConclusionWorkflow) fail(ctx context.Context, id uuid.UUID, cause error) {
	log := logger.WithSession(w.logger, id.String(), "")
	log.Error("evaluation failed", zap.Error(cause))

	_, err := updateSession(ctx, w.sessions, id, func(s *model.InterviewSession) error {
		if s.Status != model.StatusEvaluating {
			return fmt.Errorf("unexpected status %s", s.Status)
		}
		s.Status = model.StatusEvaluationFailed
		s.Evaluation = nil
		return nil
	})
	if err != nil {
		log.Error("failed to mark evaluation as failed", zap.Error(err))
	}
}
