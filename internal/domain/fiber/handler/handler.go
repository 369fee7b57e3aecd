package handler

import (
	"context"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/dto"
	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/fadilmartias/interview-coach/internal/usecase"
	"github.com/fadilmartias/interview-coach/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type InterviewService interface {
	Catalog() *interview.Catalog
	StartSession(ctx context.Context, problemID uuid.UUID) (*model.InterviewSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error)
	ListSessions(ctx context.Context, offset, limit int) ([]model.InterviewSession, int64, error)
	SendMessage(ctx context.Context, id uuid.UUID, text string) (*usecase.TurnResult, error)
	UpdateBoard(ctx context.Context, id uuid.UUID, board string) (*model.InterviewSession, error)
}

type ConclusionService interface {
	Conclude(ctx context.Context, id uuid.UUID) error
	EvaluationStatus(ctx context.Context, id uuid.UUID) (*usecase.EvaluationStatus, error)
}

type ProblemService interface {
	Create(ctx context.Context, p *model.Problem) error
	Get(ctx context.Context, id uuid.UUID) (*model.Problem, error)
	Similar(ctx context.Context, id uuid.UUID, k int) ([]model.Problem, error)
}

// CostReader sums the recorded model cost of a session.
type CostReader interface {
	SessionCost(ctx context.Context, sessionID string) (float64, error)
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, &apperror.ValidationError{Field: "id", Message: "must be a valid UUID"}
	}
	return id, nil
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return &apperror.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	if errs := dto.Validate(req); errs != nil {
		return util.NewFormError("invalid request", errs)
	}
	return nil
}

// respondError writes err as an error envelope. Server-side failures are
// logged here since the envelope is the last place they are seen.
func respondError(c *fiber.Ctx, log *zap.Logger, message string, err error) error {
	if !apperror.IsClientError(err) {
		log.Error(message,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", apperror.HTTPStatus(err)),
			zap.Error(err),
		)
	}
	return util.AppErrorResponse(c, message, err)
}
