package dto

import (
	"time"

	"github.com/fadilmartias/interview-coach/internal/interview"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
)

type CreateProblemRequest struct {
	Title              string             `json:"title" validate:"required,max=255"`
	Description        string             `json:"description" validate:"required"`
	Requirements       model.Requirements `json:"requirements"`
	EvaluationCriteria []string           `json:"evaluation_criteria" validate:"dive,required"`
}

func (r CreateProblemRequest) ToModel() *model.Problem {
	return &model.Problem{
		Title:              r.Title,
		Description:        r.Description,
		Requirements:       r.Requirements,
		EvaluationCriteria: r.EvaluationCriteria,
	}
}

type ProblemDTO struct {
	ID                 uuid.UUID          `json:"id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	Requirements       model.Requirements `json:"requirements"`
	EvaluationCriteria []string           `json:"evaluation_criteria"`
	Indexed            bool               `json:"indexed"`
	CreatedAt          time.Time          `json:"created_at"`
}

func NewProblemDTO(p *model.Problem) ProblemDTO {
	return ProblemDTO{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Requirements:       p.Requirements,
		EvaluationCriteria: p.EvaluationCriteria,
		Indexed:            p.Embedding != nil,
		CreatedAt:          p.CreatedAt,
	}
}

type CriteriaResponse struct {
	Categories []string              `json:"categories"`
	Criteria   []interview.Criterion `json:"criteria"`
}
