package repository

import (
	"context"
	"errors"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProblemRepository struct {
	db *gorm.DB
}

func NewProblemRepository(db *gorm.DB) *ProblemRepository {
	return &ProblemRepository{db}
}

func (r *ProblemRepository) Create(ctx context.Context, p *model.Problem) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return &apperror.PersistenceError{Op: "create problem", Cause: err}
	}
	return nil
}

func (r *ProblemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Problem, error) {
	var p model.Problem
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperror.NotFoundError{Resource: "problem", ID: id.String()}
	}
	if err != nil {
		return nil, &apperror.PersistenceError{Op: "find problem", Cause: err}
	}
	return &p, nil
}

// FindByTitle returns nil without error when no problem has the title.
func (r *ProblemRepository) FindByTitle(ctx context.Context, title string) (*model.Problem, error) {
	var p model.Problem
	err := r.db.WithContext(ctx).Where("title = ?", title).Limit(1).Find(&p).Error
	if err != nil {
		return nil, &apperror.PersistenceError{Op: "find problem", Cause: err}
	}
	if p.ID == uuid.Nil {
		return nil, nil
	}
	return &p, nil
}

// SearchSimilar returns the k problems nearest to embedding by L2 distance,
// skipping exclude and problems that were never indexed.
func (r *ProblemRepository) SearchSimilar(ctx context.Context, embedding pgvector.Vector, exclude uuid.UUID, k int) ([]model.Problem, error) {
	var problems []model.Problem
	err := r.db.WithContext(ctx).
		Where("embedding IS NOT NULL AND id <> ?", exclude).
		Clauses(clause.OrderBy{Expression: clause.Expr{SQL: "embedding <-> ?", Vars: []any{embedding}}}).
		Limit(k).
		Find(&problems).Error
	if err != nil {
		return nil, &apperror.PersistenceError{Op: "search problems", Cause: err}
	}
	return problems, nil
}

func (r *ProblemRepository) ListWithoutEmbedding(ctx context.Context, limit int) ([]model.Problem, error) {
	var problems []model.Problem
	err := r.db.WithContext(ctx).
		Where("embedding IS NULL").
		Order("created_at").
		Limit(limit).
		Find(&problems).Error
	if err != nil {
		return nil, &apperror.PersistenceError{Op: "list unindexed problems", Cause: err}
	}
	return problems, nil
}

func (r *ProblemRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding pgvector.Vector) error {
	err := r.db.WithContext(ctx).
		Model(&model.Problem{}).
		Where("id = ?", id).
		Update("embedding", embedding).Error
	if err != nil {
		return &apperror.PersistenceError{Op: "update problem embedding", Cause: err}
	}
	return nil
}
