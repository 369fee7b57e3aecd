package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sessionColumns are written by Save. id and created_at never change.
var sessionColumns = []string{
	"phase", "status", "conversation", "board_state", "prior_board_state",
	"checklist", "evaluation", "version", "concluded_at", "evaluated_at", "updated_at",
}

type InterviewSessionRepository struct {
	db *gorm.DB
}

func NewInterviewSessionRepository(db *gorm.DB) *InterviewSessionRepository {
	return &InterviewSessionRepository{db}
}

func (r *InterviewSessionRepository) Create(ctx context.Context, s *model.InterviewSession) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return &apperror.PersistenceError{Op: "create session", Cause: err}
	}
	return nil
}

func (r *InterviewSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperror.NotFoundError{Resource: "session", ID: id.String()}
	}
	if err != nil {
		return nil, &apperror.PersistenceError{Op: "find session", Cause: err}
	}
	return &s, nil
}

// Save writes s only if the stored version still equals s.Version, then
// bumps the version. A stale write fails with ErrVersionConflict and leaves
// s unchanged.
func (r *InterviewSessionRepository) Save(ctx context.Context, s *model.InterviewSession) error {
	expected := s.Version
	next := *s
	next.Version = expected + 1
	next.UpdatedAt = time.Now()

	res := r.db.WithContext(ctx).
		Model(&model.InterviewSession{}).
		Where("id = ? AND version = ?", s.ID, expected).
		Select(sessionColumns).
		Updates(&next)
	if res.Error != nil {
		return &apperror.PersistenceError{Op: "save session", Cause: res.Error}
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.InterviewSession{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
			return &apperror.PersistenceError{Op: "save session", Cause: err}
		}
		if count == 0 {
			return &apperror.NotFoundError{Resource: "session", ID: s.ID.String()}
		}
		return &apperror.StateConflictError{Reason: apperror.ErrVersionConflict, Message: "version " + strconv.FormatInt(expected, 10)}
	}

	s.Version = next.Version
	s.UpdatedAt = next.UpdatedAt
	return nil
}

// List returns a page of sessions, newest first, without their transcripts.
func (r *InterviewSessionRepository) List(ctx context.Context, offset, limit int) ([]model.InterviewSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.InterviewSession{}).Count(&total).Error; err != nil {
		return nil, 0, &apperror.PersistenceError{Op: "count sessions", Cause: err}
	}

	var sessions []model.InterviewSession
	err := r.db.WithContext(ctx).
		Omit("conversation", "board_state", "prior_board_state").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, &apperror.PersistenceError{Op: "list sessions", Cause: err}
	}
	return sessions, total, nil
}
