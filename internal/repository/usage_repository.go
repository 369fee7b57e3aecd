package repository

import (
	"context"

	"github.com/fadilmartias/interview-coach/internal/apperror"
	"github.com/fadilmartias/interview-coach/internal/model"
	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db}
}

func (r *UsageRepository) RecordUsage(ctx context.Context, rec *model.UsageRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return &apperror.PersistenceError{Op: "record usage", Cause: err}
	}
	return nil
}

// SessionCost sums the recorded cost of a session.
func (r *UsageRepository) SessionCost(ctx context.Context, sessionID string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&model.UsageRecord{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(SUM(cost_usd), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, &apperror.PersistenceError{Op: "sum usage", Cause: err}
	}
	return total, nil
}
