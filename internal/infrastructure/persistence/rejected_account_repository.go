package persistence

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRejectedAccountRepository implements billing.RejectedAccountRepository using GORM
type GormRejectedAccountRepository struct {
	db *gorm.DB
}

// NewGormRejectedAccountRepository creates a new GormRejectedAccountRepository
func NewGormRejectedAccountRepository(db *gorm.DB) *GormRejectedAccountRepository {
	return &GormRejectedAccountRepository{db: db}
}

// Save records one account rejection
func (r *GormRejectedAccountRepository) Save(ctx context.Context, rejected *billing.RejectedAccount) error {
	var model models.RejectedAccountModel
	model.FromDomain(rejected)
	return r.db.WithContext(ctx).Create(&model).Error
}

// ByRun returns every rejection recorded for the run
func (r *GormRejectedAccountRepository) ByRun(ctx context.Context, runID uuid.UUID) ([]*billing.RejectedAccount, error) {
	var rows []models.RejectedAccountModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	rejected := make([]*billing.RejectedAccount, len(rows))
	for i := range rows {
		rejected[i] = rows[i].ToDomain()
	}
	return rejected, nil
}

// CountByRun counts the rejections recorded for the run
func (r *GormRejectedAccountRepository) CountByRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RejectedAccountModel{}).
		Where("run_id = ?", runID).
		Count(&count).Error
	return count, err
}
