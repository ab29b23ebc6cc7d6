package persistence

import (
	"context"
	"errors"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBillingRunRepository implements billing.BillingRunRepository using GORM
type GormBillingRunRepository struct {
	db *gorm.DB
}

// NewGormBillingRunRepository creates a new GormBillingRunRepository
func NewGormBillingRunRepository(db *gorm.DB) *GormBillingRunRepository {
	return &GormBillingRunRepository{db: db}
}

// Save persists the billing run, inserting or updating as needed
func (r *GormBillingRunRepository) Save(ctx context.Context, run *billing.BillingRun) error {
	var model models.BillingRunModel
	model.FromDomain(run)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a billing run by its ID
func (r *GormBillingRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingRun, error) {
	var model models.BillingRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
