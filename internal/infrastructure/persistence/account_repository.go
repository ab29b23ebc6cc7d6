package persistence

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountRepository implements billing.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByIDs loads the accounts with the given ids. Missing ids are simply
// absent from the result; callers detect them by comparing lengths.
func (r *GormAccountRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*billing.BillingAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.BillingAccountModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	accounts := make([]*billing.BillingAccount, len(rows))
	for i := range rows {
		accounts[i] = rows[i].ToDomain()
	}
	return accounts, nil
}

// Save persists the account, inserting or updating as needed
func (r *GormAccountRepository) Save(ctx context.Context, account *billing.BillingAccount) error {
	var model models.BillingAccountModel
	model.FromDomain(account)
	return r.db.WithContext(ctx).Save(&model).Error
}
