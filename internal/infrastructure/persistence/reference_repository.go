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

// GormReferenceRepository implements billing.ReferenceRepository using GORM.
// Reference data is slow-changing; callers wrap it in a per-run cache so the
// queries here run at most once per run and key.
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// TaxByID loads a tax with its sub-taxes
func (r *GormReferenceRepository) TaxByID(ctx context.Context, id uuid.UUID) (*billing.Tax, error) {
	var row models.TaxModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	tax := row.ToDomain()

	var children []models.TaxModel
	err := r.db.WithContext(ctx).
		Where("parent_id = ?", id).
		Order("code").
		Find(&children).Error
	if err != nil {
		return nil, err
	}
	for i := range children {
		tax.SubTaxes = append(tax.SubTaxes, children[i].ToDomain())
	}
	return tax, nil
}

// DiscountPlanItemsForAccount loads the active discount plan items assigned
// to the account
func (r *GormReferenceRepository) DiscountPlanItemsForAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.DiscountPlanItem, error) {
	var rows []models.DiscountPlanItemModel
	err := r.db.WithContext(ctx).
		Joins("JOIN discount_plan_assignments ON discount_plan_assignments.plan_item_id = discount_plan_items.id").
		Where("discount_plan_assignments.account_id = ?", accountID).
		Where("discount_plan_items.active = ?", true).
		Order("discount_plan_items.code").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	items := make([]*billing.DiscountPlanItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// LanguageDescription returns the catalog description for a language code
func (r *GormReferenceRepository) LanguageDescription(ctx context.Context, code string) (string, error) {
	var row models.LanguageModel
	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return row.Description, nil
}
