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

// GormRatedItemRepository implements billing.RatedItemRepository using GORM.
// An item is eligible for a run when it is still OPEN, was created no later
// than the run's last-transaction cutoff, and its account's next invoice
// date has been reached.
type GormRatedItemRepository struct {
	db *gorm.DB
}

// NewGormRatedItemRepository creates a new GormRatedItemRepository
func NewGormRatedItemRepository(db *gorm.DB) *GormRatedItemRepository {
	return &GormRatedItemRepository{db: db}
}

// EligibleAccountIDs returns the account ids with at least one eligible item
// for the run, ordered by cycle priority (highest first) then account age
func (r *GormRatedItemRepository) EligibleAccountIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	run, err := r.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	err = r.eligibleQuery(ctx, run).
		Group("rated_items.account_id, billing_accounts.cycle_priority, billing_accounts.created_at").
		Order("billing_accounts.cycle_priority DESC, billing_accounts.created_at ASC").
		Pluck("rated_items.account_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// OpenItemsForAccounts loads the eligible items of the given accounts,
// ordered by account then creation time
func (r *GormRatedItemRepository) OpenItemsForAccounts(ctx context.Context, runID uuid.UUID, accountIDs []uuid.UUID) ([]*billing.RatedItem, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}
	run, err := r.loadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	var rows []models.RatedItemModel
	err = r.db.WithContext(ctx).
		Where("status = ?", billing.RatedItemStatusOpen).
		Where("invoice_id IS NULL").
		Where("created_at <= ?", run.LastTransactionDate).
		Where("account_id IN ?", accountIDs).
		Order("account_id, created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	items := make([]*billing.RatedItem, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, nil
}

// LinkToInvoice marks the given items as billed by the invoice
func (r *GormRatedItemRepository) LinkToInvoice(ctx context.Context, invoiceID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.RatedItemModel{}).
		Where("id IN ?", itemIDs).
		Updates(map[string]interface{}{
			"status":     billing.RatedItemStatusBilled,
			"invoice_id": invoiceID,
		}).Error
}

// CountOpenForRun counts the items eligible for the run
func (r *GormRatedItemRepository) CountOpenForRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	run, err := r.loadRun(ctx, runID)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.eligibleQuery(ctx, run).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// eligibleQuery builds the base query joining eligible items to their accounts
func (r *GormRatedItemRepository) eligibleQuery(ctx context.Context, run *models.BillingRunModel) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("rated_items").
		Joins("JOIN billing_accounts ON billing_accounts.id = rated_items.account_id").
		Where("rated_items.status = ?", billing.RatedItemStatusOpen).
		Where("rated_items.invoice_id IS NULL").
		Where("rated_items.created_at <= ?", run.LastTransactionDate).
		Where("billing_accounts.next_invoice_date <= ?", run.InvoiceDate)
}

func (r *GormRatedItemRepository) loadRun(ctx context.Context, runID uuid.UUID) (*models.BillingRunModel, error) {
	var run models.BillingRunModel
	if err := r.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}
