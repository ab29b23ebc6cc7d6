package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM.
// An invoice and its aggregate graph are written and read as a unit: the
// graph rows are replaced wholesale on every save, which keeps the write
// path simple and makes saves idempotent.
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Save persists one invoice with its aggregate graph
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveInvoiceTx(tx, invoice)
	})
}

// SaveAll persists a batch of invoices in a single transaction
func (r *GormInvoiceRepository) SaveAll(ctx context.Context, invoices []*billing.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, invoice := range invoices {
			if err := saveInvoiceTx(tx, invoice); err != nil {
				return err
			}
		}
		return nil
	})
}

// ByRun loads every invoice of the run with its aggregate graph
func (r *GormInvoiceRepository) ByRun(ctx context.Context, runID uuid.UUID) ([]*billing.Invoice, error) {
	var rows []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.loadGraphs(ctx, rows)
}

// NumberingSummary counts the run's invoices still carrying a temporary
// number, grouped by numbering key
func (r *GormInvoiceRepository) NumberingSummary(ctx context.Context, runID uuid.UUID) ([]billing.NumberingGroup, error) {
	type row struct {
		InvoiceType string
		SellerID    uuid.UUID
		InvoiceDate time.Time
		Total       int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("invoice_type, seller_id, invoice_date, COUNT(*) AS total").
		Where("run_id = ? AND has_temporary_number = ?", runID, true).
		Group("invoice_type, seller_id, invoice_date").
		Order("invoice_type, seller_id, invoice_date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	groups := make([]billing.NumberingGroup, len(rows))
	for i, rw := range rows {
		groups[i] = billing.NumberingGroup{
			Key:   billing.NewNumberingKey(rw.InvoiceType, rw.SellerID, rw.InvoiceDate),
			Count: rw.Total,
		}
	}
	return groups, nil
}

// ByNumberingKey loads the run's temporarily-numbered invoices of one
// numbering key, with their aggregate graphs
func (r *GormInvoiceRepository) ByNumberingKey(ctx context.Context, runID uuid.UUID, key billing.NumberingKey) ([]*billing.Invoice, error) {
	dayStart, err := time.Parse("2006-01-02", key.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid numbering key date %q: %w", key.InvoiceDate, err)
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []models.InvoiceModel
	err = r.db.WithContext(ctx).
		Where("run_id = ? AND has_temporary_number = ?", runID, true).
		Where("invoice_type = ? AND seller_id = ?", key.InvoiceType, key.SellerID).
		Where("invoice_date >= ? AND invoice_date < ?", dayStart, dayEnd).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.loadGraphs(ctx, rows)
}

// saveInvoiceTx upserts the invoice row and replaces its aggregate graph
func saveInvoiceTx(tx *gorm.DB, invoice *billing.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	if err := tx.Save(&model).Error; err != nil {
		return err
	}

	for _, child := range []interface{}{
		&models.InvoiceCategoryModel{},
		&models.InvoiceSubCategoryModel{},
		&models.InvoiceTaxModel{},
		&models.InvoiceDiscountModel{},
	} {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(child).Error; err != nil {
			return err
		}
	}

	if len(invoice.Categories) > 0 {
		rows := make([]models.InvoiceCategoryModel, len(invoice.Categories))
		for i, agg := range invoice.Categories {
			rows[i].FromDomain(agg, invoice.ID, i)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(invoice.SubCategories) > 0 {
		rows := make([]models.InvoiceSubCategoryModel, len(invoice.SubCategories))
		for i, agg := range invoice.SubCategories {
			rows[i].FromDomain(agg, invoice.ID, i)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(invoice.Taxes) > 0 {
		parentOf := make(map[uuid.UUID]uuid.UUID)
		for _, agg := range invoice.Taxes {
			for _, child := range agg.Children {
				parentOf[child.ID] = agg.ID
			}
		}
		rows := make([]models.InvoiceTaxModel, len(invoice.Taxes))
		for i, agg := range invoice.Taxes {
			var parentID *uuid.UUID
			if pid, ok := parentOf[agg.ID]; ok {
				parentID = &pid
			}
			rows[i].FromDomain(agg, invoice.ID, parentID, i)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}

	if len(invoice.Discounts) > 0 {
		rows := make([]models.InvoiceDiscountModel, len(invoice.Discounts))
		for i, agg := range invoice.Discounts {
			rows[i].FromDomain(agg, invoice.ID, i)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}

	return nil
}

// loadGraphs converts invoice rows to domain invoices and wires in their
// aggregate graphs, loaded in one query per child table
func (r *GormInvoiceRepository) loadGraphs(ctx context.Context, rows []models.InvoiceModel) ([]*billing.Invoice, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	invoices := make([]*billing.Invoice, len(rows))
	byID := make(map[uuid.UUID]*billing.Invoice, len(rows))
	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		inv := rows[i].ToDomain()
		invoices[i] = inv
		byID[inv.ID] = inv
		ids[i] = inv.ID
	}

	var subRows []models.InvoiceSubCategoryModel
	if err := r.db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&subRows).Error; err != nil {
		return nil, err
	}
	subs := make(map[uuid.UUID]*billing.SubCategoryAggregate, len(subRows))
	for i := range subRows {
		agg := subRows[i].ToDomain()
		subs[agg.ID] = agg
		byID[subRows[i].InvoiceID].SubCategories = append(byID[subRows[i].InvoiceID].SubCategories, agg)
	}

	var discountRows []models.InvoiceDiscountModel
	if err := r.db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&discountRows).Error; err != nil {
		return nil, err
	}
	discounts := make(map[uuid.UUID]*billing.DiscountAggregate, len(discountRows))
	for i := range discountRows {
		agg := discountRows[i].ToDomain()
		discounts[agg.ID] = agg
		byID[discountRows[i].InvoiceID].Discounts = append(byID[discountRows[i].InvoiceID].Discounts, agg)
	}
	for i := range subRows {
		if subRows[i].DiscountID != nil {
			subs[subRows[i].ID].Discount = discounts[*subRows[i].DiscountID]
		}
	}

	var taxRows []models.InvoiceTaxModel
	if err := r.db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&taxRows).Error; err != nil {
		return nil, err
	}
	taxes := make(map[uuid.UUID]*billing.TaxAggregate, len(taxRows))
	for i := range taxRows {
		agg := taxRows[i].ToDomain()
		taxes[agg.ID] = agg
		byID[taxRows[i].InvoiceID].Taxes = append(byID[taxRows[i].InvoiceID].Taxes, agg)
	}
	for i := range taxRows {
		if taxRows[i].ParentID != nil {
			if parent, ok := taxes[*taxRows[i].ParentID]; ok {
				parent.Children = append(parent.Children, taxes[taxRows[i].ID])
			}
		}
	}

	var categoryRows []models.InvoiceCategoryModel
	if err := r.db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&categoryRows).Error; err != nil {
		return nil, err
	}
	for i := range categoryRows {
		row := &categoryRows[i]
		inv := byID[row.InvoiceID]
		agg := billing.NewCategoryAggregate(row.Description, row.CategoryID, nil)
		agg.ID = row.ID
		agg.InvoiceID = row.InvoiceID
		for _, sub := range inv.SubCategories {
			if sub.CategoryID == row.CategoryID {
				agg.SubAggregates = append(agg.SubAggregates, sub)
			}
		}
		agg.RecomputeFromChildren()
		inv.Categories = append(inv.Categories, agg)
	}

	return invoices, nil
}
