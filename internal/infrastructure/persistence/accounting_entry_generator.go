package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Posting accounts for invoice entries
const (
	accountReceivable = "ACCOUNTS_RECEIVABLE"
	accountRevenue    = "REVENUE"
	accountTaxPayable = "TAX_PAYABLE"
)

// GormAccountingEntryGenerator implements billing.AccountingEntryGenerator.
// It posts the standard double entry of an invoice: debit receivables for
// the total including tax, credit revenue for the net amount and tax payable
// for the tax. Generation is idempotent per invoice.
type GormAccountingEntryGenerator struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormAccountingEntryGenerator creates a new GormAccountingEntryGenerator
func NewGormAccountingEntryGenerator(db *gorm.DB, logger *zap.Logger) *GormAccountingEntryGenerator {
	return &GormAccountingEntryGenerator{db: db, logger: logger}
}

// GenerateForInvoice posts the accounting entries of one invoice. Calling it
// again for the same invoice is a no-op.
func (g *GormAccountingEntryGenerator) GenerateForInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.AccountingEntryModel{}).
			Where("invoice_id = ?", invoiceID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			g.logger.Debug("accounting entries already posted",
				zap.String("invoice_id", invoiceID.String()))
			return nil
		}

		var invoice models.InvoiceModel
		if err := tx.First(&invoice, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		now := time.Now()
		entries := []models.AccountingEntryModel{
			{ID: uuid.New(), InvoiceID: invoiceID, Account: accountReceivable, Direction: "DEBIT", Amount: invoice.AmountWithTax, CreatedAt: now},
			{ID: uuid.New(), InvoiceID: invoiceID, Account: accountRevenue, Direction: "CREDIT", Amount: invoice.AmountWithoutTax, CreatedAt: now},
		}
		if !invoice.AmountTax.IsZero() {
			entries = append(entries, models.AccountingEntryModel{
				ID: uuid.New(), InvoiceID: invoiceID, Account: accountTaxPayable, Direction: "CREDIT", Amount: invoice.AmountTax, CreatedAt: now,
			})
		}
		return tx.Create(&entries).Error
	})
}
