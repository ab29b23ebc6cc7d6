package billing

import (
	"context"

	"github.com/google/uuid"
)

// BillingRunRepository persists billing runs
type BillingRunRepository interface {
	Save(ctx context.Context, run *BillingRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*BillingRun, error)
}

// RatedItemRepository reads and links the rated items feeding a run.
// EligibleAccountIDs delivers accounts sorted by cycle priority then
// creation time; within a partition that order is preserved.
type RatedItemRepository interface {
	EligibleAccountIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error)
	OpenItemsForAccounts(ctx context.Context, runID uuid.UUID, accountIDs []uuid.UUID) ([]*RatedItem, error)
	LinkToInvoice(ctx context.Context, invoiceID uuid.UUID, itemIDs []uuid.UUID) error
	CountOpenForRun(ctx context.Context, runID uuid.UUID) (int64, error)
}

// AccountRepository reads billing account reference data
type AccountRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*BillingAccount, error)
	Save(ctx context.Context, account *BillingAccount) error
}

// NumberingGroup is one (invoiceType, seller, invoiceDate) bucket of a run's
// invoices awaiting final numbers
type NumberingGroup struct {
	Key   NumberingKey
	Count int64
}

// InvoiceRepository persists invoices and their aggregate graph
type InvoiceRepository interface {
	SaveAll(ctx context.Context, invoices []*Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
	ByRun(ctx context.Context, runID uuid.UUID) ([]*Invoice, error)
	NumberingSummary(ctx context.Context, runID uuid.UUID) ([]NumberingGroup, error)
	ByNumberingKey(ctx context.Context, runID uuid.UUID, key NumberingKey) ([]*Invoice, error)
}

// RejectedAccountRepository records per-account failures for audit
type RejectedAccountRepository interface {
	Save(ctx context.Context, rejected *RejectedAccount) error
	ByRun(ctx context.Context, runID uuid.UUID) ([]*RejectedAccount, error)
	CountByRun(ctx context.Context, runID uuid.UUID) (int64, error)
}

// ReferenceRepository reads the slow-changing reference data cached per run
type ReferenceRepository interface {
	TaxByID(ctx context.Context, id uuid.UUID) (*Tax, error)
	DiscountPlanItemsForAccount(ctx context.Context, accountID uuid.UUID) ([]*DiscountPlanItem, error)
	LanguageDescription(ctx context.Context, code string) (string, error)
}

// SequenceReserver reserves a contiguous block of invoice numbers for a
// numbering key. Implementations must be safe under concurrent reservation
// from multiple runs: two reservations never overlap.
type SequenceReserver interface {
	ReserveBlock(ctx context.Context, key NumberingKey, count int64) (first int64, err error)
}

// AccountingEntryGenerator generates the accounting entries of one invoice.
// Implementations are idempotent per invoice id.
type AccountingEntryGenerator interface {
	GenerateForInvoice(ctx context.Context, invoiceID uuid.UUID) error
}
