package models

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingRunModel is the persistence model for the BillingRun aggregate root.
// The statistics snapshot is denormalized into columns so operators can query
// run totals without touching the invoice tables.
type BillingRunModel struct {
	AggregateModel
	Status              billing.RunStatus   `gorm:"type:varchar(30);not null;index"`
	ProcessType         billing.ProcessType `gorm:"type:varchar(20);not null"`
	InvoiceDate         time.Time           `gorm:"not null"`
	LastTransactionDate time.Time           `gorm:"not null"`
	CycleID             uuid.UUID           `gorm:"type:uuid;not null;index"`
	Exceptional         bool                `gorm:"not null;default:false"`
	AutoAccounting      bool                `gorm:"not null;default:false"`
	RejectionReason     string              `gorm:"type:text"`

	AccountCount  int `gorm:"not null;default:0"`
	InvoiceCount  int `gorm:"not null;default:0"`
	RejectedCount int `gorm:"not null;default:0"`
	SkippedCount  int `gorm:"not null;default:0"`

	AmountWithoutTax decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountTax        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AmountWithTax    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`

	TransactionalWithoutTax decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TransactionalTax        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TransactionalWithTax    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (BillingRunModel) TableName() string {
	return "billing_runs"
}

// ToDomain converts the persistence model to a domain BillingRun
func (m *BillingRunModel) ToDomain() *billing.BillingRun {
	run := &billing.BillingRun{
		Status:              m.Status,
		ProcessType:         m.ProcessType,
		InvoiceDate:         m.InvoiceDate,
		LastTransactionDate: m.LastTransactionDate,
		CycleID:             m.CycleID,
		Exceptional:         m.Exceptional,
		AutoAccounting:      m.AutoAccounting,
		RejectionReason:     m.RejectionReason,
		Statistics: billing.RunStatistics{
			AccountCount:         m.AccountCount,
			InvoiceCount:         m.InvoiceCount,
			RejectedCount:        m.RejectedCount,
			SkippedAccountCount:  m.SkippedCount,
			Amounts:              valueobject.NewAmounts(m.AmountWithoutTax, m.AmountTax, m.AmountWithTax),
			TransactionalAmounts: valueobject.NewAmounts(m.TransactionalWithoutTax, m.TransactionalTax, m.TransactionalWithTax),
		},
	}
	m.PopulateAggregateRoot(&run.BaseAggregateRoot)
	return run
}

// FromDomain populates the persistence model from a domain BillingRun
func (m *BillingRunModel) FromDomain(run *billing.BillingRun) {
	m.FromDomainAggregateRoot(run.BaseAggregateRoot)
	m.Status = run.Status
	m.ProcessType = run.ProcessType
	m.InvoiceDate = run.InvoiceDate
	m.LastTransactionDate = run.LastTransactionDate
	m.CycleID = run.CycleID
	m.Exceptional = run.Exceptional
	m.AutoAccounting = run.AutoAccounting
	m.RejectionReason = run.RejectionReason
	m.AccountCount = run.Statistics.AccountCount
	m.InvoiceCount = run.Statistics.InvoiceCount
	m.RejectedCount = run.Statistics.RejectedCount
	m.SkippedCount = run.Statistics.SkippedAccountCount
	m.AmountWithoutTax = run.Statistics.Amounts.WithoutTax()
	m.AmountTax = run.Statistics.Amounts.Tax()
	m.AmountWithTax = run.Statistics.Amounts.WithTax()
	m.TransactionalWithoutTax = run.Statistics.TransactionalAmounts.WithoutTax()
	m.TransactionalTax = run.Statistics.TransactionalAmounts.Tax()
	m.TransactionalWithTax = run.Statistics.TransactionalAmounts.WithTax()
}

// RejectedAccountModel is the audit record of an account excluded from a run
type RejectedAccountModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Reason    string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RejectedAccountModel) TableName() string {
	return "rejected_accounts"
}

// ToDomain converts the persistence model to a domain RejectedAccount
func (m *RejectedAccountModel) ToDomain() *billing.RejectedAccount {
	return &billing.RejectedAccount{
		ID:        m.ID,
		AccountID: m.AccountID,
		RunID:     m.RunID,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain RejectedAccount
func (m *RejectedAccountModel) FromDomain(r *billing.RejectedAccount) {
	m.ID = r.ID
	m.AccountID = r.AccountID
	m.RunID = r.RunID
	m.Reason = r.Reason
	m.CreatedAt = r.CreatedAt
}
