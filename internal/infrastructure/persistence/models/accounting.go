package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountingEntryModel is one leg of the double-entry postings generated
// from a finalized invoice
type AccountingEntryModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Account   string          `gorm:"type:varchar(50);not null"`
	Direction string          `gorm:"type:varchar(10);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountingEntryModel) TableName() string {
	return "accounting_entries"
}
