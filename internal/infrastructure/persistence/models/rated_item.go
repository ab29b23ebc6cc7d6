package models

import (
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RatedItemModel is the persistence model for rated items. The amount
// triples are flattened into columns; the invoice link is set when the
// item is billed.
type RatedItemModel struct {
	BaseModel
	AccountID     uuid.UUID `gorm:"type:uuid;not null;index:idx_rated_items_account_status"`
	UserAccountID uuid.UUID `gorm:"type:uuid;not null"`
	CategoryID    uuid.UUID `gorm:"type:uuid;not null"`
	SubCategoryID uuid.UUID `gorm:"type:uuid;not null"`
	TaxID         uuid.UUID `gorm:"type:uuid;not null"`
	Description   string    `gorm:"type:varchar(255);not null"`

	AmountWithoutTax decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AmountTax        decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AmountWithTax    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`

	TransactionalWithoutTax decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TransactionalTax        decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TransactionalWithTax    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`

	UsesSpecificTransactionalAmount bool                    `gorm:"not null;default:false"`
	Status                          billing.RatedItemStatus `gorm:"type:varchar(20);not null;index:idx_rated_items_account_status"`
	InvoiceID                       *uuid.UUID              `gorm:"type:uuid;index"`
	CyclePriority                   int                     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (RatedItemModel) TableName() string {
	return "rated_items"
}

// ToDomain converts the persistence model to a domain RatedItem
func (m *RatedItemModel) ToDomain() *billing.RatedItem {
	return &billing.RatedItem{
		BaseEntity:                      m.BaseModel.ToDomain(),
		AccountID:                       m.AccountID,
		UserAccountID:                   m.UserAccountID,
		CategoryID:                      m.CategoryID,
		SubCategoryID:                   m.SubCategoryID,
		TaxID:                           m.TaxID,
		Description:                     m.Description,
		Amounts:                         valueobject.NewAmounts(m.AmountWithoutTax, m.AmountTax, m.AmountWithTax),
		TransactionalAmounts:            valueobject.NewAmounts(m.TransactionalWithoutTax, m.TransactionalTax, m.TransactionalWithTax),
		UsesSpecificTransactionalAmount: m.UsesSpecificTransactionalAmount,
		Status:                          m.Status,
		InvoiceID:                       m.InvoiceID,
		CyclePriority:                   m.CyclePriority,
	}
}

// FromDomain populates the persistence model from a domain RatedItem
func (m *RatedItemModel) FromDomain(item *billing.RatedItem) {
	m.FromDomainBaseEntity(item.BaseEntity)
	m.AccountID = item.AccountID
	m.UserAccountID = item.UserAccountID
	m.CategoryID = item.CategoryID
	m.SubCategoryID = item.SubCategoryID
	m.TaxID = item.TaxID
	m.Description = item.Description
	m.AmountWithoutTax = item.Amounts.WithoutTax()
	m.AmountTax = item.Amounts.Tax()
	m.AmountWithTax = item.Amounts.WithTax()
	m.TransactionalWithoutTax = item.TransactionalAmounts.WithoutTax()
	m.TransactionalTax = item.TransactionalAmounts.Tax()
	m.TransactionalWithTax = item.TransactionalAmounts.WithTax()
	m.UsesSpecificTransactionalAmount = item.UsesSpecificTransactionalAmount
	m.Status = item.Status
	m.InvoiceID = item.InvoiceID
	m.CyclePriority = item.CyclePriority
}
