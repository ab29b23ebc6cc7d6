package models

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingAccountModel is the persistence model for billing account reference data
type BillingAccountModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	Code               string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	SellerID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentMethod      string          `gorm:"type:varchar(30);not null"`
	DueBalance         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Language           string          `gorm:"type:varchar(10);not null;default:'en'"`
	TaxExonerated      bool            `gorm:"not null;default:false"`
	Prepaid            bool            `gorm:"not null;default:false"`
	NextInvoiceDate    time.Time       `gorm:"not null;index"`
	BillingCycleMonths int             `gorm:"not null;default:1"`
	CyclePriority      int             `gorm:"not null;default:0"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BillingAccountModel) TableName() string {
	return "billing_accounts"
}

// ToDomain converts the persistence model to a domain BillingAccount
func (m *BillingAccountModel) ToDomain() *billing.BillingAccount {
	return &billing.BillingAccount{
		ID:                 m.ID,
		Code:               m.Code,
		SellerID:           m.SellerID,
		PaymentMethod:      m.PaymentMethod,
		DueBalance:         m.DueBalance,
		Language:           m.Language,
		TaxExonerated:      m.TaxExonerated,
		Prepaid:            m.Prepaid,
		NextInvoiceDate:    m.NextInvoiceDate,
		BillingCycleMonths: m.BillingCycleMonths,
		CyclePriority:      m.CyclePriority,
	}
}

// FromDomain populates the persistence model from a domain BillingAccount
func (m *BillingAccountModel) FromDomain(a *billing.BillingAccount) {
	m.ID = a.ID
	m.Code = a.Code
	m.SellerID = a.SellerID
	m.PaymentMethod = a.PaymentMethod
	m.DueBalance = a.DueBalance
	m.Language = a.Language
	m.TaxExonerated = a.TaxExonerated
	m.Prepaid = a.Prepaid
	m.NextInvoiceDate = a.NextInvoiceDate
	m.BillingCycleMonths = a.BillingCycleMonths
	m.CyclePriority = a.CyclePriority
}
