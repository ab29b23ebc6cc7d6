package models

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxModel is the persistence model for tax reference data. A composite tax
// is a parent row; its sub-taxes reference it through ParentID.
type TaxModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	Code        string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	Description string          `gorm:"type:varchar(255);not null"`
	Percent     decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ParentID    *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxModel) TableName() string {
	return "taxes"
}

// ToDomain converts the row to a domain Tax without its sub-taxes.
// The repository attaches children for composite taxes.
func (m *TaxModel) ToDomain() *billing.Tax {
	return &billing.Tax{
		ID:          m.ID,
		Code:        m.Code,
		Description: m.Description,
		Percent:     m.Percent,
	}
}

// FromDomain populates the row from a domain Tax
func (m *TaxModel) FromDomain(t *billing.Tax, parentID *uuid.UUID) {
	m.ID = t.ID
	m.Code = t.Code
	m.Description = t.Description
	m.Percent = t.Percent
	m.ParentID = parentID
}

// DiscountPlanItemModel is the persistence model for discount plan rules
type DiscountPlanItemModel struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primary_key"`
	Code                string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description         string               `gorm:"type:varchar(255);not null"`
	CategoryID          *uuid.UUID           `gorm:"type:uuid"`
	SubCategoryID       *uuid.UUID           `gorm:"type:uuid"`
	Kind                billing.DiscountKind `gorm:"type:varchar(20);not null"`
	Value               decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:0"`
	ValueExpression     string               `gorm:"type:text"`
	PredicateExpression string               `gorm:"type:text"`
	ValidFrom           *time.Time
	ValidTo             *time.Time
	Active              bool      `gorm:"not null;default:true;index"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountPlanItemModel) TableName() string {
	return "discount_plan_items"
}

// ToDomain converts the row to a domain DiscountPlanItem
func (m *DiscountPlanItemModel) ToDomain() *billing.DiscountPlanItem {
	return &billing.DiscountPlanItem{
		ID:                  m.ID,
		Code:                m.Code,
		Description:         m.Description,
		CategoryID:          m.CategoryID,
		SubCategoryID:       m.SubCategoryID,
		Kind:                m.Kind,
		Value:               m.Value,
		ValueExpression:     m.ValueExpression,
		PredicateExpression: m.PredicateExpression,
		ValidFrom:           m.ValidFrom,
		ValidTo:             m.ValidTo,
		Active:              m.Active,
	}
}

// FromDomain populates the row from a domain DiscountPlanItem
func (m *DiscountPlanItemModel) FromDomain(d *billing.DiscountPlanItem) {
	m.ID = d.ID
	m.Code = d.Code
	m.Description = d.Description
	m.CategoryID = d.CategoryID
	m.SubCategoryID = d.SubCategoryID
	m.Kind = d.Kind
	m.Value = d.Value
	m.ValueExpression = d.ValueExpression
	m.PredicateExpression = d.PredicateExpression
	m.ValidFrom = d.ValidFrom
	m.ValidTo = d.ValidTo
	m.Active = d.Active
}

// DiscountPlanAssignmentModel maps a discount plan item to a billing account
type DiscountPlanAssignmentModel struct {
	AccountID  uuid.UUID `gorm:"type:uuid;primary_key"`
	PlanItemID uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DiscountPlanAssignmentModel) TableName() string {
	return "discount_plan_assignments"
}

// LanguageModel holds the per-language invoice-line catalog descriptions
type LanguageModel struct {
	Code        string    `gorm:"type:varchar(10);primary_key"`
	Description string    `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LanguageModel) TableName() string {
	return "languages"
}
