package models

import (
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// amountColumns flattens a pair of amount triples into table columns.
// Embedded by every invoice aggregate model.
type amountColumns struct {
	AmountWithoutTax decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AmountTax        decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	AmountWithTax    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`

	TransactionalWithoutTax decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TransactionalTax        decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	TransactionalWithTax    decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
}

func (c *amountColumns) amounts() valueobject.Amounts {
	return valueobject.NewAmounts(c.AmountWithoutTax, c.AmountTax, c.AmountWithTax)
}

func (c *amountColumns) transactionalAmounts() valueobject.Amounts {
	return valueobject.NewAmounts(c.TransactionalWithoutTax, c.TransactionalTax, c.TransactionalWithTax)
}

func (c *amountColumns) setAmounts(amounts, transactional valueobject.Amounts) {
	c.AmountWithoutTax = amounts.WithoutTax()
	c.AmountTax = amounts.Tax()
	c.AmountWithTax = amounts.WithTax()
	c.TransactionalWithoutTax = transactional.WithoutTax()
	c.TransactionalTax = transactional.Tax()
	c.TransactionalWithTax = transactional.WithTax()
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Its aggregate graph lives in the invoice_* child tables and is persisted
// and reloaded by the invoice repository as a unit.
type InvoiceModel struct {
	AggregateModel
	RunID              uuid.UUID             `gorm:"type:uuid;not null;index"`
	AccountID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	SellerID           uuid.UUID             `gorm:"type:uuid;not null;index"`
	InvoiceType        string                `gorm:"type:varchar(30);not null;index"`
	SplitKey           string                `gorm:"type:varchar(100);not null"`
	Status             billing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	InvoiceNumber      string                `gorm:"type:varchar(50);not null;index"`
	HasTemporaryNumber bool                  `gorm:"not null;default:true"`
	InvoiceDate        time.Time             `gorm:"not null;index"`
	DueDate            time.Time             `gorm:"not null"`
	DueBalance         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	NetToPay           decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentMethod      string                `gorm:"type:varchar(30)"`
	amountColumns
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// FromDomain populates the invoice row from a domain Invoice. The aggregate
// graph is converted separately via the aggregate model constructors.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.RunID = inv.RunID
	m.AccountID = inv.AccountID
	m.SellerID = inv.SellerID
	m.InvoiceType = inv.InvoiceType
	m.SplitKey = inv.SplitKey
	m.Status = inv.Status
	m.InvoiceNumber = inv.InvoiceNumber
	m.HasTemporaryNumber = inv.HasTemporaryNumber
	m.InvoiceDate = inv.InvoiceDate
	m.DueDate = inv.DueDate
	m.DueBalance = inv.DueBalance
	m.NetToPay = inv.NetToPay
	m.PaymentMethod = inv.PaymentMethod
	m.setAmounts(inv.Amounts, inv.TransactionalAmounts)
}

// ToDomain converts the invoice row to a domain Invoice without its
// aggregate graph. The repository wires the graph in afterwards.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		RunID:                m.RunID,
		AccountID:            m.AccountID,
		SellerID:             m.SellerID,
		InvoiceType:          m.InvoiceType,
		SplitKey:             m.SplitKey,
		Status:               m.Status,
		InvoiceNumber:        m.InvoiceNumber,
		HasTemporaryNumber:   m.HasTemporaryNumber,
		InvoiceDate:          m.InvoiceDate,
		DueDate:              m.DueDate,
		DueBalance:           m.DueBalance,
		NetToPay:             m.NetToPay,
		PaymentMethod:        m.PaymentMethod,
		Amounts:              m.amounts(),
		TransactionalAmounts: m.transactionalAmounts(),
	}
	m.PopulateAggregateRoot(&inv.BaseAggregateRoot)
	return inv
}

// InvoiceCategoryModel is one category roll-up line of an invoice
type InvoiceCategoryModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CategoryID  uuid.UUID `gorm:"type:uuid;not null"`
	Description string    `gorm:"type:varchar(255)"`
	ItemCount   int       `gorm:"not null;default:0"`
	Position    int       `gorm:"not null;default:0"`
	amountColumns
}

// TableName returns the table name for GORM
func (InvoiceCategoryModel) TableName() string {
	return "invoice_categories"
}

// FromDomain populates the row from a domain CategoryAggregate
func (m *InvoiceCategoryModel) FromDomain(agg *billing.CategoryAggregate, invoiceID uuid.UUID, position int) {
	m.ID = agg.ID
	m.InvoiceID = invoiceID
	m.CategoryID = agg.CategoryID
	m.Description = agg.Description
	m.ItemCount = agg.ItemCount
	m.Position = position
	m.setAmounts(agg.Amounts, agg.TransactionalAmounts)
}

// InvoiceSubCategoryModel is one sub-category line of an invoice. It keeps
// the backing rated-item ids and, when a discount mutated it, the id of the
// discount row derived from it.
type InvoiceSubCategoryModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	InvoiceID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoryID    uuid.UUID  `gorm:"type:uuid;not null"`
	SubCategoryID uuid.UUID  `gorm:"type:uuid;not null"`
	UserAccountID uuid.UUID  `gorm:"type:uuid;not null"`
	TaxID         uuid.UUID  `gorm:"type:uuid;not null"`
	Description   string     `gorm:"type:varchar(255)"`
	ItemCount     int        `gorm:"not null;default:0"`
	Position      int        `gorm:"not null;default:0"`
	SourceItemIDs UUIDList   `gorm:"type:text"`
	DiscountID    *uuid.UUID `gorm:"type:uuid"`
	amountColumns
}

// TableName returns the table name for GORM
func (InvoiceSubCategoryModel) TableName() string {
	return "invoice_sub_categories"
}

// FromDomain populates the row from a domain SubCategoryAggregate
func (m *InvoiceSubCategoryModel) FromDomain(agg *billing.SubCategoryAggregate, invoiceID uuid.UUID, position int) {
	m.ID = agg.ID
	m.InvoiceID = invoiceID
	m.CategoryID = agg.CategoryID
	m.SubCategoryID = agg.SubCategoryID
	m.UserAccountID = agg.UserAccountID
	m.TaxID = agg.TaxID
	m.Description = agg.Description
	m.ItemCount = agg.ItemCount
	m.Position = position
	m.SourceItemIDs = UUIDList(agg.SourceItemIDs)
	if agg.Discount != nil {
		id := agg.Discount.ID
		m.DiscountID = &id
	}
	m.setAmounts(agg.Amounts, agg.TransactionalAmounts)
}

// ToDomain converts the row back to a domain SubCategoryAggregate. The
// discount reference is wired by the repository once discount rows are loaded.
func (m *InvoiceSubCategoryModel) ToDomain() *billing.SubCategoryAggregate {
	agg := billing.NewSubCategoryAggregate(m.Description, m.CategoryID, m.SubCategoryID, m.UserAccountID, m.TaxID, nil)
	agg.ID = m.ID
	agg.InvoiceID = m.InvoiceID
	agg.ItemCount = m.ItemCount
	agg.SourceItemIDs = []uuid.UUID(m.SourceItemIDs)
	agg.Amounts = m.amounts()
	agg.TransactionalAmounts = m.transactionalAmounts()
	return agg
}

// InvoiceTaxModel is one tax line of an invoice. Composite children carry a
// ParentID pointing at the composite parent's row; the tax reference data is
// snapshotted so reloaded invoices render without a reference lookup.
type InvoiceTaxModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	TaxID          uuid.UUID       `gorm:"type:uuid;not null"`
	TaxCode        string          `gorm:"type:varchar(30);not null"`
	TaxPercent     decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	ParentID       *uuid.UUID      `gorm:"type:uuid;index"`
	CompositeChild bool            `gorm:"not null;default:false"`
	Description    string          `gorm:"type:varchar(255)"`
	Position       int             `gorm:"not null;default:0"`
	amountColumns
}

// TableName returns the table name for GORM
func (InvoiceTaxModel) TableName() string {
	return "invoice_taxes"
}

// FromDomain populates the row from a domain TaxAggregate
func (m *InvoiceTaxModel) FromDomain(agg *billing.TaxAggregate, invoiceID uuid.UUID, parentID *uuid.UUID, position int) {
	m.ID = agg.ID
	m.InvoiceID = invoiceID
	m.ParentID = parentID
	m.CompositeChild = agg.CompositeChild
	m.Description = agg.Description
	m.Position = position
	if agg.Tax != nil {
		m.TaxID = agg.Tax.ID
		m.TaxCode = agg.Tax.Code
		m.TaxPercent = agg.Tax.Percent
	}
	m.setAmounts(agg.Amounts, agg.TransactionalAmounts)
}

// ToDomain converts the row back to a domain TaxAggregate. The tax reference
// is a flat snapshot: sub-tax links are rebuilt from ParentID by the
// repository, not from the reference tables.
func (m *InvoiceTaxModel) ToDomain() *billing.TaxAggregate {
	tax := &billing.Tax{
		ID:          m.TaxID,
		Code:        m.TaxCode,
		Description: m.Description,
		Percent:     m.TaxPercent,
	}
	agg := billing.NewTaxAggregate(tax, m.amounts(), m.transactionalAmounts())
	agg.ID = m.ID
	agg.InvoiceID = m.InvoiceID
	agg.CompositeChild = m.CompositeChild
	return agg
}

// InvoiceDiscountModel is one discount line of an invoice. Amount legs are
// negative deltas; Percent is zero for fixed-amount discounts.
type InvoiceDiscountModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	PlanItemID    uuid.UUID       `gorm:"type:uuid;not null"`
	SubCategoryID uuid.UUID       `gorm:"type:uuid;not null"`
	Percent       decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	Description   string          `gorm:"type:varchar(255)"`
	Position      int             `gorm:"not null;default:0"`
	amountColumns
}

// TableName returns the table name for GORM
func (InvoiceDiscountModel) TableName() string {
	return "invoice_discounts"
}

// FromDomain populates the row from a domain DiscountAggregate
func (m *InvoiceDiscountModel) FromDomain(agg *billing.DiscountAggregate, invoiceID uuid.UUID, position int) {
	m.ID = agg.ID
	m.InvoiceID = invoiceID
	m.PlanItemID = agg.PlanItemID
	m.SubCategoryID = agg.SubCategoryID
	m.Percent = agg.Percent
	m.Description = agg.Description
	m.Position = position
	m.setAmounts(agg.Amounts, agg.TransactionalAmounts)
}

// ToDomain converts the row back to a domain DiscountAggregate
func (m *InvoiceDiscountModel) ToDomain() *billing.DiscountAggregate {
	planItem := &billing.DiscountPlanItem{ID: m.PlanItemID, Description: m.Description}
	agg := billing.NewDiscountAggregate(planItem, m.SubCategoryID, m.amounts(), m.transactionalAmounts())
	agg.ID = m.ID
	agg.InvoiceID = m.InvoiceID
	agg.Percent = m.Percent
	return agg
}
