package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusNew       InvoiceStatus = "NEW"       // Freshly assembled, temporary number
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Promoted by an automatic/manual run
	InvoiceStatusValidated InvoiceStatus = "VALIDATED" // Final, numbered
	InvoiceStatusRejected  InvoiceStatus = "REJECTED"
	InvoiceStatusCanceled  InvoiceStatus = "CANCELED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusNew, InvoiceStatusDraft, InvoiceStatusValidated,
		InvoiceStatusRejected, InvoiceStatusCanceled:
		return true
	}
	return false
}

// NumberingKey identifies the sequence an invoice draws its final number
// from. Invoices sharing a key receive a contiguous block of numbers.
type NumberingKey struct {
	InvoiceType string
	SellerID    uuid.UUID
	InvoiceDate string // yyyy-mm-dd
}

// String renders the key for error messages and sequence keys
func (k NumberingKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.InvoiceType, k.SellerID, k.InvoiceDate)
}

// NewNumberingKey builds the numbering key for a (type, seller, date) triple
func NewNumberingKey(invoiceType string, sellerID uuid.UUID, invoiceDate time.Time) NumberingKey {
	return NumberingKey{
		InvoiceType: invoiceType,
		SellerID:    sellerID,
		InvoiceDate: invoiceDate.Format("2006-01-02"),
	}
}

// Invoice is a draft or final invoice with its aggregate graph. Running
// totals accumulate additively as aggregates attach: sub-category aggregates
// contribute the without-tax leg, non-composite-child tax aggregates the tax
// leg. Category aggregates (roll-ups), discount aggregates (deltas already
// reflected in the mutated sub-categories) and composite-child tax
// aggregates attach without accumulating.
type Invoice struct {
	shared.BaseAggregateRoot
	RunID                uuid.UUID
	AccountID            uuid.UUID
	SellerID             uuid.UUID
	InvoiceType          string
	SplitKey             string
	Status               InvoiceStatus
	InvoiceNumber        string
	HasTemporaryNumber   bool
	InvoiceDate          time.Time
	DueDate              time.Time
	DueBalance           decimal.Decimal
	NetToPay             decimal.Decimal
	PaymentMethod        string
	Amounts              valueobject.Amounts
	TransactionalAmounts valueobject.Amounts

	Categories    []*CategoryAggregate
	SubCategories []*SubCategoryAggregate
	Taxes         []*TaxAggregate
	Discounts     []*DiscountAggregate
}

// NewInvoice creates a draft invoice carrying a temporary number
func NewInvoice(runID, accountID, sellerID uuid.UUID, invoiceType, splitKey string, invoiceDate, dueDate time.Time) *Invoice {
	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		RunID:             runID,
		AccountID:         accountID,
		SellerID:          sellerID,
		InvoiceType:       invoiceType,
		SplitKey:          splitKey,
		Status:            InvoiceStatusNew,
		InvoiceDate:       invoiceDate,
		DueDate:           dueDate,
	}
	inv.InvoiceNumber = "TMP-" + inv.ID.String()
	inv.HasTemporaryNumber = true
	return inv
}

// Attach links an aggregate to the invoice and accumulates running totals
func (inv *Invoice) Attach(agg Aggregate) {
	agg.linkInvoice(inv.ID)
	switch a := agg.(type) {
	case *SubCategoryAggregate:
		inv.SubCategories = append(inv.SubCategories, a)
		inv.Amounts = inv.Amounts.Add(valueobject.NewAmounts(a.Amounts.WithoutTax(), decimal.Zero, a.Amounts.WithoutTax()))
		inv.TransactionalAmounts = inv.TransactionalAmounts.Add(valueobject.NewAmounts(a.TransactionalAmounts.WithoutTax(), decimal.Zero, a.TransactionalAmounts.WithoutTax()))
	case *CategoryAggregate:
		inv.Categories = append(inv.Categories, a)
	case *TaxAggregate:
		inv.Taxes = append(inv.Taxes, a)
		if !a.CompositeChild {
			inv.Amounts = inv.Amounts.Add(valueobject.NewAmounts(decimal.Zero, a.Amounts.Tax(), a.Amounts.Tax()))
			inv.TransactionalAmounts = inv.TransactionalAmounts.Add(valueobject.NewAmounts(decimal.Zero, a.TransactionalAmounts.Tax(), a.TransactionalAmounts.Tax()))
		}
	case *DiscountAggregate:
		inv.Discounts = append(inv.Discounts, a)
	}
}

// Finalize rounds the accumulated totals and derives net-to-pay from the
// account's due balance: netToPay = amountWithTax + dueBalance.
func (inv *Invoice) Finalize(dueBalance decimal.Decimal, scale int32, mode valueobject.RoundingMode) {
	inv.Amounts = inv.Amounts.Round(scale, mode)
	inv.TransactionalAmounts = inv.TransactionalAmounts.Round(scale, mode)
	inv.DueBalance = dueBalance
	inv.NetToPay = inv.Amounts.WithTax().Add(dueBalance)
	inv.Touch()
}

// AssignNumber replaces the temporary number with a final sequence number
func (inv *Invoice) AssignNumber(number string) error {
	if number == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if inv.Status == InvoiceStatusCanceled || inv.Status == InvoiceStatusRejected {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot number invoice in %s status", inv.Status))
	}
	inv.InvoiceNumber = number
	inv.HasTemporaryNumber = false
	inv.Touch()
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceNumberedEvent(inv))
	return nil
}

// Promote moves the invoice to the target status during run validation
func (inv *Invoice) Promote(target InvoiceStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Status %q is not valid", target))
	}
	if inv.Status == InvoiceStatusCanceled {
		return shared.NewDomainError("INVALID_STATE", "Cannot promote a canceled invoice")
	}
	inv.Status = target
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// NumberingKey returns the sequence key of this invoice
func (inv *Invoice) NumberingKey() NumberingKey {
	return NewNumberingKey(inv.InvoiceType, inv.SellerID, inv.InvoiceDate)
}

// SourceItemIDs returns the ids of every rated item backing this invoice
func (inv *Invoice) SourceItemIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, sub := range inv.SubCategories {
		ids = append(ids, sub.SourceItemIDs...)
	}
	return ids
}
