package strategy

import (
	"context"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The billing pipeline delegates every pluggable business rule to a narrow
// strategy interface: typed input bag in, typed result out. Host
// applications bridge their expression runtimes behind these interfaces;
// the engine itself carries no scripting dependency.

// InvoiceTypeInput is the context an invoice-type rule decides from
type InvoiceTypeInput struct {
	Prepaid   bool
	CycleID   uuid.UUID
	Run       *billing.BillingRun
	AccountID uuid.UUID
}

// InvoiceTypeRule resolves the invoice type of a draft invoice
type InvoiceTypeRule interface {
	Resolve(ctx context.Context, in InvoiceTypeInput) (string, error)
}

// DueDateDelayInput is the context a due-date delay expression evaluates in
type DueDateDelayInput struct {
	AccountID   uuid.UUID
	CycleID     uuid.UUID
	InvoiceDate time.Time
}

// DueDateDelayStrategy resolves the day offset between invoice date and due
// date. A nil result means the delay could not be resolved; the assembler
// treats that as fatal unless the run is flagged exceptional.
type DueDateDelayStrategy interface {
	Resolve(ctx context.Context, in DueDateDelayInput) (*int, error)
}

// DiscountValueInput is the context a discount-value expression evaluates in
type DiscountValueInput struct {
	AccountID  uuid.UUID
	Invoice    *billing.Invoice
	PlanItemID uuid.UUID
	BaseAmount decimal.Decimal
}

// DiscountValueStrategy resolves a dynamic discount value (percent or fixed
// amount, per the plan item's kind)
type DiscountValueStrategy interface {
	Resolve(ctx context.Context, in DiscountValueInput) (decimal.Decimal, error)
}

// DiscountPredicateInput is the context an applicability predicate sees
type DiscountPredicateInput struct {
	AccountID  uuid.UUID
	PlanItemID uuid.UUID
	Expression string
	BaseAmount decimal.Decimal
}

// DiscountPredicate evaluates a plan item's optional applicability expression
type DiscountPredicate interface {
	Applies(ctx context.Context, in DiscountPredicateInput) (bool, error)
}

// InvoiceTaxStrategy computes whole-invoice taxes for invoice types that
// bypass sub-category tax aggregation. The engine only wires the returned
// aggregates to the invoice.
type InvoiceTaxStrategy interface {
	ComputeTaxes(ctx context.Context, invoice *billing.Invoice) ([]*billing.TaxAggregate, error)
}

// RunValidationScript is the optional external validation hook executed
// against a run after assembly. A returned error is a business failure.
type RunValidationScript interface {
	Validate(ctx context.Context, run *billing.BillingRun) error
}

// InvoiceSplitRule produces the split key deciding how many invoices an
// account yields. Items sharing a key land on the same invoice.
type InvoiceSplitRule interface {
	SplitKey(account *billing.BillingAccount, item *billing.RatedItem) string
}
