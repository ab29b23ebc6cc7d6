package strategy

import (
	"context"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// SingleInvoiceSplitRule puts every item of an account on one invoice
type SingleInvoiceSplitRule struct{}

// SplitKey returns the empty key for every item
func (SingleInvoiceSplitRule) SplitKey(*billing.BillingAccount, *billing.RatedItem) string {
	return ""
}

// PaymentMethodSplitRule splits an account's invoices by payment method
type PaymentMethodSplitRule struct{}

// SplitKey returns the account's payment method
func (PaymentMethodSplitRule) SplitKey(account *billing.BillingAccount, _ *billing.RatedItem) string {
	return account.PaymentMethod
}

// FixedDueDateDelay resolves every due date to a constant day offset
type FixedDueDateDelay struct {
	Days int
}

// Resolve returns the configured day offset
func (s FixedDueDateDelay) Resolve(context.Context, DueDateDelayInput) (*int, error) {
	days := s.Days
	return &days, nil
}

// UnresolvedDueDateDelay always fails to resolve. Useful for exercising the
// exceptional-run fallback.
type UnresolvedDueDateDelay struct{}

// Resolve returns nil, signalling an unresolved delay
func (UnresolvedDueDateDelay) Resolve(context.Context, DueDateDelayInput) (*int, error) {
	return nil, nil
}

// StaticInvoiceTypeRule resolves commercial invoices for everyone, with a
// distinct type for prepaid accounts
type StaticInvoiceTypeRule struct {
	Default string
	Prepaid string
}

// Resolve returns the prepaid type for prepaid accounts, the default otherwise
func (s StaticInvoiceTypeRule) Resolve(_ context.Context, in InvoiceTypeInput) (string, error) {
	if in.Prepaid && s.Prepaid != "" {
		return s.Prepaid, nil
	}
	if s.Default == "" {
		return "COMMERCIAL", nil
	}
	return s.Default, nil
}

// PlanItemDiscountValue resolves the discount value stored on the plan item
// itself, ignoring any expression
type PlanItemDiscountValue struct {
	Value decimal.Decimal
}

// Resolve returns the static value
func (s PlanItemDiscountValue) Resolve(context.Context, DiscountValueInput) (decimal.Decimal, error) {
	return s.Value, nil
}

// AcceptAllPredicate treats every applicability expression as satisfied
type AcceptAllPredicate struct{}

// Applies always returns true
func (AcceptAllPredicate) Applies(context.Context, DiscountPredicateInput) (bool, error) {
	return true, nil
}

// NoopValidationScript accepts every run
type NoopValidationScript struct{}

// Validate always succeeds
func (NoopValidationScript) Validate(context.Context, *billing.BillingRun) error {
	return nil
}
