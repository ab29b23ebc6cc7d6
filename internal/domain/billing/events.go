package billing

import (
	"github.com/google/uuid"

	"github.com/billing/backend/internal/domain/shared"
)

// Event types emitted by the billing domain
const (
	EventTypeRunStatusChanged = "billing.run.status_changed"
	EventTypeInvoiceNumbered  = "billing.invoice.numbered"
	EventTypeAccountRejected  = "billing.account.rejected"
)

// Aggregate type names used in domain events
const (
	AggregateTypeBillingRun = "BillingRun"
	AggregateTypeInvoice    = "Invoice"
)

// RunStatusChangedEvent is emitted whenever a billing run moves between states
type RunStatusChangedEvent struct {
	shared.BaseDomainEvent
	Previous RunStatus `json:"previous"`
	Current  RunStatus `json:"current"`
}

// NewRunStatusChangedEvent creates a status change event for a run
func NewRunStatusChangedEvent(run *BillingRun, previous, current RunStatus) *RunStatusChangedEvent {
	return &RunStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRunStatusChanged, AggregateTypeBillingRun, run.ID),
		Previous:        previous,
		Current:         current,
	}
}

// AccountRejectedEvent is emitted when an account is excluded from a run
// after a per-account failure
type AccountRejectedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	Reason    string    `json:"reason"`
}

// NewAccountRejectedEvent creates an event for one rejected account of a run
func NewAccountRejectedEvent(rejected *RejectedAccount) *AccountRejectedEvent {
	return &AccountRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountRejected, AggregateTypeBillingRun, rejected.RunID),
		AccountID:       rejected.AccountID,
		Reason:          rejected.Reason,
	}
}

// InvoiceNumberedEvent is emitted when an invoice receives its final number
type InvoiceNumberedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceNumberedEvent creates an event for a freshly numbered invoice
func NewInvoiceNumberedEvent(inv *Invoice) *InvoiceNumberedEvent {
	return &InvoiceNumberedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceNumbered, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}
