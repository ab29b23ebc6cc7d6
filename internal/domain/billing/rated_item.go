package billing

import (
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RatedItemStatus represents the invoicing state of a rated item
type RatedItemStatus string

const (
	RatedItemStatusOpen     RatedItemStatus = "OPEN"     // Eligible for invoicing
	RatedItemStatusBilled   RatedItemStatus = "BILLED"   // Linked to an invoice
	RatedItemStatusRejected RatedItemStatus = "REJECTED" // Excluded after a failed run
	RatedItemStatusCanceled RatedItemStatus = "CANCELED" // Withdrawn before invoicing
)

// IsValid checks if the status is a valid RatedItemStatus
func (s RatedItemStatus) IsValid() bool {
	switch s {
	case RatedItemStatusOpen, RatedItemStatusBilled, RatedItemStatusRejected, RatedItemStatusCanceled:
		return true
	}
	return false
}

// RatedItem is the lowest-level billable record eligible for invoicing.
// It carries the full amount triple plus its transactional-currency mirror.
type RatedItem struct {
	shared.BaseEntity
	AccountID                       uuid.UUID
	UserAccountID                   uuid.UUID
	CategoryID                      uuid.UUID
	SubCategoryID                   uuid.UUID
	TaxID                           uuid.UUID
	Description                     string
	Amounts                         valueobject.Amounts
	TransactionalAmounts            valueobject.Amounts
	UsesSpecificTransactionalAmount bool
	Status                          RatedItemStatus
	InvoiceID                       *uuid.UUID
	CyclePriority                   int
}

// IsOpen returns true if the item is still eligible for invoicing
func (i *RatedItem) IsOpen() bool {
	return i.Status == RatedItemStatusOpen && i.InvoiceID == nil
}
