package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingAccount is the reference data of a billable customer account
type BillingAccount struct {
	ID                 uuid.UUID
	Code               string
	SellerID           uuid.UUID
	PaymentMethod      string
	DueBalance         decimal.Decimal
	Language           string
	TaxExonerated      bool
	Prepaid            bool
	NextInvoiceDate    time.Time
	BillingCycleMonths int
	CyclePriority      int
}

// AdvanceNextInvoiceDate moves the account's next invoice date forward by
// one billing-cycle period
func (a *BillingAccount) AdvanceNextInvoiceDate() {
	months := a.BillingCycleMonths
	if months <= 0 {
		months = 1
	}
	a.NextInvoiceDate = a.NextInvoiceDate.AddDate(0, months, 0)
}

// AccountDetails is the per-account container produced by the aggregation
// stage: the account's reference data, its applicable discount plan items,
// and its invoicing items grouped by invoice split key. One split key
// yields one invoice.
type AccountDetails struct {
	Account       *BillingAccount
	DiscountPlans []*DiscountPlanItem
	groups        map[string][]*InvoicingItem
	groupIndex    map[string]map[InvoicingItemKey]*InvoicingItem
	groupOrder    []string
}

// NewAccountDetails creates an empty details container for the account
func NewAccountDetails(account *BillingAccount) *AccountDetails {
	return &AccountDetails{
		Account:    account,
		groups:     make(map[string][]*InvoicingItem),
		groupIndex: make(map[string]map[InvoicingItemKey]*InvoicingItem),
	}
}

// AddItem merges an invoicing item into its split-key group. Items sharing
// the same grouping key are folded together via Merge.
func (d *AccountDetails) AddItem(item *InvoicingItem) {
	splitKey := item.Key.SplitKey
	index, ok := d.groupIndex[splitKey]
	if !ok {
		index = make(map[InvoicingItemKey]*InvoicingItem)
		d.groupIndex[splitKey] = index
		d.groupOrder = append(d.groupOrder, splitKey)
	}
	if existing, ok := index[item.Key]; ok {
		existing.Merge(item)
		return
	}
	index[item.Key] = item
	d.groups[splitKey] = append(d.groups[splitKey], item)
}

// SplitKeys returns the invoice split keys in first-seen order
func (d *AccountDetails) SplitKeys() []string {
	return d.groupOrder
}

// Group returns the invoicing items of one split key in first-seen order
func (d *AccountDetails) Group(splitKey string) []*InvoicingItem {
	return d.groups[splitKey]
}

// ItemCount returns the total number of invoicing items across all groups
func (d *AccountDetails) ItemCount() int {
	n := 0
	for _, items := range d.groups {
		n += len(items)
	}
	return n
}
