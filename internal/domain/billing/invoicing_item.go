package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoicingItemKey is the grouping key of an invoicing item. One key maps
// to exactly one sub-category aggregate on the resulting invoice.
type InvoicingItemKey struct {
	AccountID     uuid.UUID
	SubCategoryID uuid.UUID
	UserAccountID uuid.UUID
	TaxID         uuid.UUID
	SplitKey      string
}

// InvoicingItem is an aggregated group of rated items sharing one grouping
// key. Amount carries the display-mode leg (tax-inclusive or exclusive per
// the global pricing mode); the missing legs are reconstructed from the tax
// percent when the sub-category aggregate is built.
//
// Merge is associative and commutative: grouping N rated items in one pass
// or merging any partitioning of them pairwise yields identical totals.
type InvoicingItem struct {
	Key                             InvoicingItemKey
	CategoryID                      uuid.UUID
	Description                     string
	Amount                          decimal.Decimal
	TransactionalAmount             decimal.Decimal
	SourceItemIDs                   []uuid.UUID
	Count                           int
	UsesSpecificTransactionalAmount bool
}

// NewInvoicingItem creates an invoicing item from a single rated item.
// The display-mode amount leg is selected by the caller.
func NewInvoicingItem(key InvoicingItemKey, categoryID uuid.UUID, description string, amount, transactionalAmount decimal.Decimal, sourceID uuid.UUID, specificTransactional bool) *InvoicingItem {
	return &InvoicingItem{
		Key:                             key,
		CategoryID:                      categoryID,
		Description:                     description,
		Amount:                          amount,
		TransactionalAmount:             transactionalAmount,
		SourceItemIDs:                   []uuid.UUID{sourceID},
		Count:                           1,
		UsesSpecificTransactionalAmount: specificTransactional,
	}
}

// Merge folds another invoicing item with the same key into this one:
// amounts and counts are summed, source-item id lists concatenated. The
// description of the first item wins.
func (i *InvoicingItem) Merge(other *InvoicingItem) {
	i.Amount = i.Amount.Add(other.Amount)
	i.TransactionalAmount = i.TransactionalAmount.Add(other.TransactionalAmount)
	i.SourceItemIDs = append(i.SourceItemIDs, other.SourceItemIDs...)
	i.Count += other.Count
	i.UsesSpecificTransactionalAmount = i.UsesSpecificTransactionalAmount || other.UsesSpecificTransactionalAmount
}

// ApplyFactor scales the item amounts in place. Used by percentage
// discounts: amount becomes amount x factor.
func (i *InvoicingItem) ApplyFactor(factor decimal.Decimal) {
	i.Amount = i.Amount.Mul(factor)
	i.TransactionalAmount = i.TransactionalAmount.Mul(factor)
}

// SubtractAmount reduces the item amounts in place by the given share.
// Used when a fixed-amount discount is dispatched proportionally.
func (i *InvoicingItem) SubtractAmount(share, transactionalShare decimal.Decimal) {
	i.Amount = i.Amount.Sub(share)
	i.TransactionalAmount = i.TransactionalAmount.Sub(transactionalShare)
}

// SubCategoryKey identifies the sub-category aggregate an item belongs to.
// TaxID is part of the key so every aggregate carries exactly one tax rate.
type SubCategoryKey struct {
	UserAccountID uuid.UUID
	SubCategoryID uuid.UUID
	TaxID         uuid.UUID
}

// SubCategoryGroupKey returns the key grouping items into sub-category aggregates
func (i *InvoicingItem) SubCategoryGroupKey() SubCategoryKey {
	return SubCategoryKey{
		UserAccountID: i.Key.UserAccountID,
		SubCategoryID: i.Key.SubCategoryID,
		TaxID:         i.Key.TaxID,
	}
}
