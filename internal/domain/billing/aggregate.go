package billing

import (
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateKind identifies the variant of an invoice aggregate
type AggregateKind string

const (
	AggregateKindCategory    AggregateKind = "CATEGORY"
	AggregateKindSubCategory AggregateKind = "SUBCATEGORY"
	AggregateKindTax         AggregateKind = "TAX"
	AggregateKindDiscount    AggregateKind = "DISCOUNT"
)

// Aggregate is a summarized financial line attached to an invoice
type Aggregate interface {
	AggregateID() uuid.UUID
	Kind() AggregateKind
	AggregateAmounts() valueobject.Amounts
	Describe() string
	linkInvoice(invoiceID uuid.UUID)
}

// aggregateBase carries the fields common to every aggregate variant
type aggregateBase struct {
	ID                   uuid.UUID
	InvoiceID            uuid.UUID
	Description          string
	Amounts              valueobject.Amounts
	TransactionalAmounts valueobject.Amounts
	ItemCount            int
}

func newAggregateBase(description string) aggregateBase {
	return aggregateBase{ID: uuid.New(), Description: description}
}

// AggregateID returns the aggregate identifier
func (b *aggregateBase) AggregateID() uuid.UUID {
	return b.ID
}

// AggregateAmounts returns the summarized amount triple
func (b *aggregateBase) AggregateAmounts() valueobject.Amounts {
	return b.Amounts
}

// Describe returns the aggregate's invoice-line description
func (b *aggregateBase) Describe() string {
	return b.Description
}

func (b *aggregateBase) linkInvoice(invoiceID uuid.UUID) {
	b.InvoiceID = invoiceID
}

// SubCategoryAggregate summarizes all invoicing items that share one
// sub-category key. It keeps the source rated-item ids for later linking
// and an optional reference to the discount aggregate derived from it.
type SubCategoryAggregate struct {
	aggregateBase
	CategoryID    uuid.UUID
	SubCategoryID uuid.UUID
	UserAccountID uuid.UUID
	TaxID         uuid.UUID
	SourceItemIDs []uuid.UUID
	Discount      *DiscountAggregate
	items         []*InvoicingItem
}

// NewSubCategoryAggregate creates a sub-category aggregate over the given
// items. All items must share the aggregate's tax.
func NewSubCategoryAggregate(description string, categoryID, subCategoryID, userAccountID, taxID uuid.UUID, items []*InvoicingItem) *SubCategoryAggregate {
	agg := &SubCategoryAggregate{
		aggregateBase: newAggregateBase(description),
		CategoryID:    categoryID,
		SubCategoryID: subCategoryID,
		UserAccountID: userAccountID,
		TaxID:         taxID,
		items:         items,
	}
	for _, item := range items {
		agg.SourceItemIDs = append(agg.SourceItemIDs, item.SourceItemIDs...)
		agg.ItemCount += item.Count
	}
	return agg
}

// Kind returns AggregateKindSubCategory
func (a *SubCategoryAggregate) Kind() AggregateKind {
	return AggregateKindSubCategory
}

// Items returns the invoicing items backing this aggregate
func (a *SubCategoryAggregate) Items() []*InvoicingItem {
	return a.items
}

// SetAmounts replaces the aggregate's amount triples
func (a *SubCategoryAggregate) SetAmounts(amounts, transactional valueobject.Amounts) {
	a.Amounts = amounts
	a.TransactionalAmounts = transactional
}

// CategoryAggregate is the parent roll-up of the sub-category aggregates
// sharing one invoice category. Its amounts are always the exact sum of its
// children; it never contributes to invoice totals directly.
type CategoryAggregate struct {
	aggregateBase
	CategoryID    uuid.UUID
	SubAggregates []*SubCategoryAggregate
}

// NewCategoryAggregate creates a category aggregate over its sub-categories
func NewCategoryAggregate(description string, categoryID uuid.UUID, subs []*SubCategoryAggregate) *CategoryAggregate {
	agg := &CategoryAggregate{
		aggregateBase: newAggregateBase(description),
		CategoryID:    categoryID,
		SubAggregates: subs,
	}
	agg.RecomputeFromChildren()
	return agg
}

// Kind returns AggregateKindCategory
func (a *CategoryAggregate) Kind() AggregateKind {
	return AggregateKindCategory
}

// RecomputeFromChildren resets the category amounts to the exact sum of its
// sub-category aggregates. Called again after discounts mutate the children.
func (a *CategoryAggregate) RecomputeFromChildren() {
	amounts := valueobject.ZeroAmounts()
	transactional := valueobject.ZeroAmounts()
	count := 0
	for _, sub := range a.SubAggregates {
		amounts = amounts.Add(sub.Amounts)
		transactional = transactional.Add(sub.TransactionalAmounts)
		count += sub.ItemCount
	}
	a.Amounts = amounts
	a.TransactionalAmounts = transactional
	a.ItemCount = count
}

// TaxAggregate summarizes the tax owed for one tax rate. A composite tax
// aggregate owns child aggregates for its sub-taxes; children are linked to
// the invoice but excluded from direct total accumulation because the parent
// already counted.
type TaxAggregate struct {
	aggregateBase
	Tax            *Tax
	Children       []*TaxAggregate
	CompositeChild bool
}

// NewTaxAggregate creates a tax aggregate for one tax rate
func NewTaxAggregate(tax *Tax, amounts, transactional valueobject.Amounts) *TaxAggregate {
	agg := &TaxAggregate{
		aggregateBase: newAggregateBase(tax.Description),
		Tax:           tax,
	}
	agg.Amounts = amounts
	agg.TransactionalAmounts = transactional
	return agg
}

// Kind returns AggregateKindTax
func (a *TaxAggregate) Kind() AggregateKind {
	return AggregateKindTax
}

// IsComposite returns true if this aggregate's tax splits into sub-taxes
func (a *TaxAggregate) IsComposite() bool {
	return a.Tax != nil && a.Tax.IsComposite()
}

// TaxAmount returns the tax leg of the aggregate
func (a *TaxAggregate) TaxAmount() decimal.Decimal {
	return a.Amounts.Tax()
}

// Accumulate folds another amount triple into the aggregate
func (a *TaxAggregate) Accumulate(amounts, transactional valueobject.Amounts) {
	a.Amounts = a.Amounts.Add(amounts)
	a.TransactionalAmounts = a.TransactionalAmounts.Add(transactional)
}

// AddChild attaches a sub-tax aggregate to this composite
func (a *TaxAggregate) AddChild(child *TaxAggregate) {
	child.CompositeChild = true
	a.Children = append(a.Children, child)
}

// DiscountAggregate records the delta a discount plan item produced on a
// sub-category. Its amount legs are negative. It is reporting-only: the
// discounted amounts already live on the mutated sub-category aggregate, so
// it never contributes to invoice totals.
type DiscountAggregate struct {
	aggregateBase
	PlanItemID    uuid.UUID
	Percent       decimal.Decimal // zero for fixed-amount discounts
	SubCategoryID uuid.UUID
}

// NewDiscountAggregate creates a discount aggregate for the given delta
func NewDiscountAggregate(planItem *DiscountPlanItem, subCategoryID uuid.UUID, delta, transactionalDelta valueobject.Amounts) *DiscountAggregate {
	agg := &DiscountAggregate{
		aggregateBase: newAggregateBase(planItem.Description),
		PlanItemID:    planItem.ID,
		SubCategoryID: subCategoryID,
	}
	if planItem.Kind == DiscountKindPercentage {
		agg.Percent = planItem.Value
	}
	agg.Amounts = delta
	agg.TransactionalAmounts = transactionalDelta
	return agg
}

// Kind returns AggregateKindDiscount
func (a *DiscountAggregate) Kind() AggregateKind {
	return AggregateKindDiscount
}
