package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscountPlanItem_AppliesTo(t *testing.T) {
	categoryID := uuid.New()
	subCategoryID := uuid.New()
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	at := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		item     DiscountPlanItem
		expected bool
	}{
		{
			name:     "unscoped active item matches anything",
			item:     DiscountPlanItem{Active: true},
			expected: true,
		},
		{
			name:     "inactive item never matches",
			item:     DiscountPlanItem{Active: false},
			expected: false,
		},
		{
			name:     "matching category scope",
			item:     DiscountPlanItem{Active: true, CategoryID: &categoryID},
			expected: true,
		},
		{
			name: "foreign sub-category scope",
			item: DiscountPlanItem{Active: true, SubCategoryID: func() *uuid.UUID {
				id := uuid.New()
				return &id
			}()},
			expected: false,
		},
		{
			name:     "inside validity window",
			item:     DiscountPlanItem{Active: true, ValidFrom: &from, ValidTo: &to},
			expected: true,
		},
		{
			name:     "before validity window",
			item:     DiscountPlanItem{Active: true, ValidFrom: &to},
			expected: false,
		},
		{
			name:     "window end is exclusive",
			item:     DiscountPlanItem{Active: true, ValidTo: &at},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.AppliesTo(categoryID, subCategoryID, at))
		})
	}
}

func TestBillingAccount_AdvanceNextInvoiceDate(t *testing.T) {
	account := &BillingAccount{
		NextInvoiceDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		BillingCycleMonths: 3,
	}
	account.AdvanceNextInvoiceDate()
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), account.NextInvoiceDate)

	// A zero cycle defaults to monthly.
	monthly := &BillingAccount{NextInvoiceDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	monthly.AdvanceNextInvoiceDate()
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), monthly.NextInvoiceDate)
}

func TestTax_IsComposite(t *testing.T) {
	simple := &Tax{ID: uuid.New(), Percent: decimal.NewFromInt(20)}
	assert.False(t, simple.IsComposite())

	composite := &Tax{ID: uuid.New(), Percent: decimal.NewFromInt(20), SubTaxes: []*Tax{
		{ID: uuid.New(), Percent: decimal.NewFromInt(12)},
		{ID: uuid.New(), Percent: decimal.NewFromInt(8)},
	}}
	assert.True(t, composite.IsComposite())
}
