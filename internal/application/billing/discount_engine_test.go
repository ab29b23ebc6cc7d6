package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
)

func discountFixture(t *testing.T, refs *mockReferenceRepository, taxID uuid.UUID, amounts ...string) (*billing.AccountDetails, *billing.Invoice, *billing.SubCategoryAggregate, *RunCache) {
	t.Helper()
	details := billing.NewAccountDetails(newTestAccount())
	subCategoryID := uuid.New()
	userAccountID := uuid.New()
	categoryID := uuid.New()

	var items []*billing.InvoicingItem
	for _, amount := range amounts {
		value := decimal.RequireFromString(amount)
		items = append(items, billing.NewInvoicingItem(billing.InvoicingItemKey{
			AccountID:     details.Account.ID,
			SubCategoryID: subCategoryID,
			UserAccountID: userAccountID,
			TaxID:         taxID,
		}, categoryID, "usage", value, value, uuid.New(), false))
	}
	sub := billing.NewSubCategoryAggregate("usage", categoryID, subCategoryID, userAccountID, taxID, items)

	cache := NewRunCache(refs)
	require.NoError(t, recomputeSubCategory(context.Background(), sub, cache, DefaultPipelineConfig(), false))

	run := newTestRun(t)
	inv := billing.NewInvoice(run.ID, details.Account.ID, details.Account.SellerID,
		"COMMERCIAL", "", run.InvoiceDate, run.InvoiceDate)
	return details, inv, sub, cache
}

func vat20(refs *mockReferenceRepository, taxID uuid.UUID) {
	refs.On("TaxByID", mock.Anything, taxID).
		Return(&billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}, nil)
}

func TestDiscountEngineFixedAmountProportionalDispatch(t *testing.T) {
	taxID := uuid.New()
	refs := new(mockReferenceRepository)
	vat20(refs, taxID)
	details, inv, sub, cache := discountFixture(t, refs, taxID, "60", "40")
	details.DiscountPlans = []*billing.DiscountPlanItem{{
		ID:     uuid.New(),
		Kind:   billing.DiscountKindFixed,
		Value:  decimal.NewFromInt(10),
		Active: true,
	}}

	engine := NewDiscountEngine(nil, nil, DefaultPipelineConfig(), zap.NewNop())
	produced, err := engine.Apply(context.Background(), details, inv, sub, cache)
	require.NoError(t, err)
	require.Len(t, produced, 1)

	// 10 off a base of 100, split 60/40 across the two items.
	items := sub.Items()
	assert.Equal(t, "54", items[0].Amount.String())
	assert.Equal(t, "36", items[1].Amount.String())
	assert.Equal(t, "90", sub.Amounts.WithoutTax().String())
	assert.Equal(t, "-10", produced[0].Amounts.WithoutTax().String())
	assert.True(t, produced[0].Percent.IsZero())
}

func TestDiscountEngineExpiredPlanIgnored(t *testing.T) {
	taxID := uuid.New()
	refs := new(mockReferenceRepository)
	vat20(refs, taxID)
	details, inv, sub, cache := discountFixture(t, refs, taxID, "100")

	expired := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	details.DiscountPlans = []*billing.DiscountPlanItem{{
		ID:      uuid.New(),
		Kind:    billing.DiscountKindPercentage,
		Value:   decimal.NewFromInt(10),
		Active:  true,
		ValidTo: &expired,
	}}

	engine := NewDiscountEngine(nil, nil, DefaultPipelineConfig(), zap.NewNop())
	produced, err := engine.Apply(context.Background(), details, inv, sub, cache)
	require.NoError(t, err)
	assert.Empty(t, produced)
	assert.Equal(t, "100", sub.Amounts.WithoutTax().String())
}

func TestDiscountEngineZeroDeltaProducesNoAggregate(t *testing.T) {
	taxID := uuid.New()
	refs := new(mockReferenceRepository)
	vat20(refs, taxID)
	details, inv, sub, cache := discountFixture(t, refs, taxID, "100")
	details.DiscountPlans = []*billing.DiscountPlanItem{{
		ID:     uuid.New(),
		Kind:   billing.DiscountKindPercentage,
		Value:  decimal.Zero,
		Active: true,
	}}

	engine := NewDiscountEngine(nil, nil, DefaultPipelineConfig(), zap.NewNop())
	produced, err := engine.Apply(context.Background(), details, inv, sub, cache)
	require.NoError(t, err)
	assert.Empty(t, produced)
	assert.Nil(t, sub.Discount)
}

type doublingValue struct{}

func (doublingValue) Resolve(_ context.Context, in strategy.DiscountValueInput) (decimal.Decimal, error) {
	return decimal.NewFromInt(20), nil
}

func TestDiscountEngineValueStrategyOverridesStaticValue(t *testing.T) {
	taxID := uuid.New()
	refs := new(mockReferenceRepository)
	vat20(refs, taxID)
	details, inv, sub, cache := discountFixture(t, refs, taxID, "100")
	details.DiscountPlans = []*billing.DiscountPlanItem{{
		ID:              uuid.New(),
		Kind:            billing.DiscountKindPercentage,
		Value:           decimal.NewFromInt(10),
		ValueExpression: "account.loyaltyTier * 2",
		Active:          true,
	}}

	engine := NewDiscountEngine(doublingValue{}, nil, DefaultPipelineConfig(), zap.NewNop())
	produced, err := engine.Apply(context.Background(), details, inv, sub, cache)
	require.NoError(t, err)
	require.Len(t, produced, 1)
	assert.Equal(t, "80", sub.Amounts.WithoutTax().String())
	assert.Equal(t, "-20", produced[0].Amounts.WithoutTax().String())
}

type rejectingPredicate struct{}

func (rejectingPredicate) Applies(context.Context, strategy.DiscountPredicateInput) (bool, error) {
	return false, nil
}

func TestDiscountEnginePredicateBlocksApplication(t *testing.T) {
	taxID := uuid.New()
	refs := new(mockReferenceRepository)
	vat20(refs, taxID)
	details, inv, sub, cache := discountFixture(t, refs, taxID, "100")
	details.DiscountPlans = []*billing.DiscountPlanItem{{
		ID:                  uuid.New(),
		Kind:                billing.DiscountKindPercentage,
		Value:               decimal.NewFromInt(10),
		PredicateExpression: "account.segment == 'VIP'",
		Active:              true,
	}}

	engine := NewDiscountEngine(nil, rejectingPredicate{}, DefaultPipelineConfig(), zap.NewNop())
	produced, err := engine.Apply(context.Background(), details, inv, sub, cache)
	require.NoError(t, err)
	assert.Empty(t, produced)
}
