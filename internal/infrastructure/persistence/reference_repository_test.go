package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormReferenceRepository_TaxByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReferenceRepository(db)
	ctx := context.Background()

	parentID := uuid.New()
	parent := models.TaxModel{ID: parentID, Code: "COMP20", Description: "Composite 20%", Percent: decimal.NewFromInt(20)}
	state := models.TaxModel{ID: uuid.New(), Code: "STATE12", Description: "State 12%", Percent: decimal.NewFromInt(12), ParentID: &parentID}
	city := models.TaxModel{ID: uuid.New(), Code: "CITY8", Description: "City 8%", Percent: decimal.NewFromInt(8), ParentID: &parentID}
	plain := models.TaxModel{ID: uuid.New(), Code: "VAT20", Description: "VAT 20%", Percent: decimal.NewFromInt(20)}
	for _, row := range []models.TaxModel{parent, state, city, plain} {
		require.NoError(t, db.Create(&row).Error)
	}

	composite, err := repo.TaxByID(ctx, parentID)
	require.NoError(t, err)
	assert.True(t, composite.IsComposite())
	require.Len(t, composite.SubTaxes, 2)
	assert.Equal(t, "CITY8", composite.SubTaxes[0].Code)
	assert.Equal(t, "STATE12", composite.SubTaxes[1].Code)

	simple, err := repo.TaxByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.False(t, simple.IsComposite())
	assert.Equal(t, "20", simple.Percent.String())

	_, err = repo.TaxByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormReferenceRepository_DiscountPlanItemsForAccount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReferenceRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	validTo := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	assigned := models.DiscountPlanItemModel{
		ID: uuid.New(), Code: "LOYALTY10", Description: "Loyalty 10%",
		Kind: billing.DiscountKindPercentage, Value: decimal.NewFromInt(10),
		ValidTo: &validTo, Active: true,
	}
	inactive := models.DiscountPlanItemModel{
		ID: uuid.New(), Code: "OLD5", Description: "Retired 5%",
		Kind: billing.DiscountKindPercentage, Value: decimal.NewFromInt(5), Active: false,
	}
	unassigned := models.DiscountPlanItemModel{
		ID: uuid.New(), Code: "OTHER", Description: "Someone else's",
		Kind: billing.DiscountKindFixed, Value: decimal.NewFromInt(25), Active: true,
	}
	for _, row := range []models.DiscountPlanItemModel{assigned, inactive, unassigned} {
		require.NoError(t, db.Create(&row).Error)
	}
	for _, planItemID := range []uuid.UUID{assigned.ID, inactive.ID} {
		require.NoError(t, db.Create(&models.DiscountPlanAssignmentModel{AccountID: accountID, PlanItemID: planItemID}).Error)
	}

	items, err := repo.DiscountPlanItemsForAccount(ctx, accountID)
	require.NoError(t, err)

	// Only the active assigned plan item survives the query
	require.Len(t, items, 1)
	assert.Equal(t, "LOYALTY10", items[0].Code)
	assert.Equal(t, billing.DiscountKindPercentage, items[0].Kind)
	require.NotNil(t, items[0].ValidTo)
	assert.True(t, items[0].ValidTo.Equal(validTo))
}

func TestGormReferenceRepository_LanguageDescription(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormReferenceRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.LanguageModel{Code: "fr", Description: "Consommation"}).Error)

	desc, err := repo.LanguageDescription(ctx, "fr")
	require.NoError(t, err)
	assert.Equal(t, "Consommation", desc)

	_, err = repo.LanguageDescription(ctx, "de")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
