package persistence

import (
	"testing"
	"time"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(models.AllModels()...)
	require.NoError(t, err)

	return db
}

// seedRun inserts a billing run row and returns its domain form
func seedRun(t *testing.T, db *gorm.DB, invoiceDate time.Time) *billing.BillingRun {
	t.Helper()

	run, err := billing.NewBillingRun(billing.ProcessTypeAutomatic, uuid.New(), invoiceDate, invoiceDate)
	require.NoError(t, err)

	var model models.BillingRunModel
	model.FromDomain(run)
	require.NoError(t, db.Create(&model).Error)
	return run
}

// seedAccountRow inserts a billing account row with an explicit creation
// time so ordering across accounts is deterministic
func seedAccountRow(t *testing.T, db *gorm.DB, account *billing.BillingAccount, createdAt time.Time) {
	t.Helper()

	var model models.BillingAccountModel
	model.FromDomain(account)
	model.CreatedAt = createdAt
	model.UpdatedAt = createdAt
	require.NoError(t, db.Create(&model).Error)
}
