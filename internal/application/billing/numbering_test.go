package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
)

func newDraftInvoice(run *billing.BillingRun, accountID, sellerID uuid.UUID, invoiceType string) *billing.Invoice {
	inv := billing.NewInvoice(run.ID, accountID, sellerID, invoiceType, "",
		run.InvoiceDate, run.InvoiceDate.AddDate(0, 0, 30))
	_ = inv.Promote(billing.InvoiceStatusDraft)
	return inv
}

func TestNumberingStageAssignsContiguousBlock(t *testing.T) {
	run := newTestRun(t)
	sellerID := uuid.New()
	accountID := uuid.New()
	invA := newDraftInvoice(run, accountID, sellerID, "COMMERCIAL")
	invB := newDraftInvoice(run, accountID, sellerID, "COMMERCIAL")
	key := invA.NumberingKey()

	invoices := new(mockInvoiceRepository)
	invoices.On("NumberingSummary", mock.Anything, run.ID).
		Return([]billing.NumberingGroup{{Key: key, Count: 2}}, nil)
	invoices.On("ByNumberingKey", mock.Anything, run.ID, key).
		Return([]*billing.Invoice{invA, invB}, nil)
	invoices.On("Save", mock.Anything, mock.Anything).Return(nil)

	accounts := new(mockAccountRepository)
	accounts.On("FindByIDs", mock.Anything, []uuid.UUID{accountID}).
		Return([]*billing.BillingAccount{{
			ID:              accountID,
			NextInvoiceDate: run.InvoiceDate,
		}}, nil)
	accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	sequences := new(mockSequenceReserver)
	sequences.On("ReserveBlock", mock.Anything, key, int64(2)).Return(int64(101), nil)

	stage := NewNumberingStage(invoices, accounts, sequences, nil, nil, DefaultPipelineConfig(), zap.NewNop())
	err := stage.AssignNumbers(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, "INV-000000101", invA.InvoiceNumber)
	assert.Equal(t, "INV-000000102", invB.InvoiceNumber)
	assert.False(t, invA.HasTemporaryNumber)
	assert.Equal(t, billing.InvoiceStatusValidated, invA.Status)
	assert.Equal(t, billing.InvoiceStatusValidated, invB.Status)

	// One reservation for the whole block, never one per invoice.
	sequences.AssertNumberOfCalls(t, "ReserveBlock", 1)
	// The shared account advances its next invoice date once.
	accounts.AssertNumberOfCalls(t, "Save", 1)
	saved := accounts.Calls[len(accounts.Calls)-1].Arguments.Get(1).(*billing.BillingAccount)
	assert.Equal(t, run.InvoiceDate.AddDate(0, 1, 0), saved.NextInvoiceDate)
}

func TestNumberingStageAdvancesAccountOnceAcrossBatches(t *testing.T) {
	run := newTestRun(t)
	sellerID := uuid.New()
	accountID := uuid.New()
	invA := newDraftInvoice(run, accountID, sellerID, "COMMERCIAL")
	invB := newDraftInvoice(run, accountID, sellerID, "COMMERCIAL")
	key := invA.NumberingKey()

	invoices := new(mockInvoiceRepository)
	invoices.On("NumberingSummary", mock.Anything, run.ID).
		Return([]billing.NumberingGroup{{Key: key, Count: 2}}, nil)
	invoices.On("ByNumberingKey", mock.Anything, run.ID, key).
		Return([]*billing.Invoice{invA, invB}, nil)
	invoices.On("Save", mock.Anything, mock.Anything).Return(nil)

	accounts := new(mockAccountRepository)
	accounts.On("FindByIDs", mock.Anything, []uuid.UUID{accountID}).
		Return([]*billing.BillingAccount{{
			ID:              accountID,
			NextInvoiceDate: run.InvoiceDate,
		}}, nil)
	accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	sequences := new(mockSequenceReserver)
	sequences.On("ReserveBlock", mock.Anything, key, int64(2)).Return(int64(1), nil)

	// A batch size of one splits the account's invoices across batches;
	// its next invoice date still moves forward a single cycle.
	cfg := DefaultPipelineConfig()
	cfg.NumberingBatchSize = 1

	stage := NewNumberingStage(invoices, accounts, sequences, nil, nil, cfg, zap.NewNop())
	err := stage.AssignNumbers(context.Background(), run)
	require.NoError(t, err)

	accounts.AssertNumberOfCalls(t, "Save", 1)
	saved := accounts.Calls[len(accounts.Calls)-1].Arguments.Get(1).(*billing.BillingAccount)
	assert.Equal(t, run.InvoiceDate.AddDate(0, 1, 0), saved.NextInvoiceDate)
}

func TestNumberingStageCountMismatchAbortsOnlyThatBatch(t *testing.T) {
	run := newTestRun(t)
	sellerX := uuid.New()
	sellerY := uuid.New()
	mismatched := billing.NewNumberingKey("typeA", sellerX, run.InvoiceDate)
	healthy := billing.NewNumberingKey("typeB", sellerY, run.InvoiceDate)
	healthyInv := newDraftInvoice(run, uuid.New(), sellerY, "typeB")

	invoices := new(mockInvoiceRepository)
	invoices.On("NumberingSummary", mock.Anything, run.ID).
		Return([]billing.NumberingGroup{
			{Key: mismatched, Count: 5},
			{Key: healthy, Count: 1},
		}, nil)
	invoices.On("ByNumberingKey", mock.Anything, run.ID, mismatched).
		Return([]*billing.Invoice{
			newDraftInvoice(run, uuid.New(), sellerX, "typeA"),
			newDraftInvoice(run, uuid.New(), sellerX, "typeA"),
			newDraftInvoice(run, uuid.New(), sellerX, "typeA"),
			newDraftInvoice(run, uuid.New(), sellerX, "typeA"),
		}, nil)
	invoices.On("ByNumberingKey", mock.Anything, run.ID, healthy).
		Return([]*billing.Invoice{healthyInv}, nil)
	invoices.On("Save", mock.Anything, mock.Anything).Return(nil)

	accounts := new(mockAccountRepository)
	accounts.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]*billing.BillingAccount{{ID: healthyInv.AccountID}}, nil)
	accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	sequences := new(mockSequenceReserver)
	sequences.On("ReserveBlock", mock.Anything, healthy, int64(1)).Return(int64(1), nil)

	stage := NewNumberingStage(invoices, accounts, sequences, nil, nil, DefaultPipelineConfig(), zap.NewNop())
	err := stage.AssignNumbers(context.Background(), run)
	require.Error(t, err)

	// The error names the mismatched dimensions.
	assert.Contains(t, err.Error(), "typeA")
	assert.Contains(t, err.Error(), sellerX.String())
	assert.Contains(t, err.Error(), run.InvoiceDate.Format("2006-01-02"))
	assert.Contains(t, err.Error(), "5")
	assert.Contains(t, err.Error(), "4")

	// The healthy batch numbered anyway.
	assert.Equal(t, "INV-000000001", healthyInv.InvoiceNumber)
	assert.Equal(t, billing.InvoiceStatusValidated, healthyInv.Status)
	// No block was reserved for the mismatched key.
	sequences.AssertNumberOfCalls(t, "ReserveBlock", 1)
}

func TestNumberingStageSkipsCanceledInvoiceButContinues(t *testing.T) {
	run := newTestRun(t)
	sellerID := uuid.New()
	canceled := newDraftInvoice(run, uuid.New(), sellerID, "COMMERCIAL")
	canceled.Status = billing.InvoiceStatusCanceled
	good := newDraftInvoice(run, uuid.New(), sellerID, "COMMERCIAL")
	key := good.NumberingKey()

	invoices := new(mockInvoiceRepository)
	invoices.On("NumberingSummary", mock.Anything, run.ID).
		Return([]billing.NumberingGroup{{Key: key, Count: 2}}, nil)
	invoices.On("ByNumberingKey", mock.Anything, run.ID, key).
		Return([]*billing.Invoice{canceled, good}, nil)
	invoices.On("Save", mock.Anything, mock.Anything).Return(nil)

	accounts := new(mockAccountRepository)
	accounts.On("FindByIDs", mock.Anything, mock.Anything).
		Return([]*billing.BillingAccount{{ID: good.AccountID, NextInvoiceDate: time.Now()}}, nil)
	accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	sequences := new(mockSequenceReserver)
	sequences.On("ReserveBlock", mock.Anything, key, int64(2)).Return(int64(7), nil)

	stage := NewNumberingStage(invoices, accounts, sequences, nil, nil, DefaultPipelineConfig(), zap.NewNop())
	err := stage.AssignNumbers(context.Background(), run)
	require.NoError(t, err)

	assert.True(t, canceled.HasTemporaryNumber)
	assert.Equal(t, "INV-000000008", good.InvoiceNumber)
	assert.Equal(t, billing.InvoiceStatusValidated, good.Status)
}
