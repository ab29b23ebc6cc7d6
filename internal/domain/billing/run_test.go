package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billing/backend/internal/domain/shared/valueobject"
)

func newTestRun(t *testing.T, processType ProcessType) *BillingRun {
	t.Helper()
	run, err := NewBillingRun(processType, uuid.New(), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	return run
}

func TestNewBillingRun(t *testing.T) {
	run := newTestRun(t, ProcessTypeAutomatic)

	assert.Equal(t, RunStatusOpen, run.Status)
	assert.Equal(t, run.InvoiceDate, run.LastTransactionDate)
	assert.False(t, run.IsTerminal())
	assert.Len(t, run.GetDomainEvents(), 1)
}

func TestNewBillingRun_Invalid(t *testing.T) {
	_, err := NewBillingRun("SEMI_AUTOMATIC", uuid.New(), time.Now(), time.Now())
	assert.Error(t, err)

	_, err = NewBillingRun(ProcessTypeManual, uuid.Nil, time.Now(), time.Now())
	assert.Error(t, err)

	_, err = NewBillingRun(ProcessTypeManual, uuid.New(), time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestBillingRun_Lifecycle(t *testing.T) {
	run := newTestRun(t, ProcessTypeManual)

	path := []RunStatus{
		RunStatusInvoiceLinesCreated,
		RunStatusPrevalidated,
		RunStatusDraftInvoices,
		RunStatusPostvalidated,
		RunStatusValidated,
	}
	for _, next := range path {
		require.NoError(t, run.TransitionTo(next))
	}
	assert.True(t, run.IsTerminal())
	assert.Error(t, run.TransitionTo(RunStatusOpen))
}

func TestBillingRun_TransitionGuards(t *testing.T) {
	run := newTestRun(t, ProcessTypeAutomatic)

	// Skipping states is not allowed.
	assert.Error(t, run.TransitionTo(RunStatusDraftInvoices))
	assert.Error(t, run.TransitionTo(RunStatusValidated))
	// Rejection is only reachable once draft invoices exist.
	assert.False(t, run.CanTransitionTo(RunStatusRejected))

	require.NoError(t, run.TransitionTo(RunStatusInvoiceLinesCreated))
	require.NoError(t, run.TransitionTo(RunStatusPrevalidated))
	require.NoError(t, run.TransitionTo(RunStatusDraftInvoices))
	assert.True(t, run.CanTransitionTo(RunStatusRejected))
}

func TestBillingRun_Reject(t *testing.T) {
	run := newTestRun(t, ProcessTypeAutomatic)
	require.NoError(t, run.TransitionTo(RunStatusInvoiceLinesCreated))

	require.NoError(t, run.Reject("validation script failed"))
	assert.Equal(t, RunStatusRejected, run.Status)
	assert.Equal(t, "validation script failed", run.RejectionReason)
	assert.True(t, run.IsTerminal())

	// Terminal runs cannot be rejected again.
	assert.Error(t, run.Reject("again"))
}

func TestRunStatistics_Add(t *testing.T) {
	a := RunStatistics{
		AccountCount:  2,
		InvoiceCount:  3,
		RejectedCount: 1,
		Amounts:       valueobject.NewAmounts(decimal.NewFromInt(100), decimal.NewFromInt(20), decimal.NewFromInt(120)),
	}
	b := RunStatistics{
		AccountCount: 1,
		InvoiceCount: 1,
		Amounts:      valueobject.NewAmounts(decimal.NewFromInt(50), decimal.NewFromInt(10), decimal.NewFromInt(60)),
	}

	sum := a.Add(b)
	assert.Equal(t, 3, sum.AccountCount)
	assert.Equal(t, 4, sum.InvoiceCount)
	assert.Equal(t, 1, sum.RejectedCount)
	assert.True(t, sum.Amounts.WithTax().Equal(decimal.NewFromInt(180)))
}

func TestProcessType_IsAutomatic(t *testing.T) {
	assert.False(t, ProcessTypeManual.IsAutomatic())
	assert.True(t, ProcessTypeAutomatic.IsAutomatic())
	assert.True(t, ProcessTypeFullAutomatic.IsAutomatic())
}
