package billing

import (
	"context"
	"errors"
	"sync"
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
	"github.com/billing/backend/internal/domain/shared"
)

type fakeRunRepo struct {
	mu    sync.Mutex
	saves int
}

func (r *fakeRunRepo) Save(context.Context, *billing.BillingRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func (r *fakeRunRepo) FindByID(context.Context, uuid.UUID) (*billing.BillingRun, error) {
	return nil, shared.ErrNotFound
}

// fakeSequences hands out contiguous blocks from an in-memory counter
type fakeSequences struct {
	mu   sync.Mutex
	next map[billing.NumberingKey]int64
}

func (s *fakeSequences) ReserveBlock(_ context.Context, key billing.NumberingKey, count int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[billing.NumberingKey]int64)
	}
	first := s.next[key] + 1
	s.next[key] += count
	return first, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) published() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

type failingValidation struct{ err error }

func (v failingValidation) Validate(context.Context, *billing.BillingRun) error {
	return v.err
}

func newMachineFixture(store *fakeStore, validation strategy.RunValidationScript, accounting billing.AccountingEntryGenerator) (*StateMachine, *fakeRunRepo) {
	logger := zap.NewNop()
	cfg := DefaultPipelineConfig()
	runner := newRunnerFixture(store, cfg)
	numbering := NewNumberingStage(
		fakeInvoiceRepo{store}, store, &fakeSequences{}, accounting, nil, cfg, logger)
	runRepo := &fakeRunRepo{}
	machine := NewStateMachine(
		runRepo, store, fakeInvoiceRepo{store}, fakeRejectedRepo{store}, store,
		runner, numbering, validation, nil, logger)
	return machine, runRepo
}

func newRunOfType(t *testing.T, processType billing.ProcessType) *billing.BillingRun {
	t.Helper()
	run, err := billing.NewBillingRun(processType, uuid.New(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	return run
}

func TestStateMachineManualRunStopsAfterLineCreation(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")

	machine, _ := newMachineFixture(store, nil, nil)
	run := newRunOfType(t, billing.ProcessTypeManual)
	require.NoError(t, machine.Execute(context.Background(), run))

	assert.Equal(t, billing.RunStatusInvoiceLinesCreated, run.Status)
	assert.Empty(t, store.invoices)
}

func TestStateMachineAutomaticRunEndToEnd(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")
	seedAccount(store, taxID, "200")

	machine, runRepo := newMachineFixture(store, strategy.NoopValidationScript{}, nil)
	run := newRunOfType(t, billing.ProcessTypeAutomatic)
	require.NoError(t, machine.Execute(context.Background(), run))

	assert.Equal(t, billing.RunStatusValidated, run.Status)
	assert.Equal(t, 2, run.Statistics.InvoiceCount)
	assert.Equal(t, 2, run.Statistics.AccountCount)
	assert.Equal(t, 0, run.Statistics.RejectedCount)
	assert.Equal(t, "300", run.Statistics.Amounts.WithoutTax().String())
	assert.Greater(t, runRepo.saves, 0)

	require.Len(t, store.invoices, 2)
	for _, inv := range store.invoices {
		assert.Equal(t, billing.InvoiceStatusValidated, inv.Status)
		assert.False(t, inv.HasTemporaryNumber)
		assert.Contains(t, inv.InvoiceNumber, "INV-")
	}
}

func TestStateMachineValidationFailureOnCleanRunIsSwallowed(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")

	machine, _ := newMachineFixture(store, failingValidation{errors.New("script exploded")}, nil)
	run := newRunOfType(t, billing.ProcessTypeAutomatic)

	require.NoError(t, machine.CreateInvoiceLines(context.Background(), run))
	require.NoError(t, machine.Prevalidate(context.Background(), run))
	err := machine.AssembleDrafts(context.Background(), run)
	require.NoError(t, err, "a failing script on a clean run must not abort")
	assert.Equal(t, billing.RunStatusDraftInvoices, run.Status)
}

func TestStateMachineValidationFailureWithRejectionsAborts(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")
	// Unknown tax makes this account's assembly fail and be rejected.
	seedAccount(store, uuid.New(), "50")

	machine, _ := newMachineFixture(store, failingValidation{errors.New("script exploded")}, nil)
	run := newRunOfType(t, billing.ProcessTypeAutomatic)

	require.NoError(t, machine.CreateInvoiceLines(context.Background(), run))
	require.NoError(t, machine.Prevalidate(context.Background(), run))
	err := machine.AssembleDrafts(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script exploded")
	assert.Equal(t, billing.RunStatusRejected, run.Status)
	assert.Equal(t, "script exploded", run.RejectionReason)
}

func TestStateMachineFullAutomaticKeepsTemporaryNumbers(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")

	accounting := new(mockAccountingEntryGenerator)
	accounting.On("GenerateForInvoice", mock.Anything, mock.Anything).Return(nil)

	machine, _ := newMachineFixture(store, nil, accounting)
	run := newRunOfType(t, billing.ProcessTypeFullAutomatic)
	run.AutoAccounting = true
	require.NoError(t, machine.Execute(context.Background(), run))

	assert.Equal(t, billing.RunStatusValidated, run.Status)
	require.Len(t, store.invoices, 1)
	inv := store.invoices[0]
	assert.True(t, inv.HasTemporaryNumber, "full-automatic auto-accounting runs keep temporary numbers")
	assert.Equal(t, billing.InvoiceStatusValidated, inv.Status)
	accounting.AssertNumberOfCalls(t, "GenerateForInvoice", 1)
}

func TestStateMachinePublishesStatusChangeEvents(t *testing.T) {
	taxID := uuid.New()
	store := newFakeStore()
	store.taxes[taxID] = &billing.Tax{ID: taxID, Code: "VAT20", Percent: decimal.NewFromInt(20)}
	seedAccount(store, taxID, "100")

	logger := zap.NewNop()
	cfg := DefaultPipelineConfig()
	publisher := &recordingPublisher{}
	runner := newRunnerFixture(store, cfg)
	numbering := NewNumberingStage(
		fakeInvoiceRepo{store}, store, &fakeSequences{}, nil, publisher, cfg, logger)
	machine := NewStateMachine(
		&fakeRunRepo{}, store, fakeInvoiceRepo{store}, fakeRejectedRepo{store}, store,
		runner, numbering, nil, publisher, logger)

	run := newRunOfType(t, billing.ProcessTypeAutomatic)
	require.NoError(t, machine.Execute(context.Background(), run))
	assert.Empty(t, run.GetDomainEvents(), "published events must be cleared from the run")

	var statuses []billing.RunStatus
	numbered := 0
	for _, event := range publisher.published() {
		switch e := event.(type) {
		case *billing.RunStatusChangedEvent:
			statuses = append(statuses, e.Current)
		case *billing.InvoiceNumberedEvent:
			numbered++
			assert.Contains(t, e.InvoiceNumber, "INV-")
		}
	}
	assert.Equal(t, []billing.RunStatus{
		billing.RunStatusOpen,
		billing.RunStatusInvoiceLinesCreated,
		billing.RunStatusPrevalidated,
		billing.RunStatusDraftInvoices,
		billing.RunStatusPostvalidated,
		billing.RunStatusValidated,
	}, statuses)
	assert.Equal(t, 1, numbered)
}

func TestStateMachineRejectsInvalidTransition(t *testing.T) {
	store := newFakeStore()
	machine, _ := newMachineFixture(store, nil, nil)
	run := newRunOfType(t, billing.ProcessTypeAutomatic)

	err := machine.AssembleDrafts(context.Background(), run)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PREVALIDATED")
}
