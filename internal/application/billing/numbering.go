package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// NumberingStage turns the draft invoices of a run into final, validated,
// numbered invoices. Numbers are reserved as one contiguous block per
// (invoiceType, seller, invoiceDate) key, never one call per invoice, and
// assigned in parallel batches. A count mismatch between the numbering
// summary and the retrieved invoices is fatal to that key's batch only.
type NumberingStage struct {
	invoices   billing.InvoiceRepository
	accounts   billing.AccountRepository
	sequences  billing.SequenceReserver
	accounting billing.AccountingEntryGenerator // optional
	events     shared.EventPublisher            // optional
	cfg        PipelineConfig
	logger     *zap.Logger
}

// NewNumberingStage creates the numbering stage. The accounting generator
// and the event publisher may be nil.
func NewNumberingStage(
	invoices billing.InvoiceRepository,
	accounts billing.AccountRepository,
	sequences billing.SequenceReserver,
	accounting billing.AccountingEntryGenerator,
	events shared.EventPublisher,
	cfg PipelineConfig,
	logger *zap.Logger,
) *NumberingStage {
	return &NumberingStage{
		invoices:   invoices,
		accounts:   accounts,
		sequences:  sequences,
		accounting: accounting,
		events:     events,
		cfg:        cfg.normalized(),
		logger:     logger,
	}
}

// AssignNumbers numbers and validates every draft invoice of the run. The
// returned error joins the per-key batch failures; keys that numbered
// cleanly are unaffected by a sibling key's failure.
func (s *NumberingStage) AssignNumbers(ctx context.Context, run *billing.BillingRun) error {
	groups, err := s.invoices.NumberingSummary(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to summarize invoices for numbering on run %s: %w", run.ID, err)
	}

	// Advances are deduped across every key and batch of the run: an
	// account billed under several keys still moves forward one cycle.
	advanced := newAccountAdvanceTracker()

	var batchErrs []error
	for _, group := range groups {
		if err := s.numberGroup(ctx, run, group, advanced); err != nil {
			s.logger.Error("numbering batch failed",
				zap.String("run_id", run.ID.String()),
				zap.String("numbering_key", group.Key.String()),
				zap.Error(err),
			)
			batchErrs = append(batchErrs, err)
		}
	}
	return errors.Join(batchErrs...)
}

// numberGroup reserves the block for one numbering key and assigns its
// numbers in parallel batches
func (s *NumberingStage) numberGroup(ctx context.Context, run *billing.BillingRun, group billing.NumberingGroup, advanced *accountAdvanceTracker) error {
	invoices, err := s.invoices.ByNumberingKey(ctx, run.ID, group.Key)
	if err != nil {
		return fmt.Errorf("failed to load invoices for key %s: %w", group.Key, err)
	}
	if int64(len(invoices)) != group.Count {
		return fmt.Errorf("numbering mismatch for type=%s seller=%s date=%s: summary counted %d invoices but %d were retrieved",
			group.Key.InvoiceType, group.Key.SellerID, group.Key.InvoiceDate, group.Count, len(invoices))
	}

	first, err := s.sequences.ReserveBlock(ctx, group.Key, group.Count)
	if err != nil {
		return fmt.Errorf("failed to reserve %d numbers for key %s: %w", group.Count, group.Key, err)
	}

	batches := make(chan []numberedInvoice)
	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				s.finalizeBatch(ctx, run, batch, advanced)
			}
		}()
	}

	assignments := make([]numberedInvoice, len(invoices))
	for i, inv := range invoices {
		assignments[i] = numberedInvoice{
			invoice: inv,
			number:  fmt.Sprintf("%s%09d", s.cfg.NumberPrefix, first+int64(i)),
		}
	}
	for start := 0; start < len(assignments); start += s.cfg.NumberingBatchSize {
		end := start + s.cfg.NumberingBatchSize
		if end > len(assignments) {
			end = len(assignments)
		}
		batches <- assignments[start:end]
	}
	close(batches)
	wg.Wait()

	s.logger.Info("numbered invoices",
		zap.String("run_id", run.ID.String()),
		zap.String("numbering_key", group.Key.String()),
		zap.Int64("first_number", first),
		zap.Int64("count", group.Count),
	)
	return nil
}

type numberedInvoice struct {
	invoice *billing.Invoice
	number  string
}

// accountAdvanceTracker claims next-invoice-date advances per account for
// one run, across numbering keys and concurrent batch workers: the first
// invoice of an account advances it, every later one is a no-op.
type accountAdvanceTracker struct {
	mu   sync.Mutex
	done map[uuid.UUID]bool
}

func newAccountAdvanceTracker() *accountAdvanceTracker {
	return &accountAdvanceTracker{done: make(map[uuid.UUID]bool)}
}

// claim returns true for the account's first caller only
func (t *accountAdvanceTracker) claim(accountID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done[accountID] {
		return false
	}
	t.done[accountID] = true
	return true
}

// finalizeBatch assigns numbers, validates, advances next-invoice dates and
// triggers accounting-entry generation. Failures are isolated per invoice;
// one invoice's failure never aborts its batch siblings.
func (s *NumberingStage) finalizeBatch(ctx context.Context, run *billing.BillingRun, batch []numberedInvoice, advanced *accountAdvanceTracker) {
	for _, item := range batch {
		if err := s.finalizeInvoice(ctx, run, item, advanced); err != nil {
			s.logger.Error("invoice finalization failed",
				zap.String("invoice_id", item.invoice.ID.String()),
				zap.String("number", item.number),
				zap.Error(err),
			)
		}
	}
}

func (s *NumberingStage) finalizeInvoice(ctx context.Context, run *billing.BillingRun, item numberedInvoice, advanced *accountAdvanceTracker) error {
	inv := item.invoice
	if err := inv.AssignNumber(item.number); err != nil {
		return err
	}
	if err := inv.Promote(billing.InvoiceStatusValidated); err != nil {
		return err
	}
	if err := s.invoices.Save(ctx, inv); err != nil {
		return fmt.Errorf("failed to save numbered invoice: %w", err)
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, inv.GetDomainEvents()...); err != nil {
			s.logger.Warn("failed to publish invoice events",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err),
			)
		}
	}
	inv.ClearDomainEvents()

	if advanced.claim(inv.AccountID) {
		if err := s.advanceNextInvoiceDate(ctx, inv.AccountID); err != nil {
			s.logger.Warn("failed to advance next invoice date",
				zap.String("account_id", inv.AccountID.String()),
				zap.Error(err),
			)
		}
	}

	if s.accounting != nil && run.AutoAccounting {
		if err := s.accounting.GenerateForInvoice(ctx, inv.ID); err != nil {
			return fmt.Errorf("accounting entry generation failed: %w", err)
		}
	}
	return nil
}

func (s *NumberingStage) advanceNextInvoiceDate(ctx context.Context, accountID uuid.UUID) error {
	accounts, err := s.accounts.FindByIDs(ctx, []uuid.UUID{accountID})
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("account %s not found", accountID)
	}
	account := accounts[0]
	account.AdvanceNextInvoiceDate()
	return s.accounts.Save(ctx, account)
}

// GenerateAccountingEntries triggers idempotent accounting-entry generation
// for every invoice of the run, keeping temporary numbers. Used by
// full-automatic runs that bypass manual numbering. Per-invoice failures
// are logged and skipped.
func (s *NumberingStage) GenerateAccountingEntries(ctx context.Context, run *billing.BillingRun) error {
	if s.accounting == nil {
		return fmt.Errorf("run %s requires accounting entries but no generator is configured", run.ID)
	}
	invoices, err := s.invoices.ByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoices of run %s: %w", run.ID, err)
	}
	for _, inv := range invoices {
		if err := s.accounting.GenerateForInvoice(ctx, inv.ID); err != nil {
			s.logger.Error("accounting entry generation failed",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
