package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
	"github.com/billing/backend/internal/domain/shared"
)

// StateMachine drives a billing run through its lifecycle: line creation,
// prevalidation, parallel assembly, the optional validation script,
// invoice promotion, and numbering or direct accounting-entry generation.
// Statistics are recomputed from actual invoices at each checkpoint.
type StateMachine struct {
	runs       billing.BillingRunRepository
	ratedItems billing.RatedItemRepository
	invoices   billing.InvoiceRepository
	rejected   billing.RejectedAccountRepository
	refs       billing.ReferenceRepository
	runner     *BatchRunner
	numbering  *NumberingStage
	validation strategy.RunValidationScript // optional
	events     shared.EventPublisher        // optional
	logger     *zap.Logger
}

// NewStateMachine creates the run state machine. The validation script and
// the event publisher are optional.
func NewStateMachine(
	runs billing.BillingRunRepository,
	ratedItems billing.RatedItemRepository,
	invoices billing.InvoiceRepository,
	rejected billing.RejectedAccountRepository,
	refs billing.ReferenceRepository,
	runner *BatchRunner,
	numbering *NumberingStage,
	validation strategy.RunValidationScript,
	events shared.EventPublisher,
	logger *zap.Logger,
) *StateMachine {
	return &StateMachine{
		runs:       runs,
		ratedItems: ratedItems,
		invoices:   invoices,
		rejected:   rejected,
		refs:       refs,
		runner:     runner,
		numbering:  numbering,
		validation: validation,
		events:     events,
		logger:     logger,
	}
}

// saveRun persists the run and publishes the status-change events it
// accumulated. Publishing failures never fail the save.
func (m *StateMachine) saveRun(ctx context.Context, run *billing.BillingRun) error {
	if err := m.runs.Save(ctx, run); err != nil {
		return err
	}
	if m.events != nil {
		if err := m.events.Publish(ctx, run.GetDomainEvents()...); err != nil {
			m.logger.Warn("failed to publish run events",
				zap.String("run_id", run.ID.String()),
				zap.Error(err),
			)
		}
	}
	run.ClearDomainEvents()
	return nil
}

// Execute advances an automatic run as far as its process type allows.
// Manual runs stop after line creation and are advanced step by step
// through the exported stage methods.
func (m *StateMachine) Execute(ctx context.Context, run *billing.BillingRun) error {
	if err := m.CreateInvoiceLines(ctx, run); err != nil {
		return err
	}
	if !run.ProcessType.IsAutomatic() {
		m.logger.Info("manual run awaiting external trigger",
			zap.String("run_id", run.ID.String()),
			zap.String("status", run.Status.String()),
		)
		return nil
	}
	if err := m.Prevalidate(ctx, run); err != nil {
		return err
	}
	if err := m.AssembleDrafts(ctx, run); err != nil {
		return err
	}
	if err := m.Postvalidate(ctx, run); err != nil {
		return err
	}
	return m.FinalizeRun(ctx, run)
}

// CreateInvoiceLines confirms the run's cohort of open rated items and
// moves it past OPEN
func (m *StateMachine) CreateInvoiceLines(ctx context.Context, run *billing.BillingRun) error {
	open, err := m.ratedItems.CountOpenForRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to count open rated items for run %s: %w", run.ID, err)
	}
	if err := run.TransitionTo(billing.RunStatusInvoiceLinesCreated); err != nil {
		return err
	}
	if err := m.saveRun(ctx, run); err != nil {
		return err
	}
	m.logger.Info("invoice lines created",
		zap.String("run_id", run.ID.String()),
		zap.Int64("open_items", open),
	)
	return nil
}

// Prevalidate moves the run to PREVALIDATED. Automatic runs pass through
// here without intervention; manual runs reach it via an explicit trigger.
func (m *StateMachine) Prevalidate(ctx context.Context, run *billing.BillingRun) error {
	if err := run.TransitionTo(billing.RunStatusPrevalidated); err != nil {
		return err
	}
	return m.saveRun(ctx, run)
}

// AssembleDrafts runs the parallel batch runner over all eligible accounts
// and moves the run to DRAFT_INVOICES, then executes the optional
// validation script. A script failure aborts the run only when it already
// has rejections; otherwise it is logged and swallowed.
func (m *StateMachine) AssembleDrafts(ctx context.Context, run *billing.BillingRun) error {
	if run.Status != billing.RunStatusPrevalidated {
		return fmt.Errorf("run %s must be %s to assemble drafts, is %s",
			run.ID, billing.RunStatusPrevalidated, run.Status)
	}

	accountIDs, err := m.ratedItems.EligibleAccountIDs(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to list eligible accounts for run %s: %w", run.ID, err)
	}

	cache := NewRunCache(m.refs)
	stats, err := m.runner.Run(ctx, run, accountIDs, cache)
	if err != nil {
		if rejectErr := run.Reject(err.Error()); rejectErr == nil {
			if saveErr := m.saveRun(ctx, run); saveErr != nil {
				m.logger.Error("failed to persist rejected run", zap.Error(saveErr))
			}
		}
		return err
	}

	run.ReplaceStatistics(stats)
	if err := run.TransitionTo(billing.RunStatusDraftInvoices); err != nil {
		return err
	}
	if err := m.saveRun(ctx, run); err != nil {
		return err
	}
	return m.runValidationScript(ctx, run)
}

// runValidationScript preserves the asymmetric failure policy: a script
// failure on a run that already has rejections flips the run to REJECTED
// and propagates; on a clean run it is logged and ignored.
func (m *StateMachine) runValidationScript(ctx context.Context, run *billing.BillingRun) error {
	if m.validation == nil {
		return nil
	}
	err := m.validation.Validate(ctx, run)
	if err == nil {
		return nil
	}
	if run.Statistics.RejectedCount > 0 {
		if rejectErr := run.Reject(err.Error()); rejectErr != nil {
			return rejectErr
		}
		if saveErr := m.saveRun(ctx, run); saveErr != nil {
			return saveErr
		}
		return fmt.Errorf("run validation failed with %d rejected accounts: %w",
			run.Statistics.RejectedCount, err)
	}
	m.logger.Warn("run validation failed on a clean run, continuing",
		zap.String("run_id", run.ID.String()),
		zap.Error(err),
	)
	return nil
}

// Postvalidate promotes every draft invoice of the run (VALIDATED for
// full-automatic runs, DRAFT otherwise), recomputes statistics from the
// actual invoices, and moves the run to POSTVALIDATED
func (m *StateMachine) Postvalidate(ctx context.Context, run *billing.BillingRun) error {
	if run.Status != billing.RunStatusDraftInvoices {
		return fmt.Errorf("run %s must be %s to postvalidate, is %s",
			run.ID, billing.RunStatusDraftInvoices, run.Status)
	}

	target := billing.InvoiceStatusDraft
	if run.ProcessType == billing.ProcessTypeFullAutomatic {
		target = billing.InvoiceStatusValidated
	}

	invoices, err := m.invoices.ByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoices of run %s: %w", run.ID, err)
	}
	for _, inv := range invoices {
		if err := inv.Promote(target); err != nil {
			return err
		}
	}
	if err := m.invoices.SaveAll(ctx, invoices); err != nil {
		return err
	}

	if err := m.RecomputeStatistics(ctx, run); err != nil {
		return err
	}
	if err := run.TransitionTo(billing.RunStatusPostvalidated); err != nil {
		return err
	}
	return m.saveRun(ctx, run)
}

// FinalizeRun completes the run: full-automatic runs with auto accounting
// skip manual numbering, keep temporary numbers and generate accounting
// entries through POSTINVOICED; every other run is numbered. Either path
// ends at VALIDATED; a numbering failure flips the run to REJECTED.
func (m *StateMachine) FinalizeRun(ctx context.Context, run *billing.BillingRun) error {
	if run.Status != billing.RunStatusPostvalidated {
		return fmt.Errorf("run %s must be %s to finalize, is %s",
			run.ID, billing.RunStatusPostvalidated, run.Status)
	}

	if run.ProcessType == billing.ProcessTypeFullAutomatic && run.AutoAccounting {
		if err := run.TransitionTo(billing.RunStatusPostinvoiced); err != nil {
			return err
		}
		if err := m.saveRun(ctx, run); err != nil {
			return err
		}
		if err := m.numbering.GenerateAccountingEntries(ctx, run); err != nil {
			return m.rejectRun(ctx, run, err)
		}
	} else {
		if err := m.numbering.AssignNumbers(ctx, run); err != nil {
			return m.rejectRun(ctx, run, err)
		}
	}

	if err := m.RecomputeStatistics(ctx, run); err != nil {
		return err
	}
	if err := run.TransitionTo(billing.RunStatusValidated); err != nil {
		return err
	}
	if err := m.saveRun(ctx, run); err != nil {
		return err
	}
	m.logger.Info("billing run validated",
		zap.String("run_id", run.ID.String()),
		zap.Int("invoices", run.Statistics.InvoiceCount),
		zap.Int("rejected", run.Statistics.RejectedCount),
	)
	return nil
}

// RecomputeStatistics overwrites the run's statistics with a snapshot
// recomputed from its actual invoices and rejection rows
func (m *StateMachine) RecomputeStatistics(ctx context.Context, run *billing.BillingRun) error {
	invoices, err := m.invoices.ByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoices of run %s: %w", run.ID, err)
	}
	rejectedCount, err := m.rejected.CountByRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("failed to count rejections of run %s: %w", run.ID, err)
	}

	var stats billing.RunStatistics
	seen := make(map[uuid.UUID]bool)
	for _, inv := range invoices {
		stats.InvoiceCount++
		stats.Amounts = stats.Amounts.Add(inv.Amounts)
		stats.TransactionalAmounts = stats.TransactionalAmounts.Add(inv.TransactionalAmounts)
		if !seen[inv.AccountID] {
			seen[inv.AccountID] = true
			stats.AccountCount++
		}
	}
	stats.RejectedCount = int(rejectedCount)
	// Skipped chunks leave no rows to recount; the assembly-time figure stands.
	stats.SkippedAccountCount = run.Statistics.SkippedAccountCount
	run.ReplaceStatistics(stats)
	return nil
}

func (m *StateMachine) rejectRun(ctx context.Context, run *billing.BillingRun, cause error) error {
	if err := run.Reject(cause.Error()); err != nil {
		return err
	}
	if err := m.saveRun(ctx, run); err != nil {
		m.logger.Error("failed to persist rejected run", zap.Error(err))
	}
	return cause
}
