package billing

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// BatchRunner drives the assembly of a run over all eligible accounts with
// a fixed-size worker pool. Account ids are partitioned into fixed-size
// chunks fed through a shared channel, so each partition is claimed exactly
// once by whichever worker asks next. A failing account is recorded as a
// RejectedAccount and excluded; sibling accounts and partitions continue.
// Configuration failures abort the whole run.
type BatchRunner struct {
	aggregator *Aggregator
	assembler  *Assembler
	invoices   billing.InvoiceRepository
	ratedItems billing.RatedItemRepository
	rejected   billing.RejectedAccountRepository
	events     shared.EventPublisher // optional
	cfg        PipelineConfig
	logger     *zap.Logger
}

// NewBatchRunner creates a parallel batch runner. The event publisher is
// optional.
func NewBatchRunner(
	aggregator *Aggregator,
	assembler *Assembler,
	invoices billing.InvoiceRepository,
	ratedItems billing.RatedItemRepository,
	rejected billing.RejectedAccountRepository,
	events shared.EventPublisher,
	cfg PipelineConfig,
	logger *zap.Logger,
) *BatchRunner {
	return &BatchRunner{
		aggregator: aggregator,
		assembler:  assembler,
		invoices:   invoices,
		ratedItems: ratedItems,
		rejected:   rejected,
		events:     events,
		cfg:        cfg.normalized(),
		logger:     logger,
	}
}

// Run assembles draft invoices for every account and returns the recomputed
// run statistics. The returned error is non-nil only for run-fatal
// failures; per-account failures are absorbed into the statistics.
func (r *BatchRunner) Run(ctx context.Context, run *billing.BillingRun, accountIDs []uuid.UUID, cache *RunCache) (billing.RunStatistics, error) {
	partitions := partition(accountIDs, r.cfg.BatchSize)

	jobs := make(chan []uuid.UUID)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu    sync.Mutex
		stats billing.RunStatistics
		fatal error
	)
	setFatal := func(err error) {
		mu.Lock()
		if fatal == nil {
			fatal = err
		}
		mu.Unlock()
		cancel()
	}

	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				if ctx.Err() != nil {
					continue
				}
				partStats, err := r.processPartition(ctx, run, chunk, cache)
				if err != nil {
					setFatal(err)
					continue
				}
				mu.Lock()
				stats = stats.Add(partStats)
				mu.Unlock()
			}
		}()
	}

	for _, chunk := range partitions {
		jobs <- chunk
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		return billing.RunStatistics{}, fatal
	}
	r.logger.Info("assembly complete",
		zap.String("run_id", run.ID.String()),
		zap.Int("partitions", len(partitions)),
		zap.Int("accounts", stats.AccountCount),
		zap.Int("invoices", stats.InvoiceCount),
		zap.Int("rejected", stats.RejectedCount),
		zap.Int("skipped", stats.SkippedAccountCount),
	)
	return stats, nil
}

// processPartition runs aggregation and assembly for one chunk of accounts.
// A query-level aggregation failure is fatal to the chunk, never retried per
// row; the chunk's accounts count as skipped in the run statistics and their
// items stay OPEN for a later run.
func (r *BatchRunner) processPartition(ctx context.Context, run *billing.BillingRun, accountIDs []uuid.UUID, cache *RunCache) (billing.RunStatistics, error) {
	var stats billing.RunStatistics

	detailsList, err := r.aggregator.Aggregate(ctx, run, accountIDs, cache)
	if err != nil {
		if errors.Is(err, shared.ErrMissingConfig) {
			return stats, err
		}
		r.logger.Error("partition aggregation failed, items stay open",
			zap.String("run_id", run.ID.String()),
			zap.Int("accounts", len(accountIDs)),
			zap.Error(err),
		)
		stats.SkippedAccountCount = len(accountIDs)
		return stats, nil
	}

	for _, details := range detailsList {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		accountStats, err := r.processAccount(ctx, run, details, cache)
		if err != nil {
			return stats, err
		}
		stats = stats.Add(accountStats)
	}
	return stats, nil
}

// processAccount assembles and persists the invoices of one account.
// Business failures are recorded as a RejectedAccount; only configuration
// failures propagate.
func (r *BatchRunner) processAccount(ctx context.Context, run *billing.BillingRun, details *billing.AccountDetails, cache *RunCache) (billing.RunStatistics, error) {
	invoices, err := r.assembler.AssembleAccount(ctx, run, details, cache)
	if err == nil {
		err = r.persistInvoices(ctx, invoices)
	}
	if err != nil {
		if errors.Is(err, shared.ErrMissingConfig) {
			return billing.RunStatistics{}, err
		}
		return r.rejectAccount(ctx, run, details.Account.ID, err)
	}

	stats := billing.RunStatistics{AccountCount: 1, InvoiceCount: len(invoices)}
	for _, inv := range invoices {
		stats.Amounts = stats.Amounts.Add(inv.Amounts)
		stats.TransactionalAmounts = stats.TransactionalAmounts.Add(inv.TransactionalAmounts)
	}
	return stats, nil
}

// persistInvoices saves the account's invoices and links their source rated
// items in bounded chunks
func (r *BatchRunner) persistInvoices(ctx context.Context, invoices []*billing.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	if err := r.invoices.SaveAll(ctx, invoices); err != nil {
		return err
	}
	for _, inv := range invoices {
		for _, chunk := range partition(inv.SourceItemIDs(), r.cfg.LinkChunkSize) {
			if err := r.ratedItems.LinkToInvoice(ctx, inv.ID, chunk); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *BatchRunner) rejectAccount(ctx context.Context, run *billing.BillingRun, accountID uuid.UUID, cause error) (billing.RunStatistics, error) {
	r.logger.Warn("account rejected",
		zap.String("run_id", run.ID.String()),
		zap.String("account_id", accountID.String()),
		zap.Error(cause),
	)
	rejected := billing.NewRejectedAccount(run.ID, accountID, cause.Error())
	if err := r.rejected.Save(ctx, rejected); err != nil {
		// The audit row could not be written; the rejection itself stands.
		r.logger.Error("failed to record rejected account",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)
	}
	if r.events != nil {
		if err := r.events.Publish(ctx, billing.NewAccountRejectedEvent(rejected)); err != nil {
			r.logger.Warn("failed to publish rejection event",
				zap.String("account_id", accountID.String()),
				zap.Error(err),
			)
		}
	}
	return billing.RunStatistics{RejectedCount: 1}, nil
}

// partition splits ids into fixed-size chunks, last chunk short
func partition(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 {
		size = 1
	}
	var chunks [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
