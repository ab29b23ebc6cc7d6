package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
)

// Aggregator reads the OPEN rated items of a chunk of accounts and groups
// them into invoicing items: one AccountDetails per account, split into
// invoice groups by the pluggable split rule, one InvoicingItem per
// (subCategory, userAccount, tax) within a group.
type Aggregator struct {
	items     billing.RatedItemRepository
	accounts  billing.AccountRepository
	splitRule strategy.InvoiceSplitRule
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewAggregator creates a rated-item aggregator
func NewAggregator(
	items billing.RatedItemRepository,
	accounts billing.AccountRepository,
	splitRule strategy.InvoiceSplitRule,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Aggregator {
	if splitRule == nil {
		splitRule = strategy.SingleInvoiceSplitRule{}
	}
	return &Aggregator{
		items:     items,
		accounts:  accounts,
		splitRule: splitRule,
		cfg:       cfg.normalized(),
		logger:    logger,
	}
}

// Aggregate builds the AccountDetails of every account in the chunk.
// A query-level failure is fatal to the whole chunk; it is never retried
// per row. Accounts without open items yield no details.
func (a *Aggregator) Aggregate(ctx context.Context, run *billing.BillingRun, accountIDs []uuid.UUID, cache *RunCache) ([]*billing.AccountDetails, error) {
	accounts, err := a.accounts.FindByIDs(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts for run %s: %w", run.ID, err)
	}
	byID := make(map[uuid.UUID]*billing.BillingAccount, len(accounts))
	for _, account := range accounts {
		byID[account.ID] = account
	}

	items, err := a.items.OpenItemsForAccounts(ctx, run.ID, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query open rated items for run %s: %w", run.ID, err)
	}

	// Details containers follow the delivery order of the chunk so sibling
	// accounts keep their cycle-priority ordering.
	detailsByAccount := make(map[uuid.UUID]*billing.AccountDetails, len(accountIDs))
	var ordered []*billing.AccountDetails

	for _, item := range items {
		if !item.IsOpen() {
			continue
		}
		account, ok := byID[item.AccountID]
		if !ok {
			a.logger.Warn("rated item references an unknown account, skipping",
				zap.String("rated_item_id", item.ID.String()),
				zap.String("account_id", item.AccountID.String()),
			)
			continue
		}

		details, ok := detailsByAccount[item.AccountID]
		if !ok {
			details = billing.NewAccountDetails(account)
			plans, err := cache.DiscountPlans(ctx, account.ID)
			if err != nil {
				return nil, err
			}
			details.DiscountPlans = plans
			detailsByAccount[item.AccountID] = details
			ordered = append(ordered, details)
		}

		amount := item.Amounts.WithoutTax()
		transactional := item.TransactionalAmounts.WithoutTax()
		if a.cfg.TaxInclusivePricing {
			amount = item.Amounts.WithTax()
			transactional = item.TransactionalAmounts.WithTax()
		}

		key := billing.InvoicingItemKey{
			AccountID:     item.AccountID,
			SubCategoryID: item.SubCategoryID,
			UserAccountID: item.UserAccountID,
			TaxID:         item.TaxID,
			SplitKey:      a.splitRule.SplitKey(account, item),
		}
		details.AddItem(billing.NewInvoicingItem(
			key, item.CategoryID, item.Description,
			amount, transactional,
			item.ID, item.UsesSpecificTransactionalAmount,
		))
	}

	a.logger.Debug("aggregated rated items",
		zap.String("run_id", run.ID.String()),
		zap.Int("accounts_in_chunk", len(accountIDs)),
		zap.Int("accounts_with_items", len(ordered)),
		zap.Int("rated_items", len(items)),
	)
	return ordered, nil
}
