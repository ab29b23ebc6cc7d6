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

// defaultLanguageCode is the language assumed for accounts without one
const defaultLanguageCode = "en"

// Assembler builds the draft invoices of one account from its aggregated
// invoicing items: one invoice per split-key group, with the full
// sub-category / category / discount / tax aggregate graph attached and
// running totals finalized.
type Assembler struct {
	typeRule  strategy.InvoiceTypeRule
	dueDelay  strategy.DueDateDelayStrategy
	discounts *DiscountEngine
	taxes     *TaxEngine
	cfg       PipelineConfig
	logger    *zap.Logger
}

// NewAssembler creates an invoice assembler
func NewAssembler(
	typeRule strategy.InvoiceTypeRule,
	dueDelay strategy.DueDateDelayStrategy,
	discounts *DiscountEngine,
	taxes *TaxEngine,
	cfg PipelineConfig,
	logger *zap.Logger,
) *Assembler {
	return &Assembler{
		typeRule:  typeRule,
		dueDelay:  dueDelay,
		discounts: discounts,
		taxes:     taxes,
		cfg:       cfg.normalized(),
		logger:    logger,
	}
}

// AssembleAccount produces the draft invoices of one account. Errors that
// wrap shared.ErrMissingConfig are configuration failures fatal to the whole
// run; every other error is a business failure the batch runner records as
// a rejected account.
func (a *Assembler) AssembleAccount(ctx context.Context, run *billing.BillingRun, details *billing.AccountDetails, cache *RunCache) ([]*billing.Invoice, error) {
	account := details.Account
	dueBalance := a.cfg.RoundingMode.Round(
		account.DueBalance.Mul(a.cfg.DueBalanceSign), a.cfg.RoundingScale)

	delay, err := a.resolveDueDateDelay(ctx, run, account.ID)
	if err != nil {
		return nil, err
	}

	var invoices []*billing.Invoice
	for _, splitKey := range details.SplitKeys() {
		invoiceType, err := a.typeRule.Resolve(ctx, strategy.InvoiceTypeInput{
			Prepaid:   account.Prepaid,
			CycleID:   run.CycleID,
			Run:       run,
			AccountID: account.ID,
		})
		if err != nil {
			return nil, fmt.Errorf("invoice type resolution failed for account %s: %w", account.ID, err)
		}

		invoiceDate := run.InvoiceDate
		dueDate := invoiceDate.AddDate(0, 0, delay)
		inv := billing.NewInvoice(run.ID, account.ID, account.SellerID, invoiceType, splitKey, invoiceDate, dueDate)
		inv.PaymentMethod = account.PaymentMethod

		if err := a.buildAggregates(ctx, inv, details, splitKey, cache); err != nil {
			return nil, err
		}
		if err := a.taxes.Apply(ctx, inv, account.TaxExonerated, cache); err != nil {
			return nil, err
		}

		inv.Finalize(dueBalance, a.cfg.RoundingScale, a.cfg.RoundingMode)
		invoices = append(invoices, inv)

		a.logger.Debug("assembled draft invoice",
			zap.String("run_id", run.ID.String()),
			zap.String("account_id", account.ID.String()),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("net_to_pay", inv.NetToPay.String()),
		)
	}
	return invoices, nil
}

// resolveDueDateDelay runs the due-date delay strategy. An unresolved delay
// is a configuration failure unless the run is flagged exceptional, in
// which case it defaults to zero days.
func (a *Assembler) resolveDueDateDelay(ctx context.Context, run *billing.BillingRun, accountID uuid.UUID) (int, error) {
	delay, err := a.dueDelay.Resolve(ctx, strategy.DueDateDelayInput{
		AccountID:   accountID,
		CycleID:     run.CycleID,
		InvoiceDate: run.InvoiceDate,
	})
	if err != nil {
		return 0, fmt.Errorf("due-date delay resolution failed for account %s: %w", accountID, err)
	}
	if delay == nil {
		if run.Exceptional {
			return 0, nil
		}
		return 0, fmt.Errorf("due-date delay unresolved for account %s on cycle %s: %w",
			accountID, run.CycleID, shared.ErrMissingConfig)
	}
	return *delay, nil
}

// fallbackDescription resolves the catalog line label in the account's
// language, used for items that carry no description of their own. Accounts
// without a language fall back to the default code.
func (a *Assembler) fallbackDescription(ctx context.Context, account *billing.BillingAccount, cache *RunCache) (string, error) {
	code := account.Language
	if code == "" {
		code = defaultLanguageCode
	}
	return cache.Language(ctx, code)
}

// buildAggregates groups the split-key group's items into sub-category
// aggregates, applies discounts, attaches the category roll-ups, and wires
// everything to the invoice. Zero-amount sub-categories skip discount
// evaluation.
func (a *Assembler) buildAggregates(ctx context.Context, inv *billing.Invoice, details *billing.AccountDetails, splitKey string, cache *RunCache) error {
	items := details.Group(splitKey)

	var subs []*billing.SubCategoryAggregate
	grouped := make(map[billing.SubCategoryKey][]*billing.InvoicingItem)
	var keyOrder []billing.SubCategoryKey
	for _, item := range items {
		key := item.SubCategoryGroupKey()
		if _, ok := grouped[key]; !ok {
			keyOrder = append(keyOrder, key)
		}
		grouped[key] = append(grouped[key], item)
	}
	for _, key := range keyOrder {
		group := grouped[key]
		description := group[0].Description
		if description == "" {
			var err error
			description, err = a.fallbackDescription(ctx, details.Account, cache)
			if err != nil {
				return err
			}
		}
		sub := billing.NewSubCategoryAggregate(
			description, group[0].CategoryID,
			key.SubCategoryID, key.UserAccountID, key.TaxID, group)
		if err := recomputeSubCategory(ctx, sub, cache, a.cfg, details.Account.TaxExonerated); err != nil {
			return err
		}
		subs = append(subs, sub)
	}

	var discountAggs []*billing.DiscountAggregate
	for _, sub := range subs {
		if sub.Amounts.IsZero() {
			continue
		}
		produced, err := a.discounts.Apply(ctx, details, inv, sub, cache)
		if err != nil {
			return err
		}
		discountAggs = append(discountAggs, produced...)
	}

	for _, sub := range subs {
		inv.Attach(sub)
	}

	byCategory := make(map[uuid.UUID][]*billing.SubCategoryAggregate)
	var categoryOrder []uuid.UUID
	for _, sub := range subs {
		if _, ok := byCategory[sub.CategoryID]; !ok {
			categoryOrder = append(categoryOrder, sub.CategoryID)
		}
		byCategory[sub.CategoryID] = append(byCategory[sub.CategoryID], sub)
	}
	for _, categoryID := range categoryOrder {
		children := byCategory[categoryID]
		category := billing.NewCategoryAggregate(children[0].Describe(), categoryID, children)
		inv.Attach(category)
	}

	for _, agg := range discountAggs {
		inv.Attach(agg)
	}
	return nil
}
