package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
	"github.com/billing/backend/internal/domain/shared/valueobject"
)

// TaxEngine derives the tax aggregates of one draft invoice from its
// sub-category aggregates. Simple taxes accumulate into one aggregate per
// rate in first-seen order; composite taxes are split into per-sub-tax
// children in a second pass, with the last child absorbing the rounding
// residual so the children always sum exactly to the parent. Invoice types
// configured for whole-invoice taxation skip the per-sub-category path and
// delegate to the invoice tax strategy instead.
type TaxEngine struct {
	invoiceTax strategy.InvoiceTaxStrategy
	cfg        PipelineConfig
	logger     *zap.Logger
}

// NewTaxEngine creates a tax engine. The invoice tax strategy is only
// required when WholeInvoiceTaxTypes is non-empty.
func NewTaxEngine(invoiceTax strategy.InvoiceTaxStrategy, cfg PipelineConfig, logger *zap.Logger) *TaxEngine {
	return &TaxEngine{
		invoiceTax: invoiceTax,
		cfg:        cfg.normalized(),
		logger:     logger,
	}
}

// Apply attaches the invoice's tax aggregates. The sub-category aggregates
// must already be attached and carry their final post-discount amounts.
// Exonerated accounts produce no tax aggregates at all.
func (e *TaxEngine) Apply(ctx context.Context, invoice *billing.Invoice, exonerated bool, cache *RunCache) error {
	if exonerated {
		return nil
	}
	if e.cfg.usesWholeInvoiceTax(invoice.InvoiceType) {
		return e.applyWholeInvoice(ctx, invoice)
	}
	return e.applyPerSubCategory(ctx, invoice, cache)
}

func (e *TaxEngine) applyWholeInvoice(ctx context.Context, invoice *billing.Invoice) error {
	if e.invoiceTax == nil {
		return fmt.Errorf("invoice type %q requires whole-invoice taxation but no strategy is configured", invoice.InvoiceType)
	}
	aggs, err := e.invoiceTax.ComputeTaxes(ctx, invoice)
	if err != nil {
		return fmt.Errorf("whole-invoice tax computation failed: %w", err)
	}
	for _, agg := range aggs {
		invoice.Attach(agg)
	}
	return nil
}

func (e *TaxEngine) applyPerSubCategory(ctx context.Context, invoice *billing.Invoice, cache *RunCache) error {
	// First pass: one aggregate per distinct tax, in the order sub-category
	// aggregates reference them.
	byTax := make(map[uuid.UUID]*billing.TaxAggregate)
	var order []*billing.TaxAggregate

	for _, sub := range invoice.SubCategories {
		tax, err := cache.Tax(ctx, sub.TaxID)
		if err != nil {
			return err
		}
		taxLeg := valueobject.NewAmounts(decimal.Zero, sub.Amounts.Tax(), sub.Amounts.Tax())
		transactionalLeg := valueobject.NewAmounts(decimal.Zero, sub.TransactionalAmounts.Tax(), sub.TransactionalAmounts.Tax())
		if agg, ok := byTax[tax.ID]; ok {
			agg.Accumulate(taxLeg, transactionalLeg)
			continue
		}
		agg := billing.NewTaxAggregate(tax, taxLeg, transactionalLeg)
		byTax[tax.ID] = agg
		order = append(order, agg)
	}

	// Second pass: split composite aggregates into per-sub-tax children.
	for _, agg := range order {
		if agg.IsComposite() {
			e.splitComposite(agg)
		}
		invoice.Attach(agg)
		for _, child := range agg.Children {
			invoice.Attach(child)
		}
	}

	e.logger.Debug("applied taxes",
		zap.String("invoice", invoice.InvoiceNumber),
		zap.Int("tax_aggregates", len(order)),
	)
	return nil
}

// splitComposite distributes a composite tax aggregate's amount over its
// sub-taxes by rate share. Every child but the last is rounded at the
// configured scale; the last child takes the exact residual so the children
// always sum to the parent.
func (e *TaxEngine) splitComposite(parent *billing.TaxAggregate) {
	subTaxes := parent.Tax.SubTaxes
	if len(subTaxes) == 0 {
		return
	}

	compositePercent := decimal.Zero
	for _, sub := range subTaxes {
		compositePercent = compositePercent.Add(sub.Percent)
	}
	if compositePercent.IsZero() {
		return
	}

	remaining := parent.Amounts.Tax()
	remainingTransactional := parent.TransactionalAmounts.Tax()

	for i, sub := range subTaxes {
		var share, transactionalShare decimal.Decimal
		if i == len(subTaxes)-1 {
			share = remaining
			transactionalShare = remainingTransactional
		} else {
			ratio := sub.Percent.Div(compositePercent)
			share = e.cfg.RoundingMode.Round(parent.Amounts.Tax().Mul(ratio), e.cfg.RoundingScale)
			transactionalShare = e.cfg.RoundingMode.Round(parent.TransactionalAmounts.Tax().Mul(ratio), e.cfg.RoundingScale)
			remaining = remaining.Sub(share)
			remainingTransactional = remainingTransactional.Sub(transactionalShare)
		}
		child := billing.NewTaxAggregate(sub,
			valueobject.NewAmounts(decimal.Zero, share, share),
			valueobject.NewAmounts(decimal.Zero, transactionalShare, transactionalShare),
		)
		parent.AddChild(child)
	}
}
