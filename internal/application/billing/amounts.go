package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared/valueobject"
)

var oneHundred = decimal.NewFromInt(100)

// DeriveAmounts reconstructs the missing tax leg of a display-mode amount
// from the tax percent. In tax-inclusive mode the amount is the with-tax
// leg and the without-tax leg is derived; in tax-exclusive mode the amount
// is the without-tax leg and the tax leg is derived. The derived leg is
// rounded at the configured scale; the third leg is the exact difference so
// the triple always sums.
func DeriveAmounts(amount, taxPercent decimal.Decimal, scale int32, mode valueobject.RoundingMode, taxInclusive bool) valueobject.Amounts {
	if taxInclusive {
		withTax := mode.Round(amount, scale)
		divisor := decimal.NewFromInt(1).Add(taxPercent.Div(oneHundred))
		withoutTax := mode.Round(withTax.Div(divisor), scale)
		return valueobject.NewAmounts(withoutTax, withTax.Sub(withoutTax), withTax)
	}
	withoutTax := mode.Round(amount, scale)
	tax := mode.Round(withoutTax.Mul(taxPercent).Div(oneHundred), scale)
	return valueobject.NewAmounts(withoutTax, tax, withoutTax.Add(tax))
}

// deriveItemAmounts derives both the company-currency and transactional
// triples of one invoicing item. Exonerated accounts derive with a zero
// tax percent.
func deriveItemAmounts(item *billing.InvoicingItem, taxPercent decimal.Decimal, cfg PipelineConfig, exonerated bool) (valueobject.Amounts, valueobject.Amounts) {
	percent := taxPercent
	if exonerated {
		percent = decimal.Zero
	}
	company := DeriveAmounts(item.Amount, percent, cfg.RoundingScale, cfg.RoundingMode, cfg.TaxInclusivePricing)
	transactional := DeriveAmounts(item.TransactionalAmount, percent, cfg.RoundingScale, cfg.RoundingMode, cfg.TaxInclusivePricing)
	return company, transactional
}

// recomputeSubCategory resets a sub-category aggregate's amount triples to
// the sum of its items' derived triples. Called after aggregation and again
// after discounts mutate the underlying items.
func recomputeSubCategory(ctx context.Context, sub *billing.SubCategoryAggregate, cache *RunCache, cfg PipelineConfig, exonerated bool) error {
	company := valueobject.ZeroAmounts()
	transactional := valueobject.ZeroAmounts()
	for _, item := range sub.Items() {
		tax, err := cache.Tax(ctx, item.Key.TaxID)
		if err != nil {
			return err
		}
		c, tr := deriveItemAmounts(item, tax.Percent, cfg, exonerated)
		company = company.Add(c)
		transactional = transactional.Add(tr)
	}
	sub.SetAmounts(company, transactional)
	return nil
}
