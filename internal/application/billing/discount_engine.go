package billing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
)

// DiscountEngine applies the applicable discount plan items of an account
// to a sub-category aggregate. Percentage discounts mutate every underlying
// item in place; fixed-amount discounts are dispatched proportionally to
// each item's share of the base amount. The produced discount aggregate
// records the delta between the recomputed and the original subtotal; a
// zero delta produces no aggregate.
type DiscountEngine struct {
	valueStrategy strategy.DiscountValueStrategy
	predicate     strategy.DiscountPredicate
	cfg           PipelineConfig
	logger        *zap.Logger
}

// NewDiscountEngine creates a discount engine. The value strategy and the
// applicability predicate are optional; without them the plan item's static
// value applies and expression predicates are treated as satisfied.
func NewDiscountEngine(valueStrategy strategy.DiscountValueStrategy, predicate strategy.DiscountPredicate, cfg PipelineConfig, logger *zap.Logger) *DiscountEngine {
	return &DiscountEngine{
		valueStrategy: valueStrategy,
		predicate:     predicate,
		cfg:           cfg.normalized(),
		logger:        logger,
	}
}

// Apply evaluates every discount plan item of the account against one
// non-zero sub-category aggregate. Zero-amount aggregates must be skipped
// by the caller.
func (e *DiscountEngine) Apply(
	ctx context.Context,
	details *billing.AccountDetails,
	invoice *billing.Invoice,
	sub *billing.SubCategoryAggregate,
	cache *RunCache,
) ([]*billing.DiscountAggregate, error) {
	var produced []*billing.DiscountAggregate

	for _, plan := range details.DiscountPlans {
		if !plan.AppliesTo(sub.CategoryID, sub.SubCategoryID, invoice.InvoiceDate) {
			continue
		}
		applies, err := e.evaluatePredicate(ctx, details, plan, sub)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}

		value, err := e.resolveValue(ctx, details, invoice, plan, sub)
		if err != nil {
			return nil, err
		}

		original := sub.Amounts
		originalTransactional := sub.TransactionalAmounts

		switch plan.Kind {
		case billing.DiscountKindPercentage:
			factor := decimal.NewFromInt(1).Sub(value.Div(oneHundred))
			for _, item := range sub.Items() {
				item.ApplyFactor(factor)
			}
		case billing.DiscountKindFixed:
			base := sub.Amounts.WithoutTax()
			if e.cfg.TaxInclusivePricing {
				base = sub.Amounts.WithTax()
			}
			if base.IsZero() {
				continue
			}
			ratio := value.Div(base)
			for _, item := range sub.Items() {
				item.SubtractAmount(item.Amount.Mul(ratio), item.TransactionalAmount.Mul(ratio))
			}
		default:
			return nil, fmt.Errorf("discount plan item %s has unknown kind %q", plan.ID, plan.Kind)
		}

		if err := recomputeSubCategory(ctx, sub, cache, e.cfg, details.Account.TaxExonerated); err != nil {
			return nil, err
		}

		delta := sub.Amounts.Sub(original)
		transactionalDelta := sub.TransactionalAmounts.Sub(originalTransactional)
		if delta.IsZero() {
			continue
		}

		agg := billing.NewDiscountAggregate(plan, sub.SubCategoryID, delta, transactionalDelta)
		if sub.Discount == nil {
			sub.Discount = agg
		}
		produced = append(produced, agg)

		e.logger.Debug("applied discount plan item",
			zap.String("plan_item", plan.Code),
			zap.String("sub_category", sub.SubCategoryID.String()),
			zap.String("delta", delta.WithoutTax().String()),
		)
	}
	return produced, nil
}

// evaluatePredicate runs the plan item's optional applicability expression
func (e *DiscountEngine) evaluatePredicate(ctx context.Context, details *billing.AccountDetails, plan *billing.DiscountPlanItem, sub *billing.SubCategoryAggregate) (bool, error) {
	if plan.PredicateExpression == "" || e.predicate == nil {
		return true, nil
	}
	applies, err := e.predicate.Applies(ctx, strategy.DiscountPredicateInput{
		AccountID:  details.Account.ID,
		PlanItemID: plan.ID,
		Expression: plan.PredicateExpression,
		BaseAmount: sub.Amounts.WithoutTax(),
	})
	if err != nil {
		return false, fmt.Errorf("discount predicate failed for plan item %s: %w", plan.ID, err)
	}
	return applies, nil
}

// resolveValue resolves the plan item's value, delegating to the value
// strategy when the item carries a value expression
func (e *DiscountEngine) resolveValue(ctx context.Context, details *billing.AccountDetails, invoice *billing.Invoice, plan *billing.DiscountPlanItem, sub *billing.SubCategoryAggregate) (decimal.Decimal, error) {
	if plan.ValueExpression == "" || e.valueStrategy == nil {
		return plan.Value, nil
	}
	value, err := e.valueStrategy.Resolve(ctx, strategy.DiscountValueInput{
		AccountID:  details.Account.ID,
		Invoice:    invoice,
		PlanItemID: plan.ID,
		BaseAmount: sub.Amounts.WithoutTax(),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("discount value resolution failed for plan item %s: %w", plan.ID, err)
	}
	return value, nil
}
