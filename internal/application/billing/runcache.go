package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/billing/backend/internal/domain/billing"
)

// RunCache caches slow-changing reference data (taxes, discount plans,
// language labels) for the duration of one run execution. It is built
// empty at the start of each run, populated lazily, never shared across
// runs, and effectively read-only once an entry is loaded.
type RunCache struct {
	refs billing.ReferenceRepository

	mu        sync.Mutex
	taxes     map[uuid.UUID]*billing.Tax
	discounts map[uuid.UUID][]*billing.DiscountPlanItem
	languages map[string]string
}

// NewRunCache creates an empty cache bound to one run execution
func NewRunCache(refs billing.ReferenceRepository) *RunCache {
	return &RunCache{
		refs:      refs,
		taxes:     make(map[uuid.UUID]*billing.Tax),
		discounts: make(map[uuid.UUID][]*billing.DiscountPlanItem),
		languages: make(map[string]string),
	}
}

// Tax returns the tax with the given id, loading it on first access
func (c *RunCache) Tax(ctx context.Context, id uuid.UUID) (*billing.Tax, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tax, ok := c.taxes[id]; ok {
		return tax, nil
	}
	tax, err := c.refs.TaxByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax %s: %w", id, err)
	}
	c.taxes[id] = tax
	return tax, nil
}

// DiscountPlans returns the applicable discount plan items of an account,
// loading them on first access
func (c *RunCache) DiscountPlans(ctx context.Context, accountID uuid.UUID) ([]*billing.DiscountPlanItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if plans, ok := c.discounts[accountID]; ok {
		return plans, nil
	}
	plans, err := c.refs.DiscountPlanItemsForAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount plans for account %s: %w", accountID, err)
	}
	c.discounts[accountID] = plans
	return plans, nil
}

// Language returns the display label of a language code, loading it on
// first access
func (c *RunCache) Language(ctx context.Context, code string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if label, ok := c.languages[code]; ok {
		return label, nil
	}
	label, err := c.refs.LanguageDescription(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to load language %q: %w", code, err)
	}
	c.languages[code] = label
	return label, nil
}
