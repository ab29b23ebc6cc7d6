package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountKind distinguishes percentage from fixed-amount discount plan items
type DiscountKind string

const (
	DiscountKindPercentage DiscountKind = "PERCENTAGE"
	DiscountKindFixed      DiscountKind = "FIXED"
)

// IsValid checks if the discount kind is valid
func (k DiscountKind) IsValid() bool {
	return k == DiscountKindPercentage || k == DiscountKindFixed
}

// DiscountPlanItem is one applicable rule of a discount plan. Scope narrows
// applicability to a category and/or sub-category; nil scope fields match
// anything. PredicateExpression, when set, names an external applicability
// rule evaluated through a strategy.
type DiscountPlanItem struct {
	ID                  uuid.UUID
	Code                string
	Description         string
	CategoryID          *uuid.UUID
	SubCategoryID       *uuid.UUID
	Kind                DiscountKind
	Value               decimal.Decimal // percent for PERCENTAGE, amount for FIXED
	ValueExpression     string          // when set, value is resolved through a strategy
	PredicateExpression string
	ValidFrom           *time.Time
	ValidTo             *time.Time
	Active              bool
}

// AppliesTo returns true if the plan item's scope and validity window match
// the given category/sub-category at the given date. The external predicate,
// if any, is evaluated separately by the discount engine.
func (d *DiscountPlanItem) AppliesTo(categoryID, subCategoryID uuid.UUID, at time.Time) bool {
	if !d.Active {
		return false
	}
	if d.CategoryID != nil && *d.CategoryID != categoryID {
		return false
	}
	if d.SubCategoryID != nil && *d.SubCategoryID != subCategoryID {
		return false
	}
	if d.ValidFrom != nil && at.Before(*d.ValidFrom) {
		return false
	}
	if d.ValidTo != nil && !at.Before(*d.ValidTo) {
		return false
	}
	return true
}
