package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tax is a reference entity describing a tax rate. A composite tax carries
// sub-taxes whose rates sum to the composite rate and must be reported
// individually on the invoice.
type Tax struct {
	ID          uuid.UUID
	Code        string
	Description string
	Percent     decimal.Decimal
	SubTaxes    []*Tax
}

// IsComposite returns true if the tax splits into sub-taxes
func (t *Tax) IsComposite() bool {
	return len(t.SubTaxes) > 0
}
