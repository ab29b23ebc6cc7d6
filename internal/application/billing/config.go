package billing

import (
	"runtime"

	"github.com/shopspring/decimal"

	"github.com/billing/backend/internal/domain/shared/valueobject"
)

// PipelineConfig holds the tunables of the invoicing pipeline
type PipelineConfig struct {
	// RoundingScale is the number of decimal places amounts are rounded to
	RoundingScale int32
	// RoundingMode selects how amounts are rounded at RoundingScale
	RoundingMode valueobject.RoundingMode
	// TaxInclusivePricing selects the global pricing mode: when true, rated
	// amounts include tax and the without-tax leg is reconstructed; when
	// false, rated amounts exclude tax and the tax leg is derived.
	TaxInclusivePricing bool
	// DueBalanceSign scales the account due balance before it enters
	// net-to-pay (typically 1 or -1)
	DueBalanceSign decimal.Decimal
	// Workers is the size of the worker pool (default: available hardware
	// concurrency)
	Workers int
	// BatchSize is the number of accounts per partition
	BatchSize int
	// LinkChunkSize bounds the size of bulk rated-item status updates
	LinkChunkSize int
	// NumberingBatchSize is the number of invoices numbered per parallel batch
	NumberingBatchSize int
	// NumberPrefix prefixes every final invoice number
	NumberPrefix string
	// WholeInvoiceTaxTypes lists the invoice types taxed by the
	// whole-invoice script instead of per sub-category
	WholeInvoiceTaxTypes []string
}

// DefaultPipelineConfig returns the pipeline defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RoundingScale:      2,
		RoundingMode:       valueobject.RoundingHalfUp,
		DueBalanceSign:     decimal.NewFromInt(1),
		Workers:            runtime.NumCPU(),
		BatchSize:          64,
		LinkChunkSize:      500,
		NumberingBatchSize: 100,
		NumberPrefix:       "INV-",
	}
}

// normalized fills zero values with defaults so a partially populated
// config stays usable
func (c PipelineConfig) normalized() PipelineConfig {
	def := DefaultPipelineConfig()
	if c.RoundingScale <= 0 {
		c.RoundingScale = def.RoundingScale
	}
	if !c.RoundingMode.IsValid() {
		c.RoundingMode = def.RoundingMode
	}
	if c.DueBalanceSign.IsZero() {
		c.DueBalanceSign = def.DueBalanceSign
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.LinkChunkSize <= 0 {
		c.LinkChunkSize = def.LinkChunkSize
	}
	if c.NumberingBatchSize <= 0 {
		c.NumberingBatchSize = def.NumberingBatchSize
	}
	if c.NumberPrefix == "" {
		c.NumberPrefix = def.NumberPrefix
	}
	return c
}

// usesWholeInvoiceTax returns true if the invoice type is taxed by script
func (c PipelineConfig) usesWholeInvoiceTax(invoiceType string) bool {
	for _, t := range c.WholeInvoiceTaxTypes {
		if t == invoiceType {
			return true
		}
	}
	return false
}
