package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaxRateHint identifies which VAT rate applies to an invoice.
type TaxRateHint string

const (
	TaxRateGeneral TaxRateHint = "general" // 13%, general taxpayer goods
	TaxRateSmall   TaxRateHint = "small"   // 3%, small-scale taxpayer
	TaxRateService TaxRateHint = "service" // 6%, modern services
)

var taxRates = map[TaxRateHint]decimal.Decimal{
	TaxRateGeneral: decimal.New(13, -2),
	TaxRateSmall:   decimal.New(3, -2),
	TaxRateService: decimal.New(6, -2),
}

// Rate returns the VAT rate for the hint. An absent or unknown hint
// defaults to the general rate.
func (h TaxRateHint) Rate() decimal.Decimal {
	if rate, ok := taxRates[h]; ok {
		return rate
	}

	return taxRates[TaxRateGeneral]
}

// ExtractedFields is the structured invoice data produced by the
// extraction collaborator. Immutable once created; the pipeline only
// passes it forward.
type ExtractedFields struct {
	Amount       decimal.Decimal
	Counterparty string
	Date         time.Time
	Description  string
	TaxHint      TaxRateHint // empty when the document gives no hint
	Confidence   float64     // in [0,1]
}

// Validate checks invariants the pipeline relies on.
func (f *ExtractedFields) Validate() error {
	if f.Amount.IsNegative() {
		return fmt.Errorf("%w: amount %s is negative", ErrInvalidFields, f.Amount)
	}

	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidFields, f.Confidence)
	}

	if f.TaxHint != "" {
		if _, ok := taxRates[f.TaxHint]; !ok {
			return fmt.Errorf("%w: unknown tax rate hint %q", ErrInvalidFields, f.TaxHint)
		}
	}

	return nil
}
