package etims

import (
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// VATCategory is one of the four statutory tax buckets published by the
// tax authority. The letter is also the tax-type code on the wire.
type VATCategory string

const (
	// VATCategoryStandard is the standard rate bucket (16%)
	VATCategoryStandard VATCategory = "A"
	// VATCategoryReduced is the reduced rate bucket (8%)
	VATCategoryReduced VATCategory = "B"
	// VATCategoryExempt is the exempt bucket (no tax shown)
	VATCategoryExempt VATCategory = "C"
	// VATCategoryZeroRated is the zero-rated bucket (tax shown as zero,
	// flagged distinctly from exempt)
	VATCategoryZeroRated VATCategory = "D"
)

// AllVATCategories lists the categories in wire order (A, B, C, D)
var AllVATCategories = []VATCategory{
	VATCategoryStandard,
	VATCategoryReduced,
	VATCategoryExempt,
	VATCategoryZeroRated,
}

var (
	rateStandard = decimal.NewFromFloat(0.16)
	rateReduced  = decimal.NewFromFloat(0.08)
)

// IsValid checks if the category is a valid VATCategory
func (c VATCategory) IsValid() bool {
	switch c {
	case VATCategoryStandard, VATCategoryReduced, VATCategoryExempt, VATCategoryZeroRated:
		return true
	}
	return false
}

// String returns the string representation of VATCategory
func (c VATCategory) String() string {
	return string(c)
}

// Rate returns the statutory VAT rate for the category as a fraction
// (0.16 for standard, 0.08 for reduced, 0 for exempt and zero-rated)
func (c VATCategory) Rate() decimal.Decimal {
	switch c {
	case VATCategoryStandard:
		return rateStandard
	case VATCategoryReduced:
		return rateReduced
	default:
		return decimal.Zero
	}
}

// RatePercent returns the rate as a whole percentage (16, 8, 0)
func (c VATCategory) RatePercent() decimal.Decimal {
	return c.Rate().Mul(decimal.NewFromInt(100))
}

// IsTaxable returns true if the category carries a non-zero rate
func (c VATCategory) IsTaxable() bool {
	return c == VATCategoryStandard || c == VATCategoryReduced
}

// SplitInclusive derives the pre-tax amount and VAT amount from a
// tax-inclusive total: pre_tax = total / (1 + rate), vat = total - pre_tax.
// Both results are rounded to the currency's minor unit (round-half-up)
// so that pre_tax + vat reconstructs the rounded total exactly.
func (c VATCategory) SplitInclusive(total valueobject.Money) (preTax, vat valueobject.Money, err error) {
	if !c.IsValid() {
		return valueobject.Money{}, valueobject.Money{}, ErrUnknownVATCategory
	}

	rounded := total.RoundMinor()
	divisor := decimal.NewFromInt(1).Add(c.Rate())

	preTax, err = rounded.Div(divisor)
	if err != nil {
		return valueobject.Money{}, valueobject.Money{}, err
	}
	preTax = preTax.RoundMinor()

	// VAT is defined as the remainder, never an independent rounding,
	// so the line-level invariant pre_tax + vat == total holds exactly.
	vat, err = rounded.Sub(preTax)
	if err != nil {
		return valueobject.Money{}, valueobject.Money{}, err
	}
	return preTax, vat, nil
}

// CategoryBreakdown aggregates taxable amount, rate and tax amount for a
// single VAT category across an invoice.
type CategoryBreakdown struct {
	Category      VATCategory
	TaxableAmount decimal.Decimal
	TaxRate       decimal.Decimal // whole percentage (16, 8, 0)
	TaxAmount     decimal.Decimal
}

// VATBreakdown holds the per-category aggregation of an invoice, keyed in
// wire order A..D. Categories with no items carry zero amounts.
type VATBreakdown map[VATCategory]CategoryBreakdown

// NewVATBreakdown returns a breakdown with all four categories zeroed
func NewVATBreakdown() VATBreakdown {
	b := make(VATBreakdown, len(AllVATCategories))
	for _, c := range AllVATCategories {
		b[c] = CategoryBreakdown{
			Category:      c,
			TaxableAmount: decimal.Zero,
			TaxRate:       c.RatePercent(),
			TaxAmount:     decimal.Zero,
		}
	}
	return b
}

// AddLine accumulates one line's amounts into its category bucket
func (b VATBreakdown) AddLine(category VATCategory, preTax, vat decimal.Decimal) error {
	if !category.IsValid() {
		return ErrUnknownVATCategory
	}
	entry := b[category]
	entry.TaxableAmount = entry.TaxableAmount.Add(preTax)
	entry.TaxAmount = entry.TaxAmount.Add(vat)
	b[category] = entry
	return nil
}

// TotalTaxable returns the sum of taxable amounts across all categories
func (b VATBreakdown) TotalTaxable() decimal.Decimal {
	total := decimal.Zero
	for _, c := range AllVATCategories {
		total = total.Add(b[c].TaxableAmount)
	}
	return total
}

// TotalTax returns the sum of tax amounts across all categories
func (b VATBreakdown) TotalTax() decimal.Decimal {
	total := decimal.Zero
	for _, c := range AllVATCategories {
		total = total.Add(b[c].TaxAmount)
	}
	return total
}
