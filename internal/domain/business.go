package domain

import "strings"

// Category is the canonical business taxonomy a description is mapped to.
type Category string

const (
	CategoryRevenueReceipt Category = "revenue-receipt"
	CategoryExpensePayment Category = "expense-payment"
	CategoryProcurement    Category = "procurement"
	CategoryPayroll        Category = "payroll"
	CategoryOther          Category = "other"
)

// Categories lists the taxonomy in its canonical order.
var Categories = []Category{
	CategoryRevenueReceipt,
	CategoryExpensePayment,
	CategoryProcurement,
	CategoryPayroll,
	CategoryOther,
}

// Valid reports whether c is part of the taxonomy.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

// StandardizedBusiness is the deterministic normalization of a free-text
// business description against the rule vocabulary.
type StandardizedBusiness struct {
	Category   Category
	Keywords   []string // matched vocabulary keywords, highest weight first
	Confidence float64  // in [0,1], 0 when nothing matched
	Compound   bool     // description signals a multi-line entry (tax split, payroll, accruals)
}

// CanonicalDescription is the text handed to the retrieval collaborator.
func (b *StandardizedBusiness) CanonicalDescription() string {
	if len(b.Keywords) == 0 {
		return string(b.Category)
	}

	return string(b.Category) + " " + strings.Join(b.Keywords, " ")
}
