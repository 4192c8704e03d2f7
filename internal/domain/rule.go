package domain

import "fmt"

// AmountKind describes how a line template computes its amount from the
// invoice total.
type AmountKind string

const (
	// AmountFull takes the invoice amount verbatim.
	AmountFull AmountKind = "full"
	// AmountNet takes amount / (1 + rate), the before-tax portion.
	AmountNet AmountKind = "net"
	// AmountTax takes amount - net, the tax portion.
	AmountTax AmountKind = "tax"
)

// LineTemplate is one debit or credit posting of an accounting rule.
type LineTemplate struct {
	Direction   Direction  `yaml:"direction"`
	AccountCode string     `yaml:"account_code"`
	AccountName string     `yaml:"account_name"`
	Amount      AmountKind `yaml:"amount"`
}

// AccountingRule maps a recognized business pattern to entry templates.
// Rules are loaded once at startup and are read-only afterwards.
type AccountingRule struct {
	ID       string         `yaml:"id"`
	Category Category       `yaml:"category"`
	Keywords []string       `yaml:"keywords"`
	Lines    []LineTemplate `yaml:"lines"`
}

// Compound reports whether the rule produces more than two lines.
func (r *AccountingRule) Compound() bool {
	return len(r.Lines) > 2
}

// Validate checks that the rule can produce a balanced entry. Each side
// must reduce to exactly the full amount: either a single full line, or a
// net line paired with a tax line.
func (r *AccountingRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule has no id", ErrRuleParse)
	}

	if !r.Category.Valid() {
		return fmt.Errorf("%w: rule %s has missing or unknown category %q", ErrRuleParse, r.ID, r.Category)
	}

	if len(r.Keywords) == 0 {
		return fmt.Errorf("%w: rule %s has no keywords", ErrRuleParse, r.ID)
	}

	if len(r.Lines) < 2 {
		return fmt.Errorf("%w: rule %s has fewer than 2 line templates", ErrRuleParse, r.ID)
	}

	for _, side := range []Direction{Debit, Credit} {
		if err := r.validateSide(side); err != nil {
			return err
		}
	}

	return nil
}

func (r *AccountingRule) validateSide(side Direction) error {
	var full, net, tax, other int

	for _, line := range r.Lines {
		if line.Direction != side {
			continue
		}

		if line.AccountCode == "" {
			return fmt.Errorf("%w: rule %s has a %s line without account code", ErrRuleParse, r.ID, side)
		}

		switch line.Amount {
		case AmountFull:
			full++
		case AmountNet:
			net++
		case AmountTax:
			tax++
		default:
			other++
		}
	}

	if other > 0 {
		return fmt.Errorf("%w: rule %s has a %s line with unknown amount kind", ErrRuleParse, r.ID, side)
	}

	// The side must sum to the full amount as an exact fraction:
	// [full] or [net, tax].
	balanced := (full == 1 && net == 0 && tax == 0) || (full == 0 && net == 1 && tax == 1)
	if !balanced {
		return fmt.Errorf("%w: rule %s %s side does not reduce to the full amount", ErrRuleParse, r.ID, side)
	}

	return nil
}

// RankedRuleCandidate pairs a rule with its retrieval similarity score.
// Produced transiently by the retrieval collaborator, never persisted.
type RankedRuleCandidate struct {
	Rule  AccountingRule
	Score float64 // higher is better
}
