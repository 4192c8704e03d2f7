package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyExponent is the number of decimal places of the smallest
// currency unit. Single-currency pipeline, two decimal places.
const CurrencyExponent = 2

// RoundCurrency rounds to the smallest currency unit, half up.
// Amounts in this pipeline are non-negative, so decimal's
// round-half-away-from-zero is round-half-up.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyExponent)
}

// Direction is the posting direction of a journal entry line.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// JournalEntryLine is one posting of a journal entry.
type JournalEntryLine struct {
	Direction   Direction
	AccountCode string
	AccountName string
	Amount      decimal.Decimal
}

// JournalEntry is a balanced set of postings for one invoice. Created
// once by the generator per pipeline run; immutable afterwards.
type JournalEntry struct {
	ID             string
	Date           time.Time
	SourceDocument string
	Description    string
	RuleID         string // empty when the simple-mode fallback was used
	Lines          []JournalEntryLine
}

// TotalDebit sums the debit lines.
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	return e.total(Debit)
}

// TotalCredit sums the credit lines.
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	return e.total(Credit)
}

func (e *JournalEntry) total(side Direction) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range e.Lines {
		if line.Direction == side {
			sum = sum.Add(line.Amount)
		}
	}

	return sum
}

// Compound reports whether the entry has more than two lines.
func (e *JournalEntry) Compound() bool {
	return len(e.Lines) > 2
}

// Validate enforces the double-entry invariants: at least two lines,
// both sides present, every amount positive, and debits equal credits
// exactly.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return ErrTooFewLines
	}

	var hasDebit, hasCredit bool

	for _, line := range e.Lines {
		if line.Amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: account %s has amount %s", ErrInvalidAmount, line.AccountCode, line.Amount)
		}

		switch line.Direction {
		case Debit:
			hasDebit = true
		case Credit:
			hasCredit = true
		default:
			return fmt.Errorf("%w: account %s has unknown direction %q", ErrUnbalancedEntry, line.AccountCode, line.Direction)
		}
	}

	if !hasDebit || !hasCredit {
		return ErrMissingSide
	}

	debit, credit := e.TotalDebit(), e.TotalCredit()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debits %s != credits %s", ErrUnbalancedEntry, debit, credit)
	}

	return nil
}
