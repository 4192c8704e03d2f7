package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/journalbot/internal/domain"
)

// GeneratorConfig controls journal entry generation.
type GeneratorConfig struct {
	// AllowComplexEntries permits entries with more than two lines. When
	// off, a matched compound rule collapses to the simple two-line
	// fallback of the standardized category.
	AllowComplexEntries bool
}

// fallbackAccounts is the simple-mode template per category: one debit
// and one credit line for the full amount. Invoice-isolation defaults:
// a bare invoice books against receivables/payables, not cash; receipts
// and expense payments book against the bank account.
var fallbackAccounts = map[domain.Category]struct {
	debitCode, debitName   string
	creditCode, creditName string
}{
	domain.CategoryRevenueReceipt: {"1002", "银行存款", "1122", "应收账款"},
	domain.CategoryExpensePayment: {"6602", "管理费用", "1002", "银行存款"},
	domain.CategoryProcurement:    {"1405", "库存商品", "2202", "应付账款"},
	domain.CategoryPayroll:        {"2211", "应付职工薪酬", "1002", "银行存款"},
}

// Generator builds balanced journal entries from extracted fields and a
// retrieved rule, or from the category fallback when no rule applies.
type Generator struct {
	cfg   GeneratorConfig
	idGen IDGenerator
}

// NewGenerator creates a new Generator.
func NewGenerator(cfg GeneratorConfig, idGen IDGenerator) *Generator {
	return &Generator{cfg: cfg, idGen: idGen}
}

// Generate produces a balanced entry. rule may be nil, in which case the
// simple-mode fallback for the standardized category is used; a compound
// rule also falls back when complex generation is disabled. The returned
// entry's RuleID is empty iff the fallback was used.
func (g *Generator) Generate(
	fields *domain.ExtractedFields,
	standardized domain.StandardizedBusiness,
	rule *domain.AccountingRule,
	entryDate time.Time,
	sourceDoc string,
) (*domain.JournalEntry, error) {
	if rule != nil && rule.Compound() && !g.cfg.AllowComplexEntries {
		rule = nil
	}

	var (
		lines  []domain.JournalEntryLine
		ruleID string
		err    error
	)

	if rule != nil {
		lines, err = instantiateTemplates(rule, fields)
		ruleID = rule.ID
	} else {
		lines, err = fallbackLines(standardized.Category, fields.Amount)
	}

	if err != nil {
		return nil, err
	}

	lines, err = roundAndAbsorb(lines)
	if err != nil {
		return nil, err
	}

	entry := &domain.JournalEntry{
		ID:             g.idGen.Generate(),
		Date:           entryDate,
		SourceDocument: sourceDoc,
		Description:    fields.Description,
		RuleID:         ruleID,
		Lines:          lines,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

func instantiateTemplates(rule *domain.AccountingRule, fields *domain.ExtractedFields) ([]domain.JournalEntryLine, error) {
	amount := fields.Amount
	rate := fields.TaxHint.Rate()

	// amount_before_tax = amount / (1 + rate); tax = amount - amount_before_tax.
	net := amount.Div(decimal.New(1, 0).Add(rate))
	tax := amount.Sub(net)

	lines := make([]domain.JournalEntryLine, 0, len(rule.Lines))

	for _, tmpl := range rule.Lines {
		var lineAmount decimal.Decimal

		switch tmpl.Amount {
		case domain.AmountFull:
			lineAmount = amount
		case domain.AmountNet:
			lineAmount = net
		case domain.AmountTax:
			lineAmount = tax
		default:
			return nil, fmt.Errorf("%w: rule %s template has unknown amount kind %q",
				domain.ErrUnbalancedEntry, rule.ID, tmpl.Amount)
		}

		lines = append(lines, domain.JournalEntryLine{
			Direction:   tmpl.Direction,
			AccountCode: tmpl.AccountCode,
			AccountName: tmpl.AccountName,
			Amount:      lineAmount,
		})
	}

	return lines, nil
}

func fallbackLines(cat domain.Category, amount decimal.Decimal) ([]domain.JournalEntryLine, error) {
	accounts, ok := fallbackAccounts[cat]
	if !ok {
		return nil, fmt.Errorf("%w: category %q has no simple-mode template", domain.ErrNoApplicableRule, cat)
	}

	return []domain.JournalEntryLine{
		{Direction: domain.Debit, AccountCode: accounts.debitCode, AccountName: accounts.debitName, Amount: amount},
		{Direction: domain.Credit, AccountCode: accounts.creditCode, AccountName: accounts.creditName, Amount: amount},
	}, nil
}

// roundAndAbsorb rounds every line to the smallest currency unit,
// half up, then absorbs a residual of at most one smallest unit into the
// largest line of the heavier side. Anything larger is a template or
// rounding defect and fails hard.
func roundAndAbsorb(lines []domain.JournalEntryLine) ([]domain.JournalEntryLine, error) {
	smallestUnit := decimal.New(1, -domain.CurrencyExponent)

	debit, credit := decimal.Zero, decimal.Zero

	for i := range lines {
		lines[i].Amount = domain.RoundCurrency(lines[i].Amount)

		switch lines[i].Direction {
		case domain.Debit:
			debit = debit.Add(lines[i].Amount)
		case domain.Credit:
			credit = credit.Add(lines[i].Amount)
		}
	}

	diff := debit.Sub(credit)
	if diff.IsZero() {
		return lines, nil
	}

	if diff.Abs().GreaterThan(smallestUnit) {
		return nil, fmt.Errorf("%w: rounding residual %s exceeds one smallest unit", domain.ErrUnbalancedEntry, diff.Abs())
	}

	// The heavier side gives up the residual, taken from its largest
	// line; ties go to the earliest line in template order.
	heavier := domain.Debit
	if diff.IsNegative() {
		heavier = domain.Credit
	}

	largest := -1
	for i := range lines {
		if lines[i].Direction != heavier {
			continue
		}
		if largest < 0 || lines[i].Amount.GreaterThan(lines[largest].Amount) {
			largest = i
		}
	}

	if largest < 0 {
		return nil, fmt.Errorf("%w: no line on the %s side to absorb residual", domain.ErrUnbalancedEntry, heavier)
	}

	lines[largest].Amount = lines[largest].Amount.Sub(diff.Abs())

	return lines, nil
}
