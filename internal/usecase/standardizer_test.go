package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/journalbot/internal/domain"
	"github.com/iho/journalbot/internal/rulestore"
	"github.com/iho/journalbot/internal/usecase"
)

const testRules = `
rules:
  - id: revenue-receipt-bank
    category: revenue-receipt
    keywords: ["收到", "货款", "银行转账"]
    lines:
      - {direction: debit, account_code: "1002", account_name: "银行存款", amount: full}
      - {direction: credit, account_code: "1122", account_name: "应收账款", amount: full}
  - id: sales-tax-inclusive
    category: revenue-receipt
    keywords: ["销售", "含税", "货款"]
    lines:
      - {direction: debit, account_code: "1002", account_name: "银行存款", amount: full}
      - {direction: credit, account_code: "6001", account_name: "主营业务收入", amount: net}
      - {direction: credit, account_code: "2221", account_name: "应交税费", amount: tax}
  - id: rent-expense
    category: expense-payment
    keywords: ["房租", "租金"]
    lines:
      - {direction: debit, account_code: "6602", account_name: "管理费用", amount: full}
      - {direction: credit, account_code: "1002", account_name: "银行存款", amount: full}
  - id: goods-purchase
    category: procurement
    keywords: ["采购", "进货"]
    lines:
      - {direction: debit, account_code: "1405", account_name: "库存商品", amount: full}
      - {direction: credit, account_code: "2202", account_name: "应付账款", amount: full}
  - id: salary-payment
    category: payroll
    keywords: ["工资", "薪酬"]
    lines:
      - {direction: debit, account_code: "2211", account_name: "应付职工薪酬", amount: full}
      - {direction: credit, account_code: "1002", account_name: "银行存款", amount: full}
`

func mustSnapshot(t *testing.T) *rulestore.Snapshot {
	t.Helper()

	snap, err := rulestore.Parse([]byte(testRules))
	require.NoError(t, err)

	return snap
}

func TestStandardize(t *testing.T) {
	snap := mustSnapshot(t)

	tests := []struct {
		name         string
		description  string
		wantCategory domain.Category
		wantCompound bool
	}{
		{
			name:         "customer payment received",
			description:  "收到客户货款",
			wantCategory: domain.CategoryRevenueReceipt,
		},
		{
			name:         "tax inclusive sale",
			description:  "销售商品，含税总价11300元",
			wantCategory: domain.CategoryRevenueReceipt,
			wantCompound: true,
		},
		{
			name:         "office rent",
			description:  "支付办公室房租5000元",
			wantCategory: domain.CategoryExpensePayment,
		},
		{
			name:         "salary run",
			description:  "发放员工工资",
			wantCategory: domain.CategoryPayroll,
			wantCompound: true,
		},
		{
			name:         "goods purchase",
			description:  "采购原材料一批",
			wantCategory: domain.CategoryProcurement,
		},
		{
			name:         "no match",
			description:  "completely unrelated text",
			wantCategory: domain.CategoryOther,
		},
		{
			name:         "empty description",
			description:  "",
			wantCategory: domain.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.Standardize(tt.description, snap)

			assert.Equal(t, tt.wantCategory, got.Category)
			assert.Equal(t, tt.wantCompound, got.Compound)

			if tt.wantCategory == domain.CategoryOther {
				assert.Zero(t, got.Confidence)
				assert.Empty(t, got.Keywords)
			} else {
				assert.Greater(t, got.Confidence, 0.0)
				assert.LessOrEqual(t, got.Confidence, 1.0)
				assert.NotEmpty(t, got.Keywords)
			}
		})
	}
}

func TestStandardize_Deterministic(t *testing.T) {
	snap := mustSnapshot(t)

	first := usecase.Standardize("收到客户货款", snap)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, usecase.Standardize("收到客户货款", snap))
	}
}

func TestStandardize_KeywordsWeightedBySpecificity(t *testing.T) {
	snap := mustSnapshot(t)

	got := usecase.Standardize("收到客户货款", snap)

	require.Equal(t, domain.CategoryRevenueReceipt, got.Category)
	require.Len(t, got.Keywords, 2)

	// "收到" appears in one rule, "货款" in two, so "收到" carries more
	// weight and sorts first.
	assert.Equal(t, []string{"收到", "货款"}, got.Keywords)
}

func TestStandardize_CanonicalDescription(t *testing.T) {
	snap := mustSnapshot(t)

	got := usecase.Standardize("收到客户货款", snap)
	assert.Equal(t, "revenue-receipt 收到 货款", got.CanonicalDescription())

	none := usecase.Standardize("nothing here", snap)
	assert.Equal(t, "other", none.CanonicalDescription())
}
