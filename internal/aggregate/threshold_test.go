package aggregate

import (
	"testing"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func ptrDec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptrInt(n int) *int {
	return &n
}

func TestEvaluateThresholds(t *testing.T) {
	firstYear := Row{
		RollingSales: dec("150"), RollingTxns: 150,
		YTDSales: dec("80"), YTDTxns: 80,
	}
	laterYear := Row{
		RollingSales: dec("150"), RollingTxns: 150,
		PrevYearSales: dec("120"), PrevYearTxns: 20, HasPrevYear: true,
		YTDSales: dec("40"), YTDTxns: 210,
	}

	tests := []struct {
		name      string
		row       Row
		rule      types.LookbackRule
		salesTh   *decimal.Decimal
		txnTh     *int
		wantSales string
		wantTxns  int
		wantBasis bool
		salesMet  bool
		txnMet    bool
	}{
		{"rolling meets sales at equality", laterYear, types.RuleRolling12m, ptrDec("150"), nil, "150", 150, true, true, false},
		{"rolling below", laterYear, types.RuleRolling12m, ptrDec("150.01"), ptrInt(151), "150", 150, true, false, false},
		{"rolling txn only", laterYear, types.RuleRolling12m, nil, ptrInt(100), "150", 150, true, false, true},
		{"prev_curr takes max per dimension", laterYear, types.RuleCalendarPrevCurr, ptrDec("100"), ptrInt(200), "120", 210, true, true, true},
		{"prev_curr first year uses ytd", firstYear, types.RuleCalendarPrevCurr, ptrDec("80"), nil, "80", 80, true, true, false},
		{"prev only", laterYear, types.RuleCalendarPrev, ptrDec("120"), ptrInt(21), "120", 20, true, true, false},
		{"prev with null previous year never meets", firstYear, types.RuleCalendarPrev, ptrDec("-1"), ptrInt(0), "0", 0, false, false, false},
		{"none is zero and never met", laterYear, types.RuleNone, ptrDec("0"), ptrInt(0), "0", 0, true, false, false},
		{"unknown is zero and never met", laterYear, types.LookbackRule("quarterly"), ptrDec("0"), ptrInt(0), "0", 0, true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := EvaluateThresholds(tt.row, tt.rule, tt.salesTh, tt.txnTh)

			assert.True(t, eval.SalesBasis.Equal(dec(tt.wantSales)), "sales basis %s", eval.SalesBasis)
			assert.Equal(t, tt.wantTxns, eval.TxnBasis)
			assert.Equal(t, tt.wantBasis, eval.HasBasis)
			assert.Equal(t, tt.salesMet, eval.SalesMet)
			assert.Equal(t, tt.txnMet, eval.TxnMet)
			assert.Equal(t, tt.salesMet || tt.txnMet, eval.Met())
		})
	}
}

func TestNilSalesThresholdNeverMet(t *testing.T) {
	huge := Row{RollingSales: dec("1000000000"), HasPrevYear: true, PrevYearSales: dec("1000000000"), YTDSales: dec("1000000000")}

	for _, rule := range []types.LookbackRule{types.RuleRolling12m, types.RuleCalendarPrevCurr, types.RuleCalendarPrev} {
		eval := EvaluateThresholds(huge, rule, nil, nil)
		assert.False(t, eval.SalesMet, string(rule))
		assert.False(t, eval.TxnMet, string(rule))
	}
}

func TestUnknownRuleIsUnsupported(t *testing.T) {
	assert.False(t, EvaluateThresholds(Row{}, "weekly", nil, nil).Supported)
	assert.True(t, EvaluateThresholds(Row{}, types.RuleNone, nil, nil).Supported)
}
