package aggregate

import (
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
)

// Evaluation is the outcome of checking one summary row against a state's
// thresholds.
type Evaluation struct {
	// SalesBasis and TxnBasis are the values compared to the thresholds.
	SalesBasis decimal.Decimal
	TxnBasis   int

	// HasBasis is false when the rule needs a previous calendar year that
	// does not exist yet. The bases are then zero and nothing is met.
	HasBasis bool

	SalesMet bool
	TxnMet   bool

	// Supported is false for rules the evaluator does not recognize.
	Supported bool
}

// Met reports whether either dimension crossed its threshold.
func (e Evaluation) Met() bool {
	return e.SalesMet || e.TxnMet
}

// EvaluateThresholds selects the basis for rule and compares it with the
// thresholds. A basis meets its threshold when basis >= threshold; a nil
// threshold never triggers.
//
//	rolling_12m          RollingSales / RollingTxns
//	calendar_prev_curr   max(previous year, year-to-date); YTD alone in the first year
//	calendar_prev        previous year; nothing in the first year
//	none, unknown        zero bases, never met
func EvaluateThresholds(row Row, rule types.LookbackRule, salesTh *decimal.Decimal, txnTh *int) Evaluation {
	eval := Evaluation{Supported: rule.Known()}

	switch rule {
	case types.RuleRolling12m:
		eval.SalesBasis = row.RollingSales
		eval.TxnBasis = row.RollingTxns
		eval.HasBasis = true

	case types.RuleCalendarPrevCurr:
		eval.SalesBasis = row.YTDSales
		eval.TxnBasis = row.YTDTxns
		if row.HasPrevYear {
			eval.SalesBasis = decimal.Max(row.PrevYearSales, row.YTDSales)
			eval.TxnBasis = max(row.PrevYearTxns, row.YTDTxns)
		}
		eval.HasBasis = true

	case types.RuleCalendarPrev:
		if row.HasPrevYear {
			eval.SalesBasis = row.PrevYearSales
			eval.TxnBasis = row.PrevYearTxns
			eval.HasBasis = true
		}

	default:
		eval.SalesBasis = decimal.Zero
		eval.TxnBasis = 0
		eval.HasBasis = true
		return eval
	}

	if !eval.HasBasis {
		return eval
	}
	if salesTh != nil {
		eval.SalesMet = eval.SalesBasis.GreaterThanOrEqual(*salesTh)
	}
	if txnTh != nil {
		eval.TxnMet = eval.TxnBasis >= *txnTh
	}
	return eval
}
