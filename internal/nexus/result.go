package nexus

import (
	"sort"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
)

// Row is the nexus evaluation of one state in one month.
type Row struct {
	State string
	Month types.Month
	Rule  types.LookbackRule

	// SalesBasis and TxnBasis are the values the rule compared. HasBasis is
	// false when the rule had no previous calendar year to use.
	SalesBasis decimal.Decimal
	TxnBasis   int
	HasBasis   bool

	SalesThreshold *decimal.Decimal
	TxnThreshold   *int

	SalesMet  bool
	TxnMet    bool
	Triggered bool

	// FirstTriggerMonth is the same on every row of a state, nil if the
	// state never triggered.
	FirstTriggerMonth *types.Month
}

// Result holds the nexus rows of one run, ordered by state then month.
type Result struct {
	Rows []Row
}

// FirstTriggers maps each triggered state to its earliest trigger month.
func (r *Result) FirstTriggers() map[string]types.Month {
	out := make(map[string]types.Month)
	if r == nil {
		return out
	}
	for _, row := range r.Rows {
		if row.FirstTriggerMonth == nil {
			continue
		}
		if m, ok := out[row.State]; !ok || *row.FirstTriggerMonth < m {
			out[row.State] = *row.FirstTriggerMonth
		}
	}
	return out
}

// TriggeredStates returns the triggered state codes in sorted order.
func (r *Result) TriggeredStates() []string {
	triggers := r.FirstTriggers()
	states := make([]string, 0, len(triggers))
	for state := range triggers {
		states = append(states, state)
	}
	sort.Strings(states)
	return states
}

// StateSummary condenses one state's rows.
type StateSummary struct {
	State             string
	Rule              types.LookbackRule
	Months            int
	FirstTriggerMonth *types.Month
	PeakSalesBasis    decimal.Decimal
	PeakTxnBasis      int
}

// StateSummaries returns one summary per evaluated state, in state order.
func (r *Result) StateSummaries() []StateSummary {
	if r == nil {
		return nil
	}

	var out []StateSummary
	index := make(map[string]int)
	for _, row := range r.Rows {
		i, ok := index[row.State]
		if !ok {
			i = len(out)
			index[row.State] = i
			out = append(out, StateSummary{
				State:             row.State,
				Rule:              row.Rule,
				FirstTriggerMonth: row.FirstTriggerMonth,
				PeakSalesBasis:    row.SalesBasis,
				PeakTxnBasis:      row.TxnBasis,
			})
		}
		s := &out[i]
		s.Months++
		if row.SalesBasis.GreaterThan(s.PeakSalesBasis) {
			s.PeakSalesBasis = row.SalesBasis
		}
		if row.TxnBasis > s.PeakTxnBasis {
			s.PeakTxnBasis = row.TxnBasis
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}
