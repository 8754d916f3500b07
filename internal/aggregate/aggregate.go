// =============================================================================
// SALT Nexus Analyzer - Aggregation Helpers
// =============================================================================
//
// Pure functions that turn row-level transactions into per-state monthly
// summaries and the derived bases the lookback rules measure against.
//
// PIPELINE (per state):
//   1. MonthlyStateSummary  - (state, month) sales and distinct invoices
//   2. Densify              - zero-fill onto the shared analysis grid
//   3. AddRolling           - trailing N-month sums, min-periods 1
//   4. AddCalendarYearMetrics - previous calendar year and year-to-date
//   5. EvaluateThresholds   - pick the basis for a rule and compare
//
// None of these functions mutate their input slices.
//
// =============================================================================

package aggregate

import (
	"sort"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY SUMMARY ROW
// =============================================================================

// Row is one (state, month) summary with its derived bases.
type Row struct {
	State string
	Month types.Month

	// Sales is the signed sum of amounts for the month.
	Sales decimal.Decimal

	// Txns counts distinct invoice numbers among nonzero-amount rows.
	Txns int

	// Rolling sums over the trailing window ending at Month.
	RollingSales decimal.Decimal
	RollingTxns  int

	// Previous calendar year totals, repeated for every month of the year.
	// HasPrevYear is false for the state's first observed year.
	PrevYearSales decimal.Decimal
	PrevYearTxns  int
	HasPrevYear   bool

	// Year-to-date cumulative totals, reset each January.
	YTDSales decimal.Decimal
	YTDTxns  int
}

type stateMonth struct {
	state string
	month types.Month
}

// =============================================================================
// MONTHLY STATE SUMMARY
// =============================================================================

// MonthlyStateSummary groups transactions by state and month.
//
// Sales is the sum of amounts. Txns is the number of distinct invoice
// numbers among the group's rows whose amount is nonzero, so a credit memo
// counts but a zero-dollar line does not.
//
// A transaction without a date or state violates the input contract.
// Output is ordered by state, then month.
func MonthlyStateSummary(txns []types.Transaction) ([]Row, error) {
	sums := make(map[stateMonth]decimal.Decimal)
	invoices := make(map[stateMonth]map[string]struct{})

	for i, txn := range txns {
		if txn.Date.IsZero() {
			return nil, errors.NewInputContractError(
				"transaction %d (invoice %q): date is required for month bucketing", i, txn.InvoiceNumber)
		}
		if txn.State == "" {
			return nil, errors.NewInputContractError(
				"transaction %d (invoice %q): state is required", i, txn.InvoiceNumber)
		}

		key := stateMonth{state: txn.State, month: txn.Month()}
		sums[key] = sums[key].Add(txn.Amount)

		if _, ok := invoices[key]; !ok {
			invoices[key] = make(map[string]struct{})
		}
		if !txn.Amount.IsZero() {
			invoices[key][txn.InvoiceNumber] = struct{}{}
		}
	}

	rows := make([]Row, 0, len(sums))
	for key, sales := range sums {
		rows = append(rows, Row{
			State: key.state,
			Month: key.month,
			Sales: sales,
			Txns:  len(invoices[key]),
		})
	}
	sortRows(rows)
	return rows, nil
}

// =============================================================================
// ANALYSIS GRID
// =============================================================================

// Densify places every state present in rows onto the grid first..last,
// zero-filling months without data. Rows outside the grid are dropped.
func Densify(rows []Row, first, last types.Month) []Row {
	byState := groupByState(rows)
	states := make([]string, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Strings(states)

	var out []Row
	for _, state := range states {
		out = append(out, DensifyState(state, byState[state], first, last)...)
	}
	return out
}

// DensifyState is Densify for a single state. It returns a full grid of
// zero rows when the state has no data at all.
func DensifyState(state string, rows []Row, first, last types.Month) []Row {
	existing := make(map[types.Month]Row, len(rows))
	for _, r := range rows {
		if r.State == state {
			existing[r.Month] = r
		}
	}

	months := types.MonthRange(first, last)
	out := make([]Row, 0, len(months))
	for _, m := range months {
		if r, ok := existing[m]; ok {
			out = append(out, Row{State: state, Month: m, Sales: r.Sales, Txns: r.Txns})
			continue
		}
		out = append(out, Row{State: state, Month: m})
	}
	return out
}

// =============================================================================
// ROLLING WINDOW
// =============================================================================

// AddRolling sets RollingSales and RollingTxns to the trailing sum over the
// last window calendar months ending at each row's month. Missing months
// count as zero and a shorter history simply sums what exists.
func AddRolling(rows []Row, window int) ([]Row, error) {
	if window < 1 {
		return nil, errors.NewInputContractError("rolling window must be at least 1, got %d", window)
	}

	out := sortedCopy(rows)
	for start := 0; start < len(out); {
		end := start
		for end < len(out) && out[end].State == out[start].State {
			end++
		}

		// Two-pointer sweep over one state's chronologically ordered months.
		sales := decimal.Zero
		txns := 0
		tail := start
		for i := start; i < end; i++ {
			sales = sales.Add(out[i].Sales)
			txns += out[i].Txns
			for out[i].Month.Sub(out[tail].Month) >= window {
				sales = sales.Sub(out[tail].Sales)
				txns -= out[tail].Txns
				tail++
			}
			out[i].RollingSales = sales
			out[i].RollingTxns = txns
		}
		start = end
	}
	return out, nil
}

// =============================================================================
// CALENDAR YEAR METRICS
// =============================================================================

// AddCalendarYearMetrics sets the previous-calendar-year totals and the
// year-to-date running totals for every row.
func AddCalendarYearMetrics(rows []Row) []Row {
	out := sortedCopy(rows)
	for start := 0; start < len(out); {
		end := start
		for end < len(out) && out[end].State == out[start].State {
			end++
		}

		yearSales := make(map[int]decimal.Decimal)
		yearTxns := make(map[int]int)
		firstYear := out[start].Month.Year()
		for i := start; i < end; i++ {
			y := out[i].Month.Year()
			yearSales[y] = yearSales[y].Add(out[i].Sales)
			yearTxns[y] += out[i].Txns
		}

		ytdSales := decimal.Zero
		ytdTxns := 0
		currentYear := firstYear
		for i := start; i < end; i++ {
			y := out[i].Month.Year()
			if y != currentYear {
				ytdSales = decimal.Zero
				ytdTxns = 0
				currentYear = y
			}
			ytdSales = ytdSales.Add(out[i].Sales)
			ytdTxns += out[i].Txns
			out[i].YTDSales = ytdSales
			out[i].YTDTxns = ytdTxns

			if y > firstYear {
				out[i].HasPrevYear = true
				out[i].PrevYearSales = yearSales[y-1]
				out[i].PrevYearTxns = yearTxns[y-1]
			} else {
				out[i].HasPrevYear = false
				out[i].PrevYearSales = decimal.Zero
				out[i].PrevYearTxns = 0
			}
		}
		start = end
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].State != rows[j].State {
			return rows[i].State < rows[j].State
		}
		return rows[i].Month < rows[j].Month
	})
}

func sortedCopy(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sortRows(out)
	return out
}

func groupByState(rows []Row) map[string][]Row {
	byState := make(map[string][]Row)
	for _, r := range rows {
		byState[r.State] = append(byState[r.State], r)
	}
	return byState
}
