package aggregate

import (
	"testing"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(state string, year int, month time.Month, day int, invoice, amount string) types.Transaction {
	return types.Transaction{
		Date:          time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		InvoiceNumber: invoice,
		Amount:        decimal.RequireFromString(amount),
		State:         state,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMonthlyStateSummary(t *testing.T) {
	txns := []types.Transaction{
		txn("TX", 2024, time.February, 3, "INV-1", "100.00"),
		txn("CA", 2024, time.January, 5, "INV-2", "10.00"),
		txn("CA", 2024, time.January, 9, "INV-2", "5.50"),
		txn("CA", 2024, time.January, 12, "INV-3", "-4.00"),
		txn("CA", 2024, time.January, 20, "INV-4", "0"),
		txn("CA", 2024, time.March, 1, "INV-5", "7"),
	}

	rows, err := MonthlyStateSummary(txns)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "CA", rows[0].State)
	assert.Equal(t, "2024-01", rows[0].Month.String())
	assert.True(t, rows[0].Sales.Equal(dec("11.50")))
	assert.Equal(t, 2, rows[0].Txns, "zero-amount invoice is not counted; credit memo is")

	assert.Equal(t, "2024-03", rows[1].Month.String())
	assert.Equal(t, "TX", rows[2].State)
}

func TestMonthlyStateSummaryRequiresDate(t *testing.T) {
	_, err := MonthlyStateSummary([]types.Transaction{{State: "CA", InvoiceNumber: "X"}})
	require.Error(t, err)
	assert.True(t, errors.IsInputContract(err))
}

func TestMonthlyStateSummaryRequiresState(t *testing.T) {
	_, err := MonthlyStateSummary([]types.Transaction{txn("", 2024, time.May, 1, "X", "1")})
	require.Error(t, err)
	assert.True(t, errors.IsInputContract(err))
}

func TestDensifyState(t *testing.T) {
	first := types.NewMonth(2024, time.January)
	last := types.NewMonth(2024, time.April)
	rows := []Row{{State: "CA", Month: types.NewMonth(2024, time.March), Sales: dec("3"), Txns: 1}}

	out := DensifyState("CA", rows, first, last)
	require.Len(t, out, 4)
	assert.True(t, out[0].Sales.IsZero())
	assert.True(t, out[2].Sales.Equal(dec("3")))
	assert.Equal(t, 1, out[2].Txns)

	empty := DensifyState("NV", nil, first, last)
	assert.Len(t, empty, 4)
	assert.Equal(t, "NV", empty[3].State)
}

func TestDensifyMultipleStates(t *testing.T) {
	rows := []Row{
		{State: "TX", Month: types.NewMonth(2024, time.February), Sales: dec("1")},
		{State: "CA", Month: types.NewMonth(2024, time.January), Sales: dec("2")},
	}
	out := Densify(rows, types.NewMonth(2024, time.January), types.NewMonth(2024, time.February))

	require.Len(t, out, 4)
	assert.Equal(t, "CA", out[0].State)
	assert.Equal(t, "TX", out[2].State)
	assert.True(t, out[3].Sales.Equal(dec("1")))
}

func TestAddRollingMatchesManualWindowSum(t *testing.T) {
	first := types.NewMonth(2023, time.January)
	var rows []Row
	for i := 0; i < 30; i++ {
		// Leave gaps so the window is measured in calendar months, not rows.
		if i%7 == 3 {
			continue
		}
		rows = append(rows, Row{
			State: "CA",
			Month: first.Add(i),
			Sales: decimal.NewFromInt(int64(i*10 + 1)),
			Txns:  i%4 + 1,
		})
	}

	for _, window := range []int{1, 3, 12} {
		out, err := AddRolling(rows, window)
		require.NoError(t, err)

		for _, r := range out {
			wantSales := decimal.Zero
			wantTxns := 0
			for _, other := range rows {
				diff := r.Month.Sub(other.Month)
				if diff >= 0 && diff < window {
					wantSales = wantSales.Add(other.Sales)
					wantTxns += other.Txns
				}
			}
			assert.True(t, wantSales.Equal(r.RollingSales), "window %d month %s", window, r.Month)
			assert.Equal(t, wantTxns, r.RollingTxns, "window %d month %s", window, r.Month)
		}
	}
}

func TestAddRollingIsPerState(t *testing.T) {
	m := types.NewMonth(2024, time.January)
	rows := []Row{
		{State: "TX", Month: m, Sales: dec("100")},
		{State: "CA", Month: m, Sales: dec("1")},
		{State: "CA", Month: m.Add(1), Sales: dec("2")},
	}

	out, err := AddRolling(rows, 12)
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.True(t, out[1].RollingSales.Equal(dec("3")))
	assert.True(t, out[2].RollingSales.Equal(dec("100")))
	assert.True(t, rows[0].RollingSales.IsZero(), "input is not mutated")
}

func TestAddRollingRejectsBadWindow(t *testing.T) {
	_, err := AddRolling(nil, 0)
	require.Error(t, err)
	assert.True(t, errors.IsInputContract(err))
}

func TestAddCalendarYearMetrics(t *testing.T) {
	rows := DensifyState("CA", []Row{
		{State: "CA", Month: types.NewMonth(2023, time.November), Sales: dec("10"), Txns: 1},
		{State: "CA", Month: types.NewMonth(2023, time.December), Sales: dec("20"), Txns: 2},
		{State: "CA", Month: types.NewMonth(2024, time.January), Sales: dec("5"), Txns: 1},
		{State: "CA", Month: types.NewMonth(2024, time.March), Sales: dec("7"), Txns: 3},
	}, types.NewMonth(2023, time.November), types.NewMonth(2024, time.March))

	out := AddCalendarYearMetrics(rows)
	require.Len(t, out, 5)

	// 2023 is the first observed year.
	assert.False(t, out[0].HasPrevYear)
	assert.False(t, out[1].HasPrevYear)
	assert.True(t, out[1].YTDSales.Equal(dec("30")))
	assert.Equal(t, 3, out[1].YTDTxns)

	// 2024 sees 2023's totals on every month and YTD restarts in January.
	for _, r := range out[2:] {
		assert.True(t, r.HasPrevYear)
		assert.True(t, r.PrevYearSales.Equal(dec("30")))
		assert.Equal(t, 3, r.PrevYearTxns)
	}
	assert.True(t, out[2].YTDSales.Equal(dec("5")))
	assert.True(t, out[3].YTDSales.Equal(dec("5")))
	assert.True(t, out[4].YTDSales.Equal(dec("12")))
	assert.Equal(t, 4, out[4].YTDTxns)
}
