package exposure

import (
	"context"
	"testing"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/nexus"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txn(state string, m types.Month, amount string) types.Transaction {
	return types.Transaction{
		Date:          m.Start().AddDate(0, 0, 9),
		InvoiceNumber: state + "-" + m.String(),
		Amount:        decimal.RequireFromString(amount),
		State:         state,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func states(t *testing.T, doc string) map[string]config.StateConfig {
	t.Helper()
	cfgs, err := config.ParseStateConfigs([]byte(doc))
	require.NoError(t, err)
	return cfgs
}

// triggered builds a nexus result with one row per state at its trigger month.
func triggered(triggers map[string]types.Month) *nexus.Result {
	result := &nexus.Result{}
	for state, m := range triggers {
		m := m
		result.Rows = append(result.Rows, nexus.Row{State: state, Month: m, Triggered: true, FirstTriggerMonth: &m})
	}
	return result
}

func newCollector() *diagnostics.Collector {
	return diagnostics.NewCollectorAt("test-run", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

var jan24 = types.NewMonth(2024, time.January)

func TestCalculateExcludesTriggerMonth(t *testing.T) {
	txns := []types.Transaction{
		txn("CA", jan24, "100"),
		txn("CA", jan24.Add(1), "25"),
		txn("CA", jan24.Add(2), "40"),
	}
	cfgs := states(t, "CA: {sales_threshold: 20, tax_rate: 0.07}\n")

	result, err := NewCalculator(cfgs, VDANone).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"CA": jan24}), newCollector())
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	for _, r := range result.Rows {
		assert.Greater(t, int(r.Month), int(jan24))
	}
	assert.True(t, result.Rows[0].EstimatedTax.Equal(dec("1.75")), "25 x 0.07")
	assert.True(t, result.Rows[1].EstimatedTax.Equal(dec("2.8")))
}

func TestCalculateScenarioWithoutPostTriggerData(t *testing.T) {
	exemptNY := txn("NY", jan24, "15")
	exemptNY.Exempt = true
	txns := []types.Transaction{
		txn("CA", jan24, "10"),
		txn("CA", jan24.Add(1), "25"),
		exemptNY,
	}
	cfgs := states(t, "CA: {sales_threshold: 20, tax_rate: 0.07}\n")
	diag := newCollector()

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"CA": jan24.Add(1)}), diag)
	require.NoError(t, err)

	assert.Empty(t, result.Rows)
	assert.Equal(t, 0, diag.Counter(diagnostics.CounterStatesWithExposure))
}

func TestCalculateVDAMath(t *testing.T) {
	// Trigger in Dec 2023, taxable data Jan..Jun 2024, last month June.
	var txns []types.Transaction
	for i := 0; i < 6; i++ {
		txns = append(txns, txn("WA", jan24.Add(i), "1000"))
	}
	cfgs := states(t, `
WA:
  sales_threshold: 1
  tax_rate: 0.1
  vda_lookback_cap: 2
  vda_interest_rate: 0.12
  standard_penalty_rate: 0.2
  vda_penalty_waived: false
`)

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"WA": jan24.Add(-1)}), newCollector())
	require.NoError(t, err)
	require.Len(t, result.Rows, 6)

	// January: 5 months late, outside the two-month VDA window.
	jan := result.Rows[0]
	assert.True(t, jan.EstimatedTax.Equal(dec("100")))
	assert.True(t, jan.FullInterest.Equal(dec("5")), "100 x 0.12 / 12 x 5 = %s", jan.FullInterest)
	assert.True(t, jan.FullPenalty.Equal(dec("20")))
	assert.True(t, jan.FullLiability.Equal(dec("125")))
	assert.True(t, jan.VDALiability.IsZero())
	assert.True(t, jan.EstimatedVDASavings.Equal(dec("125")))

	// May: 1 month late, inside the window, penalty not waived.
	may := result.Rows[4]
	assert.True(t, may.VDATax.Equal(dec("100")))
	assert.True(t, may.VDAInterest.Equal(dec("1")))
	assert.True(t, may.VDAPenalty.Equal(dec("20")))
	assert.True(t, may.VDALiability.Equal(dec("121")))
	assert.True(t, may.EstimatedVDASavings.IsZero())

	// June is the last data month: no interest.
	jun := result.Rows[5]
	assert.True(t, jun.FullInterest.IsZero())
	assert.True(t, jun.VDAInterest.IsZero())
}

func TestCalculateZeroLookbackCapKeepsFullLiability(t *testing.T) {
	txns := []types.Transaction{
		txn("CA", jan24, "100"),
		txn("CA", jan24.Add(1), "100"),
		txn("CA", jan24.Add(2), "100"),
	}
	cfgs := states(t, "CA: {sales_threshold: 20, tax_rate: 0.10, vda_lookback_cap: 0}\n")
	diag := newCollector()

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"CA": jan24}), diag)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Empty(t, diag.Warnings())

	// February: 1 month late against a March last month.
	feb := result.Rows[0]
	assert.True(t, feb.EstimatedTax.Equal(dec("10")))
	assert.True(t, feb.FullPenalty.Equal(dec("2.5")), "10 x 0.25 = %s", feb.FullPenalty)
	assert.True(t, feb.FullInterest.IsPositive())
	assert.True(t, feb.FullLiability.IsPositive())

	for _, r := range result.Rows {
		assert.True(t, r.VDATax.IsZero(), "empty VDA window for %s", r.Month)
		assert.True(t, r.VDALiability.IsZero())
		assert.True(t, r.EstimatedVDASavings.Equal(r.FullLiability))
	}
}

func TestCalculateSavingsNonNegativeWithFullCapAndWaiver(t *testing.T) {
	var txns []types.Transaction
	amounts := []string{"500", "-50", "1200", "0.01", "75"}
	for i, amt := range amounts {
		txns = append(txns, txn("TX", jan24.Add(i), amt))
	}
	cfgs := states(t, "TX: {sales_threshold: 1, tax_rate: 0.0625, vda_lookback_cap: 36}\n")

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"TX": jan24.Add(-1)}), newCollector())
	require.NoError(t, err)

	totals := result.Totals()
	require.Len(t, totals, 1)
	assert.False(t, totals[0].EstimatedVDASavings.IsNegative(), "savings %s", totals[0].EstimatedVDASavings)
	assert.True(t, totals[0].VDAPenalty.IsZero())
	assert.Equal(t, 5, totals[0].Months)
}

func TestCalculateMissingTaxRateSkipsState(t *testing.T) {
	txns := []types.Transaction{txn("CO", jan24, "10"), txn("CO", jan24.Add(1), "10")}
	cfgs := states(t, "CO: {sales_threshold: 1}\n")
	diag := newCollector()

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"CO": jan24}), diag)
	require.NoError(t, err)

	assert.Empty(t, result.Rows)
	assert.Equal(t, []string{"Invalid or missing tax_rate for CO. Skipping exposure calculation."}, diag.Warnings())
}

func TestCalculateInvalidVDAZeroFills(t *testing.T) {
	txns := []types.Transaction{txn("AZ", jan24, "10"), txn("AZ", jan24.Add(1), "200")}
	cfgs := states(t, "AZ: {sales_threshold: 1, tax_rate: 0.05, vda_interest_rate: -0.01}\n")
	diag := newCollector()

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"AZ": jan24}), diag)
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	r := result.Rows[0]
	assert.True(t, r.EstimatedTax.Equal(dec("10")))
	for _, v := range []decimal.Decimal{
		r.FullInterest, r.FullPenalty, r.FullLiability,
		r.VDATax, r.VDAInterest, r.VDAPenalty, r.VDALiability, r.EstimatedVDASavings,
	} {
		assert.True(t, v.IsZero())
	}
	require.Len(t, diag.Warnings(), 1)
	assert.Contains(t, diag.Warnings()[0], "Invalid VDA parameters for AZ")
}

func TestCalculateVDANoneKeepsColumnsZero(t *testing.T) {
	txns := []types.Transaction{txn("IL", jan24, "10"), txn("IL", jan24.Add(3), "80")}
	cfgs := states(t, "IL: {sales_threshold: 1, tax_rate: 0.0625}\n")

	result, err := NewCalculator(cfgs, VDANone).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"IL": jan24}), newCollector())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.True(t, result.Rows[0].EstimatedTax.Equal(dec("5")))
	assert.True(t, result.Rows[0].FullLiability.IsZero())
	assert.True(t, result.Rows[0].EstimatedVDASavings.IsZero())
}

func TestCalculateExemptOnlyIsEmpty(t *testing.T) {
	exempt := txn("CA", jan24.Add(1), "10")
	exempt.Exempt = true

	result, err := NewCalculator(nil, VDAEstimate).Calculate(context.Background(),
		[]types.Transaction{exempt}, triggered(map[string]types.Month{"CA": jan24}), newCollector())
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestCalculateLastMonthSpansAllStates(t *testing.T) {
	// NV's own data ends in February but the last data month overall is
	// April, so February is two months late.
	txns := []types.Transaction{
		txn("NV", jan24, "1"),
		txn("NV", jan24.Add(1), "1200"),
		txn("UT", jan24.Add(3), "1"),
	}
	cfgs := states(t, "NV: {sales_threshold: 1, tax_rate: 0.1, vda_interest_rate: 0.06}\n")

	result, err := NewCalculator(cfgs, VDAEstimate).Calculate(context.Background(), txns,
		triggered(map[string]types.Month{"NV": jan24}), newCollector())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.True(t, result.Rows[0].FullInterest.Equal(dec("1.2")), "120 x 0.06 / 12 x 2")
}

func TestCalculateInputContract(t *testing.T) {
	_, err := NewCalculator(nil, VDAEstimate).Calculate(context.Background(),
		[]types.Transaction{{State: "CA", Amount: dec("1")}}, &nexus.Result{}, newCollector())
	require.Error(t, err)
	assert.True(t, errors.IsInputContract(err))
}

func TestTotals(t *testing.T) {
	result := &Result{Rows: []Row{
		{State: "CA", EstimatedTax: dec("1"), EstimatedVDASavings: dec("0.5")},
		{State: "CA", EstimatedTax: dec("2"), EstimatedVDASavings: dec("0.25")},
		{State: "TX", EstimatedTax: dec("4")},
	}}

	totals := result.Totals()
	require.Len(t, totals, 2)
	assert.True(t, totals[0].EstimatedTax.Equal(dec("3")))
	assert.True(t, totals[0].EstimatedVDASavings.Equal(dec("0.75")))
	assert.Equal(t, 1, totals[1].Months)
	assert.True(t, result.GrandTotal().EstimatedTax.Equal(dec("7")))
}

func TestParseVDAOption(t *testing.T) {
	for in, want := range map[string]VDAOption{"Estimate": VDAEstimate, "none": VDANone, "": VDAEstimate} {
		got, err := ParseVDAOption(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseVDAOption("maybe")
	assert.True(t, errors.IsInvalidConfig(err))
}
