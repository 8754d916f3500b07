// =============================================================================
// SALT Nexus Analyzer - Exposure Calculator
// =============================================================================
//
// The calculator turns nexus trigger months into estimated back-tax exposure
// and, optionally, a voluntary disclosure (VDA) scenario.
//
// PROCESSING:
//   1. Keep non-exempt transactions and sum them per (state, month).
//   2. For each triggered state, the exposure window is every month strictly
//      after the first trigger month through the last month of taxable data.
//   3. estimated_tax = taxable_sales x tax_rate.
//   4. With VDA estimation:
//        months_late    = last_month - month
//        full_interest  = tax x interest_rate / 12 x months_late (never < 0)
//        full_penalty   = tax x penalty_rate
//        full_liability = tax + full_interest + full_penalty
//      VDA figures use the same formulas restricted to the last
//      vda_lookback_cap months, with the penalty dropped when waived.
//      estimated_vda_savings = full_liability - vda_liability.
//
// SKIPS (warning, no rows): missing or invalid tax rate.
// ZERO-FILL (warning, rows kept): invalid VDA parameters. Both the VDA and
// the full-liability columns are zero for that state.
//
// Every row always carries every column, zero when VDA estimation is off.
//
// =============================================================================

package exposure

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/nexus"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VDAOption selects whether the VDA scenario is estimated.
type VDAOption string

const (
	VDAEstimate VDAOption = "Estimate"
	VDANone     VDAOption = "None"
)

// ParseVDAOption accepts "estimate" or "none" in any case.
func ParseVDAOption(s string) (VDAOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "estimate", "":
		return VDAEstimate, nil
	case "none":
		return VDANone, nil
	}
	return "", errors.NewInvalidConfigError("unknown VDA option %q (want Estimate or None)", s)
}

var monthsPerYear = decimal.NewFromInt(12)

// Calculator computes exposure for triggered states.
type Calculator struct {
	states map[string]config.StateConfig
	option VDAOption
	log    *zap.SugaredLogger
}

// NewCalculator creates a calculator over the given state rules.
func NewCalculator(states map[string]config.StateConfig, opt VDAOption) *Calculator {
	return &Calculator{
		states: states,
		option: opt,
		log:    logger.ComponentLogger("exposure"),
	}
}

// Calculate produces the exposure rows for every triggered state in nx.
//
// RETURNS:
//   - Rows ordered by state, then month. No taxable sales or no triggered
//     states yields an empty result.
//   - An error wrapping errors.ErrInputContract for transactions without a
//     date or state, or the context error when ctx is cancelled.
func (c *Calculator) Calculate(ctx context.Context, txns []types.Transaction, nx *nexus.Result, diag *diagnostics.Collector) (*Result, error) {
	result := &Result{Rows: make([]Row, 0)}
	diag.SetCounter(diagnostics.CounterStatesWithExposure, 0)

	// =========================================================================
	// STEP 1: Taxable sales per state and month
	// =========================================================================

	taxable, err := taxableSales(txns)
	if err != nil {
		return nil, err
	}
	if len(taxable) == 0 {
		c.log.Info("No taxable (non-exempt) transactions; exposure result is empty")
		return result, nil
	}

	lastMonth := types.Month(0)
	for key := range taxable {
		if key.month > lastMonth {
			lastMonth = key.month
		}
	}

	triggers := nx.FirstTriggers()
	if len(triggers) == 0 {
		c.log.Info("No states triggered nexus; exposure result is empty")
		return result, nil
	}

	// =========================================================================
	// STEP 2: Per-state exposure
	// =========================================================================

	statesWithExposure := 0
	for _, state := range nx.TriggeredStates() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "exposure calculation cancelled")
		}

		cfg, ok := c.states[state]
		if !ok {
			diag.AddWarning(fmt.Sprintf("No configuration found for state '%s'. Skipping exposure calculation.", state))
			continue
		}

		rate, ok := cfg.ValidTaxRate()
		if !ok {
			diag.AddWarning(fmt.Sprintf("Invalid or missing tax_rate for %s. Skipping exposure calculation.", state))
			continue
		}

		trigger := triggers[state]
		var months []types.Month
		for key := range taxable {
			if key.state == state && key.month > trigger && key.month <= lastMonth {
				months = append(months, key.month)
			}
		}
		if len(months) == 0 {
			c.log.Debugw("No taxable sales after trigger month", "state", state, "trigger", trigger.String())
			continue
		}
		sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

		rows := make([]Row, 0, len(months))
		for _, m := range months {
			sales := taxable[stateMonth{state: state, month: m}]
			rows = append(rows, Row{
				State:        state,
				Month:        m,
				TaxableSales: sales,
				TaxRate:      rate,
				EstimatedTax: sales.Mul(rate),
			})
		}

		if c.option == VDAEstimate {
			params, err := cfg.ResolveVDA()
			if err != nil {
				diag.AddWarning(fmt.Sprintf("Invalid VDA parameters for %s (%s). VDA and full liability columns set to zero.",
					state, err))
			} else {
				applyVDA(rows, params, lastMonth)
			}
		}

		result.Rows = append(result.Rows, rows...)
		statesWithExposure++
	}

	diag.SetCounter(diagnostics.CounterStatesWithExposure, statesWithExposure)
	c.log.Infow("Exposure calculation complete",
		"states_with_exposure", statesWithExposure,
		"last_month", lastMonth.String(),
		"rows", len(result.Rows),
	)
	return result, nil
}

// applyVDA fills the full-liability and VDA columns in place.
func applyVDA(rows []Row, params config.VDAParams, lastMonth types.Month) {
	windowStart := lastMonth.Add(-(params.LookbackCap - 1))

	for i := range rows {
		r := &rows[i]
		monthsLate := lastMonth.Sub(r.Month)

		r.FullInterest = interest(r.EstimatedTax, params.InterestRate, monthsLate)
		r.FullPenalty = r.EstimatedTax.Mul(params.PenaltyRate)
		r.FullLiability = r.EstimatedTax.Add(r.FullInterest).Add(r.FullPenalty)

		if r.Month >= windowStart {
			r.VDATax = r.EstimatedTax
			r.VDAInterest = interest(r.VDATax, params.InterestRate, monthsLate)
			if !params.PenaltyWaived {
				r.VDAPenalty = r.VDATax.Mul(params.PenaltyRate)
			}
		}
		r.VDALiability = r.VDATax.Add(r.VDAInterest).Add(r.VDAPenalty)
		r.EstimatedVDASavings = r.FullLiability.Sub(r.VDALiability)
	}
}

// interest is simple monthly interest, clamped at zero.
func interest(tax, annualRate decimal.Decimal, monthsLate int) decimal.Decimal {
	if monthsLate <= 0 || !tax.IsPositive() || !annualRate.IsPositive() {
		return decimal.Zero
	}
	return tax.Mul(annualRate).Mul(decimal.NewFromInt(int64(monthsLate))).Div(monthsPerYear)
}

type stateMonth struct {
	state string
	month types.Month
}

// taxableSales sums non-exempt amounts per (state, month).
func taxableSales(txns []types.Transaction) (map[stateMonth]decimal.Decimal, error) {
	out := make(map[stateMonth]decimal.Decimal)
	for i, txn := range txns {
		if txn.Exempt {
			continue
		}
		if txn.Date.IsZero() || txn.State == "" {
			return nil, errors.NewInputContractError(
				"transaction %d (invoice %q): date and state are required", i, txn.InvoiceNumber)
		}
		key := stateMonth{state: txn.State, month: txn.Month()}
		out[key] = out[key].Add(txn.Amount)
	}
	return out, nil
}
