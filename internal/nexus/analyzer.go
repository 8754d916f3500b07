// =============================================================================
// SALT Nexus Analyzer - Nexus Analyzer
// =============================================================================
//
// The analyzer decides, per state and per month, whether the seller has
// crossed the state's economic nexus threshold.
//
// STATE MACHINE (per state):
//   PRE-TRIGGER --(sales_met OR txn_met)--> TRIGGERED
//   The transition happens at the first month, in chronological order, where
//   either basis meets its threshold. TRIGGERED is terminal for the run and
//   the transition month is the state's first trigger month.
//
// ANALYSIS PERIOD:
//   Every evaluated state gets one row per month from the earliest to the
//   latest month present anywhere in the input, so states with a short
//   history are still reported on the same grid.
//
// SKIPPED STATES (no rows, one warning each):
//   - no configuration entry
//   - neither threshold configured
//   - lookback rule "none" (skipped quietly; nothing can trigger)
//
// CONCURRENCY:
//   Skip decisions and their warnings are made sequentially in state order.
//   The remaining states are evaluated in parallel, one goroutine per state,
//   and the rows are re-sorted afterwards, so output never depends on
//   scheduling.
//
// =============================================================================

package nexus

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/aggregate"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"go.uber.org/zap"
)

// Analyzer evaluates nexus for every state present in a transaction batch.
type Analyzer struct {
	states map[string]config.StateConfig
	tuning config.Tuning
	log    *zap.SugaredLogger
}

// NewAnalyzer creates an analyzer over the given state rules. The tuning
// supplies the marketplace channel set and the default rolling window.
func NewAnalyzer(states map[string]config.StateConfig, tuning config.Tuning) *Analyzer {
	return &Analyzer{
		states: states,
		tuning: tuning,
		log:    logger.ComponentLogger("nexus"),
	}
}

// statePlan is a state that passed the skip checks, with its resolved rule
// and window.
type statePlan struct {
	state  string
	cfg    config.StateConfig
	rule   types.LookbackRule
	window int
}

// stateResult is what one state's goroutine sends back.
type stateResult struct {
	state string
	rows  []Row
	err   error
}

// Analyze runs the nexus state machine over txns.
//
// RETURNS:
//   - The nexus rows ordered by state, then month. Empty input yields an
//     empty result.
//   - An error wrapping errors.ErrInputContract when a transaction has no
//     date or state, or the context error when ctx is cancelled.
func (a *Analyzer) Analyze(ctx context.Context, txns []types.Transaction, diag *diagnostics.Collector) (*Result, error) {
	result := &Result{Rows: make([]Row, 0)}

	if len(txns) == 0 {
		a.log.Info("No transactions to analyze; nexus result is empty")
		diag.SetCounter(diagnostics.CounterStatesAnalyzed, 0)
		diag.SetCounter(diagnostics.CounterNexusTriggers, 0)
		return result, nil
	}

	// =========================================================================
	// STEP 1: Check the input contract and find the analysis period
	// =========================================================================

	byState := make(map[string][]types.Transaction)
	first, last := txns[0].Month(), txns[0].Month()
	for i, txn := range txns {
		if txn.Date.IsZero() {
			return nil, errors.NewInputContractError(
				"transaction %d (invoice %q): date is required", i, txn.InvoiceNumber)
		}
		if txn.State == "" {
			return nil, errors.NewInputContractError(
				"transaction %d (invoice %q): state is required", i, txn.InvoiceNumber)
		}
		m := txn.Month()
		if m < first {
			first = m
		}
		if m > last {
			last = m
		}
		byState[txn.State] = append(byState[txn.State], txn)
	}

	a.log.Infow("Analysis period",
		"first_month", first.String(),
		"last_month", last.String(),
		"states_in_data", len(byState),
	)

	// =========================================================================
	// STEP 2: Decide which states to evaluate (sequential, sorted)
	// =========================================================================

	plans := a.plan(byState, diag)

	// =========================================================================
	// STEP 3: Evaluate states concurrently
	// =========================================================================

	var wg sync.WaitGroup
	results := make(chan stateResult, len(plans))

	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			break
		}
		wg.Add(1)
		go func(p statePlan) {
			defer wg.Done()
			rows, err := a.evaluateState(p, byState[p.state], first, last)
			results <- stateResult{state: p.state, rows: rows, err: err}
		}(p)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]stateResult, 0, len(plans))
	for r := range results {
		collected = append(collected, r)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "nexus analysis cancelled")
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].state < collected[j].state
	})

	// =========================================================================
	// STEP 4: Assemble the result
	// =========================================================================

	triggered := 0
	for _, r := range collected {
		if r.err != nil {
			return nil, errors.Wrapf(r.err, "state %s", r.state)
		}
		result.Rows = append(result.Rows, r.rows...)
		if len(r.rows) > 0 && r.rows[0].FirstTriggerMonth != nil {
			triggered++
			a.log.Infow("Nexus triggered",
				"state", r.state,
				"first_trigger_month", r.rows[0].FirstTriggerMonth.String(),
			)
		}
	}

	diag.SetCounter(diagnostics.CounterStatesAnalyzed, len(collected))
	diag.SetCounter(diagnostics.CounterNexusTriggers, triggered)

	a.log.Infow("Nexus analysis complete",
		"states_analyzed", len(collected),
		"states_triggered", triggered,
		"rows", len(result.Rows),
	)
	return result, nil
}

// plan applies the skip rules in sorted state order and returns the states
// left to evaluate. All warnings for this stage are raised here.
func (a *Analyzer) plan(byState map[string][]types.Transaction, diag *diagnostics.Collector) []statePlan {
	codes := make([]string, 0, len(byState))
	for code := range byState {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	plans := make([]statePlan, 0, len(codes))
	for _, code := range codes {
		cfg, ok := a.states[code]
		if !ok {
			diag.AddWarning(fmt.Sprintf("No configuration found for state '%s'. Skipping nexus analysis.", code))
			continue
		}

		rule := cfg.Rule()
		if rule == types.RuleNone {
			a.log.Debugw("Lookback rule is none; state skipped", "state", code)
			continue
		}

		for _, field := range []string{"sales_threshold", "transaction_threshold"} {
			if raw, bad := cfg.Invalid[field]; bad {
				diag.AddWarning(fmt.Sprintf("Invalid %s for %s: '%s'. Treating it as not configured.", field, code, raw))
			}
		}
		if !cfg.HasThreshold() {
			diag.AddWarning(fmt.Sprintf("No valid sales or transaction threshold for %s. Skipping nexus analysis.", code))
			continue
		}

		if !rule.Known() {
			diag.AddWarning(fmt.Sprintf("Unsupported lookback rule '%s' for %s. Threshold bases treated as zero.",
				strings.TrimSpace(cfg.LookbackRule), code))
		}

		window := cfg.Window(a.tuning.RollingWindow)
		if raw, bad := cfg.Invalid["rolling_window"]; bad || window < 1 {
			if !bad {
				raw = fmt.Sprint(window)
			}
			diag.AddWarning(fmt.Sprintf("Invalid rolling_window for %s: '%s'. Using %d months.",
				code, raw, a.tuning.RollingWindow))
			window = a.tuning.RollingWindow
		}

		plans = append(plans, statePlan{state: code, cfg: cfg, rule: rule, window: window})
	}
	return plans
}

// evaluateState walks one state's months in order and applies the state
// machine. It touches no shared state.
func (a *Analyzer) evaluateState(p statePlan, txns []types.Transaction, first, last types.Month) ([]Row, error) {
	if !p.cfg.MarketplaceThresholdInclusion {
		filtered := make([]types.Transaction, 0, len(txns))
		for _, txn := range txns {
			if !a.tuning.IsMarketplace(txn.Channel) {
				filtered = append(filtered, txn)
			}
		}
		txns = filtered
	}

	summary, err := aggregate.MonthlyStateSummary(txns)
	if err != nil {
		return nil, err
	}
	grid := aggregate.DensifyState(p.state, summary, first, last)
	grid, err = aggregate.AddRolling(grid, p.window)
	if err != nil {
		return nil, err
	}
	grid = aggregate.AddCalendarYearMetrics(grid)

	rows := make([]Row, 0, len(grid))
	var firstTrigger *types.Month
	triggered := false

	for _, summaryRow := range grid {
		eval := aggregate.EvaluateThresholds(summaryRow, p.rule, p.cfg.SalesThreshold, p.cfg.TransactionThreshold)

		if !triggered && eval.Met() {
			triggered = true
			m := summaryRow.Month
			firstTrigger = &m
		}

		rows = append(rows, Row{
			State:          p.state,
			Month:          summaryRow.Month,
			Rule:           p.rule,
			SalesBasis:     eval.SalesBasis,
			TxnBasis:       eval.TxnBasis,
			HasBasis:       eval.HasBasis,
			SalesThreshold: p.cfg.SalesThreshold,
			TxnThreshold:   p.cfg.TransactionThreshold,
			SalesMet:       eval.SalesMet,
			TxnMet:         eval.TxnMet,
			Triggered:      triggered,
		})
	}

	// The first trigger month is a per-state attribute, repeated on every row.
	if firstTrigger != nil {
		for i := range rows {
			m := *firstTrigger
			rows[i].FirstTriggerMonth = &m
		}
	}
	return rows, nil
}
