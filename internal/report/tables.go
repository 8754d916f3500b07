// Package report renders analysis results as tables, CSV exports and an
// Excel workbook.
//
// Every renderer goes through Table so the CSV files and the workbook
// sheets share the same column names and cell formatting: months as
// YYYY-MM, money with two decimals, rates as exact decimals and empty
// cells for values that do not exist.
package report

import (
	"strconv"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/exposure"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/nexus"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
)

// EmptySectionNote fills a sheet that has no rows.
const EmptySectionNote = "No data available for this section."

// Table is a header row plus formatted data rows.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// NexusColumns are the nexus export columns.
var NexusColumns = []string{
	"state",
	"month",
	"rule",
	"period_sales",
	"period_transactions",
	"sales_threshold",
	"transaction_threshold",
	"sales_threshold_met",
	"transaction_threshold_met",
	"nexus_triggered",
	"first_trigger_month",
}

// ExposureColumns are the exposure export columns.
var ExposureColumns = []string{
	"state",
	"month",
	"taxable_sales",
	"tax_rate",
	"estimated_tax",
	"full_interest",
	"full_penalty",
	"full_liability",
	"vda_tax",
	"vda_interest",
	"vda_penalty",
	"vda_liability",
	"estimated_vda_savings",
}

// NexusTable renders every nexus row.
func NexusTable(nx *nexus.Result) Table {
	t := Table{Headers: NexusColumns}
	if nx == nil {
		return t
	}
	for _, r := range nx.Rows {
		// No basis means the rule had no prior year to look at.
		sales, txns := "", ""
		if r.HasBasis {
			sales = Money(r.SalesBasis)
			txns = strconv.Itoa(r.TxnBasis)
		}
		t.Rows = append(t.Rows, []string{
			r.State,
			r.Month.String(),
			string(r.Rule),
			sales,
			txns,
			optionalMoney(r.SalesThreshold),
			optionalInt(r.TxnThreshold),
			strconv.FormatBool(r.SalesMet),
			strconv.FormatBool(r.TxnMet),
			strconv.FormatBool(r.Triggered),
			optionalMonth(r.FirstTriggerMonth),
		})
	}
	return t
}

// TriggersTable renders one row per analyzed state.
func TriggersTable(nx *nexus.Result) Table {
	return triggersTable(nx, false)
}

// TriggeredStatesTable is TriggersTable limited to states with a first
// trigger month.
func TriggeredStatesTable(nx *nexus.Result) Table {
	return triggersTable(nx, true)
}

func triggersTable(nx *nexus.Result, triggeredOnly bool) Table {
	t := Table{Headers: []string{"state", "rule", "months_evaluated", "first_trigger_month", "peak_sales", "peak_transactions"}}
	for _, s := range nx.StateSummaries() {
		if triggeredOnly && s.FirstTriggerMonth == nil {
			continue
		}
		t.Rows = append(t.Rows, []string{
			s.State,
			string(s.Rule),
			strconv.Itoa(s.Months),
			optionalMonth(s.FirstTriggerMonth),
			Money(s.PeakSalesBasis),
			strconv.Itoa(s.PeakTxnBasis),
		})
	}
	return t
}

// ExposureTable renders every exposure row.
func ExposureTable(ex *exposure.Result) Table {
	t := Table{Headers: ExposureColumns}
	if ex == nil {
		return t
	}
	for _, r := range ex.Rows {
		t.Rows = append(t.Rows, []string{
			r.State,
			r.Month.String(),
			Money(r.TaxableSales),
			Rate(r.TaxRate),
			Money(r.EstimatedTax),
			Money(r.FullInterest),
			Money(r.FullPenalty),
			Money(r.FullLiability),
			Money(r.VDATax),
			Money(r.VDAInterest),
			Money(r.VDAPenalty),
			Money(r.VDALiability),
			Money(r.EstimatedVDASavings),
		})
	}
	return t
}

// TotalsTable renders per-state exposure totals followed by a TOTAL row.
// It is empty when there is no exposure.
func TotalsTable(ex *exposure.Result) Table {
	t := Table{Headers: []string{
		"state", "months", "taxable_sales", "estimated_tax",
		"full_liability", "vda_liability", "estimated_vda_savings",
	}}
	totals := ex.Totals()
	if len(totals) == 0 {
		return t
	}
	for _, s := range append(totals, ex.GrandTotal()) {
		t.Rows = append(t.Rows, []string{
			s.State,
			strconv.Itoa(s.Months),
			Money(s.TaxableSales),
			Money(s.EstimatedTax),
			Money(s.FullLiability),
			Money(s.VDALiability),
			Money(s.EstimatedVDASavings),
		})
	}
	return t
}

// WarningsTable renders the warning list in collection order.
func WarningsTable(warnings []string) Table {
	t := Table{Headers: []string{"#", "warning"}}
	for i, w := range warnings {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), w})
	}
	return t
}

// RejectedTable renders rejected rows. The raw amount and state are shown
// since they are what usually needs fixing in the source.
func RejectedTable(rows []diagnostics.RejectedRow) Table {
	t := Table{Headers: []string{"source_file", "source_row", "invoice_number", "state", "total_amount", "rejection_reason"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.SourceFile,
			strconv.Itoa(r.SourceRow),
			r.Fields["invoice_number"],
			r.Fields["state"],
			r.Fields["total_amount"],
			r.Reason,
		})
	}
	return t
}

// =============================================================================
// CELL FORMATTING
// =============================================================================

// Money formats a currency amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Rate formats a rate without rounding.
func Rate(d decimal.Decimal) string {
	return d.String()
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return Money(*d)
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func optionalMonth(m *types.Month) string {
	if m == nil {
		return ""
	}
	return m.String()
}
