// Package standardize turns raw extract records into typed transactions.
//
// Problems are aggregated into a handful of warnings per run rather than
// one warning per row: unparseable dates per column, the set of invalid
// state codes, the number of duplicate invoice numbers and the number of
// rows dropped for missing critical values. Amounts that fail to parse are
// also recorded as rejected rows.
package standardize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"go.uber.org/zap"
)

// RejectReasonAmount is recorded for rows whose total_amount is not numeric.
const RejectReasonAmount = "Invalid numeric format in 'total_amount'"

// Standardizer cleans records into transactions.
type Standardizer struct {
	log *zap.SugaredLogger
}

// NewStandardizer returns a Standardizer.
func NewStandardizer() *Standardizer {
	return &Standardizer{log: logger.ComponentLogger("standardize")}
}

// Standardize converts records to transactions. Rows missing a date,
// amount, state or invoice number are dropped. Sets rows_processed.
func (s *Standardizer) Standardize(records []types.Record, diag *diagnostics.Collector) []types.Transaction {
	if len(records) == 0 {
		s.log.Warn("No records to standardize")
		diag.SetCounter(diagnostics.CounterRowsProcessed, 0)
		return []types.Transaction{}
	}

	badDates := map[string]int{"date": 0, "invoice_date": 0}
	invalidStates := make(map[string]struct{})
	invoiceCounts := make(map[string]int)
	txns := make([]types.Transaction, 0, len(records))
	badAmounts, dropped := 0, 0

	for _, rec := range records {
		date, hasDate, err := ParseDate(rec.Get("date"))
		if err != nil {
			badDates["date"]++
		}
		invoiceDate, _, err := ParseDate(rec.Get("invoice_date"))
		if err != nil {
			badDates["invoice_date"]++
		}

		state := NormalizeState(rec.Get("state"))
		if state != "" && !ValidStateCode(state) {
			invalidStates[state] = struct{}{}
		}

		amount, hasAmount, err := ParseAmount(rec.Get("total_amount"))
		if err != nil {
			badAmounts++
			diag.AddRejectedRow(diagnostics.RejectedRow{
				SourceFile: rec.SourceFile,
				SourceRow:  rec.SourceRow,
				Fields:     copyFields(rec.Fields),
				Reason:     RejectReasonAmount,
			})
		}

		invoice := rec.Get("invoice_number")
		if invoice != "" {
			invoiceCounts[invoice]++
		}

		if !hasDate || !hasAmount || state == "" || invoice == "" {
			dropped++
			continue
		}

		txns = append(txns, types.Transaction{
			Date:           date,
			InvoiceDate:    invoiceDate,
			InvoiceNumber:  invoice,
			Amount:         amount,
			State:          state,
			Channel:        CleanText(rec.Get("channel")),
			Exempt:         ParseFlag(rec.Get("is_exempt")),
			CustomerID:     rec.Get("customer_id"),
			CustomerName:   CleanText(rec.Get("customer_name")),
			TaxabilityCode: rec.Get("taxability_code"),
			StreetAddress:  CleanText(rec.Get("street_address")),
			City:           CleanText(rec.Get("city")),
			ZipCode:        NormalizeZip(rec.Get("zip_code")),
			SourceFile:     rec.SourceFile,
			SourceRow:      rec.SourceRow,
		})
	}

	// =========================================================================
	// Aggregated warnings, in a fixed order
	// =========================================================================

	for _, col := range []string{"date", "invoice_date"} {
		if n := badDates[col]; n > 0 {
			diag.AddWarning(fmt.Sprintf("%d entries in column '%s' could not be parsed as dates.", n, col))
		}
	}
	if len(invalidStates) > 0 {
		diag.AddWarning(fmt.Sprintf("Found potentially invalid state abbreviations: [%s]. Review data.",
			strings.Join(sortedKeys(invalidStates), ", ")))
	}
	if badAmounts > 0 {
		diag.AddWarning(fmt.Sprintf("%d entries in 'total_amount' could not be converted to numeric.", badAmounts))
	}

	duplicates := 0
	for _, n := range invoiceCounts {
		if n > 1 {
			duplicates++
		}
	}
	if duplicates > 0 {
		diag.AddWarning(fmt.Sprintf("Found %d potentially duplicate invoice numbers (non-unique values exist). "+
			"Review source data if uniqueness is expected.", duplicates))
	}
	if dropped > 0 {
		diag.AddWarning(fmt.Sprintf("Dropped %d rows due to missing critical values "+
			"(date, amount, non-empty state, invoice#) after standardization.", dropped))
	}

	diag.SetCounter(diagnostics.CounterRowsProcessed, len(txns))
	s.log.Infow("Standardization complete",
		"rows_in", len(records),
		"rows_out", len(txns),
		"dropped", dropped,
	)
	return txns
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
