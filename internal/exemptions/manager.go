// Package exemptions tags transactions that are exempt from sales tax.
package exemptions

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/csvparser"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"go.uber.org/zap"
)

const (
	customerIDColumn   = "customer_id"
	customerNameColumn = "customer_name"
	invoiceColumn      = "invoice_number"
)

// Manager applies exemption rules.
type Manager struct {
	customerCSV string
	invoiceCSV  string
	codes       map[string]struct{}
	settings    config.CSVSettings
	log         *zap.SugaredLogger
}

// NewManager builds a Manager from the main configuration. Empty list
// paths disable that source.
func NewManager(cfg *config.MainConfig) *Manager {
	codes := make(map[string]struct{}, len(cfg.ExemptTaxabilityCodes))
	for _, c := range cfg.ExemptTaxabilityCodes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes[c] = struct{}{}
		}
	}

	settings := config.DefaultCSVSettings()
	settings.LowercaseHeaders = true

	return &Manager{
		customerCSV: cfg.ExemptCustomerCSV,
		invoiceCSV:  cfg.ExemptInvoiceCSV,
		codes:       codes,
		settings:    settings,
		log:         logger.ComponentLogger("exemptions"),
	}
}

// Apply returns a copy of txns with the exempt flag set when any of the
// following holds:
//
//   - the source row was already flagged exempt
//   - its taxability code is in the configured exempt set
//   - its customer appears in the customer list
//   - its invoice number appears in the invoice list
//
// Customers are matched on customer_id when any transaction carries one,
// otherwise on customer_name. Sets rows_exempt.
func (m *Manager) Apply(txns []types.Transaction, diag *diagnostics.Collector) []types.Transaction {
	out := make([]types.Transaction, len(txns))
	copy(out, txns)
	if len(out) == 0 {
		m.log.Warn("No transactions to tag. Skipping exemption application.")
		diag.SetCounter(diagnostics.CounterRowsExempt, 0)
		return out
	}

	matchColumn := customerNameColumn
	for _, tx := range out {
		if tx.CustomerID != "" {
			matchColumn = customerIDColumn
			break
		}
	}

	customers := m.loadList(m.customerCSV, matchColumn, diag)
	invoices := m.loadList(m.invoiceCSV, invoiceColumn, diag)

	var fromSource, byCode, byCustomer, byInvoice, total int
	for i := range out {
		tx := &out[i]
		if tx.Exempt {
			fromSource++
		}
		if _, ok := m.codes[strings.ToUpper(strings.TrimSpace(tx.TaxabilityCode))]; ok {
			tx.Exempt = true
			byCode++
		}

		customer := tx.CustomerName
		if matchColumn == customerIDColumn {
			customer = tx.CustomerID
		}
		if _, ok := customers[strings.TrimSpace(customer)]; ok {
			tx.Exempt = true
			byCustomer++
		}
		if _, ok := invoices[tx.InvoiceNumber]; ok {
			tx.Exempt = true
			byInvoice++
		}

		if tx.Exempt {
			total++
		}
	}

	diag.SetCounter(diagnostics.CounterRowsExempt, total)
	m.log.Infow("Exemption application complete",
		"source_flag", fromSource,
		"taxability_code", byCode,
		"customer_list", byCustomer,
		"customer_match_column", matchColumn,
		"invoice_list", byInvoice,
		"total_exempt", total,
		"newly_marked", total-fromSource,
	)
	return out
}

// loadList reads the non-empty trimmed values of column from a CSV list.
// Problems are warnings and yield an empty set.
func (m *Manager) loadList(path, column string, diag *diagnostics.Collector) map[string]struct{} {
	set := make(map[string]struct{})
	if path == "" {
		return set
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			diag.AddWarning(fmt.Sprintf("Exemption file not found: %s. Skipping this exemption source.", path))
		} else {
			diag.AddWarning(fmt.Sprintf("Error loading or processing exemption file %s: %v", path, err))
		}
		return set
	}

	data, err := csvparser.Parse(path, m.settings)
	if err != nil {
		diag.AddWarning(fmt.Sprintf("Error loading or processing exemption file %s: %v", path, err))
		return set
	}
	if !csvparser.HasColumn(data, column) {
		diag.AddWarning(fmt.Sprintf("Exemption file %s missing required column '%s'. Cannot apply these exemptions.", path, column))
		return set
	}

	for _, v := range csvparser.GetColumnByHeader(data, column) {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	m.log.Infow("Loaded exemption list", "file", path, "column", column, "entries", len(set))
	return set
}
