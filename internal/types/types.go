// =============================================================================
// SALT Nexus Analyzer - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - ingest / standardize / exemptions (producers of transactions)
//   - aggregate / nexus / exposure (the analysis core)
//   - report (consumers of the result tables)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALENDAR MONTH
// =============================================================================

// Month is a calendar month, stored as year*12 + (month-1).
// Months are totally ordered, so they can be compared with < and used as map
// keys. The zero value is January of year 0 and never appears in real data.
type Month int

// NewMonth builds a Month from a year and calendar month.
func NewMonth(year int, month time.Month) Month {
	return Month(year*12 + int(month) - 1)
}

// MonthOf truncates a timestamp to its calendar month.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// Year returns the calendar year.
func (m Month) Year() int {
	return int(m) / 12
}

// MonthOfYear returns the month within the year.
func (m Month) MonthOfYear() time.Month {
	return time.Month(int(m)%12 + 1)
}

// Add returns the month n months later (earlier for negative n).
func (m Month) Add(n int) Month {
	return m + Month(n)
}

// Sub returns the number of months from o to m.
func (m Month) Sub(o Month) int {
	return int(m - o)
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year(), m.MonthOfYear(), 1, 0, 0, 0, 0, time.UTC)
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year(), int(m.MonthOfYear()))
}

// MonthRange returns every month from first to last inclusive.
// It returns nil when last precedes first.
func MonthRange(first, last Month) []Month {
	if last < first {
		return nil
	}
	months := make([]Month, 0, last.Sub(first)+1)
	for m := first; m <= last; m++ {
		months = append(months, m)
	}
	return months
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is one standardized sales row.
//
// Amount is signed: negative values are returns or credit memos. Only the
// Exempt flag changes after standardization (the exemptions package sets it).
type Transaction struct {
	// Date is the transaction date used for month bucketing.
	Date time.Time

	// InvoiceDate is informational; analysis buckets by Date.
	InvoiceDate time.Time

	// InvoiceNumber identifies the invoice. It is not guaranteed unique:
	// multi-line invoices repeat it.
	InvoiceNumber string

	// Amount is the signed total for the row.
	Amount decimal.Decimal

	// State is the two-letter upper-case destination state.
	State string

	// Channel is the free-text sales channel (e.g. "Direct", "Amazon-FBA").
	Channel string

	// Exempt marks a row excluded from taxable sales.
	Exempt bool

	CustomerID     string
	CustomerName   string
	TaxabilityCode string
	StreetAddress  string
	City           string
	ZipCode        string

	// SourceFile and SourceRow point back to the input for error reports.
	SourceFile string
	SourceRow  int
}

// Month returns the calendar month the transaction falls in.
func (t Transaction) Month() Month {
	return MonthOf(t.Date)
}

// =============================================================================
// RAW RECORD
// =============================================================================

// Record is one raw input row before standardization.
// Fields are keyed by lower-cased column name.
type Record struct {
	Fields     map[string]string
	SourceFile string
	SourceRow  int
}

// Get returns a trimmed field value, or "" if the column is absent.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// =============================================================================
// LOOKBACK RULES
// =============================================================================

// LookbackRule names the basis a state measures its thresholds against.
type LookbackRule string

const (
	// RuleRolling12m sums the trailing N months (N defaults to 12).
	RuleRolling12m LookbackRule = "rolling_12m"

	// RuleCalendarPrevCurr takes the larger of the previous calendar year
	// total and the current year-to-date.
	RuleCalendarPrevCurr LookbackRule = "calendar_prev_curr"

	// RuleCalendarPrev uses the previous calendar year total only.
	RuleCalendarPrev LookbackRule = "calendar_prev"

	// RuleNone marks a state with no triggerable nexus.
	RuleNone LookbackRule = "none"
)

// NormalizeRule lower-cases and trims a configured rule. An empty rule
// means the default, rolling_12m.
func NormalizeRule(raw string) LookbackRule {
	rule := strings.ToLower(strings.TrimSpace(raw))
	if rule == "" {
		return RuleRolling12m
	}
	return LookbackRule(rule)
}

// Known reports whether the rule is one the analyzer can evaluate.
func (r LookbackRule) Known() bool {
	switch r {
	case RuleRolling12m, RuleCalendarPrevCurr, RuleCalendarPrev, RuleNone:
		return true
	}
	return false
}
