// =============================================================================
// SALT Nexus Analyzer - Field Cleaners
// =============================================================================
//
// Value-level conversions applied to raw extract cells:
//
//   ParseDate       "01/15/2024", "2024-01-15 10:30:00", "15-Jan-2024", ...
//   ParseAmount     "$1,250.50", "(12.00)", " -3 "
//   NormalizeState  " ca " -> "CA"
//   NormalizeZip    "94105-1234" -> "94105"; anything without five leading
//                   digits becomes ""
//   CleanText       collapses internal whitespace
//   ParseFlag       true/false, yes/no, y/n, 1/0, x
//
// All functions are pure and safe for concurrent use.
//
// =============================================================================

package standardize

import (
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/shopspring/decimal"
)

// DateLayouts are tried in order. Month-first layouts come before
// day-first because US extracts are the common case.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/06",
	"1/2/06",
	"2006/01/02",
	"01-02-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	zip5Pattern       = regexp.MustCompile(`^(\d{5})`)
	stateCodePattern  = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ParseDate parses a date cell using DateLayouts. Empty input returns the
// zero time and ok=false without being a parse failure.
func ParseDate(value string) (t time.Time, ok bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range DateLayouts {
		if parsed, perr := time.Parse(layout, value); perr == nil {
			return parsed, true, nil
		}
	}
	return time.Time{}, false, errors.Newf("unrecognized date %q", value)
}

// ParseAmount parses a currency cell. Currency symbols, thousands
// separators and whitespace are stripped; "(x)" is read as -x. Empty input
// returns ok=false without an error.
func ParseAmount(value string) (amount decimal.Decimal, ok bool, err error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return decimal.Zero, false, nil
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "", "\t", "").Replace(cleaned)

	d, perr := decimal.NewFromString(cleaned)
	if perr != nil {
		return decimal.Zero, false, errors.Newf("invalid amount %q", value)
	}
	if negative {
		d = d.Neg()
	}
	return d, true, nil
}

// NormalizeState trims and upper-cases a state cell.
func NormalizeState(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// ValidStateCode reports whether a normalized state is two letters.
func ValidStateCode(state string) bool {
	return stateCodePattern.MatchString(state)
}

// NormalizeZip keeps the leading five digits of a ZIP or ZIP+4 code.
func NormalizeZip(value string) string {
	m := zip5Pattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return ""
	}
	return m[1]
}

// CleanText trims and collapses runs of whitespace to one space.
func CleanText(value string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))
}

// ParseFlag reads a boolean cell. Unrecognized values are false.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "yes", "y", "1", "x":
		return true
	}
	return false
}
