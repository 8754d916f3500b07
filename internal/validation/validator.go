// =============================================================================
// SALT Nexus Analyzer - Configuration Validation Engine
// =============================================================================
//
// This module validates the per-state rule file before a run. It checks every
// state entry against the rules the analysis relies on:
//   - State code format (two letters)
//   - Known lookback rule
//   - At least one threshold, and non-negative threshold values
//   - Tax rate present, numeric and non-negative
//   - VDA parameters numeric and in range
//
// VALIDATION STRATEGY:
//   Nothing here stops a run. The analyzer and calculator skip a state whose
//   entry is unusable; this module explains, up front, which states will be
//   skipped and why. Severity "error" marks an entry the analysis cannot use
//   at all; "warning" marks an entry that is usable for nexus but not for
//   exposure (or vice versa).
//
// =============================================================================

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity indicates the severity of the finding.
	// "error" = the state cannot be analyzed
	// "warning" = part of the analysis will be skipped for the state
	Severity string

	// State is the two-letter state code.
	State string

	// Field is the configuration key that failed validation.
	Field string

	// Value is the configured value, as text.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("[%s] State %s, Field '%s': %s",
			strings.ToUpper(e.Severity), e.State, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] State %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity), e.State, e.Field, e.Message, e.Value)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no errors.
	IsValid bool

	// Errors contains all findings (including warnings), ordered by state.
	Errors []*ValidationError

	// ErrorCount is the number of errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// StatesValidated is the number of state entries checked.
	StatesValidated int
}

// =============================================================================
// VALIDATOR
// =============================================================================

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ValidateStates validates every state entry, in alphabetical order.
func ValidateStates(configs map[string]config.StateConfig) *ValidationResult {
	result := &ValidationResult{
		IsValid:         true,
		Errors:          make([]*ValidationError, 0),
		StatesValidated: len(configs),
	}

	for _, code := range config.SortedStateCodes(configs) {
		for _, finding := range ValidateState(code, configs[code]) {
			result.Errors = append(result.Errors, finding)
			if finding.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false
			} else {
				result.WarningCount++
			}
		}
	}

	return result
}

// ValidateState validates a single state entry.
func ValidateState(code string, cfg config.StateConfig) []*ValidationError {
	var findings []*ValidationError
	add := func(severity, field, value, rule, message string) {
		findings = append(findings, &ValidationError{
			Severity: severity,
			State:    code,
			Field:    field,
			Value:    value,
			Rule:     rule,
			Message:  message,
		})
	}

	// =========================================================================
	// STATE CODE
	// =========================================================================

	if !stateCodePattern.MatchString(code) {
		add(SeverityError, "state", code, "state_code", "State code must be two letters")
	}

	// =========================================================================
	// LOOKBACK RULE
	// =========================================================================
	// A state with rule "none" is valid and needs nothing else.

	rule := cfg.Rule()
	if rule == types.RuleNone {
		return findings
	}
	if !rule.Known() {
		add(SeverityError, "lookback_rule", cfg.LookbackRule, "known_rule",
			"Unsupported lookback rule; the state's basis will be treated as zero")
	}

	// =========================================================================
	// THRESHOLDS
	// =========================================================================

	for _, field := range []string{"sales_threshold", "transaction_threshold"} {
		if raw, bad := cfg.Invalid[field]; bad {
			add(SeverityError, field, raw, "numeric", "Value is not numeric")
		}
	}
	if !cfg.HasThreshold() {
		add(SeverityError, "sales_threshold", "", "threshold_required",
			"Neither a sales nor a transaction threshold is configured; the state will be skipped")
	}
	if cfg.SalesThreshold != nil && cfg.SalesThreshold.IsNegative() {
		add(SeverityWarning, "sales_threshold", cfg.SalesThreshold.String(), "non_negative",
			"Negative threshold is met by every month")
	}
	if cfg.TransactionThreshold != nil && *cfg.TransactionThreshold < 0 {
		add(SeverityWarning, "transaction_threshold", fmt.Sprint(*cfg.TransactionThreshold), "non_negative",
			"Negative threshold is met by every month")
	}
	if raw, bad := cfg.Invalid["rolling_window"]; bad {
		add(SeverityError, "rolling_window", raw, "numeric", "Value is not numeric")
	} else if cfg.RollingWindow != nil && *cfg.RollingWindow < 1 {
		add(SeverityError, "rolling_window", fmt.Sprint(*cfg.RollingWindow), "positive",
			"Rolling window must be at least one month")
	}

	// =========================================================================
	// TAX RATE
	// =========================================================================

	if _, ok := cfg.ValidTaxRate(); !ok {
		value := cfg.Invalid["tax_rate"]
		if value == "" && cfg.TaxRate != nil {
			value = cfg.TaxRate.String()
		}
		add(SeverityWarning, "tax_rate", value, "tax_rate",
			"Missing or invalid tax rate; exposure will not be calculated for this state")
	}

	// =========================================================================
	// VDA PARAMETERS
	// =========================================================================

	if _, err := cfg.ResolveVDA(); err != nil {
		add(SeverityWarning, "vda", "", "vda_params",
			fmt.Sprintf("Invalid VDA parameters (%v); VDA columns will be zero-filled", err))
	}

	return findings
}
