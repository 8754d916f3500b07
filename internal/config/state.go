package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// STATE CONFIGURATION STRUCTURE
// =============================================================================

// VDA defaults applied when a state omits the parameter.
const (
	DefaultVDALookbackCap = 36
	DefaultRollingWindow  = 12
)

var (
	DefaultVDAInterestRate     = decimal.RequireFromString("0.05")
	DefaultStandardPenaltyRate = decimal.RequireFromString("0.25")
)

// StateConfig holds the nexus and exposure rules for one state.
//
// Every optional numeric is a pointer: nil means the key was absent or null
// in the file. Values present but not numeric are recorded in Invalid so
// the analysis can warn about them instead of silently applying defaults.
type StateConfig struct {
	// LookbackRule is one of rolling_12m, calendar_prev_curr,
	// calendar_prev, none. Empty means rolling_12m.
	LookbackRule string

	// SalesThreshold is the dollar threshold; nil never triggers.
	SalesThreshold *decimal.Decimal

	// TransactionThreshold is the invoice-count threshold; nil never triggers.
	TransactionThreshold *int

	// MarketplaceThresholdInclusion keeps marketplace-channel sales in the
	// threshold basis. When false they are filtered out for this state only.
	MarketplaceThresholdInclusion bool

	// TaxRate is required for exposure; missing or negative skips the state.
	TaxRate *decimal.Decimal

	// VDA parameters (defaults 36 months, 5%, 25%, waived).
	VDALookbackCap      *int
	VDAInterestRate     *decimal.Decimal
	StandardPenaltyRate *decimal.Decimal
	VDAPenaltyWaived    *bool

	// RollingWindow overrides the tuning rolling window for this state.
	RollingWindow *int

	// Invalid maps a field name to the raw value that failed to parse.
	Invalid map[string]string
}

// stateConfigFile mirrors the YAML keys. Numeric fields decode into any so
// that a typo such as tax_rate: "n/a" is reported rather than failing the
// whole file.
type stateConfigFile struct {
	LookbackRule                  string `yaml:"lookback_rule"`
	SalesThreshold                any    `yaml:"sales_threshold"`
	TransactionThreshold          any    `yaml:"transaction_threshold"`
	MarketplaceThresholdInclusion bool   `yaml:"marketplace_threshold_inclusion"`
	TaxRate                       any    `yaml:"tax_rate"`
	VDALookbackCap                any    `yaml:"vda_lookback_cap"`
	VDAInterestRate               any    `yaml:"vda_interest_rate"`
	StandardPenaltyRate           any    `yaml:"standard_penalty_rate"`
	VDAPenaltyWaived              *bool  `yaml:"vda_penalty_waived"`
	RollingWindow                 any    `yaml:"rolling_window"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StateConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw stateConfigFile
	if err := node.Decode(&raw); err != nil {
		return err
	}

	out := StateConfig{
		LookbackRule:                  raw.LookbackRule,
		MarketplaceThresholdInclusion: raw.MarketplaceThresholdInclusion,
		VDAPenaltyWaived:              raw.VDAPenaltyWaived,
	}
	out.SalesThreshold = out.decimalField("sales_threshold", raw.SalesThreshold)
	out.TransactionThreshold = out.intField("transaction_threshold", raw.TransactionThreshold)
	out.TaxRate = out.decimalField("tax_rate", raw.TaxRate)
	out.VDALookbackCap = out.intField("vda_lookback_cap", raw.VDALookbackCap)
	out.VDAInterestRate = out.decimalField("vda_interest_rate", raw.VDAInterestRate)
	out.StandardPenaltyRate = out.decimalField("standard_penalty_rate", raw.StandardPenaltyRate)
	out.RollingWindow = out.intField("rolling_window", raw.RollingWindow)

	*s = out
	return nil
}

func (s *StateConfig) markInvalid(field string, value any) {
	if s.Invalid == nil {
		s.Invalid = make(map[string]string)
	}
	s.Invalid[field] = fmt.Sprint(value)
}

func (s *StateConfig) decimalField(field string, value any) *decimal.Decimal {
	var d decimal.Decimal
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case uint64:
		d = decimal.NewFromUint64(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.markInvalid(field, value)
			return nil
		}
		d = decimal.NewFromFloat(v)
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			s.markInvalid(field, value)
			return nil
		}
		d = parsed
	default:
		s.markInvalid(field, value)
		return nil
	}
	return &d
}

func (s *StateConfig) intField(field string, value any) *int {
	var n int
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		n = v
	case int64:
		n = int(v)
	case uint64:
		n = int(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			s.markInvalid(field, value)
			return nil
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			s.markInvalid(field, value)
			return nil
		}
		n = parsed
	default:
		s.markInvalid(field, value)
		return nil
	}
	return &n
}

// =============================================================================
// RULE ACCESSORS
// =============================================================================

// Rule returns the normalized lookback rule.
func (s StateConfig) Rule() types.LookbackRule {
	return types.NormalizeRule(s.LookbackRule)
}

// HasThreshold reports whether at least one threshold can trigger.
func (s StateConfig) HasThreshold() bool {
	return s.SalesThreshold != nil || s.TransactionThreshold != nil
}

// ValidTaxRate returns the tax rate when it is present, numeric and
// non-negative.
func (s StateConfig) ValidTaxRate() (decimal.Decimal, bool) {
	if _, bad := s.Invalid["tax_rate"]; bad {
		return decimal.Zero, false
	}
	if s.TaxRate == nil || s.TaxRate.IsNegative() {
		return decimal.Zero, false
	}
	return *s.TaxRate, true
}

// Window returns the rolling window for this state, falling back to the
// tuning value.
func (s StateConfig) Window(tuningWindow int) int {
	if s.RollingWindow != nil {
		return *s.RollingWindow
	}
	return tuningWindow
}

// VDAParams are the resolved VDA settings for one state.
type VDAParams struct {
	LookbackCap   int
	InterestRate  decimal.Decimal
	PenaltyRate   decimal.Decimal
	PenaltyWaived bool
}

// ResolveVDA applies defaults to the state's VDA parameters and checks them.
// A negative lookback cap, a negative rate or an unparseable value is an
// error; the caller zero-fills that state's VDA columns. A cap of zero is
// valid and leaves the VDA window empty.
func (s StateConfig) ResolveVDA() (VDAParams, error) {
	for _, field := range []string{"vda_lookback_cap", "vda_interest_rate", "standard_penalty_rate"} {
		if raw, bad := s.Invalid[field]; bad {
			return VDAParams{}, errors.NewInvalidConfigError("%s is not numeric: %q", field, raw)
		}
	}

	params := VDAParams{
		LookbackCap:   DefaultVDALookbackCap,
		InterestRate:  DefaultVDAInterestRate,
		PenaltyRate:   DefaultStandardPenaltyRate,
		PenaltyWaived: true,
	}
	if s.VDALookbackCap != nil {
		params.LookbackCap = *s.VDALookbackCap
	}
	if s.VDAInterestRate != nil {
		params.InterestRate = *s.VDAInterestRate
	}
	if s.StandardPenaltyRate != nil {
		params.PenaltyRate = *s.StandardPenaltyRate
	}
	if s.VDAPenaltyWaived != nil {
		params.PenaltyWaived = *s.VDAPenaltyWaived
	}

	switch {
	case params.LookbackCap < 0:
		return VDAParams{}, errors.NewInvalidConfigError("vda_lookback_cap must not be negative, got %d", params.LookbackCap)
	case params.InterestRate.IsNegative():
		return VDAParams{}, errors.NewInvalidConfigError("vda_interest_rate must not be negative, got %s", params.InterestRate)
	case params.PenaltyRate.IsNegative():
		return VDAParams{}, errors.NewInvalidConfigError("standard_penalty_rate must not be negative, got %s", params.PenaltyRate)
	}
	return params, nil
}

// =============================================================================
// LOADING
// =============================================================================

// LoadStateConfigs loads the per-state rule file.
//
// PARAMETERS:
//   - path: YAML file mapping two-letter state codes to StateConfig objects.
//
// RETURNS:
//   - The configurations keyed by upper-cased, trimmed state code.
//   - An error if the file cannot be read, is not a mapping, or repeats a
//     state code after normalization.
func LoadStateConfigs(path string) (map[string]StateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "state config %s", path)
		}
		return nil, errors.Wrap(err, "failed to read state config")
	}
	return ParseStateConfigs(data)
}

// ParseStateConfigs parses state configuration YAML.
func ParseStateConfigs(data []byte) (map[string]StateConfig, error) {
	var raw map[string]StateConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, fmt.Sprintf("failed to parse state config: %v", err))
	}

	configs := make(map[string]StateConfig, len(raw))
	for code, cfg := range raw {
		key := strings.ToUpper(strings.TrimSpace(code))
		if _, dup := configs[key]; dup {
			return nil, errors.NewInvalidConfigError("state %s is configured more than once", key)
		}
		configs[key] = cfg
	}
	return configs, nil
}

// SortedStateCodes returns the configured codes in alphabetical order.
func SortedStateCodes(configs map[string]StateConfig) []string {
	codes := make([]string, 0, len(configs))
	for code := range configs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
