package validation

import (
	"testing"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) map[string]config.StateConfig {
	t.Helper()
	configs, err := config.ParseStateConfigs([]byte(doc))
	require.NoError(t, err)
	return configs
}

func fields(findings []*ValidationError) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Field)
	}
	return out
}

func TestValidateStateClean(t *testing.T) {
	configs := parse(t, `
CA: {lookback_rule: rolling_12m, sales_threshold: 500000, tax_rate: 0.0725}
`)

	assert.Empty(t, ValidateState("CA", configs["CA"]))
}

func TestValidateStateNoneRuleNeedsNothing(t *testing.T) {
	configs := parse(t, "OR: {lookback_rule: none}\n")

	assert.Empty(t, ValidateState("OR", configs["OR"]))
}

func TestValidateStateZeroLookbackCapIsValid(t *testing.T) {
	configs := parse(t, "NV: {sales_threshold: 100000, tax_rate: 0.0685, vda_lookback_cap: 0}\n")

	assert.Empty(t, ValidateState("NV", configs["NV"]))
}

func TestValidateStateFindings(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantFields []string
		wantSev    []string
	}{
		{
			name:       "unknown rule",
			doc:        "XX: {lookback_rule: quarterly, sales_threshold: 100, tax_rate: 0.05}",
			wantFields: []string{"lookback_rule"},
			wantSev:    []string{SeverityError},
		},
		{
			name:       "no thresholds",
			doc:        "XX: {tax_rate: 0.05}",
			wantFields: []string{"sales_threshold"},
			wantSev:    []string{SeverityError},
		},
		{
			name:       "missing tax rate",
			doc:        "XX: {sales_threshold: 100}",
			wantFields: []string{"tax_rate"},
			wantSev:    []string{SeverityWarning},
		},
		{
			name:       "bad vda",
			doc:        "XX: {sales_threshold: 100, tax_rate: 0.05, vda_lookback_cap: -3}",
			wantFields: []string{"vda"},
			wantSev:    []string{SeverityWarning},
		},
		{
			name:       "non numeric threshold",
			doc:        "XX: {sales_threshold: lots, transaction_threshold: 200, tax_rate: 0.05}",
			wantFields: []string{"sales_threshold"},
			wantSev:    []string{SeverityError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configs := parse(t, tt.doc)
			findings := ValidateState("XX", configs["XX"])

			assert.Equal(t, tt.wantFields, fields(findings))
			for i, f := range findings {
				assert.Equal(t, tt.wantSev[i], f.Severity)
				assert.Equal(t, "XX", f.State)
			}
		})
	}
}

func TestValidateStatesAggregates(t *testing.T) {
	configs := parse(t, `
CA: {sales_threshold: 500000, tax_rate: 0.0725}
TX: {sales_threshold: 500000}
California: {sales_threshold: 1, tax_rate: 0.01}
`)

	result := ValidateStates(configs)

	assert.Equal(t, 3, result.StatesValidated)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 1, result.WarningCount)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "CALIFORNIA", result.Errors[0].State)
	assert.Equal(t, "TX", result.Errors[1].State)
	assert.Contains(t, result.Errors[1].Error(), "[WARNING] State TX, Field 'tax_rate'")
}
