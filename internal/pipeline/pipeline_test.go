package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/report"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = `date,invoice_number,invoice_date,total_amount,customer_name,street_address,city,state,zip_code,sales_channel,is_exempt
2024-01-10,INV-1,2024-01-10,10.00,Acme,1 Main St,Los Angeles,CA,90001,Direct,false
2024-02-10,INV-2,2024-02-10,25.00,Acme,1 Main St,Los Angeles,CA,90001,Direct,false
2024-03-10,INV-3,2024-03-10,100.00,Acme,1 Main St,Los Angeles,CA,90001,Direct,false
2024-04-10,INV-4,2024-04-10,40.00,Acme,1 Main St,Los Angeles,CA,90001,Direct,false
2024-01-15,INV-5,2024-01-15,15.00,Beta,2 Broadway,New York,NY,10001,Direct,true
2024-04-20,INV-6,2024-04-20,abc,Acme,1 Main St,Los Angeles,CA,90001,Direct,false
`

const stateYAML = `
CA:
  lookback_rule: rolling_12m
  sales_threshold: 20
  tax_rate: 0.07
`

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	main   *config.MainConfig
	states map[string]config.StateConfig
	input  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultMainConfig()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "archive")
	cfg.ClientName = "Acme Corp"
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0755))

	input := filepath.Join(cfg.InputDir, "sales.csv")
	require.NoError(t, os.WriteFile(input, []byte(salesCSV), 0644))

	states, err := config.ParseStateConfigs([]byte(stateYAML))
	require.NoError(t, err)

	return fixture{main: cfg, states: states, input: input}
}

func (f fixture) pipeline(dryRun bool) *Pipeline {
	p := New(f.main, f.states, config.DefaultTuning())
	p.DryRun = dryRun
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.pipeline(true).Run(context.Background(), []string{f.input})
	require.NoError(t, err)

	assert.True(t, outcome.DryRun)
	assert.Empty(t, outcome.Outputs)
	_, statErr := os.Stat(f.main.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "dry run writes nothing")

	feb := types.NewMonth(2024, time.February)
	assert.Equal(t, map[string]types.Month{"CA": feb}, outcome.Nexus.FirstTriggers())

	require.Len(t, outcome.Exposure.Rows, 2)
	assert.Equal(t, types.NewMonth(2024, time.March), outcome.Exposure.Rows[0].Month)
	assert.Equal(t, "7.00", outcome.Exposure.Rows[0].EstimatedTax.StringFixed(2))
	assert.Equal(t, "2.80", outcome.Exposure.Rows[1].EstimatedTax.StringFixed(2))

	counters := outcome.Summary.Counters
	assert.Equal(t, 6, counters[diagnostics.CounterRowsInput])
	assert.Equal(t, 5, counters[diagnostics.CounterRowsProcessed])
	assert.Equal(t, 1, counters[diagnostics.CounterRowsRejected])
	assert.Equal(t, 1, counters[diagnostics.CounterRowsExempt])
	assert.Equal(t, 1, counters[diagnostics.CounterNexusTriggers])
	assert.Equal(t, 1, counters[diagnostics.CounterStatesWithExposure])

	assert.Contains(t, outcome.Summary.Warnings, "No configuration found for state 'NY'. Skipping nexus analysis.")
	require.Len(t, outcome.RejectedRows, 1)
	assert.Equal(t, 7, outcome.RejectedRows[0].SourceRow)
}

func TestRunWritesReports(t *testing.T) {
	f := newFixture(t)
	f.main.ArchiveInputs = true

	outcome, err := f.pipeline(false).Run(context.Background(), nil)
	require.NoError(t, err)

	base := filepath.Join(f.main.OutputDir, "Acme_Corp_Nexus_Analysis_20250301_093000")
	assert.Equal(t, []string{
		base + ".xlsx",
		base + "_nexus.csv",
		base + "_exposure.csv",
		base + "_summary.json",
		base + "_rejected_rows.txt",
	}, outcome.Outputs)
	for _, path := range outcome.Outputs {
		assert.FileExists(t, path)
	}

	assert.Equal(t, []string{f.input}, outcome.InputFiles, "input discovered from input_dir")
	assert.NoFileExists(t, f.input)
	assert.FileExists(t, filepath.Join(f.main.InputArchiveDir, "sales.csv"))
}

func TestRunDeterministic(t *testing.T) {
	render := func() []byte {
		f := newFixture(t)
		outcome, err := f.pipeline(true).Run(context.Background(), []string{f.input})
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, report.WriteCSV(&buf, report.NexusTable(outcome.Nexus)))
		require.NoError(t, report.WriteCSV(&buf, report.ExposureTable(outcome.Exposure)))
		return buf.Bytes()
	}

	assert.Equal(t, render(), render())
}

func TestRunRejectsUnknownVDAOption(t *testing.T) {
	f := newFixture(t)
	f.main.VDAOption = "Maybe"

	_, err := f.pipeline(true).Run(context.Background(), []string{f.input})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline(true).Run(ctx, []string{f.input})
	assert.ErrorIs(t, err, context.Canceled)
}
