// =============================================================================
// SALT Nexus Analyzer - Pipeline Module
// =============================================================================
//
// This module orchestrates one analysis run, from the raw extracts on disk to
// the workbook and CSV exports in the output directory.
//
// PIPELINE:
//   1. Load the extracts (CSV or XLSX)
//   2. Standardize rows into transactions
//   3. Apply exemptions
//   4. Analyze nexus per state
//   5. Calculate exposure for triggered states
//   6. Finalize the run diagnostics
//   7. Write reports and archive inputs (skipped in dry-run)
//
// ERRORS:
//   Per-file and per-state problems become warnings in the run diagnostics.
//   Run returns an error only for input contract violations, a cancelled
//   context, or a failure to write the outputs.
//
// =============================================================================

package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/diagnostics"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/exemptions"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/exposure"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/ingest"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/nexus"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/report"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/standardize"
	"github.com/ginjaninja78/salt-nexus-analyzer/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// OUTCOME STRUCTURE
// =============================================================================

// Outcome is the result of one run.
type Outcome struct {
	// Summary is the finalized run diagnostics.
	Summary diagnostics.Summary

	// Nexus and Exposure are the analysis tables. Both are non-nil.
	Nexus    *nexus.Result
	Exposure *exposure.Result

	// RejectedRows are the input rows dropped during standardization.
	RejectedRows []diagnostics.RejectedRow

	// InputFiles are the extracts the run read.
	InputFiles []string

	// Outputs lists every file written. Empty in dry-run.
	Outputs []string

	// DryRun is true when no files were written.
	DryRun bool
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs the analysis for one configuration.
type Pipeline struct {
	main   *config.MainConfig
	states map[string]config.StateConfig
	tuning config.Tuning

	// DryRun skips step 7.
	DryRun bool

	now func() time.Time
	log *zap.SugaredLogger
}

// New creates a pipeline.
//
// PARAMETERS:
//   - mainCfg: Directories, client name, VDA option and exemption sources.
//   - states: The per-state rules.
//   - tuning: Marketplace channels, rolling window and ingestion limits.
func New(mainCfg *config.MainConfig, states map[string]config.StateConfig, tuning config.Tuning) *Pipeline {
	return &Pipeline{
		main:   mainCfg,
		states: states,
		tuning: tuning,
		now:    time.Now,
		log:    logger.ComponentLogger("pipeline"),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline. When files is empty the input directory is
// scanned for *.csv and *.xlsx extracts.
func (p *Pipeline) Run(ctx context.Context, files []string) (*Outcome, error) {
	vdaOption, err := exposure.ParseVDAOption(p.main.VDAOption)
	if err != nil {
		return nil, err
	}

	fm := utils.NewFileManager(p.main.InputDir, p.main.OutputDir, p.main.InputArchiveDir)
	fm.ArchiveOnSuccess = p.main.ArchiveInputs

	if len(files) == 0 {
		files, err = fm.DiscoverInputFiles()
		if err != nil {
			return nil, err
		}
	}

	diag := diagnostics.NewCollectorAt(uuid.NewString(), p.now())
	outcome := &Outcome{InputFiles: files, DryRun: p.DryRun}

	p.log.Infow("Starting analysis run",
		"run_id", diag.RunID(),
		"client", p.main.ClientName,
		"files", len(files),
		"states_configured", len(p.states),
		"vda_option", string(vdaOption),
		"dry_run", p.DryRun,
	)

	// =========================================================================
	// STEP 1: LOAD EXTRACTS
	// =========================================================================

	records, err := ingest.NewLoader(p.main.CSVSettings, p.tuning).Load(ctx, files, diag)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: STANDARDIZE
	// =========================================================================
	// Dates, amounts, states and ZIP codes are cleaned. Rows missing a
	// critical value are dropped; bad amounts are also recorded as rejected.

	txns := standardize.NewStandardizer().Standardize(records, diag)

	// =========================================================================
	// STEP 3: EXEMPTIONS
	// =========================================================================

	txns = exemptions.NewManager(p.main).Apply(txns, diag)

	// =========================================================================
	// STEP 4: NEXUS ANALYSIS
	// =========================================================================

	nx, err := nexus.NewAnalyzer(p.states, p.tuning).Analyze(ctx, txns, diag)
	if err != nil {
		return nil, errors.Wrap(err, "nexus analysis failed")
	}
	outcome.Nexus = nx

	// =========================================================================
	// STEP 5: EXPOSURE
	// =========================================================================

	ex, err := exposure.NewCalculator(p.states, vdaOption).Calculate(ctx, txns, nx, diag)
	if err != nil {
		return nil, errors.Wrap(err, "exposure calculation failed")
	}
	outcome.Exposure = ex

	// =========================================================================
	// STEP 6: FINALIZE DIAGNOSTICS
	// =========================================================================

	finishedAt := p.now()
	diag.Finalize(finishedAt)
	outcome.Summary = diag.Summary()
	outcome.RejectedRows = diag.RejectedRows()

	// =========================================================================
	// STEP 7: WRITE REPORTS
	// =========================================================================

	if p.DryRun {
		p.log.Infow("Dry run; no files written",
			"nexus_rows", len(nx.Rows),
			"exposure_rows", len(ex.Rows),
		)
		return outcome, nil
	}

	outputs, err := p.writeReports(outcome, finishedAt)
	if err != nil {
		return nil, err
	}
	outcome.Outputs = outputs

	for _, file := range files {
		archived, err := fm.ArchiveInputFile(file, finishedAt)
		if err != nil {
			// The report is already written; a failed move only leaves the
			// input in place.
			p.log.Warnw("Failed to archive input", "file", file, "error", err)
			continue
		}
		if archived != file {
			p.log.Infow("Archived input", "file", file, "archive", archived)
		}
	}

	p.log.Infow("Analysis run complete",
		"run_id", outcome.Summary.RunID,
		"duration_seconds", outcome.Summary.DurationSeconds,
		"warnings", outcome.Summary.WarningsCount,
		"outputs", len(outputs),
	)
	return outcome, nil
}

// writeReports writes the workbook, the CSV exports, the run summary and
// the rejected-row log. All names share one generated base name.
func (p *Pipeline) writeReports(o *Outcome, now time.Time) ([]string, error) {
	if err := p.main.EnsureDirectories(); err != nil {
		return nil, err
	}

	base := utils.GenerateOutputFileName(p.main.OutputNameFormat, map[string]string{
		"client": p.main.ClientName,
		"uuid":   o.Summary.RunID,
	}, "", now)
	outPath := func(suffix string) string {
		return filepath.Join(p.main.OutputDir, base+suffix)
	}

	var outputs []string

	workbook := outPath(".xlsx")
	if err := report.WriteWorkbook(workbook, report.Input{
		ClientName:   p.main.ClientName,
		ReportDate:   now,
		Summary:      o.Summary,
		Nexus:        o.Nexus,
		Exposure:     o.Exposure,
		RejectedRows: o.RejectedRows,
	}); err != nil {
		return nil, err
	}
	outputs = append(outputs, workbook)

	for _, export := range []struct {
		suffix string
		table  report.Table
	}{
		{"_nexus.csv", report.NexusTable(o.Nexus)},
		{"_exposure.csv", report.ExposureTable(o.Exposure)},
	} {
		path := outPath(export.suffix)
		if err := report.WriteCSVFile(path, export.table); err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}

	summaryPath, err := utils.WriteSummaryJSON(o.Summary, p.main.OutputDir, base+"_summary.json")
	if err != nil {
		return nil, err
	}
	outputs = append(outputs, summaryPath)

	entries := make([]utils.ErrorLogEntry, len(o.RejectedRows))
	for i, r := range o.RejectedRows {
		entries[i] = utils.ErrorLogEntry{
			SourceFile: r.SourceFile,
			SourceRow:  r.SourceRow,
			Reason:     r.Reason,
			Fields:     r.Fields,
		}
	}
	logPath, err := utils.WriteErrorLog(entries, p.main.OutputDir, base+"_rejected_rows.txt", now)
	if err != nil {
		return nil, err
	}
	if logPath != "" {
		outputs = append(outputs, logPath)
	}

	for _, path := range outputs {
		p.log.Infow("Wrote output", "file", path)
	}
	return outputs, nil
}
