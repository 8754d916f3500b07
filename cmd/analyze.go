// =============================================================================
// SALT Nexus Analyzer - Analyze Command
// =============================================================================
//
// COMMAND USAGE:
//   nexus analyze [flags]
//
// FLAGS:
//   --dry-run : Run the analysis without writing reports or archiving inputs
//   --file    : An extract to analyze (repeatable). Default: every *.csv and
//               *.xlsx in input_dir
//   --vda     : Estimate or None. Overrides vda_option in the config file
//
// OUTPUT:
//   The triggered states and the exposure totals are printed as tables; the
//   full detail goes to the workbook and CSV exports in output_dir.
//
// =============================================================================

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/exposure"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/pipeline"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/report"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	dryRun     bool
	inputFiles []string
	vdaFlag    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Determine nexus and estimate exposure from sales extracts",
	Long: `The analyze command loads the sales extracts, standardizes and
exemption-tags the transactions, evaluates each configured state's economic
nexus thresholds month by month, and estimates the tax exposure accrued after
each state's first trigger month.

On success the output directory receives:
  - <name>.xlsx                 the analysis workbook
  - <name>_nexus.csv            every state-month evaluation
  - <name>_exposure.csv         every post-trigger month
  - <name>_summary.json         run counters and warnings
  - <name>_rejected_rows.txt    rows dropped for bad amounts (if any)`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Analyze without writing reports or archiving inputs")
	analyzeCmd.Flags().StringArrayVar(&inputFiles, "file", nil, "Extract to analyze (repeatable; default: scan input_dir)")
	analyzeCmd.Flags().StringVar(&vdaFlag, "vda", "", "VDA scenario: Estimate or None (default: vda_option from config)")
}

func runAnalyze(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	mainCfg, err := loadMainConfig()
	if err != nil {
		return err
	}
	if vdaFlag != "" {
		opt, err := exposure.ParseVDAOption(vdaFlag)
		if err != nil {
			return errors.WithHint(err, "use --vda Estimate or --vda None")
		}
		mainCfg.VDAOption = string(opt)
	}

	states, err := loadStateConfigs(mainCfg)
	if err != nil {
		return err
	}

	tuning, err := config.LoadTuning(config.NewViper())
	if err != nil {
		return errors.WithHint(err, "check the NEXUS_* environment variables")
	}

	pterm.DefaultHeader.WithFullWidth().Printf("SALT Nexus Analysis - %s", mainCfg.ClientName)
	pterm.Println()
	if dryRun {
		pterm.Warning.Println("DRY RUN MODE: no reports will be written and no inputs archived")
	}
	pterm.Info.Printf("Loaded %d state configuration(s)\n", len(states))

	// =========================================================================
	// STEP 2: RUN THE PIPELINE
	// =========================================================================

	p := pipeline.New(mainCfg, states, tuning)
	p.DryRun = dryRun

	spinner, _ := pterm.DefaultSpinner.Start("Analyzing transactions...")
	outcome, err := p.Run(ctx, inputFiles)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Analysis failed")
		}
		if errors.IsInputContract(err) {
			return errors.WithHint(err, "the extract does not match the required columns or types")
		}
		return err
	}
	if spinner != nil {
		spinner.Success("Analysis complete")
	}

	// =========================================================================
	// STEP 3: PRINT RESULTS
	// =========================================================================

	printOutcome(outcome)
	return nil
}

func printOutcome(o *pipeline.Outcome) {
	pterm.Println()
	pterm.DefaultSection.Println("Triggered States")
	renderTable(report.TriggeredStatesTable(o.Nexus))

	pterm.DefaultSection.Println("Exposure Totals")
	renderTable(report.TotalsTable(o.Exposure))

	if len(o.Summary.Warnings) > 0 {
		pterm.DefaultSection.Printf("Warnings (%d)", o.Summary.WarningsCount)
		for _, w := range o.Summary.Warnings {
			pterm.Warning.Println(w)
		}
	}

	pterm.DefaultSection.Println("Run")
	pterm.Info.Printf("Run ID:    %s\n", o.Summary.RunID)
	pterm.Info.Printf("Files:     %d\n", len(o.InputFiles))
	pterm.Info.Printf("Duration:  %.2fs\n", o.Summary.DurationSeconds)
	for _, path := range o.Outputs {
		pterm.Success.Printf("Wrote %s\n", path)
	}
}

func renderTable(t report.Table) {
	if t.Empty() {
		pterm.Println(report.EmptySectionNote)
		pterm.Println()
		return
	}
	data := pterm.TableData{t.Headers}
	data = append(data, t.Rows...)
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Printf("Failed to render table: %v\n", err)
	}
	pterm.Println()
}
