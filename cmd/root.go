// =============================================================================
// SALT Nexus Analyzer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (nexus)
//   ├── analyzeCmd  (nexus analyze)
//   ├── validateCmd (nexus validate)
//   └── versionCmd  (nexus version)
//
// The root command owns the global flags and initializes the zap logger
// before any subcommand runs.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/config"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/logger"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose switches logging to debug level.
var verbose bool

// jsonLogs switches logging to JSON lines.
var jsonLogs bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "SALT Nexus Analyzer - economic nexus and VDA exposure estimates",
	Long: `SALT Nexus Analyzer reads sales transaction extracts, determines in which
states and months economic nexus thresholds were crossed, and estimates the
sales tax exposure accrued since, with an optional Voluntary Disclosure
Agreement (VDA) scenario alongside full audit liability.

Example Usage:
  nexus analyze                         # Analyze every extract in input_dir
  nexus analyze --file q1.csv --dry-run # Analyze one file, write nothing
  nexus analyze --vda None              # Skip the VDA scenario
  nexus validate                        # Check the configuration files`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, jsonOutput := "info", jsonLogs
		if cfg, err := loadMainConfig(); err == nil {
			level = cfg.LogLevel
			jsonOutput = jsonOutput || cfg.LogJSON
		}
		if verbose {
			level = "debug"
		}
		if err := logger.Initialize(level, jsonOutput); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main(). Errors are printed with
// any attached hints and the process exits with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
	rootCmd.PersistentFlags().BoolVar(
		&jsonLogs,
		"json-logs",
		false,
		"Write logs as JSON lines",
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// loadMainConfig reads cfgFile, falling back to the defaults when the file
// does not exist.
func loadMainConfig() (*config.MainConfig, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		return config.DefaultMainConfig(), nil
	}
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, errors.WithHint(err, "check the YAML syntax and vda_option in "+cfgFile)
	}
	return cfg, nil
}

// loadStateConfigs reads the state rule file named by the main config.
func loadStateConfigs(cfg *config.MainConfig) (map[string]config.StateConfig, error) {
	states, err := config.LoadStateConfigs(cfg.StateConfigPath)
	if err != nil {
		return nil, errors.WithHintf(err, "set state_config in %s to the per-state rule file", cfgFile)
	}
	return states, nil
}
