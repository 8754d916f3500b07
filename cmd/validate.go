package cmd

import (
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/validation"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the main and state configuration files",
	Long: `Load the main configuration and the per-state rule file and report every
entry the analysis would skip or only partly use. Exits with status 1 when any
state entry has an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate() error {
	mainCfg, err := loadMainConfig()
	if err != nil {
		return err
	}
	pterm.Success.Printf("Main configuration OK (%s)\n", cfgFile)

	states, err := loadStateConfigs(mainCfg)
	if err != nil {
		return err
	}

	result := validation.ValidateStates(states)
	for _, finding := range result.Errors {
		if finding.Severity == validation.SeverityError {
			pterm.Error.Println(finding.Error())
		} else {
			pterm.Warning.Println(finding.Error())
		}
	}

	pterm.Info.Printf("%d state(s) checked: %d error(s), %d warning(s)\n",
		result.StatesValidated, result.ErrorCount, result.WarningCount)

	if !result.IsValid {
		return errors.WithHintf(
			errors.NewInvalidConfigError("%d state configuration error(s)", result.ErrorCount),
			"fix the entries in %s", mainCfg.StateConfigPath)
	}
	pterm.Success.Println("State configuration OK")
	return nil
}
