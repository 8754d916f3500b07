// =============================================================================
// SALT Nexus Analyzer - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration files.
// It handles the main run configuration, the per-state rule file and the
// environment-style tuning knobs.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, client name, VDA option
//   2. State Config (configs/state_config.yaml): thresholds and rates per state
//   3. Tuning (NEXUS_* environment variables, see tuning.go)
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/salt-nexus-analyzer/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// VDA estimation options accepted in vda_option.
const (
	VDAOptionEstimate = "Estimate"
	VDAOptionNone     = "None"
)

// DefaultExemptTaxabilityCodes are the taxability codes treated as exempt
// when the main config does not list its own.
var DefaultExemptTaxabilityCodes = []string{"EXEMPT", "RESALE", "WHOLESALE", "GOVERNMENT", "NONTAXABLE"}

// MainConfig holds the run configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for *.csv and *.xlsx transaction extracts when no
	// explicit files are given on the command line.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the workbook, CSV exports and run logs.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after a successful run when
	// ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveInputs moves processed input files into InputArchiveDir.
	ArchiveInputs bool `yaml:"archive_inputs"`

	// StateConfigPath is the per-state rule file.
	// Default: "./configs/state_config.yaml"
	StateConfigPath string `yaml:"state_config"`

	// =========================================================================
	// ANALYSIS SETTINGS
	// =========================================================================

	// ClientName brands the report and its file names.
	// Default: "Client"
	ClientName string `yaml:"client_name"`

	// VDAOption is "Estimate" (compute VDA scenarios) or "None".
	// Default: "Estimate"
	VDAOption string `yaml:"vda_option"`

	// ExemptCustomerCSV is an optional list of exempt customers.
	ExemptCustomerCSV string `yaml:"exempt_customer_csv"`

	// ExemptInvoiceCSV is an optional list of exempt invoice numbers.
	ExemptInvoiceCSV string `yaml:"exempt_invoice_csv"`

	// ExemptTaxabilityCodes are matched case-insensitively against the
	// taxability_code column.
	// Default: DefaultExemptTaxabilityCodes
	ExemptTaxabilityCodes []string `yaml:"exempt_taxability_codes"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogJSON switches the logger to JSON output.
	LogJSON bool `yaml:"log_json"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat defines the base name of every report file.
	// Placeholders:
	//   {client}    - Client name with spaces replaced by underscores
	//   {timestamp} - Run start (YYYYMMDD_HHMMSS)
	//   {date}      - Run start date (YYYYMMDD)
	//   {uuid}      - The run ID
	// Default: "{client}_Nexus_Analysis_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// CSVSettings controls how CSV extracts are parsed.
	CSVSettings CSVSettings `yaml:"csv_settings"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the character used to separate fields in the CSV.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// HeaderRows is the number of header rows in the CSV file.
	// Multi-row headers are joined with a space per column.
	// Default: 1
	HeaderRows int `yaml:"header_rows"`

	// DataStartRow is the row number where the actual data begins.
	// Row numbering starts at 1.
	// Default: HeaderRows + 1
	DataStartRow int `yaml:"data_start_row"`

	// LowercaseHeaders lower-cases header names after cleaning. Transaction
	// extracts always use it; exemption lists keep the flag set as well.
	// Default: true (set by applyCSVDefaults)
	LowercaseHeaders bool `yaml:"-"`
}

// DefaultCSVSettings returns the settings used for transaction extracts.
func DefaultCSVSettings() CSVSettings {
	s := CSVSettings{}
	applyCSVDefaults(&s)
	return s
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads and validates the main configuration file.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				errors.Wrapf(errors.ErrNotFound, "config file %s", configPath),
				"pass --config or create config.yaml in the working directory",
			)
		}
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, fmt.Sprintf("failed to parse config file: %v", err))
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &config, nil
}

// DefaultMainConfig returns a configuration with every default applied.
// It is used when no config file exists and by tests.
func DefaultMainConfig() *MainConfig {
	config := &MainConfig{}
	applyMainConfigDefaults(config)
	return config
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.StateConfigPath == "" {
		config.StateConfigPath = "./configs/state_config.yaml"
	}
	if config.ClientName == "" {
		config.ClientName = "Client"
	}
	if config.VDAOption == "" {
		config.VDAOption = VDAOptionEstimate
	}
	if len(config.ExemptTaxabilityCodes) == 0 {
		config.ExemptTaxabilityCodes = append([]string(nil), DefaultExemptTaxabilityCodes...)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "{client}_Nexus_Analysis_{timestamp}"
	}
	applyCSVDefaults(&config.CSVSettings)
}

func applyCSVDefaults(s *CSVSettings) {
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.HeaderRows == 0 {
		s.HeaderRows = 1
	}
	if s.DataStartRow == 0 {
		s.DataStartRow = s.HeaderRows + 1
	}
	s.LowercaseHeaders = true
}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.VDAOption) {
	case "estimate":
		config.VDAOption = VDAOptionEstimate
	case "none":
		config.VDAOption = VDAOptionNone
	default:
		return errors.NewInvalidConfigError("vda_option must be %q or %q, got %q",
			VDAOptionEstimate, VDAOptionNone, config.VDAOption)
	}

	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRows {
		return errors.NewInvalidConfigError("csv_settings.data_start_row (%d) must come after the header rows (%d)",
			config.CSVSettings.DataStartRow, config.CSVSettings.HeaderRows)
	}

	return nil
}

// EnsureDirectories creates the input and output directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}
	}
	return nil
}

// EstimateVDA reports whether VDA scenarios should be computed.
func (c *MainConfig) EstimateVDA() bool {
	return c.VDAOption == VDAOptionEstimate
}
