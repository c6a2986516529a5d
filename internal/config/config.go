// =============================================================================
// Triton IMS Bridge - Configuration Module
// =============================================================================
//
// This module is responsible for loading the application configuration.
//
// CONFIGURATION SOURCES (highest precedence first):
//   1. Command-line flags bound by the cmd package
//   2. Environment variables prefixed with TRITONBRIDGE_
//      (e.g. TRITONBRIDGE_OUTPUT_DIR)
//   3. The main config file (config.yaml)
//   4. The defaults registered by SetDefaults
//
// The classification rule table lives in its own YAML document or XLSX
// workbook (rules_file / rules_workbook) and is loaded by the rules and
// xlsxparser packages.
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TRITONBRIDGE"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for Triton exports (.json, .csv, .xlsx).
	// Default: "./input"
	InputDir string `mapstructure:"input_dir"`

	// OutputDir receives canonical transaction files, error logs and summaries.
	// Default: "./output"
	OutputDir string `mapstructure:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `mapstructure:"input_archive_dir"`

	// OutputArchiveDir receives a copy of every output file.
	// Default: "./output_archive"
	OutputArchiveDir string `mapstructure:"output_archive_dir"`

	// ArchiveByDate files archives under YYYY/MM/DD subdirectories.
	ArchiveByDate bool `mapstructure:"archive_by_date"`

	// ArchiveRetentionDays removes archived files older than this many days
	// at the start of every batch run. Zero keeps archives forever.
	ArchiveRetentionDays int `mapstructure:"archive_retention_days"`

	// =========================================================================
	// RULE SETTINGS
	// =========================================================================

	// RulesFile is a YAML classification rule document.
	// Empty means the embedded default rules.
	RulesFile string `mapstructure:"rules_file"`

	// RulesWorkbook is an XLSX classification rule workbook.
	// It takes precedence over RulesFile when both are set.
	RulesWorkbook string `mapstructure:"rules_workbook"`

	// DefaultLimits are applied to coverages that carry no limit, and the
	// aggregate is applied to single-amount limits.
	// Default: 1,000,000 / 2,000,000
	DefaultLimits types.LimitSpec `mapstructure:"default_limits"`

	// FieldRules are applied to raw flat fields before transformation,
	// e.g. to prefix policy numbers coming from a particular export.
	FieldRules []FieldRule `mapstructure:"field_rules"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile additionally receives every log line. Empty disables it.
	LogFile string `mapstructure:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `mapstructure:"log_level"`

	// StructuredLogs switches the log format to JSON.
	StructuredLogs bool `mapstructure:"structured_logs"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat is "json" or "xml".
	// Default: "json"
	OutputFormat string `mapstructure:"output_format"`

	// OutputNameFormat names output files.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {source}    - Input file name without extension
	// Default: "{source}_{uuid}"
	OutputNameFormat string `mapstructure:"output_name_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of files converted at once.
	// Default: 4
	MaxConcurrency int `mapstructure:"max_concurrency"`

	// ContinueOnError keeps converting the remaining records of a file when
	// one record fails, and writes the good ones.
	// Default: true
	ContinueOnError bool `mapstructure:"continue_on_error"`

	// CSVSettings controls parsing of CSV exports.
	CSVSettings CSVSettings `mapstructure:"csv_settings"`

	// XLSXSheet is the sheet read from XLSX exports. Empty means the first sheet.
	XLSXSheet string `mapstructure:"xlsx_sheet"`
}

// =============================================================================
// CSV SETTINGS STRUCTURE
// =============================================================================

// CSVSettings contains settings for parsing CSV exports.
type CSVSettings struct {
	// Delimiter separates fields. Common values: ",", "|", "\t".
	// Default: ","
	Delimiter string `mapstructure:"delimiter"`

	// HeaderRows is the number of header rows; multi-row headers are merged.
	// Default: 1
	HeaderRows int `mapstructure:"header_rows"`

	// DataStartRow is the 1-indexed row where data begins.
	// Default: HeaderRows + 1
	DataStartRow int `mapstructure:"data_start_row"`

	// NormalizeHeaders lower-cases headers and replaces spaces with
	// underscores, so "Insured Name" matches insured_name.
	// Default: true
	NormalizeHeaders bool `mapstructure:"normalize_headers"`
}

// =============================================================================
// FIELD RULE STRUCTURE
// =============================================================================

// FieldRule defines the actions applied to one raw field.
type FieldRule struct {
	// Field is the raw field name, e.g. "policy_number".
	Field string `mapstructure:"field" yaml:"field"`

	// Actions are applied in order.
	Actions []FieldAction `mapstructure:"actions" yaml:"actions"`
}

// FieldAction is a single field action.
type FieldAction struct {
	// Type is one of:
	//   - "trim", "uppercase", "lowercase"
	//   - "prepend_string", "append_string"
	//   - "pad_zeros_to_length"
	//   - "replace", "regex_replace"
	//   - "remove_special_chars", "normalize_whitespace"
	//   - "lookup", "lookup_with_default"
	//   - "if_empty_use_default", "if_empty_use_field"
	Type string `mapstructure:"type" yaml:"type"`

	// Value is the parameter of the action.
	Value string `mapstructure:"value" yaml:"value"`

	// Find is the substring or pattern of "replace" and "regex_replace".
	Find string `mapstructure:"find" yaml:"find,omitempty"`

	// LookupTable maps input values to output values for "lookup".
	LookupTable map[string]string `mapstructure:"lookup_table" yaml:"lookup_table,omitempty"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input_dir", "./input")
	v.SetDefault("output_dir", "./output")
	v.SetDefault("input_archive_dir", "./input_archive")
	v.SetDefault("output_archive_dir", "./output_archive")
	v.SetDefault("default_limits.occurrence", 1000000)
	v.SetDefault("default_limits.aggregate", 2000000)
	v.SetDefault("log_level", "info")
	v.SetDefault("structured_logs", false)
	v.SetDefault("output_format", "json")
	v.SetDefault("output_name_format", "{source}_{uuid}")
	v.SetDefault("max_concurrency", 4)
	v.SetDefault("continue_on_error", true)
	v.SetDefault("csv_settings.delimiter", ",")
	v.SetDefault("csv_settings.header_rows", 1)
	v.SetDefault("csv_settings.normalize_headers", true)
}

// NewViper returns a viper instance with defaults and environment overrides
// registered. configFile is read when it exists; a missing file is not an
// error so that the tool runs on defaults alone.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		return v, nil
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return v, nil
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return v, nil
}

// Load decodes the configuration held by v.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the configuration cannot be decoded or is invalid.
func Load(v *viper.Viper) (*MainConfig, error) {
	var config MainConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults fills values that depend on other values.
func applyDefaults(config *MainConfig) {
	if config.CSVSettings.HeaderRows <= 0 {
		config.CSVSettings.HeaderRows = 1
	}
	if config.CSVSettings.DataStartRow <= 0 {
		config.CSVSettings.DataStartRow = config.CSVSettings.HeaderRows + 1
	}
	if config.CSVSettings.Delimiter == "" {
		config.CSVSettings.Delimiter = ","
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	config.OutputFormat = strings.ToLower(strings.TrimSpace(config.OutputFormat))
}

// Validate checks values that cannot be defaulted.
func Validate(config *MainConfig) error {
	switch config.OutputFormat {
	case "json", "xml":
	default:
		return fmt.Errorf("output_format must be json or xml, got %q", config.OutputFormat)
	}

	if config.DefaultLimits.Occurrence <= 0 || config.DefaultLimits.Aggregate <= 0 {
		return fmt.Errorf("default_limits must be positive")
	}
	if config.DefaultLimits.Occurrence > config.DefaultLimits.Aggregate {
		return fmt.Errorf("default_limits occurrence exceeds aggregate")
	}

	if config.CSVSettings.DataStartRow <= config.CSVSettings.HeaderRows {
		return fmt.Errorf("csv_settings.data_start_row must come after the header rows")
	}

	if config.ArchiveRetentionDays < 0 {
		return fmt.Errorf("archive_retention_days must not be negative")
	}

	for _, rule := range config.FieldRules {
		if rule.Field == "" {
			return fmt.Errorf("field rule without a field name")
		}
	}

	return nil
}

// EnsureDirectories creates the input, output and archive directories.
func (c *MainConfig) EnsureDirectories() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.OutputArchiveDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
