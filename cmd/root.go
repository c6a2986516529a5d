// =============================================================================
// Triton IMS Bridge - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (tritonbridge)
//   ├── processCmd   (tritonbridge process)
//   ├── transformCmd (tritonbridge transform)
//   ├── validateCmd  (tritonbridge validate)
//   └── versionCmd   (tritonbridge version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --log-level)
//   2. Loading the configuration through viper
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/converter"
	"github.com/ginjaninja78/triton-ims-bridge/internal/rules"
	"github.com/ginjaninja78/triton-ims-bridge/internal/xlsxparser"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

var log = logrus.New()

// cfgFile holds the path to the main configuration file.
var cfgFile string

// logLevel overrides the configured log level when set.
var logLevel string

// mainConfig is loaded before any subcommand runs.
var mainConfig *config.MainConfig

// logFile is the open log_file, if any.
var logFile *os.File

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "tritonbridge",
	Short: "Triton IMS Bridge - Transform Triton transactions for IMS",
	Long: `Triton IMS Bridge converts insurance transactions exported by the Triton
rating platform into the canonical form consumed by IMS.

Key Features:
  - Flat and nested Triton payloads in JSON, CSV and XLSX exports
  - Business type, line of business and program resolution from rule tables
  - Canonical output as JSON or XML
  - Validation with detailed error logs
  - Concurrent batch processing with automatic archival

Example Usage:
  tritonbridge process                      # Process all exports in the input directory
  tritonbridge process --config ./my.yaml   # Use a custom configuration file
  tritonbridge transform export.json        # Transform one export to stdout
  tritonbridge validate                     # Check configuration and rules`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&logLevel,
		"log-level",
		"",
		"Log level (debug, info, warn, error); overrides log_level",
	)
}

// =============================================================================
// CONFIGURATION AND LOGGING
// =============================================================================

// initConfig loads the configuration and configures the logger from it.
func initConfig() error {
	v, err := config.NewViper(cfgFile)
	if err != nil {
		return err
	}

	mainConfig, err = config.Load(v)
	if err != nil {
		return err
	}

	if logLevel != "" {
		mainConfig.LogLevel = logLevel
	}

	return setupLogging(mainConfig)
}

// setupLogging applies the log level, format and file of cfg to log.
func setupLogging(cfg *config.MainConfig) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.StructuredLogs {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(os.Stderr)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	return nil
}

// loadRules returns the classification rule table selected by cfg. A rule
// workbook takes precedence over a rule file; with neither, the embedded
// default rules are used.
func loadRules(cfg *config.MainConfig) (*rules.Table, error) {
	switch {
	case cfg.RulesWorkbook != "":
		log.WithField("workbook", cfg.RulesWorkbook).Debug("Loading rule workbook")
		return xlsxparser.LoadRuleTable(cfg.RulesWorkbook)
	case cfg.RulesFile != "":
		log.WithField("file", cfg.RulesFile).Debug("Loading rule file")
		return rules.Load(cfg.RulesFile)
	}
	return rules.Default(), nil
}

// newTransformer builds the transformer and field rules shared by every
// file of a run.
func newTransformer(cfg *config.MainConfig) (*converter.Transformer, *converter.FieldRules, error) {
	table, err := loadRules(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load rules: %w", err)
	}

	fieldRules, err := converter.NewFieldRules(cfg.FieldRules)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid field rules: %w", err)
	}

	return converter.NewTransformer(table, cfg.DefaultLimits), fieldRules, nil
}
