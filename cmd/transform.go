// =============================================================================
// Triton IMS Bridge - Transform Command
// =============================================================================
//
// COMMAND USAGE:
//   tritonbridge transform [file] [flags]
//
// Converts a single export and writes the canonical transactions to stdout.
// Without a file argument a JSON payload is read from stdin. Nothing is
// archived and no error log is written; rejected transactions are reported
// on stderr.
//
// FLAGS:
//   --format : Output format, json or xml (default: output_format)
//   --rules  : Rule file (.yaml) or rule workbook (.xlsx) to use
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/converter"
)

var outputFormat string

var rulesPath string

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Transform one Triton export and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *mainConfig
		if outputFormat != "" {
			cfg.OutputFormat = strings.ToLower(outputFormat)
		}
		applyRulesFlag(&cfg, rulesPath)
		if err := config.Validate(&cfg); err != nil {
			return err
		}

		input := ""
		if len(args) == 1 {
			input = args[0]
		}
		return runTransform(cmd.Context(), &cfg, input, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVar(&outputFormat, "format", "", "Output format: json or xml")
	transformCmd.Flags().StringVar(&rulesPath, "rules", "", "Rule file (.yaml) or rule workbook (.xlsx)")
}

// applyRulesFlag points cfg at the rule source named on the command line.
func applyRulesFlag(cfg *config.MainConfig, path string) {
	if path == "" {
		return
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		cfg.RulesWorkbook = path
		cfg.RulesFile = ""
		return
	}
	cfg.RulesFile = path
	cfg.RulesWorkbook = ""
}

// runTransform converts input, or stdin when input is empty, and renders the
// result to out.
func runTransform(ctx context.Context, cfg *config.MainConfig, input string, stdin io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	transformer, fieldRules, err := newTransformer(cfg)
	if err != nil {
		return err
	}

	var batch *converter.Batch
	if input == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		records, err := converter.DecodeJSON(data)
		if err != nil {
			return err
		}
		batch = &converter.Batch{Records: records}
	} else {
		batch, err = converter.LoadFile(input, cfg.CSVSettings, cfg.XLSXSheet)
		if err != nil {
			return err
		}
	}

	source := input
	if source == "" {
		source = "stdin"
	}

	options := converter.OptionsFromConfig(cfg)
	options.DryRun = true
	conv := converter.New(source, transformer, nil, options).
		WithFieldRules(fieldRules).
		WithLogger(log)

	conversion, err := conv.Convert(ctx, batch)
	if err != nil {
		return err
	}

	for _, failure := range conversion.Failures {
		log.WithFields(logrus.Fields{
			"transaction": failure.Index,
			"error_type":  converter.ErrorType(failure.Err),
		}).Error(failure.Err.Error())
	}

	document, err := converter.Render(conversion.Transactions, cfg.OutputFormat)
	if err != nil {
		return err
	}
	if _, err := out.Write(document); err != nil {
		return err
	}

	if len(conversion.Failures) > 0 {
		return fmt.Errorf("%d of %d transactions rejected", len(batch.Records)-len(conversion.Transactions), len(batch.Records))
	}
	return nil
}
