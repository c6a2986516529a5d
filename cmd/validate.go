// =============================================================================
// Triton IMS Bridge - Validate Command
// =============================================================================
//
// COMMAND USAGE:
//   tritonbridge validate [files...] [flags]
//
// Without arguments, checks that the configuration, the rule tables and the
// field rules load. With files, also converts each file in memory and prints
// every validation finding. Nothing is written or archived.
//
// FLAGS:
//   --rules  : Rule file (.yaml) or rule workbook (.xlsx) to check
//   --report : Also write the findings to this file
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/converter"
	"github.com/ginjaninja78/triton-ims-bridge/internal/validation"
)

var reportPath string

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Check configuration, rule tables and exports without converting",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *mainConfig
		applyRulesFlag(&cfg, rulesPath)
		return runValidate(cmd.Context(), &cfg, args, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&rulesPath, "rules", "", "Rule file (.yaml) or rule workbook (.xlsx)")
	validateCmd.Flags().StringVar(&reportPath, "report", "", "Write the findings to this file")
}

// runValidate reports on the configuration and on each file in inputs.
func runValidate(ctx context.Context, cfg *config.MainConfig, inputs []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	table, err := loadRules(cfg)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	fieldRules, err := converter.NewFieldRules(cfg.FieldRules)
	if err != nil {
		return fmt.Errorf("invalid field rules: %w", err)
	}

	fmt.Fprintln(out, "Configuration OK")
	fmt.Fprintf(out, "  Business types:  %d\n", table.BusinessTypeCount())
	fmt.Fprintf(out, "  Market segments: %v\n", table.MarketSegments())
	fmt.Fprintf(out, "  Field rules:     %d\n", len(cfg.FieldRules))

	transformer := converter.NewTransformer(table, cfg.DefaultLimits)
	options := converter.OptionsFromConfig(cfg)
	options.DryRun = true
	options.ContinueOnError = true

	var findings []*validation.ValidationError
	failed := 0

	for _, input := range inputs {
		batch, err := converter.LoadFile(input, cfg.CSVSettings, cfg.XLSXSheet)
		if err != nil {
			failed++
			fmt.Fprintf(out, "\n%s: %v\n", input, err)
			continue
		}

		conv := converter.New(input, transformer, nil, options).
			WithFieldRules(fieldRules).
			WithLogger(log)
		conversion, err := conv.Convert(ctx, batch)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "\n%s: %d transactions, %d converted, %d rejected\n",
			input, len(batch.Records), len(conversion.Transactions),
			len(batch.Records)-len(conversion.Transactions))
		for _, failure := range conversion.Failures {
			fmt.Fprintf(out, "  [%s] %v\n", converter.ErrorType(failure.Err), failure)
		}
		if len(conversion.Validation.Errors) > 0 {
			fmt.Fprint(out, validation.FormatErrors(conversion.Validation.Errors))
		}

		findings = append(findings, conversion.Validation.Errors...)
		if len(conversion.Transactions) < len(batch.Records) {
			failed++
		}
	}

	if reportPath != "" && len(inputs) > 0 {
		if err := validation.WriteErrorLog(findings, fmt.Sprint(inputs), reportPath); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files have rejected transactions", failed, len(inputs))
	}
	return nil
}
