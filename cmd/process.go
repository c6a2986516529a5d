// =============================================================================
// Triton IMS Bridge - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch entry point. It converts
// every Triton export in the input directory.
//
// COMMAND USAGE:
//   tritonbridge process [flags]
//
// FLAGS:
//   --dry-run : Convert and validate without writing or archiving
//   --single  : Process only a single file (specify with --file)
//   --file    : Path to a specific file to process (used with --single)
//
// PROCESSING PIPELINE:
//   1. Load configuration and rule tables
//   2. Remove expired archives
//   3. Discover exports in the input directory
//   4. Convert files concurrently, at most max_concurrency at a time
//   5. Write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/converter"
	"github.com/ginjaninja78/triton-ims-bridge/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var dryRun bool

var singleFile bool

var filePath string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert Triton exports in the input directory",
	Long: `The process command scans the input directory for Triton exports (.json,
.csv, .xlsx) and converts the transactions they contain into canonical IMS
transactions.

Files are processed concurrently. Each file is processed independently, and
errors in one file do not affect the processing of others.

On successful processing:
  - The output is placed in the output directory
  - The original export is moved to the input archive
  - Rejected transactions are listed in an error log

On error:
  - An error log is created in the output directory
  - The original export remains in the input directory
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := runProcess(cmd.Context(), mainConfig)
		if err != nil {
			return err
		}
		if summary.FailedFiles > 0 {
			return fmt.Errorf("%d of %d files failed", summary.FailedFiles, summary.TotalFiles)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Convert and validate without writing output files")
	processCmd.Flags().BoolVar(&singleFile, "single", false, "Process only a single file (use with --file)")
	processCmd.Flags().StringVar(&filePath, "file", "", "Path to a specific file to process (used with --single)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess converts the discovered exports and returns the batch summary.
func runProcess(ctx context.Context, cfg *config.MainConfig) (*utils.ProcessingSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	summary := &utils.ProcessingSummary{StartTime: time.Now()}

	transformer, fieldRules, err := newTransformer(cfg)
	if err != nil {
		return nil, err
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.UseTimestampSubdirs = cfg.ArchiveByDate
	if !dryRun {
		if err := files.EnsureDirectories(); err != nil {
			return nil, err
		}
		cleanArchives(cfg)
	}

	inputFiles, err := selectInputFiles(files)
	if err != nil {
		return nil, err
	}
	summary.TotalFiles = len(inputFiles)

	if len(inputFiles) == 0 {
		log.WithField("input_dir", cfg.InputDir).Info("No exports found")
		return summary, nil
	}
	log.WithField("files", len(inputFiles)).Info("Processing exports")

	options := converter.OptionsFromConfig(cfg)
	options.DryRun = dryRun

	// Each goroutine writes only its own slot.
	results := make([]converter.Result, len(inputFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)
	for i, path := range inputFiles {
		g.Go(func() error {
			conv := converter.New(path, transformer, files, options).
				WithFieldRules(fieldRules).
				WithLogger(log)
			results[i] = conv.Run(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, result := range results {
		record(summary, result)
	}
	summary.EndTime = time.Now()

	logSummary(summary)

	if !dryRun {
		path, err := utils.WriteSummaryLog(*summary, cfg.OutputDir)
		if err != nil {
			log.WithError(err).Error("Failed to write summary")
		} else {
			log.WithField("summary", path).Info("Wrote summary")
		}
	}

	return summary, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// selectInputFiles returns the file named by --file with --single, and the
// exports in the input directory otherwise.
func selectInputFiles(files *utils.FileManager) ([]string, error) {
	if singleFile {
		if filePath == "" {
			return nil, fmt.Errorf("--single requires --file")
		}
		if !utils.FileExists(filePath) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return []string{filePath}, nil
	}

	inputFiles, err := files.DiscoverInputFiles(converter.InputExtensions...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	return inputFiles, nil
}

// cleanArchives removes archives older than archive_retention_days.
func cleanArchives(cfg *config.MainConfig) {
	if cfg.ArchiveRetentionDays <= 0 {
		return
	}

	maxAge := time.Duration(cfg.ArchiveRetentionDays) * 24 * time.Hour
	for _, dir := range []string{cfg.InputArchiveDir, cfg.OutputArchiveDir} {
		removed, err := utils.CleanOldArchives(dir, maxAge)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Warn("Failed to clean archives")
			continue
		}
		if removed > 0 {
			log.WithFields(logrus.Fields{"dir": dir, "removed": removed}).Info("Removed expired archives")
		}
	}
}

// record adds a file result to the summary.
func record(summary *utils.ProcessingSummary, result converter.Result) {
	summary.TotalTransactions += result.Stats.RecordsRead
	summary.Converted += result.Stats.Converted
	summary.Rejected += result.Stats.Rejected
	summary.ValidationErrors += result.Stats.ValidationErrors
	summary.ValidationWarns += result.Stats.ValidationWarnings

	if result.Success {
		summary.SuccessfulFiles++
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:    result.FilePath,
			OutputFile:   result.OutputFile,
			ArchivePath:  result.ArchivePath,
			Transactions: result.Stats.RecordsRead,
			Converted:    result.Stats.Converted,
			Rejected:     result.Stats.Rejected,
			ProcessTime:  result.Stats.ProcessingTime,
		})
		log.WithFields(logrus.Fields{
			"file":      filepath.Base(result.FilePath),
			"output":    result.OutputFile,
			"converted": result.Stats.Converted,
			"rejected":  result.Stats.Rejected,
		}).Info("File converted")
		return
	}

	summary.FailedFiles++
	summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
		InputFile:    result.FilePath,
		ErrorMessage: result.Error.Error(),
		ErrorType:    converter.ErrorType(result.Error),
	})
	log.WithField("file", filepath.Base(result.FilePath)).WithError(result.Error).Error("File failed")
}

func logSummary(summary *utils.ProcessingSummary) {
	log.WithFields(logrus.Fields{
		"files":        summary.TotalFiles,
		"successful":   summary.SuccessfulFiles,
		"failed":       summary.FailedFiles,
		"transactions": summary.TotalTransactions,
		"converted":    summary.Converted,
		"rejected":     summary.Rejected,
		"elapsed":      summary.EndTime.Sub(summary.StartTime).String(),
	}).Info("Processing complete")
}
