// =============================================================================
// Triton IMS Bridge - Converter Module
// =============================================================================
//
// This module runs the batch pipeline for a single input file, from loading
// the Triton export to writing canonical transactions.
//
// CONVERSION PIPELINE:
//   1. Load the export (.json, .csv or .xlsx) into raw transactions
//   2. Apply configured field rules to each raw transaction
//   3. Transform each raw transaction into a canonical transaction
//   4. Validate the canonical transactions
//   5. Render them as JSON or XML
//   6. Write the output file and the error log
//   7. Archive the processed files
//
// RECORD FAILURES:
//   With continue_on_error, a transaction that fails to transform or
//   validate is reported in the error log and left out of the output; the
//   rest of the file is still written. Without it, the first failure fails
//   the whole file and nothing is written.
//
// CONCURRENCY:
//   A Converter handles one file. The Transformer and FieldRules it uses are
//   immutable and shared between the converters of a batch run.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
	"github.com/ginjaninja78/triton-ims-bridge/internal/validation"
	"github.com/ginjaninja78/triton-ims-bridge/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// FilePath is the path to the input file that was processed.
	FilePath string

	// OutputFile is the path to the generated file. Empty on failure and
	// in dry runs.
	OutputFile string

	// ArchivePath is where the input file was archived.
	ArchivePath string

	// ErrorLog is the path to the error log, if one was written.
	ErrorLog string

	// Success indicates whether the file was converted.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// Failures lists the transactions that could not be converted.
	Failures []RecordError

	// Validation holds the findings on the converted transactions.
	Validation *validation.ValidationResult

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RecordsRead is the number of raw transactions in the file.
	RecordsRead int

	// Converted is the number of transactions written to the output.
	Converted int

	// Rejected is the number of transactions left out of the output.
	Rejected int

	// ValidationErrors is the number of fatal validation findings.
	ValidationErrors int

	// ValidationWarnings is the number of non-fatal validation findings.
	ValidationWarnings int

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// RecordError is a transaction that failed to transform.
type RecordError struct {
	// Index is the 1-indexed position of the transaction in the file.
	Index int

	// Row is the source row for tabular inputs, or 0.
	Row int

	// TransactionID is the raw transaction_id, if the record carried one.
	TransactionID string

	Err error
}

func (e RecordError) Error() string {
	return fmt.Sprintf("transaction %d: %v", e.Index, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// ErrorType names the error category for logs and reports.
func ErrorType(err error) string {
	switch {
	case errors.Is(err, types.ErrFormat):
		return "format_error"
	case errors.Is(err, types.ErrUnresolvedClassification):
		return "unresolved_classification"
	case errors.Is(err, types.ErrUnknownTransactionType):
		return "unknown_transaction_type"
	case errors.Is(err, types.ErrMissingRequiredGroup):
		return "missing_required_group"
	}
	return "error"
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options controls a single file conversion.
type Options struct {
	OutputFormat     string
	OutputNameFormat string
	ContinueOnError  bool
	CSVSettings      config.CSVSettings
	XLSXSheet        string

	// DryRun converts and validates without writing or archiving anything.
	DryRun bool
}

// OptionsFromConfig derives conversion options from the main configuration.
func OptionsFromConfig(cfg *config.MainConfig) Options {
	return Options{
		OutputFormat:     cfg.OutputFormat,
		OutputNameFormat: cfg.OutputNameFormat,
		ContinueOnError:  cfg.ContinueOnError,
		CSVSettings:      cfg.CSVSettings,
		XLSXSheet:        cfg.XLSXSheet,
	}
}

// Converter handles the conversion of a single input file.
type Converter struct {
	path        string
	transformer *Transformer
	fieldRules  *FieldRules
	validator   *validation.Validator
	files       *utils.FileManager
	options     Options
	logger      logrus.FieldLogger
}

// New creates a new Converter instance.
//
// PARAMETERS:
//   - path: The path to the input file.
//   - transformer: The shared transformer.
//   - files: The file manager owning the output and archive directories.
//   - options: The conversion options.
func New(path string, transformer *Transformer, files *utils.FileManager, options Options) *Converter {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return &Converter{
		path:        path,
		transformer: transformer,
		files:       files,
		options:     options,
		validator:   validation.NewValidator(),
		logger:      discard,
	}
}

// WithFieldRules sets the field rules applied before transformation.
func (c *Converter) WithFieldRules(rules *FieldRules) *Converter {
	c.fieldRules = rules
	return c
}

// WithValidator replaces the default validator.
func (c *Converter) WithValidator(v *validation.Validator) *Converter {
	c.validator = v
	return c
}

// WithLogger sets the logger. Every entry carries the input file.
func (c *Converter) WithLogger(logger logrus.FieldLogger) *Converter {
	c.logger = logger.WithField("file", c.path)
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the file.
func (c *Converter) Run(ctx context.Context) (result Result) {
	startTime := time.Now()
	result = Result{FilePath: c.path}
	defer func() { result.Stats.ProcessingTime = time.Since(startTime) }()

	c.logger.Info("Processing file")

	// =========================================================================
	// STEP 1: LOAD
	// =========================================================================

	batch, err := LoadFile(c.path, c.options.CSVSettings, c.options.XLSXSheet)
	if err != nil {
		result.Error = fmt.Errorf("failed to load input: %w", err)
		return result
	}
	result.Stats.RecordsRead = len(batch.Records)
	c.logger.WithField("records", len(batch.Records)).Debug("Loaded input")

	// =========================================================================
	// STEPS 2-4: FIELD RULES, TRANSFORM, VALIDATE
	// =========================================================================

	conversion, err := c.Convert(ctx, batch)
	if err != nil {
		result.Error = err
		if conversion != nil {
			result.Failures = conversion.Failures
			result.Validation = conversion.Validation
			result.ErrorLog = c.writeErrorLog(conversion)
		}
		return result
	}

	result.Failures = conversion.Failures
	result.Validation = conversion.Validation
	result.Stats.Converted = len(conversion.Transactions)
	result.Stats.Rejected = len(batch.Records) - len(conversion.Transactions)
	result.Stats.ValidationErrors = conversion.Validation.ErrorCount
	result.Stats.ValidationWarnings = conversion.Validation.WarningCount

	if len(batch.Records) > 0 && len(conversion.Transactions) == 0 {
		result.Error = fmt.Errorf("none of %d transactions could be converted", len(batch.Records))
		result.ErrorLog = c.writeErrorLog(conversion)
		return result
	}

	if c.options.DryRun {
		c.logger.WithFields(logrus.Fields{
			"converted": result.Stats.Converted,
			"rejected":  result.Stats.Rejected,
		}).Info("Dry run complete")
		result.Success = true
		return result
	}

	// =========================================================================
	// STEPS 5-6: RENDER AND WRITE
	// =========================================================================

	document, err := Render(conversion.Transactions, c.options.OutputFormat)
	if err != nil {
		result.Error = fmt.Errorf("failed to render output: %w", err)
		return result
	}

	fileName := utils.GenerateOutputFileName(
		c.options.OutputNameFormat,
		Extension(c.options.OutputFormat),
		map[string]string{"source": utils.SourceName(c.path)},
	)
	outputPath, err := c.files.WriteOutputFile(fileName, document)
	if err != nil {
		result.Error = fmt.Errorf("failed to write output: %w", err)
		return result
	}
	result.OutputFile = outputPath
	result.ErrorLog = c.writeErrorLog(conversion)
	c.logger.WithField("output", outputPath).Info("Wrote output")

	// =========================================================================
	// STEP 7: ARCHIVE
	// =========================================================================

	archived, err := c.archiveFiles(outputPath)
	if err != nil {
		// The output is already in place; archival problems are reported only.
		c.logger.WithError(err).Warn("Failed to archive files")
	}
	result.ArchivePath = archived

	result.Success = true
	return result
}

// Conversion is the outcome of converting a batch in memory.
type Conversion struct {
	// Transactions are the converted transactions that passed validation.
	Transactions []types.CanonicalTransaction

	// Failures are the transactions that failed to transform.
	Failures []RecordError

	// Validation holds the findings on every transformed transaction.
	Validation *validation.ValidationResult

	records *Batch
}

// Convert applies field rules, transforms and validates a batch.
//
// RETURNS:
//   - The conversion. It is also returned together with an error, so the
//     failures collected so far can be reported.
//   - An error when continue_on_error is off and a transaction failed, or
//     when ctx was cancelled.
func (c *Converter) Convert(ctx context.Context, batch *Batch) (*Conversion, error) {
	conversion := &Conversion{records: batch}

	transformed := make([]types.CanonicalTransaction, 0, len(batch.Records))
	indexes := make([]int, 0, len(batch.Records))

	for i, raw := range batch.Records {
		if err := ctx.Err(); err != nil {
			return conversion, err
		}

		tx, err := c.convertRecord(raw)
		if err != nil {
			failure := RecordError{
				Index:         i + 1,
				Row:           batch.row(i),
				TransactionID: rawTransactionID(raw),
				Err:           err,
			}
			conversion.Failures = append(conversion.Failures, failure)
			c.logger.WithFields(logrus.Fields{
				"transaction": failure.Index,
				"error_type":  ErrorType(err),
			}).WithError(err).Warn("Transaction rejected")

			if !c.options.ContinueOnError {
				conversion.Validation = &validation.ValidationResult{IsValid: false}
				return conversion, failure
			}
			continue
		}

		transformed = append(transformed, *tx)
		indexes = append(indexes, i+1)
	}

	// Validation reports positions within the file, not within the
	// transformed subset.
	conversion.Validation = &validation.ValidationResult{IsValid: true, TransactionsValidated: len(transformed)}
	invalid := make(map[int]bool)
	for j := range transformed {
		for _, finding := range c.validator.ValidateTransaction(indexes[j], &transformed[j]) {
			conversion.Validation.Errors = append(conversion.Validation.Errors, finding)
			if finding.Severity == validation.SeverityError {
				conversion.Validation.ErrorCount++
				conversion.Validation.IsValid = false
				invalid[indexes[j]] = true
			} else {
				conversion.Validation.WarningCount++
			}
		}
	}

	for _, finding := range conversion.Validation.Errors {
		entry := c.logger.WithFields(logrus.Fields{
			"transaction": finding.TransactionIndex,
			"field":       finding.Field,
			"rule":        finding.Rule,
		})
		if finding.Severity == validation.SeverityError {
			entry.Warn(finding.Message)
		} else {
			entry.Debug(finding.Message)
		}
	}

	if len(invalid) > 0 && !c.options.ContinueOnError {
		return conversion, fmt.Errorf("validation failed with %d errors", conversion.Validation.ErrorCount)
	}

	conversion.Transactions = make([]types.CanonicalTransaction, 0, len(transformed))
	for j := range transformed {
		if !invalid[indexes[j]] {
			conversion.Transactions = append(conversion.Transactions, transformed[j])
		}
	}

	return conversion, nil
}

// convertRecord applies the field rules and transforms one raw transaction.
func (c *Converter) convertRecord(raw types.RawTransaction) (*types.CanonicalTransaction, error) {
	prepared, err := c.fieldRules.Apply(raw)
	if err != nil {
		return nil, err
	}
	return c.transformer.Transform(prepared)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeErrorLog writes the failures and validation findings of a conversion.
// Logging problems are reported and otherwise ignored.
func (c *Converter) writeErrorLog(conversion *Conversion) string {
	if c.options.DryRun || c.files == nil {
		return ""
	}

	now := time.Now()
	var entries []utils.ErrorLogEntry

	for _, failure := range conversion.Failures {
		entry := utils.ErrorLogEntry{
			Timestamp:        now,
			FileName:         c.path,
			ErrorType:        ErrorType(failure.Err),
			ErrorMessage:     failure.Err.Error(),
			RowNumber:        failure.Row,
			TransactionIndex: failure.Index,
			TransactionID:    failure.TransactionID,
		}
		var formatErr *types.FormatError
		if errors.As(failure.Err, &formatErr) {
			entry.FieldName = formatErr.Field
			entry.FieldValue = formatErr.Value
		}
		entries = append(entries, entry)
	}

	if conversion.Validation != nil {
		for _, finding := range conversion.Validation.Errors {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:        now,
				FileName:         c.path,
				ErrorType:        "validation_" + finding.Severity,
				ErrorMessage:     finding.Message,
				RowNumber:        conversion.records.row(finding.TransactionIndex - 1),
				FieldName:        finding.Field,
				FieldValue:       finding.Value,
				TransactionIndex: finding.TransactionIndex,
				TransactionID:    finding.TransactionID,
			})
		}
	}

	path, err := utils.WriteErrorLog(entries, c.files.OutputDir)
	if err != nil {
		c.logger.WithError(err).Error("Failed to write error log")
		return ""
	}
	if path != "" {
		c.logger.WithField("error_log", path).Info("Wrote error log")
	}
	return path
}

// archiveFiles moves the input and copies the output to the archives.
func (c *Converter) archiveFiles(outputPath string) (string, error) {
	if _, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		return "", fmt.Errorf("failed to archive output: %w", err)
	}

	archived, err := c.files.ArchiveInputFile(c.path)
	if err != nil {
		return "", fmt.Errorf("failed to archive input: %w", err)
	}

	c.logger.WithField("archive", archived).Debug("Archived input")
	return archived, nil
}

// rawTransactionID extracts the transaction_id of a raw transaction, if it
// is a scalar.
func rawTransactionID(raw types.RawTransaction) string {
	switch v := raw["transaction_id"].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
