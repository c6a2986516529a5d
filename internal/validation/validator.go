// =============================================================================
// Triton IMS Bridge - Validation Engine
// =============================================================================
//
// This module checks canonical transactions before they are handed to the
// IMS submission workflow. The transformer already guarantees the shape of
// the record; the validator looks at its content:
//   - Required fields that ended up missing
//   - Date ranges (expiration must not precede effective)
//   - Limit consistency (occurrence must not exceed aggregate)
//   - Financial sanity (no negative premium, commission between 0 and 100)
//
// SEVERITY:
//   - "error"   : the transaction must not be submitted
//   - "warning" : the transaction can be submitted but needs a look
//
// Errors are collected, not returned one at a time, so a single run reports
// everything wrong with a file.
//
// =============================================================================

package validation

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// Field is the dotted canonical field name, e.g. "program.program_id".
	Field string

	// Value is the offending value, if any.
	Value string

	// Rule is the name of the violated rule.
	Rule string

	// Message is a human-readable message.
	Message string

	// TransactionIndex is the 1-indexed position of the transaction in its file.
	TransactionIndex int

	// TransactionID is the Triton transaction identifier.
	TransactionID string

	// ExposureIndex is the 1-indexed exposure, or 0 for transaction fields.
	ExposureIndex int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	location := fmt.Sprintf("Transaction %d (%s)", e.TransactionIndex, e.TransactionID)
	if e.ExposureIndex > 0 {
		location += fmt.Sprintf(", Exposure %d", e.ExposureIndex)
	}

	msg := fmt.Sprintf("[%s] %s, Field '%s': %s", strings.ToUpper(e.Severity), location, e.Field, e.Message)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value: '%s')", e.Value)
	}
	return msg
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings, warnings included.
	Errors []*ValidationError

	// ErrorCount is the number of fatal errors.
	ErrorCount int

	// WarningCount is the number of warnings.
	WarningCount int

	// TransactionsValidated is the number of transactions checked.
	TransactionsValidated int
}

// InvalidTransactions returns the 1-indexed positions of transactions with
// at least one fatal error.
func (r *ValidationResult) InvalidTransactions() map[int]bool {
	invalid := make(map[int]bool)
	for _, e := range r.Errors {
		if e.Severity == SeverityError {
			invalid[e.TransactionIndex] = true
		}
	}
	return invalid
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks canonical transactions.
type Validator struct {
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// StopOnFirstError stops validation after the first fatal error.
	// Default: false
	StopOnFirstError bool

	// TreatWarningsAsErrors marks the result invalid when there are warnings.
	// Default: false
	TreatWarningsAsErrors bool

	// RequiredFields are the canonical string fields reported when missing.
	RequiredFields []string
}

// DefaultRequiredFields are the fields the IMS workflow cannot do without.
var DefaultRequiredFields = []string{
	"transaction_id",
	"policy_number",
	"effective_date",
	"expiration_date",
	"account.name",
	"producer.code",
	"program.market_segment_code",
}

// DefaultValidationOptions returns the default validation options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		RequiredFields: DefaultRequiredFields,
	}
}

// NewValidator creates a new Validator with the default options.
func NewValidator() *Validator {
	return NewValidatorWithOptions(DefaultValidationOptions())
}

// NewValidatorWithOptions creates a new Validator with custom options.
func NewValidatorWithOptions(options ValidationOptions) *Validator {
	return &Validator{options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTION
// =============================================================================

// ValidateAll validates all transactions and returns a detailed result.
func (v *Validator) ValidateAll(transactions []types.CanonicalTransaction) *ValidationResult {
	result := &ValidationResult{
		IsValid:               true,
		Errors:                make([]*ValidationError, 0),
		TransactionsValidated: len(transactions),
	}

	for i := range transactions {
		for _, err := range v.ValidateTransaction(i+1, &transactions[i]) {
			result.Errors = append(result.Errors, err)

			if err.Severity == SeverityError {
				result.ErrorCount++
				result.IsValid = false

				if v.options.StopOnFirstError {
					return result
				}
			} else {
				result.WarningCount++

				if v.options.TreatWarningsAsErrors {
					result.IsValid = false
				}
			}
		}
	}

	return result
}

// ValidateTransaction validates a single transaction.
//
// PARAMETERS:
//   - index: The 1-indexed position of the transaction, for reporting.
//   - tx: The transaction to check.
func (v *Validator) ValidateTransaction(index int, tx *types.CanonicalTransaction) []*ValidationError {
	c := &collector{index: index, id: tx.TransactionID}

	fieldValues := requiredFieldValues(tx)
	for _, field := range v.options.RequiredFields {
		value, known := fieldValues[field]
		if known && types.IsMissing(value) {
			c.add(SeverityWarning, field, "", "required", "required field is missing")
		}
	}

	validateDates(c, tx)
	validateClassification(c, tx)
	validatePremium(c, tx.Premium)

	if len(tx.Exposures) == 0 {
		c.add(SeverityWarning, "exposures", "", "required", "transaction has no exposures")
	}
	for i, exposure := range tx.Exposures {
		validateExposure(c, i+1, exposure)
	}

	return c.errors
}

// =============================================================================
// RULES
// =============================================================================

func validateDates(c *collector, tx *types.CanonicalTransaction) {
	if types.IsMissing(tx.EffectiveDate) || types.IsMissing(tx.ExpirationDate) {
		return
	}
	// Canonical dates are ISO 8601, so they order lexically.
	if tx.ExpirationDate < tx.EffectiveDate {
		c.add(SeverityError, "expiration_date", tx.ExpirationDate, "date_range",
			fmt.Sprintf("expiration date precedes effective date %s", tx.EffectiveDate))
	}
}

func validateClassification(c *collector, tx *types.CanonicalTransaction) {
	if tx.Account.BusinessTypeCode == nil && !types.IsMissing(tx.Account.BusinessType) {
		c.add(SeverityError, "account.business_type_code", tx.Account.BusinessType, "classification",
			"business type has no code")
	}
	if tx.Program.ProgramID == nil {
		c.add(SeverityWarning, "program.program_id", "", "classification",
			"program identifier could not be derived")
	}
	if _, err := uuid.Parse(tx.Program.LineOfBusinessGUID); err != nil {
		c.add(SeverityError, "program.line_of_business_guid", tx.Program.LineOfBusinessGUID, "format",
			"line of business reference is not a GUID")
	}
}

var hundred = decimal.NewFromInt(100)

func validatePremium(c *collector, p types.Premium) {
	if p.GrossPremium == nil {
		c.add(SeverityWarning, "premium.gross_premium", "", "required", "gross premium is missing")
	} else if p.GrossPremium.IsNegative() {
		c.add(SeverityError, "premium.gross_premium", p.GrossPremium.String(), "range",
			"gross premium is negative")
	}

	if p.PolicyFee != nil && p.PolicyFee.IsNegative() {
		c.add(SeverityError, "premium.policy_fee", p.PolicyFee.String(), "range", "policy fee is negative")
	}

	if p.CommissionRate != nil && (p.CommissionRate.IsNegative() || p.CommissionRate.GreaterThan(hundred)) {
		c.add(SeverityWarning, "premium.commission_rate", p.CommissionRate.String(), "range",
			"commission rate is outside 0-100")
	}
}

func validateExposure(c *collector, index int, e types.Exposure) {
	if types.IsMissing(e.Coverage) {
		c.addExposure(index, SeverityWarning, "coverage", "", "required", "coverage is missing")
	}
	if e.Limits.Occurrence <= 0 || e.Limits.Aggregate <= 0 {
		c.addExposure(index, SeverityError, "limits", fmt.Sprintf("%d/%d", e.Limits.Occurrence, e.Limits.Aggregate),
			"range", "limits must be positive")
	} else if e.Limits.Occurrence > e.Limits.Aggregate {
		c.addExposure(index, SeverityError, "limits", fmt.Sprintf("%d/%d", e.Limits.Occurrence, e.Limits.Aggregate),
			"limit_order", "occurrence limit exceeds aggregate limit")
	}
	if e.Deductible != nil && *e.Deductible < 0 {
		c.addExposure(index, SeverityError, "deductible", fmt.Sprintf("%d", *e.Deductible), "range",
			"deductible is negative")
	}
}

// requiredFieldValues exposes the canonical string fields by dotted name.
func requiredFieldValues(tx *types.CanonicalTransaction) map[string]string {
	return map[string]string{
		"transaction_id":              tx.TransactionID,
		"policy_number":               tx.PolicyNumber,
		"effective_date":              tx.EffectiveDate,
		"expiration_date":             tx.ExpirationDate,
		"business_type":               tx.BusinessType,
		"account.name":                tx.Account.Name,
		"account.dba":                 tx.Account.DBA,
		"account.business_type":       tx.Account.BusinessType,
		"account.address.address1":    tx.Account.Address.Address1,
		"account.address.city":        tx.Account.Address.City,
		"account.address.state":       tx.Account.Address.State,
		"account.address.zip":         tx.Account.Address.Zip,
		"producer.name":               tx.Producer.Name,
		"producer.code":               tx.Producer.Code,
		"producer.email":              tx.Producer.Email,
		"producer.agency":             tx.Producer.Agency,
		"program.name":                tx.Program.Name,
		"program.class_of_business":   tx.Program.ClassOfBusiness,
		"program.market_segment_code": tx.Program.MarketSegmentCode,
		"program.underwriter":         tx.Program.Underwriter,
	}
}

// collector accumulates the findings of one transaction.
type collector struct {
	index  int
	id     string
	errors []*ValidationError
}

func (c *collector) add(severity, field, value, rule, message string) {
	c.addExposure(0, severity, field, value, rule, message)
}

func (c *collector) addExposure(exposure int, severity, field, value, rule, message string) {
	if exposure > 0 {
		field = fmt.Sprintf("exposures[%d].%s", exposure-1, field)
	}
	c.errors = append(c.errors, &ValidationError{
		Severity:         severity,
		Field:            field,
		Value:            value,
		Rule:             rule,
		Message:          message,
		TransactionIndex: c.index,
		TransactionID:    c.id,
		ExposureIndex:    exposure,
	})
}

// =============================================================================
// ERROR OUTPUT
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a log file.
//
// PARAMETERS:
//   - errors: The validation errors to write.
//   - sourceFile: The input file the errors belong to.
//   - filePath: The path to the output file.
func WriteErrorLog(errors []*ValidationError, sourceFile, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Validation report for %s\n", sourceFile)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errors))

	return writer.Flush()
}
