// =============================================================================
// Triton IMS Bridge - Shared Types
// =============================================================================
//
// This package contains the canonical transaction model and the error
// taxonomy shared by every other module. Keeping them here avoids import
// cycles between:
//   - converter
//   - rules
//   - txtype
//   - validation
//   - xmlwriter
//
// MISSING DATA:
//   Every key of the canonical record is always emitted. String fields with
//   no source data carry the Missing marker; numeric fields with no source
//   data are JSON null.
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// Missing marks a canonical string field for which the source carried no data.
const Missing = "MISSING"

// IsMissing reports whether a canonical string field carries no data.
func IsMissing(s string) bool {
	return s == "" || s == Missing
}

// RawTransaction is a payload as received from Triton: a decoded JSON
// object, a CSV row or a spreadsheet row. Its shape may be flat or nested.
type RawTransaction map[string]any

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TransactionType is the canonical kind of a policy transaction.
type TransactionType string

const (
	TransactionNewBusiness        TransactionType = "new_business"
	TransactionRenewal            TransactionType = "renewal"
	TransactionEndorsement        TransactionType = "endorsement"
	TransactionMidtermEndorsement TransactionType = "midterm_endorsement"
	TransactionCancellation       TransactionType = "cancellation"
	TransactionReinstatement      TransactionType = "reinstatement"
	TransactionUnbind             TransactionType = "unbind"
	TransactionIssue              TransactionType = "issue"
)

// TransactionTypes lists the canonical transaction kinds in routing order.
var TransactionTypes = []TransactionType{
	TransactionNewBusiness,
	TransactionRenewal,
	TransactionEndorsement,
	TransactionMidtermEndorsement,
	TransactionCancellation,
	TransactionReinstatement,
	TransactionUnbind,
	TransactionIssue,
}

// Valid reports whether t is one of the canonical transaction kinds.
func (t TransactionType) Valid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// =============================================================================
// LINE OF BUSINESS
// =============================================================================

// LineOfBusiness selects the coverage reference used by IMS.
type LineOfBusiness string

const (
	LinePrimary LineOfBusiness = "primary"
	LineExcess  LineOfBusiness = "excess"
)

// Valid reports whether l is a known line of business.
func (l LineOfBusiness) Valid() bool {
	return l == LinePrimary || l == LineExcess
}

// =============================================================================
// LIMITS
// =============================================================================

// LimitSpec holds the per-occurrence and aggregate limits of a coverage.
type LimitSpec struct {
	Occurrence int64 `json:"occurrence" yaml:"occurrence" mapstructure:"occurrence"`
	Aggregate  int64 `json:"aggregate" yaml:"aggregate" mapstructure:"aggregate"`
}

// =============================================================================
// CANONICAL TRANSACTION
// =============================================================================

// CanonicalTransaction is the nested, normalized record handed to the IMS
// submission workflow.
type CanonicalTransaction struct {
	TransactionType TransactionType `json:"transaction_type"`
	TransactionID   string          `json:"transaction_id"`
	PolicyNumber    string          `json:"policy_number"`
	EffectiveDate   string          `json:"effective_date"`
	ExpirationDate  string          `json:"expiration_date"`

	// BusinessType is the source new/renewal label, not the legal entity type.
	BusinessType string `json:"business_type"`
	IsRenewal    bool   `json:"is_renewal"`

	Account   Account    `json:"account"`
	Producer  Producer   `json:"producer"`
	Program   Program    `json:"program"`
	Premium   Premium    `json:"premium"`
	Exposures []Exposure `json:"exposures"`
}

// Account identifies the insured.
type Account struct {
	Name string `json:"name"`
	DBA  string `json:"dba"`

	// BusinessType is the legal entity type, e.g. "LLC".
	BusinessType     string  `json:"business_type"`
	BusinessTypeCode *int    `json:"business_type_code"`
	Address          Address `json:"address"`
}

// Address is the insured's mailing address.
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

// Producer identifies the submitting producer and agency.
type Producer struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Email  string `json:"email"`
	Agency string `json:"agency"`
}

// Program carries the classification inputs and the identifiers derived
// from them.
type Program struct {
	Name               string         `json:"name"`
	ClassOfBusiness    string         `json:"class_of_business"`
	MarketSegmentCode  string         `json:"market_segment_code"`
	Underwriter        string         `json:"underwriter"`
	LineOfBusiness     LineOfBusiness `json:"line_of_business"`
	LineOfBusinessGUID string         `json:"line_of_business_guid"`
	ProgramID          *int           `json:"program_id"`
}

// Premium holds the financial fields of the transaction.
type Premium struct {
	GrossPremium   *decimal.Decimal `json:"gross_premium"`
	PolicyFee      *decimal.Decimal `json:"policy_fee"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
}

// Exposure is one coverage entry.
type Exposure struct {
	Coverage   string    `json:"coverage"`
	Limits     LimitSpec `json:"limits"`
	Deductible *int64    `json:"deductible"`
}
