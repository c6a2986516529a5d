// =============================================================================
// Triton IMS Bridge - Payload Decoding
// =============================================================================
//
// Raw payloads are decoded into closed structures before any business rule
// runs, so that absent fields and wrongly typed fields are explicit:
//   - an absent field is a nil pointer
//   - a field of the wrong shape (a list where a string belongs) is a
//     *types.FormatError
//
// Scalars are decoded weakly: JSON numbers, booleans and spreadsheet cells
// all arrive as strings and are parsed by the field parsers afterwards.
//
// FLAT FIELD NAMES (Triton export):
//   transaction_type, transaction_id, policy_number, effective_date,
//   expiration_date, business_type, insured_name, insured_dba,
//   insured_business_type, address_1, address_2, city, state, zip,
//   producer_name, producer_code, producer_email, agency_name, program_name,
//   class_of_business, market_segment_code, underwriter, gross_premium,
//   policy_fee, commission_rate, coverage_name, limit, deductible, exposures
//
// NESTED FIELD NAMES:
//   Identical to the JSON field names of types.CanonicalTransaction.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// =============================================================================
// CLOSED PAYLOAD
// =============================================================================

// Payload is the grouped, closed form every raw transaction is decoded into.
type Payload struct {
	TransactionType *string `mapstructure:"transaction_type"`
	TransactionID   *string `mapstructure:"transaction_id"`
	PolicyNumber    *string `mapstructure:"policy_number"`
	EffectiveDate   *string `mapstructure:"effective_date"`
	ExpirationDate  *string `mapstructure:"expiration_date"`
	BusinessType    *string `mapstructure:"business_type"`
	IsRenewal       *bool   `mapstructure:"is_renewal"`

	Account   *AccountPayload   `mapstructure:"account"`
	Producer  *ProducerPayload  `mapstructure:"producer"`
	Program   *ProgramPayload   `mapstructure:"program"`
	Premium   *PremiumPayload   `mapstructure:"premium"`
	Exposures []ExposurePayload `mapstructure:"exposures"`
}

// AccountPayload is the insured group.
type AccountPayload struct {
	Name             *string        `mapstructure:"name"`
	DBA              *string        `mapstructure:"dba"`
	BusinessType     *string        `mapstructure:"business_type"`
	BusinessTypeCode *int           `mapstructure:"business_type_code"`
	Address          AddressPayload `mapstructure:"address"`
}

// AddressPayload is the insured's address.
type AddressPayload struct {
	Address1 *string `mapstructure:"address1"`
	Address2 *string `mapstructure:"address2"`
	City     *string `mapstructure:"city"`
	State    *string `mapstructure:"state"`
	Zip      *string `mapstructure:"zip"`
}

// ProducerPayload is the producer group.
type ProducerPayload struct {
	Name   *string `mapstructure:"name"`
	Code   *string `mapstructure:"code"`
	Email  *string `mapstructure:"email"`
	Agency *string `mapstructure:"agency"`
}

// ProgramPayload is the program group. The derived identifiers are only
// present when the payload was produced by an earlier transformation.
type ProgramPayload struct {
	Name               *string `mapstructure:"name"`
	ClassOfBusiness    *string `mapstructure:"class_of_business"`
	MarketSegmentCode  *string `mapstructure:"market_segment_code"`
	Underwriter        *string `mapstructure:"underwriter"`
	LineOfBusiness     *string `mapstructure:"line_of_business"`
	LineOfBusinessGUID *string `mapstructure:"line_of_business_guid"`
	ProgramID          *int    `mapstructure:"program_id"`
}

// PremiumPayload holds unparsed currency amounts.
type PremiumPayload struct {
	GrossPremium   *string `mapstructure:"gross_premium"`
	PolicyFee      *string `mapstructure:"policy_fee"`
	CommissionRate *string `mapstructure:"commission_rate"`
}

// ExposurePayload is one coverage entry. Limits may be a compound string
// such as "$1,000,000/$3,000,000" or a mapping with occurrence and
// aggregate keys.
type ExposurePayload struct {
	Coverage     *string `mapstructure:"coverage"`
	CoverageName *string `mapstructure:"coverage_name"`
	Limits       any     `mapstructure:"limits"`
	Limit        *string `mapstructure:"limit"`
	Deductible   *string `mapstructure:"deductible"`
}

// =============================================================================
// FLAT PAYLOAD
// =============================================================================

// flatPayload mirrors the Triton flat export.
type flatPayload struct {
	TransactionType *string `mapstructure:"transaction_type"`
	TransactionID   *string `mapstructure:"transaction_id"`
	PolicyNumber    *string `mapstructure:"policy_number"`
	EffectiveDate   *string `mapstructure:"effective_date"`
	ExpirationDate  *string `mapstructure:"expiration_date"`
	BusinessType    *string `mapstructure:"business_type"`

	InsuredName         *string `mapstructure:"insured_name"`
	InsuredDBA          *string `mapstructure:"insured_dba"`
	InsuredBusinessType *string `mapstructure:"insured_business_type"`
	Address1            *string `mapstructure:"address_1"`
	Address2            *string `mapstructure:"address_2"`
	City                *string `mapstructure:"city"`
	State               *string `mapstructure:"state"`
	Zip                 *string `mapstructure:"zip"`

	ProducerName  *string `mapstructure:"producer_name"`
	ProducerCode  *string `mapstructure:"producer_code"`
	ProducerEmail *string `mapstructure:"producer_email"`
	AgencyName    *string `mapstructure:"agency_name"`

	ProgramName       *string `mapstructure:"program_name"`
	ClassOfBusiness   *string `mapstructure:"class_of_business"`
	MarketSegmentCode *string `mapstructure:"market_segment_code"`
	Underwriter       *string `mapstructure:"underwriter"`

	GrossPremium   *string `mapstructure:"gross_premium"`
	PolicyFee      *string `mapstructure:"policy_fee"`
	CommissionRate *string `mapstructure:"commission_rate"`

	CoverageName *string `mapstructure:"coverage_name"`
	Limit        *string `mapstructure:"limit"`
	Deductible   *string `mapstructure:"deductible"`

	// Exposures is decoded separately: tabular exports may carry an empty
	// exposures column.
	Exposures any `mapstructure:"exposures"`
}

// toPayload groups the flat fields. A single exposure is synthesized when
// the row carries coverage data and no explicit exposures list.
func (f *flatPayload) toPayload(exposures []ExposurePayload) *Payload {
	p := &Payload{
		TransactionType: f.TransactionType,
		TransactionID:   f.TransactionID,
		PolicyNumber:    f.PolicyNumber,
		EffectiveDate:   f.EffectiveDate,
		ExpirationDate:  f.ExpirationDate,
		BusinessType:    f.BusinessType,
		Account: &AccountPayload{
			Name:         f.InsuredName,
			DBA:          f.InsuredDBA,
			BusinessType: f.InsuredBusinessType,
			Address: AddressPayload{
				Address1: f.Address1,
				Address2: f.Address2,
				City:     f.City,
				State:    f.State,
				Zip:      f.Zip,
			},
		},
		Producer: &ProducerPayload{
			Name:   f.ProducerName,
			Code:   f.ProducerCode,
			Email:  f.ProducerEmail,
			Agency: f.AgencyName,
		},
		Program: &ProgramPayload{
			Name:              f.ProgramName,
			ClassOfBusiness:   f.ClassOfBusiness,
			MarketSegmentCode: f.MarketSegmentCode,
			Underwriter:       f.Underwriter,
		},
		Premium: &PremiumPayload{
			GrossPremium:   f.GrossPremium,
			PolicyFee:      f.PolicyFee,
			CommissionRate: f.CommissionRate,
		},
		Exposures: exposures,
	}

	if p.Exposures == nil && (present(f.CoverageName) || present(f.Limit) || present(f.Deductible)) {
		coverage := f.CoverageName
		if !present(coverage) {
			coverage = f.ClassOfBusiness
		}
		p.Exposures = []ExposurePayload{{
			Coverage:   coverage,
			Limit:      f.Limit,
			Deductible: f.Deductible,
		}}
	}

	return p
}

// =============================================================================
// DECODING
// =============================================================================

// decodeFlat decodes a flat payload.
func decodeFlat(raw types.RawTransaction) (*Payload, error) {
	var flat flatPayload
	if err := decode(raw, &flat, "payload"); err != nil {
		return nil, err
	}

	var exposures []ExposurePayload
	if !blank(flat.Exposures) {
		if err := decode(flat.Exposures, &exposures, "exposures"); err != nil {
			return nil, err
		}
	}
	return flat.toPayload(exposures), nil
}

// blank reports whether a raw value carries no data: nil, an empty or
// whitespace string, or the Missing marker.
func blank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		s = strings.TrimSpace(s)
		return s == "" || types.IsMissing(s)
	}
	return false
}

// decodeNested decodes a nested payload. Every canonical group must be
// present.
func decodeNested(raw types.RawTransaction) (*Payload, error) {
	for _, key := range groupKeys {
		if v, ok := raw[key]; !ok || v == nil {
			return nil, &types.MissingRequiredGroupError{Group: key}
		}
	}

	var p Payload
	if err := decode(raw, &p, "payload"); err != nil {
		return nil, err
	}
	return &p, nil
}

// decode decodes input into out weakly. Failures are reported as a
// *types.FormatError on field.
func decode(input any, out any, field string) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return &types.FormatError{Field: field, Err: err}
	}
	return nil
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

// present reports whether a decoded field carries data. The Missing marker
// written by an earlier transformation counts as absent.
func present(s *string) bool {
	return s != nil && !types.IsMissing(strings.TrimSpace(*s))
}

// text returns the trimmed field value or the Missing marker.
func text(s *string) string {
	if !present(s) {
		return types.Missing
	}
	return strings.TrimSpace(*s)
}

// value returns the trimmed field value or "".
func value(s *string) string {
	if !present(s) {
		return ""
	}
	return strings.TrimSpace(*s)
}
