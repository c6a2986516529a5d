// =============================================================================
// Triton IMS Bridge - Payload Transformer
// =============================================================================
//
// This module turns a raw Triton payload into the canonical nested record
// consumed by the IMS submission workflow.
//
// TRANSFORMATION STEPS:
//   1. Detect whether the payload is flat or nested
//   2. Decode it into the closed Payload structure
//   3. Normalize dates, amounts and limits through the field parsers
//   4. Derive business-type code, line of business and program identifier
//      through the rule resolver
//   5. Normalize the transaction type
//
// GUARANTEES:
//   - Every canonical key is present; absent data is marked, never omitted
//   - Exposures is never nil
//   - Transforming an already canonical payload returns the same record
//
// The transformer is pure: it does no I/O, keeps no state between calls and
// never logs. Any number of goroutines may share one Transformer.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ginjaninja78/triton-ims-bridge/internal/fields"
	"github.com/ginjaninja78/triton-ims-bridge/internal/rules"
	"github.com/ginjaninja78/triton-ims-bridge/internal/txtype"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer builds canonical transactions from raw payloads.
type Transformer struct {
	resolver *rules.Resolver
	defaults types.LimitSpec
}

// NewTransformer creates a Transformer over a compiled rule table.
//
// PARAMETERS:
//   - table: The classification rule table, shared read-only.
//   - defaults: The limits applied when a coverage carries none.
func NewTransformer(table *rules.Table, defaults types.LimitSpec) *Transformer {
	return &Transformer{
		resolver: rules.NewResolver(table),
		defaults: defaults,
	}
}

// Transform detects the payload structure and transforms it.
func (t *Transformer) Transform(raw types.RawTransaction) (*types.CanonicalTransaction, error) {
	return t.TransformStructure(raw, DetectStructure(raw))
}

// TransformStructure transforms a payload whose structure is already known.
//
// RETURNS:
//   - The canonical transaction.
//   - A *types.FormatError, *types.UnresolvedClassificationError,
//     *types.UnknownTransactionTypeError or *types.MissingRequiredGroupError.
func (t *Transformer) TransformStructure(raw types.RawTransaction, structure Structure) (*types.CanonicalTransaction, error) {
	var (
		payload *Payload
		err     error
	)

	switch structure {
	case StructureNested:
		payload, err = decodeNested(raw)
	default:
		payload, err = decodeFlat(raw)
	}
	if err != nil {
		return nil, err
	}

	return t.build(payload)
}

// =============================================================================
// CANONICAL RECORD ASSEMBLY
// =============================================================================

func (t *Transformer) build(p *Payload) (*types.CanonicalTransaction, error) {
	kind, err := txtype.Normalize(value(p.TransactionType))
	if err != nil {
		return nil, err
	}

	effective, err := parseDate("effective_date", p.EffectiveDate)
	if err != nil {
		return nil, err
	}
	expiration, err := parseDate("expiration_date", p.ExpirationDate)
	if err != nil {
		return nil, err
	}

	tx := &types.CanonicalTransaction{
		TransactionType: kind,
		TransactionID:   text(p.TransactionID),
		PolicyNumber:    text(p.PolicyNumber),
		EffectiveDate:   effective,
		ExpirationDate:  expiration,
		BusinessType:    text(p.BusinessType),
		Exposures:       []types.Exposure{},
	}

	// A new/renewal label wins over a previously derived flag.
	switch {
	case present(p.BusinessType):
		tx.IsRenewal = fields.IsRenewal(*p.BusinessType)
	case p.IsRenewal != nil:
		tx.IsRenewal = *p.IsRenewal
	}

	if tx.Account, err = t.buildAccount(p.Account); err != nil {
		return nil, err
	}
	tx.Producer = buildProducer(p.Producer)
	if tx.Program, err = t.buildProgram(p.Program); err != nil {
		return nil, err
	}
	if tx.Premium, err = buildPremium(p.Premium); err != nil {
		return nil, err
	}

	for i, e := range p.Exposures {
		exposure, err := t.buildExposure(e)
		if err != nil {
			return nil, fmt.Errorf("exposure %d: %w", i+1, err)
		}
		tx.Exposures = append(tx.Exposures, exposure)
	}

	return tx, nil
}

func (t *Transformer) buildAccount(a *AccountPayload) (types.Account, error) {
	if a == nil {
		a = &AccountPayload{}
	}

	account := types.Account{
		Name:             text(a.Name),
		DBA:              text(a.DBA),
		BusinessType:     text(a.BusinessType),
		BusinessTypeCode: identifier(a.BusinessTypeCode),
		Address: types.Address{
			Address1: text(a.Address.Address1),
			Address2: text(a.Address.Address2),
			City:     text(a.Address.City),
			State:    text(a.Address.State),
			Zip:      text(a.Address.Zip),
		},
	}

	if account.BusinessTypeCode == nil && present(a.BusinessType) {
		code, err := t.resolver.BusinessTypeCode(value(a.BusinessType))
		if err != nil {
			return types.Account{}, err
		}
		account.BusinessTypeCode = &code
	}

	return account, nil
}

func buildProducer(p *ProducerPayload) types.Producer {
	if p == nil {
		p = &ProducerPayload{}
	}
	return types.Producer{
		Name:   text(p.Name),
		Code:   text(p.Code),
		Email:  text(p.Email),
		Agency: text(p.Agency),
	}
}

func (t *Transformer) buildProgram(p *ProgramPayload) (types.Program, error) {
	if p == nil {
		p = &ProgramPayload{}
	}

	program := types.Program{
		Name:              text(p.Name),
		ClassOfBusiness:   text(p.ClassOfBusiness),
		MarketSegmentCode: text(p.MarketSegmentCode),
		Underwriter:       text(p.Underwriter),
		ProgramID:         identifier(p.ProgramID),
	}

	if present(p.LineOfBusiness) {
		line := types.LineOfBusiness(value(p.LineOfBusiness))
		if !line.Valid() {
			return types.Program{}, &types.FormatError{Field: "program.line_of_business", Value: *p.LineOfBusiness}
		}
		program.LineOfBusiness = line
	} else {
		program.LineOfBusiness = t.resolver.LineOfBusiness(value(p.Name), value(p.ClassOfBusiness))
	}

	if present(p.LineOfBusinessGUID) {
		program.LineOfBusinessGUID = value(p.LineOfBusinessGUID)
	} else {
		program.LineOfBusinessGUID = t.resolver.LineGUID(program.LineOfBusiness)
	}

	if program.ProgramID == nil && present(p.MarketSegmentCode) {
		id, err := t.resolver.ProgramID(value(p.MarketSegmentCode), program.LineOfBusiness)
		if err != nil {
			return types.Program{}, err
		}
		program.ProgramID = &id
	}

	return program, nil
}

func buildPremium(p *PremiumPayload) (types.Premium, error) {
	if p == nil {
		p = &PremiumPayload{}
	}

	var (
		premium types.Premium
		err     error
	)
	if premium.GrossPremium, err = parseAmount("premium.gross_premium", p.GrossPremium); err != nil {
		return types.Premium{}, err
	}
	if premium.PolicyFee, err = parseAmount("premium.policy_fee", p.PolicyFee); err != nil {
		return types.Premium{}, err
	}
	if present(p.CommissionRate) {
		rate, err := fields.ParsePercentage(*p.CommissionRate)
		if err != nil {
			return types.Premium{}, withField(err, "premium.commission_rate")
		}
		premium.CommissionRate = &rate
	}
	return premium, nil
}

func (t *Transformer) buildExposure(e ExposurePayload) (types.Exposure, error) {
	coverage := e.Coverage
	if !present(coverage) {
		coverage = e.CoverageName
	}

	exposure := types.Exposure{Coverage: text(coverage)}

	limits, err := t.parseLimits(e)
	if err != nil {
		return types.Exposure{}, err
	}
	exposure.Limits = limits

	if present(e.Deductible) {
		deductible, err := fields.ParseWholeAmount(*e.Deductible)
		if err != nil {
			return types.Exposure{}, withField(err, "deductible")
		}
		exposure.Deductible = &deductible
	}

	return exposure, nil
}

// parseLimits accepts a compound limit string under "limits" or "limit",
// or an occurrence/aggregate mapping under "limits".
func (t *Transformer) parseLimits(e ExposurePayload) (types.LimitSpec, error) {
	switch v := e.Limits.(type) {
	case nil:
		limits, err := fields.ParseLimit(value(e.Limit), t.defaults)
		return limits, withField(err, "limit")

	case map[string]any:
		return t.parseLimitMapping(v)

	case types.RawTransaction:
		return t.parseLimitMapping(v)

	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return types.LimitSpec{}, &types.FormatError{Field: "limits", Err: err}
		}
		limits, err := fields.ParseLimit(s, t.defaults)
		return limits, withField(err, "limits")
	}
}

// parseLimitMapping reads occurrence and aggregate keys. An absent key
// keeps the default.
func (t *Transformer) parseLimitMapping(m map[string]any) (types.LimitSpec, error) {
	limits := t.defaults
	for key, target := range map[string]*int64{"occurrence": &limits.Occurrence, "aggregate": &limits.Aggregate} {
		raw, ok := m[key]
		if !ok || raw == nil {
			continue
		}
		s, err := cast.ToStringE(raw)
		if err != nil {
			return types.LimitSpec{}, &types.FormatError{Field: "limits." + key, Err: err}
		}
		n, err := fields.ParseWholeAmount(s)
		if err != nil {
			return types.LimitSpec{}, withField(err, "limits."+key)
		}
		*target = n
	}
	return limits, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// identifier returns a pre-derived rule identifier, or nil when it is not a
// positive number. Weak decoding turns "" into 0, and no rule uses 0.
func identifier(id *int) *int {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

// parseDate normalizes a date field, or marks it missing when absent.
func parseDate(field string, s *string) (string, error) {
	if !present(s) {
		return types.Missing, nil
	}
	iso, err := fields.ParseDate(*s)
	if err != nil {
		return "", withField(err, field)
	}
	return iso, nil
}

// parseAmount parses a currency field, or returns nil when absent.
func parseAmount(field string, s *string) (*decimal.Decimal, error) {
	if !present(s) {
		return nil, nil
	}
	d, err := fields.ParseAmount(*s)
	if err != nil {
		return nil, withField(err, field)
	}
	return &d, nil
}

// withField attributes a field parser error to a canonical field.
func withField(err error, field string) error {
	var formatErr *types.FormatError
	if errors.As(err, &formatErr) {
		return formatErr.WithField(field)
	}
	return err
}
