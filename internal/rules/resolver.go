package rules

import (
	"strings"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// Resolver derives IMS identifiers from classification fields.
//
// Unmatched business types and unknown market segments are returned as
// *types.UnresolvedClassificationError; the resolver never picks a default.
type Resolver struct {
	table *Table
}

// NewResolver creates a Resolver over a compiled table.
func NewResolver(table *Table) *Resolver {
	return &Resolver{table: table}
}

// BusinessTypeCode looks up the code of a legal entity type by exact name
// or abbreviation.
//
// EXAMPLE:
//   "LLC", "Limited Liability Corporation" -> 9
func (r *Resolver) BusinessTypeCode(name string) (int, error) {
	code, ok := r.table.businessTypeCode(name)
	if !ok {
		return 0, &types.UnresolvedClassificationError{Kind: "business_type", Value: name}
	}
	return code, nil
}

// LineOfBusiness selects the excess line when the program name, then the
// class of business, contains an excess keyword. Everything else is primary.
func (r *Resolver) LineOfBusiness(programName, classOfBusiness string) types.LineOfBusiness {
	for _, field := range []string{programName, classOfBusiness} {
		lower := strings.ToLower(field)
		for _, keyword := range r.table.excessKeywords {
			if strings.Contains(lower, keyword) {
				return types.LineExcess
			}
		}
	}
	return types.LinePrimary
}

// LineGUID returns the IMS line-of-business GUID of a line.
func (r *Resolver) LineGUID(line types.LineOfBusiness) string {
	return r.table.lineGUIDs[line]
}

// ProgramID looks up the program identifier for a market segment and line.
func (r *Resolver) ProgramID(marketSegment string, line types.LineOfBusiness) (int, error) {
	id, ok := r.table.programID(marketSegment, line)
	if !ok {
		return 0, &types.UnresolvedClassificationError{Kind: "market_segment", Value: marketSegment}
	}
	return id, nil
}
