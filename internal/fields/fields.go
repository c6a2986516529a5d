// =============================================================================
// Triton IMS Bridge - Field Parsers
// =============================================================================
//
// Pure functions that normalize raw scalar fields from Triton into the typed
// values the canonical record needs.
//
// SUPPORTED CONVERSIONS:
//   - Dates       : "01/15/2025", "1/5/2025", "2025-01-15", RFC 3339 -> "2025-01-15"
//   - Amounts     : "$1,250.50" -> 1250.50
//   - Percentages : "12.5%" -> 12.5
//   - Limits      : "$1,000,000/$3,000,000" -> {1000000, 3000000}
//   - Renewal flag: "Renewal" -> true
//
// Every failure is a *types.FormatError. Whether to default or to reject
// the transaction is left to the caller.
//
// =============================================================================

package fields

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// ISODate is the output layout of ParseDate.
const ISODate = "2006-01-02"

// dateLayouts are tried in order. Go's "1/2/2006" accepts both padded and
// unpadded month and day.
var dateLayouts = []string{
	ISODate,
	"1/2/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// =============================================================================
// DATES
// =============================================================================

// ParseDate converts an MM/DD/YYYY or ISO date into ISO 8601 YYYY-MM-DD.
//
// EXAMPLE:
//   Input:  "01/01/2025"
//   Output: "2025-01-01"
func ParseDate(value string) (string, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return "", &types.FormatError{Value: value, Err: errors.New("empty date")}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), nil
		}
	}

	return "", &types.FormatError{Value: value, Err: errors.New("expected MM/DD/YYYY or YYYY-MM-DD")}
}

// =============================================================================
// AMOUNTS
// =============================================================================

// ParseAmount strips currency symbols and thousands separators and parses
// the remainder as a decimal amount.
//
// EXAMPLE:
//   Input:  "$1,250.50"
//   Output: 1250.50
func ParseAmount(value string) (decimal.Decimal, error) {
	s := cleanAmount(value)
	if s == "" {
		return decimal.Zero, &types.FormatError{Value: value, Err: errors.New("empty amount")}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &types.FormatError{Value: value, Err: errors.New("not a currency amount")}
	}
	return d, nil
}

var maxWholeAmount = decimal.NewFromInt(math.MaxInt64)

// ParseWholeAmount parses an amount that must be a non-negative whole number
// of dollars, such as a limit or a deductible.
func ParseWholeAmount(value string) (int64, error) {
	d, err := ParseAmount(value)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, &types.FormatError{Value: value, Err: errors.New("amount must be a whole number")}
	}
	if d.IsNegative() {
		return 0, &types.FormatError{Value: value, Err: errors.New("amount must not be negative")}
	}
	if d.GreaterThan(maxWholeAmount) {
		return 0, &types.FormatError{Value: value, Err: errors.New("amount out of range")}
	}
	return d.IntPart(), nil
}

// ParsePercentage parses a rate such as "12.5%" or "12.5".
func ParsePercentage(value string) (decimal.Decimal, error) {
	s := strings.TrimSuffix(strings.TrimSpace(value), "%")
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, &types.FormatError{Value: value, Err: errors.New("not a percentage")}
	}
	return d, nil
}

// cleanAmount removes "$", "," and whitespace.
func cleanAmount(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}

// =============================================================================
// LIMITS
// =============================================================================

// ParseLimit parses an "occurrence/aggregate" compound limit.
//
// EXAMPLES:
//   "$1,000,000/$3,000,000" -> {Occurrence: 1000000, Aggregate: 3000000}
//   "$1,000,000"            -> {Occurrence: 1000000, Aggregate: defaults.Aggregate}
//   ""                      -> defaults
func ParseLimit(value string, defaults types.LimitSpec) (types.LimitSpec, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return defaults, nil
	}

	occurrencePart, aggregatePart, compound := strings.Cut(s, "/")

	occurrence, err := ParseWholeAmount(occurrencePart)
	if err != nil {
		return types.LimitSpec{}, &types.FormatError{Value: value, Err: errors.New("bad occurrence limit")}
	}

	if !compound {
		return types.LimitSpec{Occurrence: occurrence, Aggregate: defaults.Aggregate}, nil
	}

	aggregate, err := ParseWholeAmount(aggregatePart)
	if err != nil {
		return types.LimitSpec{}, &types.FormatError{Value: value, Err: errors.New("bad aggregate limit")}
	}

	return types.LimitSpec{Occurrence: occurrence, Aggregate: aggregate}, nil
}

// =============================================================================
// FLAGS
// =============================================================================

// IsRenewal reports whether a Triton business type label denotes a renewal.
func IsRenewal(businessType string) bool {
	return strings.EqualFold(strings.TrimSpace(businessType), "renewal")
}
