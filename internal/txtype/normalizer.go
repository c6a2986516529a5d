// =============================================================================
// Triton IMS Bridge - Transaction Type Normalizer
// =============================================================================
//
// Maps the free-form transaction type strings Triton sends onto the closed
// set of canonical kinds IMS routing depends on.
//
// MATCHING:
//   Input is trimmed, lower-cased, and "-", "_" and repeated spaces are
//   folded into single spaces before lookup, so "NEW BUSINESS",
//   "new_business" and "New-Business" all match.
//
// Unknown strings are a hard error: a guessed kind would misroute the
// transaction downstream.
//
// =============================================================================

package txtype

import (
	"strings"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// synonyms is keyed by the folded form of each accepted spelling.
var synonyms = map[string]types.TransactionType{
	"new business": types.TransactionNewBusiness,
	"newbusiness":  types.TransactionNewBusiness,
	"new":          types.TransactionNewBusiness,
	"nb":           types.TransactionNewBusiness,
	"bind":         types.TransactionNewBusiness,

	"renewal": types.TransactionRenewal,
	"renew":   types.TransactionRenewal,
	"rn":      types.TransactionRenewal,

	"endorsement": types.TransactionEndorsement,
	"endorse":     types.TransactionEndorsement,
	"end":         types.TransactionEndorsement,

	"midterm endorsement":  types.TransactionMidtermEndorsement,
	"mid term endorsement": types.TransactionMidtermEndorsement,
	"midterm":              types.TransactionMidtermEndorsement,
	"mte":                  types.TransactionMidtermEndorsement,

	"cancellation": types.TransactionCancellation,
	"cancel":       types.TransactionCancellation,
	"cancelled":    types.TransactionCancellation,
	"canceled":     types.TransactionCancellation,

	"reinstatement": types.TransactionReinstatement,
	"reinstate":     types.TransactionReinstatement,

	"unbind": types.TransactionUnbind,

	"issue":    types.TransactionIssue,
	"issuance": types.TransactionIssue,
	"issued":   types.TransactionIssue,
}

// Normalize maps a source transaction type onto its canonical kind.
//
// EXAMPLES:
//   "NEW BUSINESS"        -> new_business
//   " Midterm Endorsement" -> midterm_endorsement
//   "FOOBAR"              -> *types.UnknownTransactionTypeError
func Normalize(value string) (types.TransactionType, error) {
	if kind, ok := synonyms[fold(value)]; ok {
		return kind, nil
	}
	return "", &types.UnknownTransactionTypeError{Value: value}
}

func fold(value string) string {
	s := strings.ToLower(value)
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
