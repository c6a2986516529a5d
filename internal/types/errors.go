package types

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrFormat                   = errors.New("format error")
	ErrUnresolvedClassification = errors.New("unresolved classification")
	ErrUnknownTransactionType   = errors.New("unknown transaction type")
	ErrMissingRequiredGroup     = errors.New("missing required group")
)

// FormatError reports a scalar field that could not be parsed.
// Callers may substitute a default or reject the whole transaction.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	msg := "invalid value"
	if e.Value != "" {
		msg = fmt.Sprintf("invalid value %q", e.Value)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("field '%s': %s", e.Field, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// WithField returns a copy of the error attributed to field.
// An error that already names a field keeps it.
func (e *FormatError) WithField(field string) *FormatError {
	if e.Field != "" {
		return e
	}
	c := *e
	c.Field = field
	return &c
}

// UnresolvedClassificationError reports a classification value with no
// matching rule. Kind is one of "business_type" or "market_segment".
type UnresolvedClassificationError struct {
	Kind  string
	Value string
}

func (e *UnresolvedClassificationError) Error() string {
	return fmt.Sprintf("no %s rule matches %q", e.Kind, e.Value)
}

func (e *UnresolvedClassificationError) Is(target error) bool {
	return target == ErrUnresolvedClassification
}

// UnknownTransactionTypeError reports a transaction type string that maps
// to no canonical kind.
type UnknownTransactionTypeError struct {
	Value string
}

func (e *UnknownTransactionTypeError) Error() string {
	return fmt.Sprintf("unknown transaction type %q", e.Value)
}

func (e *UnknownTransactionTypeError) Is(target error) bool {
	return target == ErrUnknownTransactionType
}

// MissingRequiredGroupError reports a nested payload lacking a group the
// canonical schema requires.
type MissingRequiredGroupError struct {
	Group string
}

func (e *MissingRequiredGroupError) Error() string {
	return fmt.Sprintf("nested payload is missing required group '%s'", e.Group)
}

func (e *MissingRequiredGroupError) Is(target error) bool {
	return target == ErrMissingRequiredGroup
}
