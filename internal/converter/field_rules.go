// =============================================================================
// Triton IMS Bridge - Field Rules
// =============================================================================
//
// Field rules clean up raw export values before they reach the transformer.
// They are configured per field under field_rules in config.yaml:
//
//   field_rules:
//     - field: policy_number
//       actions:
//         - type: trim
//         - type: uppercase
//     - field: market_segment_code
//       actions:
//         - type: lookup
//           lookup_table:
//             RETAIL: RT
//             WHOLESALE: WL
//
// Rules apply to top-level scalar fields only. Nested groups are left alone.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

var (
	specialCharsPattern = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// FieldRules applies configured field actions to raw transactions.
type FieldRules struct {
	rules   []config.FieldRule
	regexes map[string]*regexp.Regexp
}

// NewFieldRules validates the configured rules and compiles their patterns.
//
// RETURNS:
//   - The compiled rules.
//   - An error naming the first unknown action type or invalid pattern.
func NewFieldRules(rules []config.FieldRule) (*FieldRules, error) {
	fr := &FieldRules{
		rules:   rules,
		regexes: make(map[string]*regexp.Regexp),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			if !knownAction(action.Type) {
				return nil, fmt.Errorf("field '%s': unknown action type: %s", rule.Field, action.Type)
			}
			if action.Type != "regex_replace" || action.Find == "" {
				continue
			}
			if _, ok := fr.regexes[action.Find]; ok {
				continue
			}
			re, err := regexp.Compile(action.Find)
			if err != nil {
				return nil, fmt.Errorf("field '%s': invalid regex pattern: %w", rule.Field, err)
			}
			fr.regexes[action.Find] = re
		}
	}

	return fr, nil
}

// Apply returns a copy of raw with every rule applied. The input is never
// modified.
func (fr *FieldRules) Apply(raw types.RawTransaction) (types.RawTransaction, error) {
	if fr == nil || len(fr.rules) == 0 {
		return raw, nil
	}

	out := make(types.RawTransaction, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	for _, rule := range fr.rules {
		current, exists := out[rule.Field]

		value, err := cast.ToStringE(current)
		if err != nil {
			// Groups and lists are not subject to field rules.
			continue
		}

		for _, action := range rule.Actions {
			value, err = fr.apply(value, action, out)
			if err != nil {
				return nil, &types.FormatError{Field: rule.Field, Err: fmt.Errorf("action '%s' failed: %w", action.Type, err)}
			}
		}

		if exists || value != "" {
			out[rule.Field] = value
		}
	}

	return out, nil
}

// apply runs a single action.
func (fr *FieldRules) apply(value string, action config.FieldAction, row types.RawTransaction) (string, error) {
	switch action.Type {

	// =========================================================================
	// STRING MANIPULATIONS
	// =========================================================================

	case "trim":
		return strings.TrimSpace(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "prepend_string":
		// EXAMPLE:
		//   Input: "123456"
		//   Action: prepend_string with value "TRI-"
		//   Output: "TRI-123456"
		return action.Value + value, nil

	case "append_string":
		return value + action.Value, nil

	case "replace":
		if action.Find == "" {
			return value, nil
		}
		return strings.ReplaceAll(value, action.Find, action.Value), nil

	case "regex_replace":
		if action.Find == "" {
			return value, nil
		}
		return fr.regexes[action.Find].ReplaceAllString(value, action.Value), nil

	case "remove_special_chars":
		return specialCharsPattern.ReplaceAllString(value, ""), nil

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " ")), nil

	// =========================================================================
	// NUMERIC FORMATTING
	// =========================================================================

	case "pad_zeros_to_length":
		// EXAMPLE:
		//   Input: "123"
		//   Action: pad_zeros_to_length with value "8"
		//   Output: "00000123"
		length, err := strconv.Atoi(action.Value)
		if err != nil || length <= 0 {
			return "", fmt.Errorf("invalid length %q", action.Value)
		}
		return padLeft(value, length, '0'), nil

	// =========================================================================
	// LOOKUPS AND DEFAULTS
	// =========================================================================

	case "lookup":
		if replacement, ok := lookup(action.LookupTable, value); ok {
			return replacement, nil
		}
		return value, nil

	case "lookup_with_default":
		if replacement, ok := lookup(action.LookupTable, value); ok {
			return replacement, nil
		}
		return action.Value, nil

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value, nil
		}
		return value, nil

	case "if_empty_use_field":
		if strings.TrimSpace(value) == "" {
			if other, err := cast.ToStringE(row[action.Value]); err == nil {
				return other, nil
			}
		}
		return value, nil
	}

	return "", fmt.Errorf("unknown action type: %s", action.Type)
}

func knownAction(kind string) bool {
	switch kind {
	case "trim", "uppercase", "lowercase", "prepend_string", "append_string",
		"replace", "regex_replace", "remove_special_chars", "normalize_whitespace",
		"pad_zeros_to_length", "lookup", "lookup_with_default",
		"if_empty_use_default", "if_empty_use_field":
		return true
	}
	return false
}

// lookup finds value in table, falling back to a case-insensitive match.
// Keys read through viper arrive lowercased.
func lookup(table map[string]string, value string) (string, bool) {
	if replacement, ok := table[value]; ok {
		return replacement, true
	}
	for key, replacement := range table {
		if strings.EqualFold(key, value) {
			return replacement, true
		}
	}
	return "", false
}

// padLeft pads s on the left with padChar up to length runes.
func padLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
