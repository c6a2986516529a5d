package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

func TestFieldRules_Apply(t *testing.T) {
	fr, err := NewFieldRules([]config.FieldRule{
		{
			Field: "policy_number",
			Actions: []config.FieldAction{
				{Type: "trim"},
				{Type: "uppercase"},
				{Type: "pad_zeros_to_length", Value: "8"},
				{Type: "prepend_string", Value: "TRI-"},
			},
		},
		{
			Field: "market_segment_code",
			Actions: []config.FieldAction{
				{Type: "lookup", LookupTable: map[string]string{"Retail": "RT", "Wholesale": "WL"}},
			},
		},
		{
			Field:   "insured_dba",
			Actions: []config.FieldAction{{Type: "if_empty_use_field", Value: "insured_name"}},
		},
		{
			Field:   "producer_code",
			Actions: []config.FieldAction{{Type: "regex_replace", Find: `^P-`, Value: ""}},
		},
		{
			Field:   "zip",
			Actions: []config.FieldAction{{Type: "remove_special_chars"}},
		},
		{
			Field:   "underwriter",
			Actions: []config.FieldAction{{Type: "if_empty_use_default", Value: "Unassigned"}},
		},
	})
	require.NoError(t, err)

	raw := types.RawTransaction{
		"policy_number":       " ab12 ",
		"market_segment_code": "Retail",
		"insured_name":        "Acme Widgets",
		"producer_code":       "P-77",
		"zip":                 "78701-1234",
		"account":             map[string]any{"name": "untouched"},
	}

	out, err := fr.Apply(raw)
	require.NoError(t, err)

	assert.Equal(t, "TRI-0000AB12", out["policy_number"])
	assert.Equal(t, "RT", out["market_segment_code"])
	assert.Equal(t, "Acme Widgets", out["insured_dba"])
	assert.Equal(t, "77", out["producer_code"])
	assert.Equal(t, "787011234", out["zip"])
	assert.Equal(t, "Unassigned", out["underwriter"])
	assert.Equal(t, map[string]any{"name": "untouched"}, out["account"])

	// The input row is left as it was.
	assert.Equal(t, " ab12 ", raw["policy_number"])
	assert.NotContains(t, raw, "underwriter")
}

func TestFieldRules_SkipsGroups(t *testing.T) {
	fr, err := NewFieldRules([]config.FieldRule{
		{Field: "account", Actions: []config.FieldAction{{Type: "uppercase"}}},
	})
	require.NoError(t, err)

	group := map[string]any{"name": "Acme"}
	out, err := fr.Apply(types.RawTransaction{"account": group})
	require.NoError(t, err)
	assert.Equal(t, group, out["account"])
}

func TestFieldRules_NilIsPassThrough(t *testing.T) {
	var fr *FieldRules
	raw := types.RawTransaction{"policy_number": "X"}

	out, err := fr.Apply(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, out)
}

func TestNewFieldRules_Invalid(t *testing.T) {
	_, err := NewFieldRules([]config.FieldRule{
		{Field: "zip", Actions: []config.FieldAction{{Type: "explode"}}},
	})
	assert.ErrorContains(t, err, "unknown action type")

	_, err = NewFieldRules([]config.FieldRule{
		{Field: "zip", Actions: []config.FieldAction{{Type: "regex_replace", Find: "("}}},
	})
	assert.ErrorContains(t, err, "invalid regex pattern")
}

func TestFieldRules_BadPadLength(t *testing.T) {
	fr, err := NewFieldRules([]config.FieldRule{
		{Field: "policy_number", Actions: []config.FieldAction{{Type: "pad_zeros_to_length", Value: "many"}}},
	})
	require.NoError(t, err)

	_, err = fr.Apply(types.RawTransaction{"policy_number": "1"})
	assert.ErrorIs(t, err, types.ErrFormat)
}
