package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

func defaultSettings() config.CSVSettings {
	return config.CSVSettings{Delimiter: ",", HeaderRows: 1, DataStartRow: 2, NormalizeHeaders: true}
}

func TestParse_SingleHeader(t *testing.T) {
	input := "Transaction Type,Policy Number,Insured Name,Gross Premium\n" +
		"New Business,POL-1,Acme Widgets,\"$1,500.00\"\n" +
		",,,\n" +
		"Renewal,POL-2,,\n"

	data, err := Parse(strings.NewReader(input), defaultSettings())
	require.NoError(t, err)

	assert.Equal(t, []string{"transaction_type", "policy_number", "insured_name", "gross_premium"}, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, types.RawTransaction{
		"transaction_type": "New Business",
		"policy_number":    "POL-1",
		"insured_name":     "Acme Widgets",
		"gross_premium":    "$1,500.00",
	}, data.Rows[0])

	// Empty cells are absent, not empty strings.
	assert.Equal(t, types.RawTransaction{"transaction_type": "Renewal", "policy_number": "POL-2"}, data.Rows[1])
	assert.Equal(t, []int{2, 4}, data.LineNumbers)
}

func TestParse_MultiLineHeaderAndPipe(t *testing.T) {
	input := "Insured|||Producer\n" +
		"Name|City|Business Type|Code\n" +
		"Acme|Austin|LLC|P-77\n"

	settings := config.CSVSettings{Delimiter: "pipe", HeaderRows: 2, DataStartRow: 3, NormalizeHeaders: true}
	data, err := Parse(strings.NewReader(input), settings)
	require.NoError(t, err)

	assert.Equal(t, []string{"insured_name", "city", "business_type", "producer_code"}, data.Headers)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, "LLC", data.Rows[0]["business_type"])
}

func TestParse_RawHeaders(t *testing.T) {
	settings := defaultSettings()
	settings.NormalizeHeaders = false

	data, err := Parse(strings.NewReader("Policy Number,\nPOL-1,x\n"), settings)
	require.NoError(t, err)
	assert.Equal(t, []string{"Policy Number", "Column_2"}, data.Headers)
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""), defaultSettings())
	assert.ErrorContains(t, err, "empty")
}

func TestParse_HeaderOnly(t *testing.T) {
	data, err := Parse(strings.NewReader("policy_number\n"), defaultSettings())
	require.NoError(t, err)
	assert.Empty(t, data.Rows)
	assert.NotNil(t, data.Rows)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeffpolicy_number,zip\nPOL-9,78701\n"), 0644))

	data, err := ParseFile(path, defaultSettings())
	require.NoError(t, err)
	assert.Equal(t, path, data.SourceFile)
	assert.Equal(t, types.RawTransaction{"policy_number": "POL-9", "zip": "78701"}, data.Rows[0])
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "insured_business_type", NormalizeHeader("Insured Business Type"))
	assert.Equal(t, "address_1", NormalizeHeader(" Address-1 "))
	assert.Equal(t, "policy_number", NormalizeHeader("policy_number"))
}
