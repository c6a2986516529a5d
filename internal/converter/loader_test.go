package converter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"single object", `{"transaction_id":"TX-1"}`, 1},
		{"array", `[{"transaction_id":"TX-1"},{"transaction_id":"TX-2"}]`, 2},
		{"wrapped", `{"transactions":[{"transaction_id":"TX-1"}]}`, 1},
		{"empty array", `[]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeJSON([]byte(tt.input))
			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestDecodeJSON_Errors(t *testing.T) {
	for _, input := range []string{`{oops`, `"text"`, `[1, 2]`, `[{"a":1}, "b"]`} {
		_, err := DecodeJSON([]byte(input))
		assert.ErrorIs(t, err, types.ErrFormat, input)
	}
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := LoadFile(path, testOptions().CSVSettings, "")
	assert.Error(t, err)
}

func TestLoadFile_CSVRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.csv")
	content := "Transaction Type,Transaction ID,Policy Number\n" +
		"New Business,TX-1,POL-1\n" +
		"Renewal,TX-2,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	batch, err := LoadFile(path, testOptions().CSVSettings, "")
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, []int{2, 3}, batch.Rows)
	assert.Equal(t, "TX-1", batch.Records[0]["transaction_id"])

	_, hasPolicy := batch.Records[1]["policy_number"]
	assert.False(t, hasPolicy)
}

func TestLoadFile_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Transaction Type", "Transaction ID"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"New Business", "TX-1"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	batch, err := LoadFile(path, testOptions().CSVSettings, "")
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, []int{2}, batch.Rows)
	assert.Equal(t, "TX-1", batch.Records[0]["transaction_id"])
}

func TestRender(t *testing.T) {
	tx, err := newTestTransformer().Transform(flatFixture())
	require.NoError(t, err)

	out, err := Render([]types.CanonicalTransaction{*tx}, "json")
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "new_business", decoded[0]["transaction_type"])

	out, err = Render(nil, "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))

	out, err = Render([]types.CanonicalTransaction{*tx}, "xml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "<?xml"))

	_, err = Render(nil, "yaml")
	assert.Error(t, err)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".xml", Extension("xml"))
	assert.Equal(t, ".json", Extension("json"))
	assert.Equal(t, ".json", Extension(""))
}
