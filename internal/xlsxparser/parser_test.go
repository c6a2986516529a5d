package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/triton-ims-bridge/internal/rules"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// writeWorkbook saves a workbook whose sheets hold the given rows.
func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for name, rows := range sheets {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	require.NoError(t, f.DeleteSheet("Sheet1"))

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func ruleSheets() map[string][][]any {
	return map[string][][]any{
		"BusinessTypes": {
			{"Code", "Name"},
			{9, "LLC"},
			{1, "Corporation"},
			{9, "Limited Liability Company"},
			{},
			{1, "Inc"},
		},
		"LinesOfBusiness": {
			{"Line", "GUID"},
			{"Primary", "07564291-cbfe-4bbe-88d1-0548c88aca00"},
			{"excess", "08798559-321c-4fc0-98ed-a61b92215f31"},
		},
		"ExcessKeywords": {
			{"Keyword"},
			{"excess"},
			{"umbrella"},
		},
		"Programs": {
			{"Market Segment", "Primary", "Excess"},
			{"RT", 11615, 11612},
			{"WL", "11613", "11614"},
		},
	}
}

func TestParseRules(t *testing.T) {
	path := writeWorkbook(t, ruleSheets())

	doc, err := ParseRules(path)
	require.NoError(t, err)

	assert.Equal(t, []rules.BusinessTypeRule{
		{Code: 9, Names: []string{"LLC", "Limited Liability Company"}},
		{Code: 1, Names: []string{"Corporation", "Inc"}},
	}, doc.BusinessTypes)
	assert.Equal(t, "07564291-cbfe-4bbe-88d1-0548c88aca00", doc.LinesOfBusiness.Primary)
	assert.Equal(t, "08798559-321c-4fc0-98ed-a61b92215f31", doc.LinesOfBusiness.Excess)
	assert.Equal(t, []string{"excess", "umbrella"}, doc.ExcessKeywords)
	assert.Equal(t, rules.ProgramRule{Primary: 11615, Excess: 11612}, doc.Programs["RT"])
	assert.Equal(t, rules.ProgramRule{Primary: 11613, Excess: 11614}, doc.Programs["WL"])
}

func TestLoadRuleTable(t *testing.T) {
	path := writeWorkbook(t, ruleSheets())

	table, err := LoadRuleTable(path)
	require.NoError(t, err)

	resolver := rules.NewResolver(table)
	code, err := resolver.BusinessTypeCode("limited liability company")
	require.NoError(t, err)
	assert.Equal(t, 9, code)

	id, err := resolver.ProgramID("WL", types.LineExcess)
	require.NoError(t, err)
	assert.Equal(t, 11614, id)
}

func TestParseRules_Errors(t *testing.T) {
	t.Run("missing sheet", func(t *testing.T) {
		sheets := ruleSheets()
		delete(sheets, "Programs")

		_, err := ParseRules(writeWorkbook(t, sheets))
		assert.ErrorContains(t, err, "no 'Programs' sheet")
	})

	t.Run("bad code", func(t *testing.T) {
		sheets := ruleSheets()
		sheets["BusinessTypes"] = [][]any{{"Code", "Name"}, {"nine", "LLC"}}

		_, err := ParseRules(writeWorkbook(t, sheets))
		assert.ErrorContains(t, err, "sheet 'BusinessTypes' row 2")
	})

	t.Run("unknown line", func(t *testing.T) {
		sheets := ruleSheets()
		sheets["LinesOfBusiness"] = [][]any{{"Line", "GUID"}, {"surplus", "x"}}

		_, err := ParseRules(writeWorkbook(t, sheets))
		assert.ErrorContains(t, err, "unknown line")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseRules(filepath.Join(t.TempDir(), "absent.xlsx"))
		assert.Error(t, err)
	})
}

func TestParseTransactions(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Export": {
			{"Transaction Type", "Policy Number", "Insured Name", "Limit"},
			{"New Business", "POL-1", "Acme", "$1,000,000/$2,000,000"},
			{},
			{"Renewal", "POL-2"},
		},
	})

	transactions, err := ParseTransactions(path, "")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	assert.Equal(t, types.RawTransaction{
		"transaction_type": "New Business",
		"policy_number":    "POL-1",
		"insured_name":     "Acme",
		"limit":            "$1,000,000/$2,000,000",
	}, transactions[0])
	assert.Equal(t, types.RawTransaction{"transaction_type": "Renewal", "policy_number": "POL-2"}, transactions[1])

	_, err = ParseTransactions(path, "Nope")
	assert.Error(t, err)
}
