// =============================================================================
// Triton IMS Bridge - XLSX Workbook Parser
// =============================================================================
//
// This module reads two kinds of workbooks:
//
// 1. RULE WORKBOOKS maintained by the underwriting team. Each sheet holds one
//    part of the classification rule table. The first row of every sheet is
//    a header row and is skipped.
//
//   BusinessTypes                     LinesOfBusiness
//   | Code | Name                 |   | Line    | GUID                     |
//   |------|----------------------|   |---------|--------------------------|
//   | 9    | LLC                  |   | primary | 07564291-cbfe-4bbe-...   |
//   | 9    | Limited Liability Co |   | excess  | 08798559-321c-4fc0-...   |
//
//   ExcessKeywords                    Programs
//   | Keyword  |                      | Market Segment | Primary | Excess |
//   |----------|                      |----------------|---------|--------|
//   | excess   |                      | RT             | 11615   | 11612  |
//   | umbrella |                      | WL             | 11613   | 11614  |
//
// 2. TRANSACTION WORKBOOKS exported from Triton. The first row holds the
//    flat field names; every further row is one raw transaction.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/triton-ims-bridge/internal/csvparser"
	"github.com/ginjaninja78/triton-ims-bridge/internal/rules"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// =============================================================================
// SHEET CONFIGURATION
// =============================================================================

// RuleSheets names the sheets of a rule workbook.
type RuleSheets struct {
	BusinessTypes   string
	LinesOfBusiness string
	ExcessKeywords  string
	Programs        string
}

// DefaultRuleSheets returns the sheet names used by the underwriting team.
func DefaultRuleSheets() RuleSheets {
	return RuleSheets{
		BusinessTypes:   "BusinessTypes",
		LinesOfBusiness: "LinesOfBusiness",
		ExcessKeywords:  "ExcessKeywords",
		Programs:        "Programs",
	}
}

// =============================================================================
// RULE WORKBOOKS
// =============================================================================

// ParseRules reads a rule workbook into a rule document.
//
// PARAMETERS:
//   - workbookPath: The path to the XLSX workbook.
//
// RETURNS:
//   - The rule document, ready for rules.NewTable.
//   - An error if a sheet is missing or a cell cannot be parsed.
func ParseRules(workbookPath string) (*rules.Document, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open rule workbook: %w", err)
	}
	defer f.Close()

	return ReadRules(f, DefaultRuleSheets())
}

// LoadRuleTable reads a rule workbook and compiles it.
func LoadRuleTable(workbookPath string) (*rules.Table, error) {
	doc, err := ParseRules(workbookPath)
	if err != nil {
		return nil, err
	}

	table, err := rules.NewTable(*doc)
	if err != nil {
		return nil, fmt.Errorf("invalid rule workbook %s: %w", workbookPath, err)
	}
	return table, nil
}

// ReadRules reads the rule sheets of an open workbook.
func ReadRules(f *excelize.File, sheets RuleSheets) (*rules.Document, error) {
	doc := &rules.Document{Programs: make(map[string]rules.ProgramRule)}

	// Business types: one row per name, grouped by code in first-seen order.
	rows, err := dataRows(f, sheets.BusinessTypes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[int]int)
	for _, r := range rows {
		code, err := parseInt(r.cell(0))
		if err != nil {
			return nil, r.errorf(sheets.BusinessTypes, "business type code: %w", err)
		}
		name := r.cell(1)
		if name == "" {
			continue
		}
		idx, ok := byCode[code]
		if !ok {
			idx = len(doc.BusinessTypes)
			byCode[code] = idx
			doc.BusinessTypes = append(doc.BusinessTypes, rules.BusinessTypeRule{Code: code})
		}
		doc.BusinessTypes[idx].Names = append(doc.BusinessTypes[idx].Names, name)
	}

	rows, err = dataRows(f, sheets.LinesOfBusiness)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		switch types.LineOfBusiness(strings.ToLower(r.cell(0))) {
		case types.LinePrimary:
			doc.LinesOfBusiness.Primary = r.cell(1)
		case types.LineExcess:
			doc.LinesOfBusiness.Excess = r.cell(1)
		default:
			return nil, r.errorf(sheets.LinesOfBusiness, "unknown line %q", r.cell(0))
		}
	}

	rows, err = dataRows(f, sheets.ExcessKeywords)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if keyword := r.cell(0); keyword != "" {
			doc.ExcessKeywords = append(doc.ExcessKeywords, keyword)
		}
	}

	rows, err = dataRows(f, sheets.Programs)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		segment := r.cell(0)
		primary, err := parseInt(r.cell(1))
		if err != nil {
			return nil, r.errorf(sheets.Programs, "primary program: %w", err)
		}
		excess, err := parseInt(r.cell(2))
		if err != nil {
			return nil, r.errorf(sheets.Programs, "excess program: %w", err)
		}
		doc.Programs[segment] = rules.ProgramRule{Primary: primary, Excess: excess}
	}

	return doc, nil
}

// =============================================================================
// TRANSACTION WORKBOOKS
// =============================================================================

// ParseTransactions reads the raw transactions of a Triton export workbook.
//
// PARAMETERS:
//   - workbookPath: The path to the XLSX workbook.
//   - sheetName: The sheet to read. Empty means the first sheet.
//
// RETURNS:
//   - One raw transaction per non-empty row. Empty cells are left out.
//   - An error if the workbook or sheet cannot be read.
func ParseTransactions(workbookPath, sheetName string) ([]types.RawTransaction, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ReadTransactions(f, sheetName)
}

// ReadTransactions reads the raw transactions of an open workbook.
func ReadTransactions(f *excelize.File, sheetName string) ([]types.RawTransaction, error) {
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheetName, err)
	}
	if len(rows) == 0 {
		return []types.RawTransaction{}, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = csvparser.NormalizeHeader(h)
	}

	transactions := make([]types.RawTransaction, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isRowEmpty(row) {
			continue
		}
		raw := make(types.RawTransaction, len(headers))
		for i, header := range headers {
			if i >= len(row) || header == "" {
				continue
			}
			if value := strings.TrimSpace(row[i]); value != "" {
				raw[header] = value
			}
		}
		transactions = append(transactions, raw)
	}

	return transactions, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sheetRow is a data row together with its 1-indexed position in the sheet.
type sheetRow struct {
	number int
	cells  []string
}

func (r sheetRow) cell(index int) string {
	if index < len(r.cells) {
		return strings.TrimSpace(r.cells[index])
	}
	return ""
}

func (r sheetRow) errorf(sheet, format string, args ...any) error {
	return fmt.Errorf("sheet '%s' row %d: %w", sheet, r.number, fmt.Errorf(format, args...))
}

// dataRows returns the non-empty rows of a sheet below its header row.
func dataRows(f *excelize.File, sheetName string) ([]sheetRow, error) {
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("rule workbook has no '%s' sheet", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet '%s': %w", sheetName, err)
	}

	var out []sheetRow
	for i := 1; i < len(rows); i++ {
		if isRowEmpty(rows[i]) {
			continue
		}
		out = append(out, sheetRow{number: i + 1, cells: rows[i]})
	}
	return out, nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseInt parses an identifier cell. Spreadsheet tools sometimes store
// whole numbers as "11615.0".
func parseInt(value string) (int, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), ".0")
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return n, nil
}
