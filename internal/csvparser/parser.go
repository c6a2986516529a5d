// =============================================================================
// Triton IMS Bridge - CSV Parser Module
// =============================================================================
//
// This module reads flat Triton exports saved as CSV. Each data row becomes
// one raw transaction keyed by header.
//
// FEATURES:
//   - Configurable delimiter (comma, pipe, tab, semicolon)
//   - Multi-line headers, merged column by column
//   - Custom data start row
//   - Header normalization ("Insured Name" -> insured_name)
//   - Row-at-a-time reading, so large exports are never held twice
//
// EMPTY CELLS:
//   An empty cell is left out of the row entirely, so the transformer sees
//   the field as absent and marks it missing.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents a parsed CSV export.
type CSVData struct {
	// Headers are the merged, cleaned column headers.
	Headers []string

	// Rows are the raw transactions, one per non-empty data row.
	Rows []types.RawTransaction

	// LineNumbers holds the 1-indexed source line of each row, for error
	// reporting.
	LineNumbers []int

	// SourceFile is the path of the source file, if any.
	SourceFile string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads a CSV export from disk.
func ParseFile(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// Parse reads a CSV export.
//
// PARAMETERS:
//   - r: The CSV content.
//   - settings: The CSV parsing settings.
//
// RETURNS:
//   - The parsed rows.
//   - An error if the content has no header or a row cannot be read.
func Parse(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	reader, err := NewReader(r, settings)
	if err != nil {
		return nil, err
	}

	data := &CSVData{
		Headers: reader.Headers(),
		Rows:    []types.RawTransaction{},
	}
	for reader.Next() {
		data.Rows = append(data.Rows, reader.Row())
		data.LineNumbers = append(data.LineNumbers, reader.RowNumber())
	}
	if err := reader.Err(); err != nil {
		return nil, err
	}

	return data, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Triton exports are not always rectangular.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// mergeHeaders merges header rows column by column.
//
// MULTI-LINE HEADER HANDLING:
//   Row 1: "Insured", "",     "Producer", ""
//   Row 2: "Name",    "City", "Name",     "Code"
//   Result: "Insured Name", "City", "Producer Name", "Code"
func mergeHeaders(headerRows [][]string, normalize bool) []string {
	if len(headerRows) == 1 {
		return cleanHeaders(headerRows[0], normalize)
	}

	maxCols := 0
	for _, row := range headerRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for _, row := range headerRows {
			if col < len(row) {
				if value := strings.TrimSpace(row[col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers, normalize)
}

// cleanHeaders trims headers, names empty ones by position and optionally
// normalizes them to snake_case field names.
func cleanHeaders(headers []string, normalize bool) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		if normalize {
			header = NormalizeHeader(header)
		}
		cleaned[i] = header
	}

	return cleaned
}

// NormalizeHeader converts an export column title into a field name.
//
// EXAMPLE:
//   Input:  "Insured Business Type"
//   Output: "insured_business_type"
func NormalizeHeader(header string) string {
	header = strings.ToLower(strings.TrimSpace(header))
	header = strings.NewReplacer("-", " ", ".", " ", "/", " ").Replace(header)
	return strings.Join(strings.Fields(header), "_")
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// ROW READER
// =============================================================================

// Reader reads a CSV export one row at a time.
//
// USAGE:
//   reader, err := NewReader(file, settings)
//   if err != nil {
//       return err
//   }
//
//   for reader.Next() {
//       row := reader.Row()
//       // Process the row...
//   }
//
//   if err := reader.Err(); err != nil {
//       return err
//   }
type Reader struct {
	reader     *csv.Reader
	headers    []string
	currentRow types.RawTransaction
	rowNumber  int
	err        error
	settings   config.CSVSettings
}

// NewReader reads the header rows and positions the reader on the first
// data row.
func NewReader(r io.Reader, settings config.CSVSettings) (*Reader, error) {
	if settings.HeaderRows <= 0 {
		settings.HeaderRows = 1
	}

	reader := csv.NewReader(bufio.NewReader(r))
	configureReader(reader, settings)

	p := &Reader{
		reader:   reader,
		settings: settings,
	}

	if err := p.readHeaders(); err != nil {
		return nil, err
	}
	if err := p.skipToDataStart(); err != nil {
		return nil, err
	}

	return p, nil
}

// readHeaders reads and merges the header rows.
func (p *Reader) readHeaders() error {
	headerRows := make([][]string, 0, p.settings.HeaderRows)

	for i := 0; i < p.settings.HeaderRows; i++ {
		row, err := p.reader.Read()
		if err == io.EOF {
			if i == 0 {
				return fmt.Errorf("CSV file is empty")
			}
			return fmt.Errorf("unexpected end of file while reading headers")
		}
		if err != nil {
			return fmt.Errorf("error reading header row %d: %w", i+1, err)
		}
		headerRows = append(headerRows, row)
		p.rowNumber++
	}

	p.headers = mergeHeaders(headerRows, p.settings.NormalizeHeaders)
	return nil
}

// skipToDataStart skips rows until the data start row.
func (p *Reader) skipToDataStart() error {
	targetRow := p.settings.DataStartRow
	if targetRow <= 0 {
		targetRow = p.settings.HeaderRows + 1
	}

	for p.rowNumber < targetRow-1 {
		_, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error skipping to data start: %w", err)
		}
		p.rowNumber++
	}

	return nil
}

// Next advances to the next non-empty row. Returns false when there are no
// more rows or an error occurred.
func (p *Reader) Next() bool {
	for p.err == nil {
		row, err := p.reader.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}

		p.rowNumber++

		if isRowEmpty(row) {
			continue
		}

		p.currentRow = make(types.RawTransaction, len(p.headers))
		for i, header := range p.headers {
			if i >= len(row) {
				break
			}
			if value := strings.TrimSpace(row[i]); value != "" {
				p.currentRow[header] = value
			}
		}
		return true
	}
	return false
}

// Row returns the current row.
func (p *Reader) Row() types.RawTransaction {
	return p.currentRow
}

// Headers returns the parsed headers.
func (p *Reader) Headers() []string {
	return p.headers
}

// RowNumber returns the source line of the current row (1-indexed).
func (p *Reader) RowNumber() int {
	return p.rowNumber
}

// Err returns any error that occurred during reading.
func (p *Reader) Err() error {
	return p.err
}
