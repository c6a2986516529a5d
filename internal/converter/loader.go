package converter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/triton-ims-bridge/internal/config"
	"github.com/ginjaninja78/triton-ims-bridge/internal/csvparser"
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
	"github.com/ginjaninja78/triton-ims-bridge/internal/xlsxparser"
	"github.com/ginjaninja78/triton-ims-bridge/internal/xmlwriter"
)

// InputExtensions are the file types the pipeline reads.
var InputExtensions = []string{".json", ".csv", ".xlsx"}

// Batch is the raw content of one input file.
type Batch struct {
	Records []types.RawTransaction

	// Rows holds the 1-indexed source row of each record for tabular
	// inputs, and is nil for JSON.
	Rows []int
}

// row returns the source row of record i, or 0 when unknown.
func (b *Batch) row(i int) int {
	if i < len(b.Rows) {
		return b.Rows[i]
	}
	return 0
}

// LoadFile reads a Triton export by extension:
//   - .json : one transaction object, an array of them, or an object with a
//             "transactions" array
//   - .csv  : one flat transaction per row
//   - .xlsx : one flat transaction per row of the configured sheet
func LoadFile(path string, csvSettings config.CSVSettings, xlsxSheet string) (*Batch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		records, err := DecodeJSON(data)
		if err != nil {
			return nil, err
		}
		return &Batch{Records: records}, nil

	case ".csv":
		data, err := csvparser.ParseFile(path, csvSettings)
		if err != nil {
			return nil, err
		}
		return &Batch{Records: data.Rows, Rows: data.LineNumbers}, nil

	case ".xlsx":
		records, err := xlsxparser.ParseTransactions(path, xlsxSheet)
		if err != nil {
			return nil, err
		}
		// Row 1 is the header; empty rows are already skipped, so positions
		// are approximate only when the sheet has gaps.
		rows := make([]int, len(records))
		for i := range rows {
			rows[i] = i + 2
		}
		return &Batch{Records: records, Rows: rows}, nil
	}

	return nil, fmt.Errorf("unsupported input file type: %s", filepath.Ext(path))
}

// DecodeJSON decodes one or more raw transactions from a JSON document.
func DecodeJSON(data []byte) ([]types.RawTransaction, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &types.FormatError{Field: "payload", Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	if obj, ok := doc.(map[string]any); ok {
		list, wrapped := obj["transactions"].([]any)
		if !wrapped {
			return []types.RawTransaction{obj}, nil
		}
		doc = list
	}

	list, ok := doc.([]any)
	if !ok {
		return nil, &types.FormatError{Field: "payload", Err: fmt.Errorf("expected a JSON object or array")}
	}

	records := make([]types.RawTransaction, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &types.FormatError{Field: fmt.Sprintf("transactions[%d]", i), Err: fmt.Errorf("expected a JSON object")}
		}
		records = append(records, obj)
	}
	return records, nil
}

// Render serializes canonical transactions as "json" or "xml".
func Render(transactions []types.CanonicalTransaction, format string) ([]byte, error) {
	switch format {
	case "", "json":
		if transactions == nil {
			transactions = []types.CanonicalTransaction{}
		}
		out, err := json.MarshalIndent(transactions, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	case "xml":
		return xmlwriter.Generate(transactions)
	}
	return nil, fmt.Errorf("unsupported output format: %s", format)
}

// Extension returns the file extension of an output format.
func Extension(format string) string {
	if format == "xml" {
		return ".xml"
	}
	return ".json"
}
