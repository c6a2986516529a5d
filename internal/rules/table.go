// =============================================================================
// Triton IMS Bridge - Classification Rule Table
// =============================================================================
//
// The rule table maps classification fields onto IMS identifiers:
//   1. Business types : legal entity name or abbreviation -> business-type code
//   2. Lines          : primary / excess -> line-of-business GUID
//   3. Excess keywords: substrings that select the excess line
//   4. Programs       : (market segment, line) -> program identifier
//
// SOURCES:
//   - A YAML document (rules_file), see default_rules.yaml for the layout
//   - An XLSX workbook (rules_workbook), see the xlsxparser package
//   - The embedded default document
//
// A Table is compiled once at startup and never modified afterwards; share
// it by pointer between any number of goroutines.
//
// =============================================================================

package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

//go:embed default_rules.yaml
var defaultRules []byte

// =============================================================================
// DOCUMENT STRUCTURE
// =============================================================================

// Document is the serialized form of a rule table.
type Document struct {
	BusinessTypes   []BusinessTypeRule     `yaml:"business_types"`
	LinesOfBusiness LineReferences         `yaml:"lines_of_business"`
	ExcessKeywords  []string               `yaml:"excess_keywords"`
	Programs        map[string]ProgramRule `yaml:"programs"`
}

// BusinessTypeRule associates every name and abbreviation of a legal entity
// type with its IMS business-type code.
type BusinessTypeRule struct {
	Code  int      `yaml:"code"`
	Names []string `yaml:"names"`
}

// LineReferences holds the IMS line-of-business GUID for each line.
type LineReferences struct {
	Primary string `yaml:"primary"`
	Excess  string `yaml:"excess"`
}

// ProgramRule holds the program identifiers of one market segment.
type ProgramRule struct {
	Primary int `yaml:"primary"`
	Excess  int `yaml:"excess"`
}

// =============================================================================
// COMPILED TABLE
// =============================================================================

// Table is a compiled, immutable rule table.
type Table struct {
	businessTypes  map[string]int
	lineGUIDs      map[types.LineOfBusiness]string
	excessKeywords []string
	programs       map[string]map[types.LineOfBusiness]int
}

// NewTable validates a document and compiles it into lookup maps.
func NewTable(doc Document) (*Table, error) {
	t := &Table{
		businessTypes: make(map[string]int),
		lineGUIDs:     make(map[types.LineOfBusiness]string),
		programs:      make(map[string]map[types.LineOfBusiness]int),
	}

	if len(doc.BusinessTypes) == 0 {
		return nil, fmt.Errorf("no business types defined")
	}
	for _, rule := range doc.BusinessTypes {
		if rule.Code <= 0 {
			return nil, fmt.Errorf("business type %v: code must be positive", rule.Names)
		}
		for _, name := range rule.Names {
			key := businessTypeKey(name)
			if key == "" {
				return nil, fmt.Errorf("business type code %d: empty name", rule.Code)
			}
			if existing, ok := t.businessTypes[key]; ok && existing != rule.Code {
				return nil, fmt.Errorf("business type %q maps to both %d and %d", name, existing, rule.Code)
			}
			t.businessTypes[key] = rule.Code
		}
	}

	for line, guid := range map[types.LineOfBusiness]string{
		types.LinePrimary: doc.LinesOfBusiness.Primary,
		types.LineExcess:  doc.LinesOfBusiness.Excess,
	} {
		parsed, err := uuid.Parse(strings.TrimSpace(guid))
		if err != nil {
			return nil, fmt.Errorf("line of business %s: invalid GUID %q: %w", line, guid, err)
		}
		t.lineGUIDs[line] = parsed.String()
	}

	for _, keyword := range doc.ExcessKeywords {
		if k := strings.ToLower(strings.TrimSpace(keyword)); k != "" {
			t.excessKeywords = append(t.excessKeywords, k)
		}
	}
	if len(t.excessKeywords) == 0 {
		return nil, fmt.Errorf("no excess keywords defined")
	}

	if len(doc.Programs) == 0 {
		return nil, fmt.Errorf("no programs defined")
	}
	for segment, rule := range doc.Programs {
		code := strings.ToUpper(strings.TrimSpace(segment))
		if code == "" {
			return nil, fmt.Errorf("program rule with empty market segment")
		}
		if rule.Primary <= 0 || rule.Excess <= 0 {
			return nil, fmt.Errorf("market segment %s: program identifiers must be positive", code)
		}
		t.programs[code] = map[types.LineOfBusiness]int{
			types.LinePrimary: rule.Primary,
			types.LineExcess:  rule.Excess,
		}
	}

	return t, nil
}

// Parse decodes and compiles a YAML rule document.
func Parse(data []byte) (*Table, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return NewTable(doc)
}

// Load reads and compiles a YAML rule document from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Default returns the table compiled from the embedded default rules.
func Default() *Table {
	t, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded default rules are invalid: %v", err))
	}
	return t
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (t *Table) businessTypeCode(name string) (int, bool) {
	code, ok := t.businessTypes[businessTypeKey(name)]
	return code, ok
}

func (t *Table) programID(segment string, line types.LineOfBusiness) (int, bool) {
	lines, ok := t.programs[strings.ToUpper(strings.TrimSpace(segment))]
	if !ok {
		return 0, false
	}
	id, ok := lines[line]
	return id, ok
}

// MarketSegments returns the configured market segment codes, sorted.
func (t *Table) MarketSegments() []string {
	segments := make([]string, 0, len(t.programs))
	for code := range t.programs {
		segments = append(segments, code)
	}
	sort.Strings(segments)
	return segments
}

// BusinessTypeCount returns the number of distinct names the table resolves.
func (t *Table) BusinessTypeCount() int {
	return len(t.businessTypes)
}

// businessTypeKey folds case, surrounding whitespace and a trailing period.
func businessTypeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimSuffix(key, ".")
	return strings.Join(strings.Fields(key), " ")
}
