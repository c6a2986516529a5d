package converter

import (
	"github.com/ginjaninja78/triton-ims-bridge/internal/types"
)

// Structure tells the transformer which decoding path a payload takes.
type Structure int

const (
	// StructureFlat has insured, producer and program fields at the top level.
	StructureFlat Structure = iota

	// StructureNested already groups its fields under account, producer,
	// program and premium.
	StructureNested
)

func (s Structure) String() string {
	if s == StructureNested {
		return "nested"
	}
	return "flat"
}

// groupKeys are the canonical groups a nested payload must carry.
var groupKeys = []string{"account", "producer", "program", "premium"}

// DetectStructure classifies a payload as nested when any canonical group
// key is present and holds a mapping. Absent keys are a valid signal, not an
// error.
func DetectStructure(raw types.RawTransaction) Structure {
	for _, key := range groupKeys {
		if isMapping(raw[key]) {
			return StructureNested
		}
	}
	return StructureFlat
}

func isMapping(v any) bool {
	switch v.(type) {
	case map[string]any, types.RawTransaction:
		return true
	}
	return false
}
