// =============================================================================
// Triton IMS Bridge - Main Entry Point
// =============================================================================
//
// USAGE:
//   tritonbridge process     - Convert every export in the input directory
//   tritonbridge transform   - Convert one export and print the result
//   tritonbridge validate    - Check configuration and rule tables
//   tritonbridge version     - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Transformation core, parsers, rules and writers
//   - pkg/       : Shared file handling utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/triton-ims-bridge/cmd"
)

func main() {
	cmd.Execute()
}
