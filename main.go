// =============================================================================
// SALT Nexus Analyzer - Main Entry Point
// =============================================================================
//
// USAGE:
//   nexus analyze   - Determine nexus and estimate exposure
//   nexus validate  - Validate configuration files
//   nexus version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Ingestion, standardization, nexus and exposure logic
//   - pkg/       : Shared file utilities
//   - configs/   : Per-state rule files
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/salt-nexus-analyzer/cmd"
)

func main() {
	cmd.Execute()
}
