// Compliance checks procurement documents against a configurable set of
// compliance rules and reports a score and level per document and project.
//
// Usage:
//
//	# Check one or more extracted document texts
//	compliance check contract.txt tender.txt
//
//	# Evaluate every text file of a project directory
//	compliance project ./P-2024-017 --include "**/*.txt" --fail-on violation
//
//	# Inspect or export the active rule set
//	compliance rules list --category legal
//	compliance rules export rules.yaml
//
//	# Re-evaluate on rule or document changes and serve /metrics
//	compliance watch ./P-2024-017
//
//	# Browse archived reports
//	compliance reports list --kind project
package main

import "os"

func main() {
	os.Exit(Execute())
}
