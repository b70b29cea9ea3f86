// Package rules defines compliance rules and the Store that holds the
// active rule set.
//
// # Rules
//
// A Rule combines up to four standard condition groups (required keywords,
// forbidden keywords, required fields and a format pattern) with a severity
// and a weight. The Kind field selects an optional extra condition group:
//
//	standard     only the four standard groups
//	min_match    at least N required keywords instead of all of them
//	date_format  date notations in the text must be allowed (and consistent)
//	file_format  the "filename" metadata must have an allowed extension
//	file_size    the "size" metadata must not exceed a maximum
//
// # Store
//
// Store publishes immutable Snapshots. Readers call Snapshot once and
// evaluate against it; writers are serialized and swap in a new Snapshot
// atomically:
//
//	store := rules.NewStore(logger)          // default rule set
//	if err := store.Load("rules.yaml"); err != nil {
//	    // store now holds the defaults; err is a *rules.ConfigError
//	}
//	snap := store.Snapshot()
//	for _, r := range snap.Enabled() { ... }
//
// # Rule files
//
// Rule files are YAML (or JSON when the extension is .json):
//
//	schema_version: "1.0"
//	created_at: 2024-05-01T00:00:00Z
//	rules:
//	  - rule_id: LEGAL_001
//	    name: Mandatory approval keywords
//	    category: legal
//	    required_keywords: [审批, 批准, 签字, 盖章]
//	    severity: violation
//	    weight: 2
//	  - rule_id: FMT_001
//	    name: Accepted file types
//	    category: format
//	    kind: file_format
//	    conditions:
//	      file_format:
//	        allowed_extensions: [.pdf, .docx]
//	    severity: warning
//
// rule_id, name and category are required for every record; a file with a
// single invalid record is rejected as a whole.
package rules
