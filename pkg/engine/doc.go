// Package engine evaluates procurement documents against compliance rules
// and aggregates the results into document and project reports.
//
// # Evaluation Flow
//
//	Document (text + metadata)
//	       ↓
//	rules.Store → Snapshot → enabled rules (insertion order)
//	       ↓
//	EvaluateRule per rule:
//	  required keywords → forbidden keywords → required fields
//	  → format pattern → kind-specific group
//	       ↓
//	ScoreDocument: weighted mean of rule scores → Classify
//	       ↓
//	AggregateProject: mean of document scores → Classify
//
// # Scoring
//
// A rule scores 100 when every condition group passes, otherwise
// 100 - 20 per failed group, floored at 0. A failed rule takes the rule's
// severity as its level. The document score is the weight-averaged rule
// score; rules with weight 0 are reported but do not move the score.
// Scores are rounded to two decimals and classified with Classify:
//
//	>= 90  compliant
//	>= 70  warning
//	>= 50  violation
//	 < 50  critical
//
// # Failure Semantics
//
// Evaluation never returns an error. A rule that cannot run (for example an
// invalid format pattern) yields a critical result with score 0 and an
// Outcome carrying a *RuleExecutionError; other rules are unaffected. An
// empty rule set yields a report with score 0 and TotalRules() == 0.
//
// # Basic Usage
//
//	store := rules.NewStore(logger)
//	eng, err := engine.New(store, engine.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	report := eng.EvaluateDocument(ctx, engine.Document{
//	    Text:     text,
//	    Metadata: engine.Metadata{"document_id": "D-1", "filename": "tender.pdf", "size": 52133},
//	})
package engine
