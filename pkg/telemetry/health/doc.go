// Package health serves the liveness, readiness and version endpoints of
// the watch command.
//
// Readiness aggregates component checks. The compliance service registers
// one for the rule set and, when the archive is enabled, one for report
// storage:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("rules", health.RuleSetCheck(store))
//	checker.Register("archive", health.ArchiveCheck(storage))
//
//	mux := http.NewServeMux()
//	health.Register(mux, checker, version, commit, buildDate)
//
// /readyz answers 503 with the failing checks while any check fails, for
// example after a rule file reload left no enabled rules.
package health
