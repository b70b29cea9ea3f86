package engine

import "time"

// Observer receives evaluation outcomes, typically to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	// ObserveDocument is called once per evaluated document.
	ObserveDocument(report *DocumentReport, elapsed time.Duration)

	// ObserveProject is called once per evaluated project batch.
	ObserveProject(report *ProjectReport, elapsed time.Duration)

	// ObserveRuleError is called for every rule that could not be executed.
	ObserveRuleError(ruleID string)
}

type nopObserver struct{}

func (nopObserver) ObserveDocument(*DocumentReport, time.Duration) {}
func (nopObserver) ObserveProject(*ProjectReport, time.Duration)   {}
func (nopObserver) ObserveRuleError(string)                        {}
