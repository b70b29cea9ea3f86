package engine

import (
	"math"

	"mercator-hq/compliance/pkg/rules"
)

// Score thresholds for level classification. Classify is the only place
// that converts a score into a level.
const (
	CompliantThreshold = 90.0
	WarningThreshold   = 70.0
	ViolationThreshold = 50.0
)

// Per-rule scoring constants.
const (
	MaxScore          = 100.0
	IssueGroupPenalty = 20.0
)

// Classify maps a 0–100 score to a compliance level:
// >= 90 compliant, >= 70 warning, >= 50 violation, otherwise critical.
func Classify(score float64) rules.Level {
	switch {
	case score >= CompliantThreshold:
		return rules.LevelCompliant
	case score >= WarningThreshold:
		return rules.LevelWarning
	case score >= ViolationThreshold:
		return rules.LevelViolation
	default:
		return rules.LevelCritical
	}
}

// ruleScore is the score of a rule result with the given number of failed
// condition groups.
func ruleScore(failedGroups int) float64 {
	if failedGroups == 0 {
		return MaxScore
	}
	return math.Max(0, MaxScore-IssueGroupPenalty*float64(failedGroups))
}

// clampScore bounds s to [0, 100]. NaN maps to 0.
func clampScore(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}
	return math.Min(MaxScore, math.Max(0, s))
}

// roundScore rounds s to two decimals for reporting. Levels are classified
// before rounding.
func roundScore(s float64) float64 {
	return math.Round(s*100) / 100
}
