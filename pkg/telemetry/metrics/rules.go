package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/compliance/pkg/rules"
)

// RuleMetrics tracks the state of the rule set.
//
// Metrics:
//   - compliance_rule_execution_errors_total{rule_id}
//   - compliance_rule_reloads_total{result}
//   - compliance_rules{state}
//   - compliance_ruleset_version
type RuleMetrics struct {
	executionErrors *prometheus.CounterVec
	reloads         *prometheus.CounterVec
	ruleCount       *prometheus.GaugeVec
	version         prometheus.Gauge
}

// NewRuleMetrics creates and registers rule set metrics.
func NewRuleMetrics(namespace string, registry *prometheus.Registry) *RuleMetrics {
	m := &RuleMetrics{
		executionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_execution_errors_total",
				Help:      "Rules that could not be executed, such as invalid format patterns",
			},
			[]string{"rule_id"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_reloads_total",
				Help:      "Rule set reload attempts, by result",
			},
			[]string{"result"},
		),
		ruleCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rules",
				Help:      "Rules in the active rule set, by state",
			},
			[]string{"state"},
		),
		version: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ruleset_version",
				Help:      "Version of the active rule set snapshot",
			},
		),
	}

	registry.MustRegister(m.executionErrors, m.reloads, m.ruleCount, m.version)
	return m
}

// RecordExecutionError counts one failed rule execution.
func (m *RuleMetrics) RecordExecutionError(ruleID string) {
	m.executionErrors.WithLabelValues(ruleID).Inc()
}

// RecordReload counts one reload attempt.
func (m *RuleMetrics) RecordReload(success bool) {
	result := "success"
	if !success {
		result = "fallback"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// UpdateRuleSet publishes the counts of the active rule set.
func (m *RuleMetrics) UpdateRuleSet(stats rules.Statistics) {
	m.ruleCount.WithLabelValues("enabled").Set(float64(stats.Enabled))
	m.ruleCount.WithLabelValues("disabled").Set(float64(stats.Disabled))
	m.version.Set(float64(stats.Version))
}
