package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/compliance/pkg/config"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
)

// otherLabel replaces label values once a metric reaches its cardinality
// limit.
const otherLabel = "other"

// Collector owns the Prometheus metrics of the compliance service. It
// implements engine.Observer, so it is attached with Engine.WithObserver
// and needs no other wiring for evaluation metrics.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	evaluation *EvaluationMetrics
	rules      *RuleMetrics

	// Rule IDs and project IDs come from user data.
	ruleLimiter    *CardinalityLimiter
	projectLimiter *CardinalityLimiter
}

var _ engine.Observer = (*Collector)(nil)

// NewCollector creates a collector registering its metrics in registry. A
// nil registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		evaluation:     NewEvaluationMetrics(cfg.Namespace, registry),
		rules:          NewRuleMetrics(cfg.Namespace, registry),
		ruleLimiter:    NewCardinalityLimiter(1000),
		projectLimiter: NewCardinalityLimiter(1000),
	}
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveDocument records a document evaluation and its failed rules.
func (c *Collector) ObserveDocument(report *engine.DocumentReport, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.evaluation.RecordDocument(report.OverallCompliance, elapsed)
	for _, res := range report.RuleResults {
		if res.IsCompliant {
			continue
		}
		c.evaluation.RecordRuleFailure(c.ruleLabel(res.RuleID), res.Category, res.Level)
	}
}

// ObserveProject records a project evaluation and its latest score.
func (c *Collector) ObserveProject(report *engine.ProjectReport, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}

	project := report.ProjectID
	if !c.projectLimiter.Allow(project) {
		project = otherLabel
	}
	c.evaluation.RecordProject(project, report.OverallCompliance, report.ComplianceScore, elapsed)
}

// ObserveRuleError counts a rule that could not be executed.
func (c *Collector) ObserveRuleError(ruleID string) {
	if !c.config.Enabled {
		return
	}
	c.rules.RecordExecutionError(c.ruleLabel(ruleID))
}

// RecordReload records a rule set reload attempt and, on success, the
// rule counts of the new snapshot.
func (c *Collector) RecordReload(stats rules.Statistics, err error) {
	if !c.config.Enabled {
		return
	}
	c.rules.RecordReload(err == nil)
	c.rules.UpdateRuleSet(stats)
}

func (c *Collector) ruleLabel(ruleID string) string {
	if c.ruleLimiter.Allow(ruleID) {
		return ruleID
	}
	return otherLabel
}

// CardinalityLimiter caps the number of distinct values a label takes.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting up to maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label value. Values seen
// before are always allowed.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
