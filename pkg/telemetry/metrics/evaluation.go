package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/compliance/pkg/rules"
)

// EvaluationMetrics tracks document and project evaluations.
//
// Metrics:
//   - compliance_documents_evaluated_total{level}
//   - compliance_document_evaluation_duration_seconds
//   - compliance_rule_failures_total{rule_id, category, level}
//   - compliance_projects_evaluated_total{level}
//   - compliance_project_evaluation_duration_seconds
//   - compliance_project_score{project_id}
type EvaluationMetrics struct {
	documentsTotal   *prometheus.CounterVec
	documentDuration prometheus.Histogram
	ruleFailures     *prometheus.CounterVec
	projectsTotal    *prometheus.CounterVec
	projectDuration  prometheus.Histogram
	projectScore     *prometheus.GaugeVec
}

// NewEvaluationMetrics creates and registers evaluation metrics.
func NewEvaluationMetrics(namespace string, registry *prometheus.Registry) *EvaluationMetrics {
	m := &EvaluationMetrics{
		documentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_evaluated_total",
				Help:      "Documents evaluated, by overall compliance level",
			},
			[]string{"level"},
		),
		documentDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "document_evaluation_duration_seconds",
				Help:      "Duration of a single document evaluation",
				// Rule evaluation is in-memory string matching.
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
		),
		ruleFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_failures_total",
				Help:      "Non-compliant rule results",
			},
			[]string{"rule_id", "category", "level"},
		),
		projectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "projects_evaluated_total",
				Help:      "Project batches evaluated, by overall compliance level",
			},
			[]string{"level"},
		),
		projectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "project_evaluation_duration_seconds",
				Help:      "Duration of a project batch evaluation",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		projectScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "project_score",
				Help:      "Latest compliance score of a project",
			},
			[]string{"project_id"},
		),
	}

	registry.MustRegister(
		m.documentsTotal,
		m.documentDuration,
		m.ruleFailures,
		m.projectsTotal,
		m.projectDuration,
		m.projectScore,
	)
	return m
}

// RecordDocument records one evaluated document.
func (m *EvaluationMetrics) RecordDocument(level rules.Level, elapsed time.Duration) {
	m.documentsTotal.WithLabelValues(string(level)).Inc()
	m.documentDuration.Observe(elapsed.Seconds())
}

// RecordRuleFailure records one non-compliant rule result.
func (m *EvaluationMetrics) RecordRuleFailure(ruleID string, category rules.Category, level rules.Level) {
	m.ruleFailures.WithLabelValues(ruleID, string(category), string(level)).Inc()
}

// RecordProject records one evaluated project batch.
func (m *EvaluationMetrics) RecordProject(projectID string, level rules.Level, score float64, elapsed time.Duration) {
	m.projectsTotal.WithLabelValues(string(level)).Inc()
	m.projectDuration.Observe(elapsed.Seconds())
	m.projectScore.WithLabelValues(projectID).Set(score)
}
