package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/compliance/pkg/rules"
)

// Engine evaluates documents and projects against the rule set held by a
// rules.Store. It holds no mutable state of its own: every evaluation reads
// one store snapshot, so Engine methods are safe for concurrent use, also
// while the store is being reloaded.
type Engine struct {
	store    *rules.Store
	config   *Config
	logger   *slog.Logger
	observer Observer
}

// New creates an engine over store.
func New(store *rules.Store, config *Config, logger *slog.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("rule store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		store:    store,
		config:   config,
		logger:   logger.With("component", "engine"),
		observer: nopObserver{},
	}, nil
}

// WithObserver sets the observer notified after each evaluation.
func (e *Engine) WithObserver(o Observer) *Engine {
	if o == nil {
		o = nopObserver{}
	}
	e.observer = o
	return e
}

// Store returns the rule store the engine evaluates against.
func (e *Engine) Store() *rules.Store {
	return e.store
}

// EvaluateDocument runs every enabled rule against doc. It never fails;
// broken rules show up as critical results. ctx carries log fields only,
// evaluation is not cancellable.
func (e *Engine) EvaluateDocument(ctx context.Context, doc Document) *DocumentReport {
	return e.evaluateDocument(ctx, e.store.Snapshot(), doc)
}

func (e *Engine) evaluateDocument(ctx context.Context, snap *rules.Snapshot, doc Document) *DocumentReport {
	start := time.Now()

	report, execErrs := ScoreDocument(snap, doc)
	for _, err := range execErrs {
		e.logger.WarnContext(ctx, "rule execution failed",
			"rule_id", err.RuleID,
			"document_id", report.DocumentID,
			"error", err.Cause,
		)
		e.observer.ObserveRuleError(err.RuleID)
	}
	if report.TotalRules() == 0 {
		e.logger.WarnContext(ctx, "no enabled rules, document scored 0",
			"document_id", report.DocumentID,
			"ruleset_version", report.RulesetVersion,
		)
	}

	elapsed := time.Since(start)
	e.observer.ObserveDocument(report, elapsed)
	e.logger.DebugContext(ctx, "document evaluated",
		"document_id", report.DocumentID,
		"score", report.ComplianceScore,
		"level", report.OverallCompliance,
		"rules", report.TotalRules(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return report
}

// EvaluateProject evaluates docs in parallel against a single rule
// snapshot and aggregates the reports. Document reports keep the input
// order regardless of completion order.
func (e *Engine) EvaluateProject(ctx context.Context, projectID, projectName string, docs []Document) *ProjectReport {
	start := time.Now()
	snap := e.store.Snapshot()

	reports := make([]*DocumentReport, len(docs))
	var g errgroup.Group
	g.SetLimit(e.config.workers())
	for i := range docs {
		g.Go(func() error {
			reports[i] = e.evaluateDocument(ctx, snap, docs[i])
			return nil
		})
	}
	// Document evaluation does not return errors.
	_ = g.Wait()

	report := AggregateProject(projectID, projectName, snap.Version(), reports)

	elapsed := time.Since(start)
	e.observer.ObserveProject(report, elapsed)
	e.logger.InfoContext(ctx, "project evaluated",
		"project_id", projectID,
		"documents", report.TotalDocuments(),
		"score", report.ComplianceScore,
		"level", report.OverallCompliance,
		"duration_ms", elapsed.Milliseconds(),
	)
	return report
}

// ScoreDocument evaluates the enabled rules of snap against doc and
// computes the weighted score. Disabled rules are skipped entirely. The
// returned errors are the rules that could not be executed; they are
// already reflected as critical results in the report.
func ScoreDocument(snap *rules.Snapshot, doc Document) (*DocumentReport, []*RuleExecutionError) {
	enabled := snap.Enabled()

	report := &DocumentReport{
		DocumentID:     doc.ID(),
		DocumentName:   doc.Name(),
		DocumentType:   doc.Metadata.first(MetaDocumentType),
		RulesetVersion: snap.Version(),
		RuleResults:    make([]RuleResult, 0, len(enabled)),
	}

	var execErrs []*RuleExecutionError
	var weighted, totalWeight float64
	for _, rule := range enabled {
		out := EvaluateRule(rule, doc.Text, doc.Metadata)
		if out.Failed() {
			execErrs = append(execErrs, out.Err)
		}
		report.RuleResults = append(report.RuleResults, out.Result)
		weighted += out.Result.Score * rule.Weight
		totalWeight += rule.Weight
	}

	var score float64
	if totalWeight > 0 {
		score = weighted / totalWeight
	}
	score = clampScore(score)
	report.ComplianceScore = roundScore(score)
	report.OverallCompliance = Classify(score)

	return report, execErrs
}

// AggregateProject rolls document reports into a project report. The
// project score is the unweighted mean of the document scores; an empty
// batch scores 0.
func AggregateProject(projectID, projectName string, rulesetVersion uint64, reports []*DocumentReport) *ProjectReport {
	p := &ProjectReport{
		ProjectID:       projectID,
		ProjectName:     projectName,
		RulesetVersion:  rulesetVersion,
		DocumentReports: reports,
		CriticalIssues:  []string{},
		Recommendations: []string{},
	}
	if p.DocumentReports == nil {
		p.DocumentReports = []*DocumentReport{}
	}

	var sum float64
	for _, d := range p.DocumentReports {
		sum += d.ComplianceScore
		for _, res := range d.RuleResults {
			if res.Level == rules.LevelCritical {
				p.CriticalIssues = append(p.CriticalIssues, res.Issues...)
			}
			p.Recommendations = append(p.Recommendations, res.Suggestions...)
		}
	}

	var score float64
	if n := len(p.DocumentReports); n > 0 {
		score = sum / float64(n)
	}
	score = clampScore(score)
	p.ComplianceScore = roundScore(score)
	p.OverallCompliance = Classify(score)

	return p
}
