package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mercator-hq/compliance/pkg/rules"
)

// Well-known metadata keys.
const (
	MetaDocumentID   = "document_id"
	MetaDocumentName = "document_name"
	MetaDocumentType = "document_type"
	MetaFilename     = "filename"
	MetaSize         = "size"
)

// Metadata carries caller-supplied facts about a document. Values are
// strings, numbers or booleans.
type Metadata map[string]any

// String returns the value of key formatted as a string. Numbers and
// booleans are formatted; nil and missing keys report false.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	default:
		return fmt.Sprint(t), true
	}
}

// Int64 returns the value of key as an integer. Integral floats and numeric
// strings are accepted.
func (m Metadata) Int64(key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint32:
		return int64(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// first returns the first present key as a string.
func (m Metadata) first(keys ...string) string {
	for _, k := range keys {
		if v, ok := m.String(k); ok && v != "" {
			return v
		}
	}
	return ""
}

// Document is the unit of evaluation: extracted plain text plus metadata.
type Document struct {
	Text     string
	Metadata Metadata
}

// ID returns the document identifier from metadata.
func (d Document) ID() string {
	return d.Metadata.first(MetaDocumentID, "id")
}

// Name returns the display name from metadata, falling back to the filename.
func (d Document) Name() string {
	return d.Metadata.first(MetaDocumentName, "name", MetaFilename)
}

// RuleResult is the outcome of one rule against one document. It copies
// the rule identity at evaluation time and is never modified afterwards.
type RuleResult struct {
	RuleID      string         `json:"rule_id"`
	RuleName    string         `json:"rule_name"`
	Category    rules.Category `json:"category"`
	IsCompliant bool           `json:"is_compliant"`
	Level       rules.Level    `json:"compliance_level"`
	Score       float64        `json:"score"`
	Weight      float64        `json:"weight"`
	LegalBasis  string         `json:"legal_basis,omitempty"`
	Issues      []string       `json:"issues"`
	Suggestions []string       `json:"suggestions"`
	Evidence    []string       `json:"evidence"`
}

// DocumentReport aggregates the rule results of one document.
// Statistics are derived from RuleResults on demand.
type DocumentReport struct {
	DocumentID        string       `json:"document_id"`
	DocumentName      string       `json:"document_name"`
	DocumentType      string       `json:"document_type,omitempty"`
	OverallCompliance rules.Level  `json:"overall_compliance"`
	ComplianceScore   float64      `json:"compliance_score"`
	RulesetVersion    uint64       `json:"ruleset_version"`
	RuleResults       []RuleResult `json:"rule_results"`
}

// TotalRules is the number of evaluated rules. Zero means the rule set was
// empty, which is distinct from a fully compliant document.
func (r *DocumentReport) TotalRules() int {
	return len(r.RuleResults)
}

// PassedRules counts compliant results.
func (r *DocumentReport) PassedRules() int {
	return r.countLevels(rules.LevelCompliant)
}

// WarningRules counts results at warning level.
func (r *DocumentReport) WarningRules() int {
	return r.countLevels(rules.LevelWarning)
}

// ViolationRules counts results at violation or critical level.
func (r *DocumentReport) ViolationRules() int {
	return r.countLevels(rules.LevelViolation, rules.LevelCritical)
}

func (r *DocumentReport) countLevels(levels ...rules.Level) int {
	n := 0
	for _, res := range r.RuleResults {
		for _, l := range levels {
			if res.Level == l {
				n++
				break
			}
		}
	}
	return n
}

// MarshalJSON includes the derived statistics.
func (r *DocumentReport) MarshalJSON() ([]byte, error) {
	type plain DocumentReport
	return json.Marshal(struct {
		*plain
		TotalRules     int `json:"total_rules"`
		PassedRules    int `json:"passed_rules"`
		WarningRules   int `json:"warning_rules"`
		ViolationRules int `json:"violation_rules"`
	}{
		plain:          (*plain)(r),
		TotalRules:     r.TotalRules(),
		PassedRules:    r.PassedRules(),
		WarningRules:   r.WarningRules(),
		ViolationRules: r.ViolationRules(),
	})
}

// ProjectReport aggregates the document reports of one project batch.
type ProjectReport struct {
	ProjectID         string            `json:"project_id"`
	ProjectName       string            `json:"project_name"`
	OverallCompliance rules.Level       `json:"overall_compliance"`
	ComplianceScore   float64           `json:"compliance_score"`
	RulesetVersion    uint64            `json:"ruleset_version"`
	DocumentReports   []*DocumentReport `json:"document_reports"`

	// CriticalIssues lists the issues of every critical rule result, in
	// document order and then rule order.
	CriticalIssues []string `json:"critical_issues"`

	// Recommendations lists every suggestion, in document order and then
	// rule order.
	Recommendations []string `json:"recommendations"`
}

// TotalDocuments is the number of evaluated documents.
func (p *ProjectReport) TotalDocuments() int {
	return len(p.DocumentReports)
}

// CompliantDocuments counts documents whose overall level is compliant.
func (p *ProjectReport) CompliantDocuments() int {
	return p.countLevels(rules.LevelCompliant)
}

// WarningDocuments counts documents whose overall level is warning.
func (p *ProjectReport) WarningDocuments() int {
	return p.countLevels(rules.LevelWarning)
}

// ViolationDocuments counts documents whose overall level is violation or critical.
func (p *ProjectReport) ViolationDocuments() int {
	return p.countLevels(rules.LevelViolation, rules.LevelCritical)
}

func (p *ProjectReport) countLevels(levels ...rules.Level) int {
	n := 0
	for _, d := range p.DocumentReports {
		for _, l := range levels {
			if d.OverallCompliance == l {
				n++
				break
			}
		}
	}
	return n
}

// MarshalJSON includes the derived statistics.
func (p *ProjectReport) MarshalJSON() ([]byte, error) {
	type plain ProjectReport
	return json.Marshal(struct {
		*plain
		TotalDocuments     int `json:"total_documents"`
		CompliantDocuments int `json:"compliant_documents"`
		WarningDocuments   int `json:"warning_documents"`
		ViolationDocuments int `json:"violation_documents"`
	}{
		plain:              (*plain)(p),
		TotalDocuments:     p.TotalDocuments(),
		CompliantDocuments: p.CompliantDocuments(),
		WarningDocuments:   p.WarningDocuments(),
		ViolationDocuments: p.ViolationDocuments(),
	})
}
