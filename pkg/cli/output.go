package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is human-readable text output (default).
	FormatText OutputFormat = "text"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output with a header row.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, json or csv)", s))
	}
}

// Formatter writes command results.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// NewFormatter creates a formatter for format. noColor disables ANSI colors
// in text output.
func NewFormatter(format OutputFormat, noColor bool) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return NewTextFormatter(noColor)
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter writes reports, rules and archive records as CSV rows.
type CSVFormatter struct{}

// FormatTo writes data to w in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	header, rows, err := csvRows(data)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func csvRows(data any) ([]string, [][]string, error) {
	switch v := data.(type) {
	case *engine.DocumentReport:
		return ruleResultHeader, ruleResultRows(v), nil
	case []*engine.DocumentReport:
		var rows [][]string
		for _, d := range v {
			rows = append(rows, ruleResultRows(d)...)
		}
		return ruleResultHeader, rows, nil
	case *engine.ProjectReport:
		header := []string{"project_id", "document_id", "document_name", "overall_compliance",
			"compliance_score", "total_rules", "passed_rules", "warning_rules", "violation_rules"}
		rows := make([][]string, 0, len(v.DocumentReports))
		for _, d := range v.DocumentReports {
			rows = append(rows, []string{
				v.ProjectID, d.DocumentID, d.DocumentName, string(d.OverallCompliance),
				formatScore(d.ComplianceScore),
				strconv.Itoa(d.TotalRules()), strconv.Itoa(d.PassedRules()),
				strconv.Itoa(d.WarningRules()), strconv.Itoa(d.ViolationRules()),
			})
		}
		return header, rows, nil
	case []*rules.Rule:
		header := []string{"rule_id", "name", "category", "kind", "severity", "weight", "enabled"}
		rows := make([][]string, 0, len(v))
		for _, r := range v {
			rows = append(rows, []string{
				r.ID, r.Name, string(r.Category), string(r.Kind.Normalize()), string(r.Severity),
				strconv.FormatFloat(r.Weight, 'f', -1, 64), strconv.FormatBool(r.Enabled),
			})
		}
		return header, rows, nil
	case []*archive.Record:
		header := []string{"id", "kind", "subject_id", "name", "score", "level", "ruleset_version", "recorded_at"}
		rows := make([][]string, 0, len(v))
		for _, r := range v {
			rows = append(rows, []string{
				r.ID, string(r.Kind), r.SubjectID, r.Name, formatScore(r.Score), string(r.Level),
				strconv.FormatUint(r.RulesetVersion, 10), r.RecordedAt.Format(time.RFC3339),
			})
		}
		return header, rows, nil
	default:
		return nil, nil, fmt.Errorf("csv output is not supported for %T", data)
	}
}

var ruleResultHeader = []string{"document_id", "document_name", "rule_id", "rule_name", "category",
	"compliance_level", "score", "weight", "issues", "suggestions"}

func ruleResultRows(d *engine.DocumentReport) [][]string {
	rows := make([][]string, 0, len(d.RuleResults))
	for _, r := range d.RuleResults {
		rows = append(rows, []string{
			d.DocumentID, d.DocumentName, r.RuleID, r.RuleName, string(r.Category),
			string(r.Level), formatScore(r.Score), strconv.FormatFloat(r.Weight, 'f', -1, 64),
			strings.Join(r.Issues, "; "), strings.Join(r.Suggestions, "; "),
		})
	}
	return rows
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

// levelColors maps compliance levels to terminal colors.
var levelColors = map[rules.Level]*color.Color{
	rules.LevelCompliant: color.New(color.FgGreen, color.Bold),
	rules.LevelWarning:   color.New(color.FgYellow, color.Bold),
	rules.LevelViolation: color.New(color.FgRed),
	rules.LevelCritical:  color.New(color.FgRed, color.Bold),
}
