package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
)

// TextFormatter renders reports for a terminal.
type TextFormatter struct {
	noColor bool
	bold    *color.Color
	faint   *color.Color
}

// NewTextFormatter creates a text formatter. Colors are also suppressed
// when stdout is not a terminal (see color.NoColor).
func NewTextFormatter(noColor bool) *TextFormatter {
	f := &TextFormatter{
		noColor: noColor,
		bold:    color.New(color.Bold),
		faint:   color.New(color.Faint),
	}
	if noColor {
		f.bold.DisableColor()
		f.faint.DisableColor()
	}
	return f
}

// FormatTo writes data to w. Unknown types are printed with %v.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	tw := &errWriter{w: w}
	switch v := data.(type) {
	case *engine.DocumentReport:
		f.document(tw, v, "")
	case []*engine.DocumentReport:
		for i, d := range v {
			if i > 0 {
				tw.printf("\n")
			}
			f.document(tw, d, "")
		}
	case *engine.ProjectReport:
		f.project(tw, v)
	case []*rules.Rule:
		f.ruleList(tw, v)
	case rules.Statistics:
		f.statistics(tw, v)
	case []*archive.Record:
		f.records(tw, v)
	default:
		tw.printf("%v\n", data)
	}
	return tw.err
}

func (f *TextFormatter) level(l rules.Level) string {
	label := strings.ToUpper(string(l))
	c, ok := levelColors[l]
	if !ok || f.noColor {
		return label
	}
	return c.Sprint(label)
}

func (f *TextFormatter) document(w *errWriter, d *engine.DocumentReport, indent string) {
	name := d.DocumentName
	if name == "" {
		name = "(unnamed)"
	}
	w.printf("%s%s %s", indent, f.bold.Sprint("Document:"), name)
	if d.DocumentID != "" {
		w.printf(" [%s]", d.DocumentID)
	}
	w.printf("\n%s  %s  score %s  rules %d (passed %d, warning %d, violation %d)\n",
		indent, f.level(d.OverallCompliance), formatScore(d.ComplianceScore),
		d.TotalRules(), d.PassedRules(), d.WarningRules(), d.ViolationRules())

	for _, r := range d.RuleResults {
		mark := "✓"
		if !r.IsCompliant {
			mark = "✗"
		}
		w.printf("%s  %s %-10s %-32s %-9s %6s\n", indent, mark, r.RuleID, r.RuleName,
			f.level(r.Level), formatScore(r.Score))
		for _, issue := range r.Issues {
			w.printf("%s      issue: %s\n", indent, issue)
		}
		for _, s := range r.Suggestions {
			w.printf("%s      %s %s\n", indent, f.faint.Sprint("fix:"), s)
		}
	}
}

func (f *TextFormatter) project(w *errWriter, p *engine.ProjectReport) {
	w.printf("%s %s", f.bold.Sprint("Project:"), p.ProjectName)
	if p.ProjectID != "" {
		w.printf(" [%s]", p.ProjectID)
	}
	w.printf("\n  %s  score %s  rule set v%d\n", f.level(p.OverallCompliance),
		formatScore(p.ComplianceScore), p.RulesetVersion)
	w.printf("  documents %d (compliant %d, warning %d, violation %d)\n",
		p.TotalDocuments(), p.CompliantDocuments(), p.WarningDocuments(), p.ViolationDocuments())

	if len(p.CriticalIssues) > 0 {
		w.printf("\n%s\n", f.bold.Sprint("Critical issues:"))
		for _, issue := range p.CriticalIssues {
			w.printf("  - %s\n", issue)
		}
	}
	if len(p.Recommendations) > 0 {
		w.printf("\n%s\n", f.bold.Sprint("Recommendations:"))
		for _, rec := range p.Recommendations {
			w.printf("  - %s\n", rec)
		}
	}

	for _, d := range p.DocumentReports {
		w.printf("\n")
		f.document(w, d, "  ")
	}
}

func (f *TextFormatter) ruleList(w *errWriter, list []*rules.Rule) {
	w.printf("%-10s %-32s %-10s %-11s %-9s %6s %s\n",
		"ID", "NAME", "CATEGORY", "KIND", "SEVERITY", "WEIGHT", "ENABLED")
	for _, r := range list {
		w.printf("%-10s %-32s %-10s %-11s %-9s %6.2f %t\n",
			r.ID, r.Name, r.Category, r.Kind.Normalize(), r.Severity, r.Weight, r.Enabled)
	}
}

func (f *TextFormatter) statistics(w *errWriter, s rules.Statistics) {
	w.printf("Rule set v%d from %s\n", s.Version, s.Source)
	w.printf("  total %d, enabled %d, disabled %d\n", s.Total, s.Enabled, s.Disabled)
	for _, c := range rules.Categories() {
		cs, ok := s.ByCategory[c]
		if !ok {
			continue
		}
		w.printf("  %-10s %d (%d enabled)\n", c, cs.Total, cs.Enabled)
	}
}

func (f *TextFormatter) records(w *errWriter, list []*archive.Record) {
	if len(list) == 0 {
		w.printf("no archived reports\n")
		return
	}
	w.printf("%-36s %-8s %-20s %-9s %6s %s\n", "ID", "KIND", "SUBJECT", "LEVEL", "SCORE", "RECORDED")
	for _, r := range list {
		w.printf("%-36s %-8s %-20s %-9s %6s %s\n", r.ID, r.Kind, r.SubjectID,
			f.level(r.Level), formatScore(r.Score), r.RecordedAt.Local().Format(time.DateTime))
	}
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
