package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
)

func sampleDocument() *engine.DocumentReport {
	return &engine.DocumentReport{
		DocumentID:        "D-1",
		DocumentName:      "采购合同",
		OverallCompliance: rules.LevelWarning,
		ComplianceScore:   80,
		RulesetVersion:    2,
		RuleResults: []engine.RuleResult{
			{
				RuleID: "LEGAL_001", RuleName: "Approval keywords", Category: rules.CategoryLegal,
				IsCompliant: true, Level: rules.LevelCompliant, Score: 100, Weight: 1,
				Issues: []string{}, Suggestions: []string{}, Evidence: []string{"found keyword: 审批"},
			},
			{
				RuleID: "CONT_001", RuleName: "Mandatory fields", Category: rules.CategoryContent,
				IsCompliant: false, Level: rules.LevelViolation, Score: 60, Weight: 1,
				Issues:      []string{"missing field: 项目名称", "missing field: 金额"},
				Suggestions: []string{"add the 项目名称 field"},
				Evidence:    []string{},
			},
		},
	}
}

func sampleProject() *engine.ProjectReport {
	return engine.AggregateProject("P-7", "Road works", 2, []*engine.DocumentReport{sampleDocument()})
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON, true).(*JSONFormatter); !ok {
		t.Error("json format should give *JSONFormatter")
	}
	if _, ok := NewFormatter(FormatCSV, true).(*CSVFormatter); !ok {
		t.Error("csv format should give *CSVFormatter")
	}
	if _, ok := NewFormatter(FormatText, true).(*TextFormatter); !ok {
		t.Error("text format should give *TextFormatter")
	}
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&JSONFormatter{Indent: true}).FormatTo(buf, sampleDocument()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["violation_rules"] != float64(1) {
		t.Errorf("violation_rules = %v, want 1", decoded["violation_rules"])
	}
	if !strings.Contains(buf.String(), "采购合同") {
		t.Error("non-ASCII names should not be escaped")
	}
}

func TestCSVFormatter(t *testing.T) {
	tests := []struct {
		name       string
		data       any
		wantHeader string
		wantRows   int
	}{
		{"document", sampleDocument(), "document_id", 2},
		{"documents", []*engine.DocumentReport{sampleDocument(), sampleDocument()}, "document_id", 4},
		{"project", sampleProject(), "project_id", 1},
		{"rules", rules.DefaultRules(), "rule_id", len(rules.DefaultRules())},
		{"records", []*archive.Record{{ID: "r1", Kind: archive.KindProject, RecordedAt: time.Now()}}, "id", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&CSVFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			records, err := csv.NewReader(buf).ReadAll()
			if err != nil {
				t.Fatalf("output is not CSV: %v", err)
			}
			if records[0][0] != tt.wantHeader {
				t.Errorf("header starts with %q, want %q", records[0][0], tt.wantHeader)
			}
			if len(records)-1 != tt.wantRows {
				t.Errorf("got %d rows, want %d", len(records)-1, tt.wantRows)
			}
		})
	}
}

func TestCSVFormatterIssuesJoined(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := (&CSVFormatter{}).FormatTo(buf, sampleDocument()); err != nil {
		t.Fatal(err)
	}
	records, _ := csv.NewReader(buf).ReadAll()
	if got := records[2][8]; got != "missing field: 项目名称; missing field: 金额" {
		t.Errorf("issues column = %q", got)
	}
}

func TestCSVFormatterUnsupported(t *testing.T) {
	if err := (&CSVFormatter{}).FormatTo(&bytes.Buffer{}, 42); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestTextFormatterDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewTextFormatter(true).FormatTo(buf, sampleDocument()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Document: 采购合同 [D-1]",
		"WARNING  score 80.00",
		"rules 2 (passed 1, warning 0, violation 1)",
		"✓ LEGAL_001",
		"✗ CONT_001",
		"issue: missing field: 金额",
		"fix: add the 项目名称 field",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("noColor output contains ANSI escapes")
	}
}

func TestTextFormatterProject(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewTextFormatter(true).FormatTo(buf, sampleProject()); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Project: Road works [P-7]",
		"documents 1 (compliant 0, warning 1, violation 0)",
		"Recommendations:",
		"  - add the 项目名称 field",
		"  Document: 采购合同",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Critical issues:") {
		t.Error("no critical results, section should be omitted")
	}
}

func TestTextFormatterRulesAndStats(t *testing.T) {
	store := rules.NewStore(nil)

	buf := &bytes.Buffer{}
	f := NewTextFormatter(true)
	if err := f.FormatTo(buf, store.Rules()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "ID ") || !strings.Contains(buf.String(), "LEGAL_001") {
		t.Errorf("rule list output = %q", buf.String())
	}

	buf.Reset()
	if err := f.FormatTo(buf, store.Statistics()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "from defaults") {
		t.Errorf("statistics output = %q", buf.String())
	}
}

func TestTextFormatterRecords(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewTextFormatter(true)
	if err := f.FormatTo(buf, []*archive.Record{}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "no archived reports\n" {
		t.Errorf("empty listing = %q", buf.String())
	}
}

func TestTextFormatterFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewTextFormatter(true).FormatTo(buf, "version 1.0"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "version 1.0\n" {
		t.Errorf("fallback output = %q", buf.String())
	}
}
