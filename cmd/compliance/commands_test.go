package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/compliance/pkg/archive"
	"mercator-hq/compliance/pkg/cli"
	"mercator-hq/compliance/pkg/config"
	"mercator-hq/compliance/pkg/engine"
	"mercator-hq/compliance/pkg/rules"
	"mercator-hq/compliance/pkg/telemetry/logging"
)

const compliantText = `项目名称：道路养护工程 采购人：市交通运输局 预算金额：120万元
编号 CG-2024-001，日期 2024年1月31日，版本 1.0。
经审批、批准，负责人签字并盖章。`

// Fails one condition group of every default rule: 80 per rule, warning.
const weakText = "内部资料 draft"

func newTestApp(t *testing.T) *app {
	t.Helper()

	cfg := config.Default()
	cfg.Rules.Source = "defaults"
	cfg.Archive.Enabled = true
	cfg.Archive.Driver = "memory"

	a, err := buildApp(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func resetFlags() {
	checkFlags.output = "json"
	checkFlags.id = ""
	checkFlags.docType = ""
	checkFlags.meta = nil
	checkFlags.failOn = "none"

	projectFlags.output = "json"
	projectFlags.id = ""
	projectFlags.name = ""
	projectFlags.include = []string{"**/*.txt"}
	projectFlags.progress = false
	projectFlags.failOn = "none"

	rulesFlags.output = "json"
	rulesFlags.category = ""

	reportsFlags = struct {
		output      string
		kind        string
		subject     string
		level       string
		since       string
		limit       int
		offset      int
		oldestFirst bool
		olderThan   int
	}{output: "json", limit: 50}
}

func archiveCount(t *testing.T, a *app) int64 {
	t.Helper()
	n, err := a.storage.Count(context.Background(), &archive.Query{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	return n
}

func TestCheckDocuments(t *testing.T) {
	resetFlags()
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "contract.txt")
	writeFile(t, path, compliantText)

	checkFlags.docType = "contract"
	var out bytes.Buffer
	if err := checkDocuments(context.Background(), a, &out, []string{path}); err != nil {
		t.Fatalf("checkDocuments: %v", err)
	}

	var report engine.DocumentReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if report.DocumentID != "contract" || report.DocumentType != "contract" {
		t.Errorf("identity = %q/%q", report.DocumentID, report.DocumentType)
	}
	if report.ComplianceScore != 100 || report.OverallCompliance != rules.LevelCompliant {
		t.Errorf("score = %v %s, want 100 compliant", report.ComplianceScore, report.OverallCompliance)
	}
	if len(report.RuleResults) != len(rules.DefaultRules()) {
		t.Errorf("got %d rule results, want %d", len(report.RuleResults), len(rules.DefaultRules()))
	}
	if got := archiveCount(t, a); got != 1 {
		t.Errorf("archived %d records, want 1", got)
	}
}

func TestCheckDocumentsFailOn(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	weak := filepath.Join(dir, "weak.txt")
	writeFile(t, good, compliantText)
	writeFile(t, weak, weakText)

	tests := []struct {
		name     string
		failOn   string
		paths    []string
		wantCode int
	}{
		{"disabled", "none", []string{good, weak}, cli.ExitOK},
		{"below threshold", "violation", []string{good, weak}, cli.ExitOK},
		{"at threshold", "warning", []string{good, weak}, cli.ExitThreshold},
		{"compliant only", "warning", []string{good}, cli.ExitOK},
		{"invalid level", "compliant", []string{good}, cli.ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			checkFlags.failOn = tt.failOn
			a := newTestApp(t)

			err := checkDocuments(context.Background(), a, &bytes.Buffer{}, tt.paths)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("exit code = %d (%v), want %d", got, err, tt.wantCode)
			}
		})
	}
}

func TestCheckDocumentsErrors(t *testing.T) {
	dir := t.TempDir()
	a1 := filepath.Join(dir, "a.txt")
	a2 := filepath.Join(dir, "b.txt")
	writeFile(t, a1, compliantText)
	writeFile(t, a2, compliantText)

	t.Run("id with several files", func(t *testing.T) {
		resetFlags()
		checkFlags.id = "X"
		err := checkDocuments(context.Background(), newTestApp(t), &bytes.Buffer{}, []string{a1, a2})
		var cfgErr *cli.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("err = %v, want *cli.ConfigError", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		resetFlags()
		a := newTestApp(t)
		err := checkDocuments(context.Background(), a, &bytes.Buffer{}, []string{a1, filepath.Join(dir, "missing.txt")})
		var cmdErr *cli.CommandError
		if !errors.As(err, &cmdErr) {
			t.Errorf("err = %v, want *cli.CommandError", err)
		}
	})

	t.Run("unknown output", func(t *testing.T) {
		resetFlags()
		checkFlags.output = "xml"
		if err := checkDocuments(context.Background(), newTestApp(t), &bytes.Buffer{}, []string{a1}); cli.ExitCode(err) != cli.ExitUsage {
			t.Errorf("err = %v, want usage error", err)
		}
	})
}

func TestEvaluateProject(t *testing.T) {
	resetFlags()
	a := newTestApp(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "contracts", "main.txt"), compliantText)
	writeFile(t, filepath.Join(dir, "tender.txt"), weakText)
	writeFile(t, filepath.Join(dir, "notes.md"), weakText)

	projectFlags.id = "P-2024-017"
	projectFlags.failOn = "violation"

	var out bytes.Buffer
	if err := evaluateProject(context.Background(), a, &out, dir); err != nil {
		t.Fatalf("evaluateProject: %v", err)
	}

	var report engine.ProjectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if report.ProjectID != "P-2024-017" || report.ProjectName != "P-2024-017" {
		t.Errorf("identity = %q/%q", report.ProjectID, report.ProjectName)
	}
	if len(report.DocumentReports) != 2 {
		t.Fatalf("got %d documents, want 2", len(report.DocumentReports))
	}
	if got := report.DocumentReports[0].DocumentID; got != "contracts/main" {
		t.Errorf("first document = %q, want contracts/main", got)
	}
	// (100 + 80) / 2
	if report.ComplianceScore != 90 || report.OverallCompliance != rules.LevelCompliant {
		t.Errorf("score = %v %s, want 90 compliant", report.ComplianceScore, report.OverallCompliance)
	}
	if len(report.Recommendations) == 0 {
		t.Error("expected recommendations from the weak document")
	}

	records, err := a.storage.List(context.Background(), &archive.Query{Kind: archive.KindProject})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].SubjectID != "P-2024-017" {
		t.Errorf("archived project records = %+v", records)
	}
}

func TestProjectIdentity(t *testing.T) {
	tests := []struct {
		dir, id, name      string
		wantID, wantName string
	}{
		{"/data/P-1", "", "", "P-1", "P-1"},
		{"/data/P-1/", "", "Bridge", "P-1", "Bridge"},
		{"/data/P-1", "X", "", "X", "X"},
	}
	for _, tt := range tests {
		id, name := projectIdentity(tt.dir, tt.id, tt.name)
		if id != tt.wantID || name != tt.wantName {
			t.Errorf("projectIdentity(%q, %q, %q) = %q, %q; want %q, %q",
				tt.dir, tt.id, tt.name, id, name, tt.wantID, tt.wantName)
		}
	}
}

func TestListRules(t *testing.T) {
	tests := []struct {
		category string
		wantRows int
		wantErr  bool
	}{
		{"", 6, false},
		{"legal", 2, false},
		{"CONTENT", 2, false},
		{"approval", 0, false},
		{"finance", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			resetFlags()
			rulesFlags.output = "csv"
			rulesFlags.category = tt.category

			var out bytes.Buffer
			err := listRules(newTestApp(t), &out)
			if tt.wantErr {
				if cli.ExitCode(err) != cli.ExitUsage {
					t.Errorf("err = %v, want usage error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("listRules: %v", err)
			}
			rows, err := csv.NewReader(&out).ReadAll()
			if err != nil {
				t.Fatalf("parse csv: %v", err)
			}
			if got := len(rows) - 1; got != tt.wantRows {
				t.Errorf("got %d rows, want %d", got, tt.wantRows)
			}
		})
	}
}

func TestShowRule(t *testing.T) {
	resetFlags()
	a := newTestApp(t)

	var out bytes.Buffer
	if err := showRule(a, &out, rules.RuleSensitiveTerms); err != nil {
		t.Fatalf("showRule: %v", err)
	}
	if !strings.Contains(out.String(), rules.RuleSensitiveTerms) {
		t.Errorf("output does not mention the rule:\n%s", out.String())
	}

	if err := showRule(a, &out, "NOPE_001"); !errors.Is(err, rules.ErrRuleNotFound) {
		t.Errorf("err = %v, want ErrRuleNotFound", err)
	}
}

func TestExportAndValidateRules(t *testing.T) {
	resetFlags()
	a := newTestApp(t)
	dir := t.TempDir()

	for _, name := range []string{"rules.yaml", "rules.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := a.store.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}

			var out bytes.Buffer
			if err := validateRuleFile(&out, path); err != nil {
				t.Fatalf("validateRuleFile: %v", err)
			}
			if !strings.Contains(out.String(), "6 rules") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}

func TestValidateRuleFileInvalid(t *testing.T) {
	dir := t.TempDir()

	missingName := filepath.Join(dir, "missing-name.yaml")
	writeFile(t, missingName, `schema_version: "1.0"
rules:
  - rule_id: T_001
    category: legal
    required_keywords: [审批]
`)
	badCategory := filepath.Join(dir, "bad-category.yaml")
	writeFile(t, badCategory, `schema_version: "1.0"
rules:
  - rule_id: T_001
    name: Test
    category: finance
`)

	for _, path := range []string{missingName, badCategory, filepath.Join(dir, "missing.yaml")} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if err := validateRuleFile(&bytes.Buffer{}, path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildReportQuery(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		set     func()
		check   func(t *testing.T, q *archive.Query)
		wantErr bool
	}{
		{
			name: "defaults",
			set:  func() {},
			check: func(t *testing.T, q *archive.Query) {
				if q.Limit != 50 || q.Kind != "" || q.After != nil {
					t.Errorf("query = %+v", q)
				}
			},
		},
		{
			name: "filters",
			set: func() {
				reportsFlags.kind = "Project"
				reportsFlags.level = "critical"
				reportsFlags.subject = "P-1"
				reportsFlags.oldestFirst = true
			},
			check: func(t *testing.T, q *archive.Query) {
				if q.Kind != archive.KindProject || q.Level != rules.LevelCritical || q.SubjectID != "P-1" || !q.OldestFirst {
					t.Errorf("query = %+v", q)
				}
			},
		},
		{
			name: "since duration",
			set:  func() { reportsFlags.since = "48h" },
			check: func(t *testing.T, q *archive.Query) {
				if want := now.Add(-48 * time.Hour); q.After == nil || !q.After.Equal(want) {
					t.Errorf("After = %v, want %v", q.After, want)
				}
			},
		},
		{
			name: "since date",
			set:  func() { reportsFlags.since = "2026-01-01" },
			check: func(t *testing.T, q *archive.Query) {
				if want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC); q.After == nil || !q.After.Equal(want) {
					t.Errorf("After = %v, want %v", q.After, want)
				}
			},
		},
		{name: "bad kind", set: func() { reportsFlags.kind = "rule" }, wantErr: true},
		{name: "bad level", set: func() { reportsFlags.level = "fine" }, wantErr: true},
		{name: "bad since", set: func() { reportsFlags.since = "last week" }, wantErr: true},
		{name: "negative limit", set: func() { reportsFlags.limit = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			tt.set()

			q, err := buildReportQuery(now)
			if tt.wantErr {
				if cli.ExitCode(err) != cli.ExitUsage {
					t.Errorf("err = %v, want usage error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildReportQuery: %v", err)
			}
			tt.check(t, q)
		})
	}
}

func TestReportsCommands(t *testing.T) {
	resetFlags()
	a := newTestApp(t)
	ctx := context.Background()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	weak := filepath.Join(dir, "weak.txt")
	writeFile(t, good, compliantText)
	writeFile(t, weak, weakText)

	if err := checkDocuments(ctx, a, &bytes.Buffer{}, []string{good, weak}); err != nil {
		t.Fatalf("checkDocuments: %v", err)
	}

	reportsFlags.level = "warning"
	var out bytes.Buffer
	if err := listReports(ctx, a, &out); err != nil {
		t.Fatalf("listReports: %v", err)
	}
	var records []*archive.Record
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out.String())
	}
	if len(records) != 1 || records[0].SubjectID != "weak" {
		t.Fatalf("records = %+v, want the weak document", records)
	}

	out.Reset()
	if err := getReport(ctx, a, &out, records[0].ID); err != nil {
		t.Fatalf("getReport: %v", err)
	}
	var report engine.DocumentReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.DocumentID != "weak" || report.ComplianceScore != 80 {
		t.Errorf("report = %s %v, want weak 80", report.DocumentID, report.ComplianceScore)
	}

	if err := getReport(ctx, a, &out, "missing"); !errors.Is(err, archive.ErrNotFound) {
		t.Errorf("err = %v, want archive.ErrNotFound", err)
	}

	out.Reset()
	reportsFlags.olderThan = 1
	if err := pruneReports(ctx, a, &out); err != nil {
		t.Fatalf("pruneReports: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Pruned 0 reports" {
		t.Errorf("output = %q", got)
	}
	if got := archiveCount(t, a); got != 2 {
		t.Errorf("archive holds %d records, want 2", got)
	}
}

func TestReportsArchiveDisabled(t *testing.T) {
	resetFlags()
	cfg := config.Default()
	cfg.Rules.Source = "defaults"
	a, err := buildApp(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}

	if err := listReports(context.Background(), a, &bytes.Buffer{}); err == nil {
		t.Error("expected error with the archive disabled")
	}
	// Evaluations still work without an archive.
	path := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, path, compliantText)
	if err := checkDocuments(context.Background(), a, &bytes.Buffer{}, []string{path}); err != nil {
		t.Errorf("checkDocuments: %v", err)
	}
}

func TestBuildAppRuleFileFallback(t *testing.T) {
	cfg := config.Default()
	cfg.Rules.Source = "file"
	cfg.Rules.Path = filepath.Join(t.TempDir(), "missing.yaml")

	a, err := buildApp(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	snap := a.store.Snapshot()
	if snap.Source() != rules.SourceDefaults || snap.Len() != len(rules.DefaultRules()) {
		t.Errorf("snapshot = %s with %d rules, want defaults", snap.Source(), snap.Len())
	}
}

func TestServeMux(t *testing.T) {
	resetFlags()
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "doc.txt")
	writeFile(t, path, weakText)
	if err := checkDocuments(context.Background(), a, &bytes.Buffer{}, []string{path}); err != nil {
		t.Fatalf("checkDocuments: %v", err)
	}

	mux := newServeMux(a)
	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/healthz", http.StatusOK, `"status":"ok"`},
		{"/readyz", http.StatusOK, `"status":"ready"`},
		{"/version", http.StatusOK, Version},
		{"/metrics", http.StatusOK, "compliance_"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q:\n%s", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestProjectWatcherReload(t *testing.T) {
	resetFlags()
	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "rules.yaml")
	writeFile(t, ruleFile, `schema_version: "1.0"
rules:
  - rule_id: T_001
    name: Approval
    category: approval
    required_keywords: [审批]
    severity: violation
`)
	docs := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(docs, "a.txt"), "经审批")

	cfg := config.Default()
	cfg.Rules.Path = ruleFile
	a, err := buildApp(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}

	var out bytes.Buffer
	pw := &projectWatcher{app: a, dir: docs, out: &out, formatter: cli.NewFormatter(cli.FormatJSON, true)}
	ctx := context.Background()

	if err := pw.evaluate(ctx); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	before := a.store.Snapshot().Version()

	writeFile(t, ruleFile, `schema_version: "1.0"
rules:
  - rule_id: T_001
    name: Approval
    category: approval
    required_keywords: [审批, 盖章]
    severity: violation
`)
	out.Reset()
	if err := pw.reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if a.store.Snapshot().Version() == before {
		t.Fatal("rule set version did not change")
	}

	var report engine.ProjectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if report.ComplianceScore != 80 {
		t.Errorf("score after reload = %v, want 80", report.ComplianceScore)
	}
}
