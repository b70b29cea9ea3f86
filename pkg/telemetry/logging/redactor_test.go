package logging

import (
	"log/slog"
	"testing"

	"mercator-hq/compliance/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"url credentials", "https://user:pw@git.example.com/x.git", "https://***@git.example.com/x.git"},
		{"url token only", "https://ghtoken@github.com/org/rules", "https://***@github.com/org/rules"},
		{"bearer token", "Authorization: Bearer abc.def-ghi", "Authorization: Bearer ***"},
		{"github token", "token ghp_0123456789abcdefABCDEF", "token ghp_***"},
		{"resident id", "身份证 11010519491231002X 已登记", "身份证 ****************** 已登记"},
		{"mobile phone", "联系电话 13912345678", "联系电话 1**********"},
		{"email", "mail zhang.wei@example.cn now", "mail z***@example.cn now"},
		{"plain text", "missing required keywords: 审批", "missing required keywords: 审批"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_CustomPattern(t *testing.T) {
	r, err := NewRedactor([]config.RedactPattern{
		{Name: "bid_price", Pattern: `报价[:：]\s*\d+`, Replacement: "报价: ***"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := r.RedactString("报价：120000"); got != "报价: ***" {
		t.Errorf("custom pattern not applied: %q", got)
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r, err := NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("ssh_key_passphrase", "hunter2"), "***"},
		{"sensitive key non-string", slog.Int("token", 42), "***"},
		{"int untouched", slog.Int("rule_count", 6), "6"},
		{"string pattern", slog.String("path", "https://a:b@h/r"), "https://***@h/r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Key != tt.attr.Key || got.Value.String() != tt.want {
				t.Errorf("RedactAttr() = %s=%s, want %s", got.Key, got.Value, tt.want)
			}
		})
	}

	group := r.RedactAttr(slog.Group("git", slog.String("token", "x"), slog.String("branch", "main")))
	attrs := group.Value.Group()
	if len(attrs) != 2 || attrs[0].Value.String() != "***" || attrs[1].Value.String() != "main" {
		t.Errorf("group redaction = %v", attrs)
	}
}
