package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestDecode_JSON(t *testing.T) {
	data := []byte(`{
  "schema_version": "1.2",
  "rules": [
    {"rule_id": "SIZE_001", "name": "Upload size", "category": "format", "kind": "file_size",
     "conditions": {"file_size": {"max_bytes": 1048576}}, "severity": "Violation", "weight": 0.5}
  ]
}`)

	f, err := Decode(data, true)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	rules, err := f.ToRules()
	if err != nil {
		t.Fatalf("ToRules() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}

	r := rules[0]
	if r.Kind != KindFileSize || r.FileSize == nil || r.FileSize.MaxBytes != 1048576 {
		t.Errorf("file_size rule decoded as %+v", r)
	}
	if r.Severity != LevelViolation {
		t.Errorf("Severity = %q, want violation", r.Severity)
	}
	if r.Weight != 0.5 || !r.Enabled {
		t.Errorf("weight=%v enabled=%v, want 0.5/true", r.Weight, r.Enabled)
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"invalid utf8", []byte{0xff, 0xfe, 0x00}, "UTF-8"},
		{"missing schema", []byte("rules: []"), "schema_version"},
		{"future major", []byte("schema_version: \"3.1\""), "unsupported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, false)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Decode() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestToRules_ReportsEveryInvalidRecord(t *testing.T) {
	f, err := Decode([]byte(`
schema_version: "1.0"
rules:
  - rule_id: OK_1
    name: fine
    category: legal
  - rule_id: BAD_1
    name: bad category
    category: finance
  - rule_id: BAD_2
    name: bad weight
    category: legal
    weight: -2
`), false)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.ToRules()
	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("ToRules() error = %v, want *ErrorList", err)
	}
	if len(list.Errors) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(list.Errors), err)
	}

	var ve *ValidationError
	if !errors.As(list.Errors[0], &ve) {
		t.Fatalf("first error = %T, want *ValidationError", list.Errors[0])
	}
	if ve.RuleID != "BAD_1" || ve.Record != 2 || ve.Field != "category" {
		t.Errorf("ValidationError = %+v, want BAD_1 record 2 field category", ve)
	}
}

func TestEncode_RoundTripsDefaults(t *testing.T) {
	for _, asJSON := range []bool{false, true} {
		data, err := Encode(NewFile(DefaultRules(), defaultsIssued), asJSON)
		if err != nil {
			t.Fatalf("Encode(json=%v) error = %v", asJSON, err)
		}
		f, err := Decode(data, asJSON)
		if err != nil {
			t.Fatalf("Decode(json=%v) error = %v", asJSON, err)
		}
		rules, err := f.ToRules()
		if err != nil {
			t.Fatalf("ToRules(json=%v) error = %v", asJSON, err)
		}

		defaults := DefaultRules()
		if len(rules) != len(defaults) {
			t.Fatalf("json=%v: %d rules, want %d", asJSON, len(rules), len(defaults))
		}
		for i := range rules {
			if rules[i].ID != defaults[i].ID || rules[i].FormatPattern != defaults[i].FormatPattern ||
				rules[i].Weight != defaults[i].Weight || rules[i].LegalBasis != defaults[i].LegalBasis {
				t.Errorf("json=%v: rule %d = %+v, want %+v", asJSON, i, rules[i], defaults[i])
			}
		}
	}
}
