package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SchemaVersion is the rule file schema version written by Save.
const SchemaVersion = "1.0"

// MaxFileSize bounds the size of a rule file accepted by ReadFile.
const MaxFileSize = 10 * 1024 * 1024

// File is the on-disk representation of a rule set.
type File struct {
	SchemaVersion string    `yaml:"schema_version" json:"schema_version"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	Rules         []Record  `yaml:"rules" json:"rules"`
}

// Record is one rule as stored in a rule file. Unknown fields are ignored
// when decoding so newer files can be read by older engines.
type Record struct {
	RuleID      string `yaml:"rule_id" json:"rule_id" validate:"required"`
	Name        string `yaml:"name" json:"name" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Category    string `yaml:"category" json:"category" validate:"required,oneof=legal procedure document content format approval"`
	Kind        string `yaml:"kind,omitempty" json:"kind,omitempty" validate:"omitempty,oneof=standard min_match date_format file_format file_size"`

	RequiredKeywords  []string `yaml:"required_keywords,omitempty" json:"required_keywords,omitempty" validate:"dive,required"`
	ForbiddenKeywords []string `yaml:"forbidden_keywords,omitempty" json:"forbidden_keywords,omitempty" validate:"dive,required"`
	RequiredFields    []string `yaml:"required_fields,omitempty" json:"required_fields,omitempty" validate:"dive,required"`
	FormatPattern     string   `yaml:"format_pattern,omitempty" json:"format_pattern,omitempty"`

	Conditions *Conditions `yaml:"conditions,omitempty" json:"conditions,omitempty"`

	Severity string   `yaml:"severity,omitempty" json:"severity,omitempty" validate:"omitempty,oneof=warning violation critical"`
	Weight   *float64 `yaml:"weight,omitempty" json:"weight,omitempty" validate:"omitempty,gte=0"`
	Enabled  *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	LegalBasis string    `yaml:"legal_basis,omitempty" json:"legal_basis,omitempty"`
	CreatedAt  time.Time `yaml:"created_at,omitempty" json:"created_at"`
	UpdatedAt  time.Time `yaml:"updated_at,omitempty" json:"updated_at"`
}

// Conditions holds the kind-specific condition blocks of a record.
type Conditions struct {
	MinMatch   *MinMatchCondition   `yaml:"min_match,omitempty" json:"min_match,omitempty"`
	DateFormat *DateFormatCondition `yaml:"date_format,omitempty" json:"date_format,omitempty"`
	FileFormat *FileFormatCondition `yaml:"file_format,omitempty" json:"file_format,omitempty"`
	FileSize   *FileSizeCondition   `yaml:"file_size,omitempty" json:"file_size,omitempty"`
}

// Record defaults for optional policy attributes.
const (
	DefaultSeverity = LevelWarning
	DefaultWeight   = 1.0
)

var recordValidate = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New()
	// Report yaml field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// isJSON reports whether path should be encoded as JSON.
func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ReadFile reads and decodes a rule file. All failures are reported as
// *ConfigError.
func ReadFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &ConfigError{Path: path, Message: "file not found", Cause: err}
		}
		return nil, &ConfigError{Path: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ConfigError{Path: path, Message: "not a regular file"}
	}
	if info.Size() > MaxFileSize {
		return nil, &ConfigError{Path: path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), MaxFileSize)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read file", Cause: err}
	}

	f, err := Decode(data, isJSON(path))
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "malformed rule file", Cause: err}
	}
	return f, nil
}

// Decode parses rule file contents. JSON input is decoded with encoding/json,
// everything else as YAML.
func Decode(data []byte, asJSON bool) (*File, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("invalid UTF-8 encoding")
	}

	var f File
	if asJSON {
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
	}

	if f.SchemaVersion == "" {
		return nil, errors.New("missing schema_version")
	}
	if major := strings.SplitN(f.SchemaVersion, ".", 2)[0]; major != strings.SplitN(SchemaVersion, ".", 2)[0] {
		return nil, fmt.Errorf("unsupported schema_version %q (supported: %s)", f.SchemaVersion, SchemaVersion)
	}

	return &f, nil
}

// ToRules converts every record to a Rule. A single invalid record fails
// the whole conversion; the returned *ErrorList names every offending record.
func (f *File) ToRules() ([]*Rule, error) {
	out := make([]*Rule, 0, len(f.Rules))
	errList := &ErrorList{}

	for i := range f.Rules {
		rule, err := f.Rules[i].toRule(i + 1)
		if err != nil {
			errList.Add(err)
			continue
		}
		out = append(out, rule)
	}

	if errList.HasErrors() {
		return nil, errList
	}
	return out, nil
}

func (r *Record) toRule(pos int) (*Rule, error) {
	rec := *r
	rec.Category = strings.ToLower(strings.TrimSpace(rec.Category))
	rec.Kind = strings.ToLower(strings.TrimSpace(rec.Kind))
	rec.Severity = strings.ToLower(strings.TrimSpace(rec.Severity))

	if err := recordValidate.Struct(&rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &ValidationError{
				RuleID:  rec.RuleID,
				Record:  pos,
				Field:   strings.TrimPrefix(fe.Namespace(), "Record."),
				Message: describeFieldError(fe),
			}
		}
		return nil, &ValidationError{RuleID: rec.RuleID, Record: pos, Message: err.Error()}
	}

	rule := &Rule{
		ID:                rec.RuleID,
		Name:              rec.Name,
		Description:       rec.Description,
		Category:          Category(rec.Category),
		Kind:              Kind(rec.Kind).Normalize(),
		RequiredKeywords:  rec.RequiredKeywords,
		ForbiddenKeywords: rec.ForbiddenKeywords,
		RequiredFields:    rec.RequiredFields,
		FormatPattern:     rec.FormatPattern,
		Severity:          DefaultSeverity,
		Weight:            DefaultWeight,
		Enabled:           true,
		LegalBasis:        rec.LegalBasis,
		CreatedAt:         rec.CreatedAt,
		UpdatedAt:         rec.UpdatedAt,
	}
	if rec.Severity != "" {
		rule.Severity = Level(rec.Severity)
	}
	if rec.Weight != nil {
		rule.Weight = *rec.Weight
	}
	if rec.Enabled != nil {
		rule.Enabled = *rec.Enabled
	}
	if c := rec.Conditions; c != nil {
		rule.MinMatch = c.MinMatch
		rule.DateFormat = c.DateFormat
		rule.FileFormat = c.FileFormat
		rule.FileSize = c.FileSize
	}

	if err := rule.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Record = pos
		}
		return nil, err
	}
	return rule, nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fe.Value())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// NewFile builds a File from rules, preserving their order.
func NewFile(rules []*Rule, createdAt time.Time) *File {
	f := &File{
		SchemaVersion: SchemaVersion,
		CreatedAt:     createdAt.UTC(),
		Rules:         make([]Record, 0, len(rules)),
	}
	for _, r := range rules {
		f.Rules = append(f.Rules, recordFromRule(r))
	}
	return f
}

func recordFromRule(r *Rule) Record {
	weight := r.Weight
	enabled := r.Enabled
	rec := Record{
		RuleID:            r.ID,
		Name:              r.Name,
		Description:       r.Description,
		Category:          string(r.Category),
		Kind:              string(r.Kind.Normalize()),
		RequiredKeywords:  r.RequiredKeywords,
		ForbiddenKeywords: r.ForbiddenKeywords,
		RequiredFields:    r.RequiredFields,
		FormatPattern:     r.FormatPattern,
		Severity:          string(r.Severity),
		Weight:            &weight,
		Enabled:           &enabled,
		LegalBasis:        r.LegalBasis,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if r.MinMatch != nil || r.DateFormat != nil || r.FileFormat != nil || r.FileSize != nil {
		rec.Conditions = &Conditions{
			MinMatch:   r.MinMatch,
			DateFormat: r.DateFormat,
			FileFormat: r.FileFormat,
			FileSize:   r.FileSize,
		}
	}
	return rec
}

// Encode serializes f as JSON or YAML.
func Encode(f *File, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes f and writes it to path through a temporary file in the
// same directory, so readers never observe a partial rule file.
func WriteFile(path string, f *File) error {
	data, err := Encode(f, isJSON(path))
	if err != nil {
		return &IOError{Path: path, Op: "encode", Cause: err}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Path: path, Op: "create", Cause: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Path: path, Op: "write", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Path: path, Op: "write", Cause: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Path: path, Op: "rename", Cause: err}
	}
	return nil
}
