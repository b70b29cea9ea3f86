package rules

import (
	"fmt"
	"slices"
	"time"
)

// Category groups rules by the area of procurement policy they cover.
type Category string

const (
	// CategoryLegal covers statutory and regulatory requirements.
	CategoryLegal Category = "legal"

	// CategoryProcedure covers procurement procedure requirements.
	CategoryProcedure Category = "procedure"

	// CategoryDocument covers document management requirements (versions, naming).
	CategoryDocument Category = "document"

	// CategoryContent covers content quality requirements.
	CategoryContent Category = "content"

	// CategoryFormat covers file and layout format requirements.
	CategoryFormat Category = "format"

	// CategoryApproval covers sign-off and approval requirements.
	CategoryApproval Category = "approval"
)

// Categories returns all known categories in their canonical order.
func Categories() []Category {
	return []Category{
		CategoryLegal,
		CategoryProcedure,
		CategoryDocument,
		CategoryContent,
		CategoryFormat,
		CategoryApproval,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories(), c)
}

// Level is a discrete compliance level. Levels are ordered from best
// (LevelCompliant) to worst (LevelCritical).
type Level string

const (
	// LevelCompliant means no condition failed.
	LevelCompliant Level = "compliant"

	// LevelWarning marks a minor deviation.
	LevelWarning Level = "warning"

	// LevelViolation marks a deviation that must be fixed before approval.
	LevelViolation Level = "violation"

	// LevelCritical marks a deviation that blocks the document outright.
	LevelCritical Level = "critical"
)

// Rank returns the position of l in the compliance ordering, 0 being
// compliant. Unknown levels rank as critical.
func (l Level) Rank() int {
	switch l {
	case LevelCompliant:
		return 0
	case LevelWarning:
		return 1
	case LevelViolation:
		return 2
	default:
		return 3
	}
}

// Valid reports whether l is a known level.
func (l Level) Valid() bool {
	switch l {
	case LevelCompliant, LevelWarning, LevelViolation, LevelCritical:
		return true
	}
	return false
}

// ValidSeverity reports whether l may be used as a rule severity.
// A rule can never fail into LevelCompliant.
func (l Level) ValidSeverity() bool {
	return l.Valid() && l != LevelCompliant
}

// Kind discriminates the extended rule types. Every kind runs the four
// standard condition groups; non-standard kinds add one more group whose
// parameters live in the matching typed condition block on Rule.
type Kind string

const (
	// KindStandard runs only the standard condition groups.
	KindStandard Kind = "standard"

	// KindMinMatch requires a minimum number of RequiredKeywords instead of all of them.
	KindMinMatch Kind = "min_match"

	// KindDateFormat checks the date notations used in the text.
	KindDateFormat Kind = "date_format"

	// KindFileFormat checks the "filename" metadata extension.
	KindFileFormat Kind = "file_format"

	// KindFileSize checks the "size" metadata value.
	KindFileSize Kind = "file_size"
)

// Valid reports whether k is a known kind. The empty kind is treated as standard.
func (k Kind) Valid() bool {
	switch k {
	case "", KindStandard, KindMinMatch, KindDateFormat, KindFileFormat, KindFileSize:
		return true
	}
	return false
}

// Normalize maps the empty kind to KindStandard.
func (k Kind) Normalize() Kind {
	if k == "" {
		return KindStandard
	}
	return k
}

// MinMatchCondition parameterizes KindMinMatch.
type MinMatchCondition struct {
	// MinMatches is the number of RequiredKeywords that must appear.
	MinMatches int `yaml:"min_matches" json:"min_matches"`
}

// DateFormatCondition parameterizes KindDateFormat.
type DateFormatCondition struct {
	// AllowedFormats lists the date notations accepted in the text.
	// Known notations: "iso" (2024-01-31), "chinese" (2024年1月31日),
	// "slash" (2024/01/31), "dot" (2024.01.31).
	AllowedFormats []string `yaml:"allowed_formats" json:"allowed_formats"`

	// RequireConsistent fails the group when more than one notation is used.
	RequireConsistent bool `yaml:"require_consistent" json:"require_consistent"`
}

// FileFormatCondition parameterizes KindFileFormat.
type FileFormatCondition struct {
	// AllowedExtensions lists accepted file extensions including the dot (".pdf").
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
}

// FileSizeCondition parameterizes KindFileSize.
type FileSizeCondition struct {
	// MaxBytes is the largest accepted "size" metadata value.
	MaxBytes int64 `yaml:"max_bytes" json:"max_bytes"`
}

// Rule is a single compliance policy. Rules are treated as immutable once
// added to a Store; use Clone to derive a modified copy.
type Rule struct {
	ID          string
	Name        string
	Description string
	Category    Category
	Kind        Kind

	// Standard condition groups. Any subset may be empty.
	RequiredKeywords  []string
	ForbiddenKeywords []string
	RequiredFields    []string
	FormatPattern     string

	// Kind-specific condition blocks. Exactly the block matching Kind is used.
	MinMatch   *MinMatchCondition
	DateFormat *DateFormatCondition
	FileFormat *FileFormatCondition
	FileSize   *FileSizeCondition

	Severity Level
	Weight   float64
	Enabled  bool

	LegalBasis string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasConditions reports whether the rule defines at least one condition group.
func (r *Rule) HasConditions() bool {
	return len(r.RequiredKeywords) > 0 ||
		len(r.ForbiddenKeywords) > 0 ||
		len(r.RequiredFields) > 0 ||
		r.FormatPattern != "" ||
		r.Kind.Normalize() != KindStandard
}

// Validate checks the structural invariants of a rule. It does not compile
// FormatPattern; a broken pattern surfaces as an execution error at
// evaluation time.
func (r *Rule) Validate() error {
	switch {
	case r.ID == "":
		return &ValidationError{Field: "rule_id", Message: "must not be empty"}
	case r.Name == "":
		return &ValidationError{RuleID: r.ID, Field: "name", Message: "must not be empty"}
	case !r.Category.Valid():
		return &ValidationError{RuleID: r.ID, Field: "category", Message: fmt.Sprintf("unknown category %q", r.Category)}
	case !r.Kind.Valid():
		return &ValidationError{RuleID: r.ID, Field: "kind", Message: fmt.Sprintf("unknown kind %q", r.Kind)}
	case !r.Severity.ValidSeverity():
		return &ValidationError{RuleID: r.ID, Field: "severity", Message: fmt.Sprintf("invalid severity %q", r.Severity)}
	case r.Weight < 0:
		return &ValidationError{RuleID: r.ID, Field: "weight", Message: "must not be negative"}
	}

	switch r.Kind.Normalize() {
	case KindMinMatch:
		if r.MinMatch == nil {
			return &ValidationError{RuleID: r.ID, Field: "min_match", Message: "required for kind min_match"}
		}
		if r.MinMatch.MinMatches < 1 || r.MinMatch.MinMatches > len(r.RequiredKeywords) {
			return &ValidationError{RuleID: r.ID, Field: "min_match.min_matches",
				Message: fmt.Sprintf("must be between 1 and %d", len(r.RequiredKeywords))}
		}
	case KindDateFormat:
		if r.DateFormat == nil || len(r.DateFormat.AllowedFormats) == 0 {
			return &ValidationError{RuleID: r.ID, Field: "date_format.allowed_formats", Message: "required for kind date_format"}
		}
		for _, name := range r.DateFormat.AllowedFormats {
			if !KnownDateNotation(name) {
				return &ValidationError{RuleID: r.ID, Field: "date_format.allowed_formats",
					Message: fmt.Sprintf("unknown date notation %q", name)}
			}
		}
	case KindFileFormat:
		if r.FileFormat == nil || len(r.FileFormat.AllowedExtensions) == 0 {
			return &ValidationError{RuleID: r.ID, Field: "file_format.allowed_extensions", Message: "required for kind file_format"}
		}
	case KindFileSize:
		if r.FileSize == nil || r.FileSize.MaxBytes <= 0 {
			return &ValidationError{RuleID: r.ID, Field: "file_size.max_bytes", Message: "must be positive for kind file_size"}
		}
	}

	return nil
}

// Clone returns a deep copy of the rule.
func (r *Rule) Clone() *Rule {
	c := *r
	c.RequiredKeywords = slices.Clone(r.RequiredKeywords)
	c.ForbiddenKeywords = slices.Clone(r.ForbiddenKeywords)
	c.RequiredFields = slices.Clone(r.RequiredFields)
	if r.MinMatch != nil {
		mm := *r.MinMatch
		c.MinMatch = &mm
	}
	if r.DateFormat != nil {
		df := *r.DateFormat
		df.AllowedFormats = slices.Clone(r.DateFormat.AllowedFormats)
		c.DateFormat = &df
	}
	if r.FileFormat != nil {
		ff := *r.FileFormat
		ff.AllowedExtensions = slices.Clone(r.FileFormat.AllowedExtensions)
		c.FileFormat = &ff
	}
	if r.FileSize != nil {
		fs := *r.FileSize
		c.FileSize = &fs
	}
	return &c
}

// dateNotations maps notation names to the regular expressions that find them.
var dateNotations = map[string]string{
	"iso":     `\d{4}-\d{1,2}-\d{1,2}`,
	"chinese": `\d{4}年\d{1,2}月\d{1,2}日`,
	"slash":   `\d{4}/\d{1,2}/\d{1,2}`,
	"dot":     `\d{4}\.\d{1,2}\.\d{1,2}`,
}

// KnownDateNotation reports whether name is a supported date notation.
func KnownDateNotation(name string) bool {
	_, ok := dateNotations[name]
	return ok
}

// DateNotations returns the supported date notation names and their patterns.
func DateNotations() map[string]string {
	out := make(map[string]string, len(dateNotations))
	for k, v := range dateNotations {
		out[k] = v
	}
	return out
}
