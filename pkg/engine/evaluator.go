package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"mercator-hq/compliance/pkg/rules"
)

// Outcome is the result of applying one rule to one document. Result is
// always populated; when the rule could not be executed Err is set and
// Result is the critical execution-error result for that rule.
type Outcome struct {
	Result RuleResult
	Err    *RuleExecutionError
}

// Failed reports whether the rule could not be executed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// EvaluateRule applies rule to a document. It is pure and never panics:
// any failure inside the rule is converted into a critical result with
// score 0, so one broken rule cannot abort a batch.
func EvaluateRule(rule *rules.Rule, text string, meta Metadata) Outcome {
	res, err := evaluate(rule, text, meta)
	if err != nil {
		execErr := &RuleExecutionError{RuleID: rule.ID, Cause: err}
		return Outcome{Result: executionErrorResult(rule, execErr), Err: execErr}
	}
	return Outcome{Result: res}
}

func executionErrorResult(rule *rules.Rule, err error) RuleResult {
	return RuleResult{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Category:    rule.Category,
		IsCompliant: false,
		Level:       rules.LevelCritical,
		Score:       0,
		Weight:      rule.Weight,
		LegalBasis:  rule.LegalBasis,
		Issues:      []string{fmt.Sprintf("rule execution error: %v", err)},
		Suggestions: []string{"check the configuration of this rule"},
		Evidence:    []string{},
	}
}

// checks accumulates the findings of the condition groups of one rule.
type checks struct {
	issues      []string
	suggestions []string
	evidence    []string
}

func (c *checks) fail(issue, suggestion string) {
	c.issues = append(c.issues, issue)
	c.suggestions = append(c.suggestions, suggestion)
}

func (c *checks) note(format string, args ...any) {
	c.evidence = append(c.evidence, fmt.Sprintf(format, args...))
}

// evaluate runs every applicable condition group in a fixed order. Groups
// are independent: all of them run even after one has failed.
func evaluate(rule *rules.Rule, text string, meta Metadata) (res RuleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	c := &checks{}
	kind := rule.Kind.Normalize()

	if kind == rules.KindMinMatch {
		checkMinMatch(c, rule, text)
	} else {
		checkRequiredKeywords(c, rule.RequiredKeywords, text)
	}
	checkForbiddenKeywords(c, rule.ForbiddenKeywords, text)
	checkRequiredFields(c, rule.RequiredFields, text)
	if err := checkFormatPattern(c, rule.FormatPattern, text); err != nil {
		return RuleResult{}, err
	}

	switch kind {
	case rules.KindDateFormat:
		if err := checkDateFormat(c, rule.DateFormat, text); err != nil {
			return RuleResult{}, err
		}
	case rules.KindFileFormat:
		checkFileFormat(c, rule.FileFormat, meta)
	case rules.KindFileSize:
		checkFileSize(c, rule.FileSize, meta)
	}

	compliant := len(c.issues) == 0
	level := rules.LevelCompliant
	if !compliant {
		level = rule.Severity
	}

	return RuleResult{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Category:    rule.Category,
		IsCompliant: compliant,
		Level:       level,
		Score:       ruleScore(len(c.issues)),
		Weight:      rule.Weight,
		LegalBasis:  rule.LegalBasis,
		Issues:      nonNil(c.issues),
		Suggestions: nonNil(c.suggestions),
		Evidence:    nonNil(c.evidence),
	}, nil
}

// checkRequiredKeywords fails when any keyword is not a substring of text.
// Matching is case-sensitive and not tokenized.
func checkRequiredKeywords(c *checks, keywords []string, text string) {
	var missing []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			c.note("found keyword: %s", kw)
		} else {
			missing = append(missing, kw)
		}
	}
	if len(missing) > 0 {
		list := strings.Join(missing, ", ")
		c.fail("missing required keywords: "+list, "add the required wording: "+list)
	}
}

func checkForbiddenKeywords(c *checks, keywords []string, text string) {
	var found []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
			c.note("found forbidden keyword: %s", kw)
		}
	}
	if len(found) > 0 {
		list := strings.Join(found, ", ")
		c.fail("forbidden keywords found: "+list, "remove or redact: "+list)
	}
}

// checkRequiredFields looks for field labels in the text. Metadata is not
// consulted; the document text is authoritative.
func checkRequiredFields(c *checks, fields []string, text string) {
	var missing []string
	for _, f := range fields {
		if strings.Contains(text, f) {
			c.note("found field: %s", f)
		} else {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		list := strings.Join(missing, ", ")
		c.fail("missing required fields: "+list, "fill in the fields: "+list)
	}
}

// checkFormatPattern requires at least one match anywhere in the text.
func checkFormatPattern(c *checks, pattern, text string) error {
	if pattern == "" {
		return nil
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	if re.MatchString(text) {
		c.note("format check passed: %s", pattern)
		return nil
	}
	c.fail(fmt.Sprintf("text does not match required format %q", pattern),
		"add content in the required format: "+pattern)
	return nil
}

// nonNil keeps empty lists as [] in serialized reports.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type compiled struct {
	re  *regexp.Regexp
	err error
}

// patternCache memoizes compiled patterns by source. Compilation is
// deterministic, so caching does not affect results.
var patternCache sync.Map

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if v, ok := patternCache.Load(pattern); ok {
		c := v.(compiled)
		return c.re, c.err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		err = &PatternError{Pattern: pattern, Cause: err}
	}
	patternCache.Store(pattern, compiled{re: re, err: err})
	return re, err
}
