package engine

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"mercator-hq/compliance/pkg/rules"
)

// checkMinMatch is the min_match replacement for the required keyword
// group: at least MinMatches keywords must be present.
func checkMinMatch(c *checks, rule *rules.Rule, text string) {
	if len(rule.RequiredKeywords) == 0 {
		return
	}
	need := len(rule.RequiredKeywords)
	if rule.MinMatch != nil && rule.MinMatch.MinMatches > 0 {
		need = rule.MinMatch.MinMatches
	}

	var missing []string
	found := 0
	for _, kw := range rule.RequiredKeywords {
		if strings.Contains(text, kw) {
			found++
			c.note("found keyword: %s", kw)
		} else {
			missing = append(missing, kw)
		}
	}

	if found < need {
		c.fail(
			fmt.Sprintf("only %d of %d required keywords found (minimum %d), missing: %s",
				found, len(rule.RequiredKeywords), need, strings.Join(missing, ", ")),
			fmt.Sprintf("add at least %d more of: %s", need-found, strings.Join(missing, ", ")),
		)
	}
}

// checkDateFormat finds dates in every known notation. Dates in a notation
// that is not allowed fail the group, as does mixing notations when
// RequireConsistent is set. A text without dates passes.
func checkDateFormat(c *checks, cond *rules.DateFormatCondition, text string) error {
	if cond == nil {
		return nil
	}

	notations := rules.DateNotations()
	names := make([]string, 0, len(notations))
	for name := range notations {
		names = append(names, name)
	}
	sort.Strings(names)

	var used, disallowed []string
	for _, name := range names {
		re, err := compilePattern(notations[name])
		if err != nil {
			return err
		}
		match := re.FindString(text)
		if match == "" {
			continue
		}
		used = append(used, name)
		if slices.Contains(cond.AllowedFormats, name) {
			c.note("date notation %s accepted: %s", name, match)
		} else {
			disallowed = append(disallowed, fmt.Sprintf("%s (%s)", name, match))
		}
	}

	var problems []string
	if len(disallowed) > 0 {
		problems = append(problems, "date notation not allowed: "+strings.Join(disallowed, ", "))
	}
	if cond.RequireConsistent && len(used) > 1 {
		problems = append(problems, "inconsistent date notations: "+strings.Join(used, ", "))
	}
	if len(problems) > 0 {
		c.fail(strings.Join(problems, "; "),
			"write all dates in one of: "+strings.Join(cond.AllowedFormats, ", "))
	}
	return nil
}

// checkFileFormat validates the extension of the "filename" metadata.
func checkFileFormat(c *checks, cond *rules.FileFormatCondition, meta Metadata) {
	if cond == nil {
		return
	}
	allowed := strings.Join(cond.AllowedExtensions, ", ")

	name, ok := meta.String(MetaFilename)
	if !ok || name == "" {
		c.fail("missing filename metadata, file type cannot be checked",
			"supply the original filename when submitting the document")
		return
	}

	ext := strings.ToLower(filepath.Ext(name))
	accepted := slices.ContainsFunc(cond.AllowedExtensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
	if !accepted {
		c.fail(fmt.Sprintf("file type %q not allowed (allowed: %s)", ext, allowed),
			"convert the document to one of: "+allowed)
		return
	}
	c.note("file type accepted: %s", ext)
}

// checkFileSize validates the "size" metadata in bytes.
func checkFileSize(c *checks, cond *rules.FileSizeCondition, meta Metadata) {
	if cond == nil {
		return
	}

	size, ok := meta.Int64(MetaSize)
	if !ok {
		c.fail("missing size metadata, file size cannot be checked",
			"supply the file size when submitting the document")
		return
	}
	if size > cond.MaxBytes {
		c.fail(fmt.Sprintf("file size %d bytes exceeds limit of %d bytes", size, cond.MaxBytes),
			"reduce the file size or split the document")
		return
	}
	c.note("file size within limit: %d bytes", size)
}
