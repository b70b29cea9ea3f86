package rules

import "time"

// Default rule IDs. They are stable so rule files can override or remove them.
const (
	RuleApprovalKeywords = "LEGAL_001"
	RuleSensitiveTerms   = "LEGAL_002"
	RuleDocumentNaming   = "PROC_001"
	RuleMandatoryFields  = "CONT_001"
	RuleDateFormat       = "CONT_002"
	RuleVersionMarker    = "DOC_001"
)

// defaultsIssued is the provenance timestamp of the built-in rule set.
var defaultsIssued = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultRules returns the baseline rule set used when no rule file is
// configured or the configured one cannot be loaded. Each call returns
// fresh copies.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			ID:               RuleApprovalKeywords,
			Name:             "Mandatory approval keywords",
			Description:      "Procurement documents must record approval, sign-off and seal.",
			Category:         CategoryLegal,
			Kind:             KindStandard,
			RequiredKeywords: []string{"审批", "批准", "签字", "盖章"},
			Severity:         LevelViolation,
			Weight:           2.0,
			Enabled:          true,
			LegalBasis:       "《政府采购法》第三十六条",
			CreatedAt:        defaultsIssued,
			UpdatedAt:        defaultsIssued,
		},
		{
			ID:                RuleSensitiveTerms,
			Name:              "Forbidden sensitive terms",
			Description:       "Classified material must not be uploaded to the review platform.",
			Category:          CategoryLegal,
			Kind:              KindStandard,
			ForbiddenKeywords: []string{"机密", "绝密", "内部资料"},
			Severity:          LevelCritical,
			Weight:            3.0,
			Enabled:           true,
			LegalBasis:        "《保守国家秘密法》第二十四条",
			CreatedAt:         defaultsIssued,
			UpdatedAt:         defaultsIssued,
		},
		{
			ID:            RuleDocumentNaming,
			Name:          "Document reference number",
			Description:   "Documents must carry a reference number such as CG-2024-001.",
			Category:      CategoryProcedure,
			Kind:          KindStandard,
			FormatPattern: `[A-Z]{2,6}-\d{4}-\d{2,4}`,
			Severity:      LevelWarning,
			Weight:        1.0,
			Enabled:       true,
			CreatedAt:     defaultsIssued,
			UpdatedAt:     defaultsIssued,
		},
		{
			ID:             RuleMandatoryFields,
			Name:           "Mandatory fields",
			Description:    "Project name, purchaser and budget must be stated.",
			Category:       CategoryContent,
			Kind:           KindStandard,
			RequiredFields: []string{"项目名称", "采购人", "预算金额"},
			Severity:       LevelViolation,
			Weight:         2.0,
			Enabled:        true,
			CreatedAt:      defaultsIssued,
			UpdatedAt:      defaultsIssued,
		},
		{
			ID:            RuleDateFormat,
			Name:          "Date notation",
			Description:   "Dates must be written as 2024年1月31日 or 2024-01-31.",
			Category:      CategoryContent,
			Kind:          KindStandard,
			FormatPattern: `\d{4}年\d{1,2}月\d{1,2}日|\d{4}-\d{2}-\d{2}`,
			Severity:      LevelWarning,
			Weight:        1.0,
			Enabled:       true,
			CreatedAt:     defaultsIssued,
			UpdatedAt:     defaultsIssued,
		},
		{
			ID:            RuleVersionMarker,
			Name:          "Version marker",
			Description:   "Documents must state their revision.",
			Category:      CategoryDocument,
			Kind:          KindStandard,
			FormatPattern: `(版本|[Vv]ersion|[Vv])\s*[:：]?\s*\d+(\.\d+)*`,
			Severity:      LevelWarning,
			Weight:        0.5,
			Enabled:       true,
			CreatedAt:     defaultsIssued,
			UpdatedAt:     defaultsIssued,
		},
	}
}
