// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jats

import "strings"

// sectionRules maps heading keywords to clinical content categories.
// Matching is case-insensitive substring, first rule wins, so the more
// specific keywords sit above the generic ones ("differential
// diagnosis" must not resolve as "diagnosis").
var sectionRules = []struct {
	keyword  string
	category string
}{
	{"differential diagnosis", "differential_diagnosis"},
	{"differential", "differential_diagnosis"},
	{"signs and symptoms", "symptoms"},
	{"clinical presentation", "symptoms"},
	{"clinical features", "symptoms"},
	{"history and physical", "symptoms"},
	{"symptom", "symptoms"},
	{"diagnostic criteria", "diagnostic_criteria"},
	{"diagnosis", "diagnostic_criteria"},
	{"evaluation", "diagnostic_criteria"},
	{"laboratory", "laboratory_tests"},
	{"lab test", "laboratory_tests"},
	{"lab findings", "laboratory_tests"},
	{"workup", "laboratory_tests"},
	{"imaging", "imaging"},
	{"radiograph", "imaging"},
	{"radiolog", "imaging"},
	{"ultrasound", "imaging"},
	{"treatment", "treatment"},
	{"management", "treatment"},
	{"therapy", "treatment"},
	{"therapeutic", "treatment"},
}

// Uncategorized is the category for headings no rule matches. Such
// sections are kept, not dropped.
const Uncategorized = "uncategorized"

// CategorizeSection assigns a content category to a section heading.
func CategorizeSection(heading string) string {
	h := strings.ToLower(heading)
	for _, rule := range sectionRules {
		if strings.Contains(h, rule.keyword) {
			return rule.category
		}
	}
	return Uncategorized
}
