package promoter

import (
	"strings"

	"github.com/jonesrussell/goharvest/internal/domain"
)

// Keyword tables for the automatic promotion heuristics. Matching is
// case-insensitive over the document's title and description.
var (
	highPriorityKeywords = []string{"urgent", "urgente", "sanction", "sanción", "penalty", "obligatorio", "mandatory"}
	lowPriorityKeywords  = []string{"informational", "informativa", "erratum", "fe de erratas", "aclaración", "clarification"}

	validatorKeywords = map[string][]string{
		"payroll":        {"payroll", "nómina", "nomina", "salario", "wage"},
		"accounting":     {"accounting", "contabilidad", "libro", "ledger"},
		"regularization": {"regularization", "regularización", "regularizacion", "amnesty"},
		"investment":     {"investment", "inversión", "inversion", "capital"},
		"format":         {"format", "formato", "layout", "schema", "esquema"},
	}
)

// suggestPriority derives a change priority from the document's text.
// Unmatched documents default to medium.
func suggestPriority(doc *domain.Document) domain.Priority {
	text := documentText(doc)

	for _, kw := range highPriorityKeywords {
		if strings.Contains(text, kw) {
			return domain.PriorityHigh
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(text, kw) {
			return domain.PriorityLow
		}
	}
	return domain.PriorityMedium
}

// suggestValidators derives the affected validator tags from the document's
// text. Order is stable across calls. May return an empty list.
func suggestValidators(doc *domain.Document) domain.StringArray {
	text := documentText(doc)

	var tags domain.StringArray
	for _, tag := range []string{"payroll", "accounting", "regularization", "investment", "format"} {
		for _, kw := range validatorKeywords[tag] {
			if strings.Contains(text, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

func documentText(doc *domain.Document) string {
	var b strings.Builder
	b.WriteString(doc.Title)
	if doc.Description != nil {
		b.WriteString(" ")
		b.WriteString(*doc.Description)
	}
	if doc.Category != nil {
		b.WriteString(" ")
		b.WriteString(*doc.Category)
	}
	return strings.ToLower(b.String())
}
