// Package rules locates the source text of extracted business rules inside the policy
// document they were extracted from.
package rules

// Rule is a business rule candidate as produced by the extraction service.
type Rule struct {
	ID               string   `json:"id"`
	Name             string   `json:"name,omitempty"`
	Summary          string   `json:"summary"`
	Condition        string   `json:"condition,omitempty"`
	Result           string   `json:"result,omitempty"`
	SourceText       string   `json:"source_text,omitempty"`
	Category         string   `json:"category,omitempty"`
	Selected         bool     `json:"selected"`
	RuleType         string   `json:"rule_type,omitempty"`
	RelatedDatatypes []string `json:"related_datatypes,omitempty"`
	RelatedConstants []string `json:"related_constants,omitempty"`
}
