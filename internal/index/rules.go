package index

import "strings"

// Document categories used for display grouping.
const (
	CategoryGuide     = "Guide"
	CategorySecurity  = "Security"
	CategoryReference = "Reference"
	CategoryProject   = "Project"
	CategorySystem    = "System"
	CategorySpec      = "Spec"
	CategoryPulse     = "Pulse"
	CategoryReport    = "Report"
)

// DefaultCategory is used when no metadata or rule applies.
const DefaultCategory = CategoryReference

var categories = map[string]struct{}{
	CategoryGuide:     {},
	CategorySecurity:  {},
	CategoryReference: {},
	CategoryProject:   {},
	CategorySystem:    {},
	CategorySpec:      {},
	CategoryPulse:     {},
	CategoryReport:    {},
}

// ValidCategory reports whether c is one of the known categories.
func ValidCategory(c string) bool {
	_, ok := categories[c]
	return ok
}

// Categories returns the known category names.
func Categories() []string {
	return []string{
		CategoryGuide, CategorySecurity, CategoryReference, CategoryProject,
		CategorySystem, CategorySpec, CategoryPulse, CategoryReport,
	}
}

// Rule maps a title predicate to a category. Rules are evaluated in
// order; the first match wins. Inference is only a heuristic: a
// mis-categorized document is always user-editable afterwards.
type Rule struct {
	Match    func(title string) bool
	Category string
}

// DefaultRules returns the standard keyword-sniffing ruleset.
func DefaultRules() []Rule {
	return []Rule{
		{titleContains("security", "vulnerability"), CategorySecurity},
		{titleContains("pulse", "daily"), CategoryPulse},
		{titleContains("report"), CategoryReport},
	}
}

// Categorize runs title through rules and returns the first matching
// category, or DefaultCategory when none applies.
func Categorize(rules []Rule, title string) string {
	for _, r := range rules {
		if r.Match(title) {
			return r.Category
		}
	}
	return DefaultCategory
}

func titleContains(keywords ...string) func(string) bool {
	return func(title string) bool {
		lower := strings.ToLower(title)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}
