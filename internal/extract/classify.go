package extract

import "strings"

// Classification output values. The keyword tables below are ordered and
// first-match-wins, so the mapping is pure and deterministic. Results are
// approximate, not authoritative.
const (
	CategoryEngineering = "engineering"
	CategoryDesign      = "design"
	CategoryData        = "data"
	CategoryProduct     = "product"
	CategoryMarketing   = "marketing"
	CategorySales       = "sales"
	CategoryOperations  = "operations"
	CategoryFinance     = "finance"
	CategoryPeople      = "people"
	CategoryOther       = "other"

	LevelSenior    = "senior"
	LevelPrincipal = "principal"
	LevelLead      = "lead"
	LevelEntry     = "entry"
	LevelMid       = "mid"

	EmploymentInternship = "internship"
	EmploymentContract   = "contract"
	EmploymentPartTime   = "part-time"
	EmploymentFullTime   = "full-time"
)

type keywordRule struct {
	keywords []string
	value    string
}

var categoryRules = []keywordRule{
	{[]string{"engineer", "developer", "architect", "programmer", "sre", "devops"}, CategoryEngineering},
	{[]string{"design", "ux", "ui"}, CategoryDesign},
	{[]string{"data", "analytics", "analyst", "machine learning", "scientist"}, CategoryData},
	{[]string{"product"}, CategoryProduct},
	{[]string{"marketing", "growth", "content", "seo"}, CategoryMarketing},
	{[]string{"sales", "account executive", "business development"}, CategorySales},
	{[]string{"operations", "support", "customer success", "logistics"}, CategoryOperations},
	{[]string{"finance", "accounting", "accountant"}, CategoryFinance},
	{[]string{"recruiter", "talent", "people", "human resources"}, CategoryPeople},
}

var levelRules = []keywordRule{
	{[]string{"senior", "sr."}, LevelSenior},
	{[]string{"principal", "staff"}, LevelPrincipal},
	{[]string{"lead", "manager", "head of"}, LevelLead},
	{[]string{"junior", "entry", "intern", "graduate"}, LevelEntry},
}

var employmentRules = []keywordRule{
	{[]string{"intern"}, EmploymentInternship},
	{[]string{"contract"}, EmploymentContract},
	{[]string{"part-time", "part time"}, EmploymentPartTime},
}

// Classification is the heuristic read of a job title and location.
type Classification struct {
	Category       string
	Level          string
	EmploymentType string
	Remote         bool
}

// Classify maps a title and location onto category, level, employment type,
// and the remote flag. Matching is case-insensitive on the title.
func Classify(title, location string) Classification {
	lower := strings.ToLower(title)
	return Classification{
		Category:       matchRules(lower, categoryRules, CategoryOther),
		Level:          matchRules(lower, levelRules, LevelMid),
		EmploymentType: matchRules(lower, employmentRules, EmploymentFullTime),
		Remote:         isRemote(location),
	}
}

func matchRules(title string, rules []keywordRule, fallback string) string {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(title, kw) {
				return rule.value
			}
		}
	}
	return fallback
}

func isRemote(location string) bool {
	trimmed := strings.TrimSpace(location)
	return trimmed == "" || strings.Contains(strings.ToLower(trimmed), "remote")
}
