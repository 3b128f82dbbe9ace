package domain

import "strings"

type Language string

const (
	LanguageEnglish   Language = "en"
	LanguageMalayalam Language = "ml"
)

// NormalizeLanguage maps unknown or empty values to English.
func NormalizeLanguage(raw string) Language {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageMalayalam:
		return LanguageMalayalam
	default:
		return LanguageEnglish
	}
}

type Category string

const (
	CategorySafety         Category = "Safety"
	CategoryMaintenance    Category = "Maintenance"
	CategoryOperations     Category = "Operations"
	CategoryFinance        Category = "Finance"
	CategoryHR             Category = "HR"
	CategoryCompliance     Category = "Compliance"
	CategoryTechnical      Category = "Technical"
	CategoryAdministrative Category = "Administrative"
	CategoryGeneral        Category = "General"
)

// Categories lists every category in scoring order. General is last and
// only wins when nothing else scores.
var Categories = []Category{
	CategorySafety,
	CategoryMaintenance,
	CategoryOperations,
	CategoryFinance,
	CategoryHR,
	CategoryCompliance,
	CategoryTechnical,
	CategoryAdministrative,
	CategoryGeneral,
}

// ParseCategory matches case-insensitively and reports whether raw is a known category.
func ParseCategory(raw string) (Category, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(string(c), trimmed) {
			return c, true
		}
	}
	return CategoryGeneral, false
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func ParsePriority(raw string) (Priority, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	for _, p := range Priorities {
		if string(p) == trimmed {
			return p, true
		}
	}
	return PriorityMedium, false
}

// Provider labels identify which tier produced an analysis.
const (
	ProviderGemini              = "gemini"
	ProviderOpenAI              = "openai"
	ProviderAnthropic           = "anthropic"
	ProviderLocalAI             = "local-ai"
	ProviderIntelligentFallback = "intelligent-fallback"
	ProviderPlaceholder         = "placeholder"
)

// Summary tiers reported by the summarization stack.
const (
	TierFastFallback       = "fast-fallback"
	TierFallbackExtractive = "fallback-extractive"
)

type Entities struct {
	Departments []string `json:"departments"`
	Dates       []string `json:"dates"`
	Amounts     []string `json:"amounts"`
	Locations   []string `json:"locations"`
	People      []string `json:"people"`
	Regulations []string `json:"regulations"`
}

// EnsureNonNil replaces nil slices with empty ones so the JSON shape stays stable.
func (e *Entities) EnsureNonNil() {
	for _, list := range []*[]string{&e.Departments, &e.Dates, &e.Amounts, &e.Locations, &e.People, &e.Regulations} {
		if *list == nil {
			*list = []string{}
		}
	}
}

type Classification struct {
	Category   Category `json:"category"`
	Department string   `json:"department"`
	Priority   Priority `json:"priority"`
	Tags       []string `json:"tags"`
}

type SafetyAssessment struct {
	HasSafetyIssues bool     `json:"hasSafetyIssues"`
	SafetyScore     int      `json:"safetyScore"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

type DocumentAnalysis struct {
	Summary        string           `json:"summary"`
	Language       Language         `json:"language"`
	Entities       Entities         `json:"entities"`
	Classification Classification   `json:"classification"`
	Safety         SafetyAssessment `json:"safety"`
	Confidence     float64          `json:"confidence"`
	ProcessingTime int64            `json:"processingTime"`
	Provider       string           `json:"provider"`
	SummaryTier    string           `json:"summaryTier,omitempty"`
}

// Clone returns a deep copy; stored analyses are never shared by reference.
func (a DocumentAnalysis) Clone() DocumentAnalysis {
	out := a
	out.Entities = Entities{
		Departments: cloneStrings(a.Entities.Departments),
		Dates:       cloneStrings(a.Entities.Dates),
		Amounts:     cloneStrings(a.Entities.Amounts),
		Locations:   cloneStrings(a.Entities.Locations),
		People:      cloneStrings(a.Entities.People),
		Regulations: cloneStrings(a.Entities.Regulations),
	}
	out.Classification.Tags = cloneStrings(a.Classification.Tags)
	out.Safety.Issues = cloneStrings(a.Safety.Issues)
	out.Safety.Recommendations = cloneStrings(a.Safety.Recommendations)
	return out
}

// SummaryResult is what any summarizer tier returns.
type SummaryResult struct {
	Summary           string  `json:"summary"`
	Model             string  `json:"model"`
	WordCount         int     `json:"wordCount"`
	OriginalWordCount int     `json:"originalWordCount"`
	CompressionRatio  float64 `json:"compressionRatio"`
	ProcessingTime    int64   `json:"processingTime"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
