package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/summarize"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
)

const (
	LocalConfidence     = 0.85
	EmptySummary        = "No content available for analysis."
	baseSafetyScore     = 25
	safetyHitWeight     = 15
	complianceHitWeight = 5
	maxTags             = 5
)

var categoryDepartments = map[domain.Category]string{
	domain.CategorySafety:         "Safety",
	domain.CategoryMaintenance:    "Maintenance",
	domain.CategoryOperations:     "Operations",
	domain.CategoryFinance:        "Finance",
	domain.CategoryHR:             "Human Resources",
	domain.CategoryCompliance:     "Compliance",
	domain.CategoryTechnical:      "Engineering",
	domain.CategoryAdministrative: "Administration",
}

// analyzeLocally combines feature extraction with the summarization stack.
// It is deterministic for a fixed summarizer.
func (uc *AnalyzeDocumentUseCase) analyzeLocally(ctx context.Context, content string, language domain.Language) domain.DocumentAnalysis {
	features := uc.extractor.Extract(content)
	summary := uc.summarizeLocally(ctx, content)

	provider := domain.ProviderIntelligentFallback
	if summary.Model != "" && summary.Model != domain.TierFastFallback && summary.Model != domain.TierFallbackExtractive {
		provider = domain.ProviderLocalAI
	}
	text := strings.TrimSpace(summary.Summary)
	if text == "" {
		text = EmptySummary
	}

	tags := features.KeyTerms
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	analysis := domain.DocumentAnalysis{
		Summary:  text,
		Language: language,
		Entities: domain.Entities{
			Departments: features.Departments,
			Dates:       features.Dates,
			Amounts:     features.Amounts,
			Locations:   features.Locations,
			People:      features.People,
			Regulations: features.Regulations,
		},
		Classification: domain.Classification{
			Category:   features.DocumentType,
			Department: departmentFor(features),
			Priority:   features.Priority,
			Tags:       tags,
		},
		Safety:      assessSafety(features),
		Confidence:  LocalConfidence,
		Provider:    provider,
		SummaryTier: summary.Model,
	}
	return analysis.Clone()
}

func (uc *AnalyzeDocumentUseCase) summarizeLocally(ctx context.Context, content string) domain.SummaryResult {
	if uc.summarizer != nil {
		return uc.summarizer.Summarize(ctx, content)
	}
	res := summarize.Extractive(content)
	res.Model = domain.TierFastFallback
	return res
}

func departmentFor(f textfeatures.Features) string {
	if len(f.Departments) > 0 {
		return f.Departments[0]
	}
	if dept, ok := categoryDepartments[f.DocumentType]; ok {
		return dept
	}
	return "Operations"
}

func assessSafety(f textfeatures.Features) domain.SafetyAssessment {
	score := min(100, baseSafetyScore+safetyHitWeight*len(f.SafetyInfo)+complianceHitWeight*len(f.ComplianceInfo))

	issues := make([]string, 0, len(f.SafetyInfo))
	for _, sentence := range f.ImportantSentences {
		lower := strings.ToLower(sentence)
		for _, kw := range f.SafetyInfo {
			if strings.Contains(lower, strings.ToLower(kw)) {
				issues = append(issues, sentence)
				break
			}
		}
	}
	if len(issues) == 0 {
		for _, kw := range f.SafetyInfo {
			issues = append(issues, "Mentions "+kw)
		}
	}

	recs := make([]string, 0, 3)
	if len(f.SafetyInfo) > 0 {
		recs = append(recs, "Review the reported safety concerns with the Safety department.")
	}
	if f.Priority == domain.PriorityCritical || f.Priority == domain.PriorityHigh {
		recs = append(recs, "Escalate for immediate action.")
	}
	if len(f.ComplianceInfo) > 0 {
		recs = append(recs, "Verify the compliance obligations and deadlines mentioned.")
	}

	return domain.SafetyAssessment{
		HasSafetyIssues: len(f.SafetyInfo) > 0,
		SafetyScore:     score,
		Issues:          issues,
		Recommendations: recs,
	}
}
