package usecase

import (
	"fmt"

	"github.com/kirillkom/docintel/internal/core/domain"
)

const maxPromptSnippet = 8000

func buildAnalysisPrompt(content, fileName string, language domain.Language) string {
	snippet := []rune(content)
	if len(snippet) > maxPromptSnippet {
		snippet = snippet[:maxPromptSnippet]
	}

	return fmt.Sprintf(`You are a document analyst for a metro rail authority.
%s
Return one strict JSON object and nothing else, with exactly these keys:
{
  "summary": string,
  "entities": {"departments": [string], "dates": [string], "amounts": [string], "locations": [string], "people": [string], "regulations": [string]},
  "classification": {"category": one of Safety|Maintenance|Operations|Finance|HR|Compliance|Technical|Administrative|General, "department": string, "priority": one of low|medium|high|critical, "tags": [string]},
  "safety": {"hasSafetyIssues": boolean, "safetyScore": integer 0-100, "issues": [string], "recommendations": [string]},
  "confidence": number from 0 to 1
}

File name: %s

Document:
%s`, languageInstruction(language), fileName, string(snippet))
}

func languageInstruction(language domain.Language) string {
	if language == domain.LanguageMalayalam {
		return "The document is in Malayalam. Write the summary, issues and recommendations in Malayalam; keep JSON keys and enum values in English."
	}
	return "Write the summary, issues and recommendations in English."
}
