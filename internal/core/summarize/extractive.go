// Package summarize holds the dependency-free extractive summarizers used as
// the terminal fallback tiers of the summarization stack.
package summarize

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
)

const (
	MaxInputRunes      = 4000
	passthroughRunes   = 100
	noSentencePrefix   = 200
	extractiveSentence = 2
)

var importanceKeywords = []string{
	"safety", "important", "critical", "urgent", "compliance", "requirement",
	"procedure", "protocol", "maintenance", "operation", "training",
	"emergency", "hazard", "risk",
}

// Preprocess collapses whitespace, drops characters that are neither
// letters, digits nor basic punctuation, and truncates to MaxInputRunes.
func Preprocess(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		case strings.ContainsRune(".,!?;:'\"()-/%&₹$", r):
			return r
		default:
			return -1
		}
	}, text)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if runes := []rune(cleaned); len(runes) > MaxInputRunes {
		cleaned = strings.TrimSpace(string(runes[:MaxInputRunes]))
	}
	return cleaned
}

// Extractive picks the two best-scoring sentences by position and keyword
// weight. It always returns a result.
func Extractive(text string) domain.SummaryResult {
	clean := Preprocess(text)
	if short, ok := shortcut(clean); ok {
		return short
	}

	sentences := textfeatures.SplitSentences(clean)
	scores := make([]float64, len(sentences))
	last := len(sentences) - 1
	for i, s := range sentences {
		score := 0.0
		if i == 0 {
			score += 10
		}
		if i == last {
			score += 8
		}
		if i < 3 {
			score += 5
		}
		lower := strings.ToLower(s)
		for _, kw := range importanceKeywords {
			score += 3 * float64(strings.Count(lower, kw))
		}
		scores[i] = score
	}

	picked := topIndices(scores, extractiveSentence)
	chosen := make([]string, 0, len(picked))
	for _, idx := range picked {
		chosen = append(chosen, sentences[idx])
	}
	return build(joinSentences(chosen), clean)
}

// shortcut handles inputs too short to summarize or with no usable sentences.
func shortcut(clean string) (domain.SummaryResult, bool) {
	runes := []rune(clean)
	if len(runes) < passthroughRunes {
		words := wordCount(clean)
		return domain.SummaryResult{
			Summary:           clean,
			WordCount:         words,
			OriginalWordCount: words,
			CompressionRatio:  1.0,
		}, true
	}
	if len(textfeatures.SplitSentences(clean)) == 0 {
		prefix := strings.TrimSpace(string(runes[:min(noSentencePrefix, len(runes))])) + "..."
		return build(prefix, clean), true
	}
	return domain.SummaryResult{}, false
}

func build(summary, original string) domain.SummaryResult {
	res := domain.SummaryResult{
		Summary:           summary,
		WordCount:         wordCount(summary),
		OriginalWordCount: wordCount(original),
	}
	res.CompressionRatio = ratio(res.WordCount, res.OriginalWordCount)
	return res
}

func ratio(summaryWords, originalWords int) float64 {
	if originalWords == 0 {
		return 1.0
	}
	r := float64(summaryWords) / float64(originalWords)
	if r > 1.0 {
		return 1.0
	}
	return r
}

func joinSentences(sentences []string) string {
	trimmed := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(strings.TrimRight(s, ".!? "))
		if s != "" {
			trimmed = append(trimmed, s)
		}
	}
	if len(trimmed) == 0 {
		return ""
	}
	return strings.Join(trimmed, ". ") + "."
}

// topIndices returns the indices of the n highest scores; equal scores keep
// their original order.
func topIndices(scores []float64, n int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if len(idx) > n {
		idx = idx[:n]
	}
	return idx
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
