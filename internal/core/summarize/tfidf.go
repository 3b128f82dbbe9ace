package summarize

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/textfeatures"
)

const (
	tfidfSentences   = 3
	domainTermBoost  = 1.5
	leadSentenceBias = 1.2
)

// TFIDF scores each sentence by the TF-IDF weight of its terms, treating
// sentences as documents, and boosts sentences that mention domain terms.
// The best sentences are returned in their original order.
func TFIDF(text string, domainTerms []string) domain.SummaryResult {
	clean := Preprocess(text)
	if short, ok := shortcut(clean); ok {
		return short
	}

	sentences := textfeatures.SplitSentences(clean)
	domainSet := make(map[string]struct{}, len(domainTerms))
	for _, term := range domainTerms {
		domainSet[strings.ToLower(term)] = struct{}{}
	}

	tokenized := make([][]string, len(sentences))
	docFreq := make(map[string]int)
	for i, s := range sentences {
		tokens := tokens(s)
		tokenized[i] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreq[tok]++
		}
	}

	n := float64(len(sentences))
	scores := make([]float64, len(sentences))
	for i, toks := range tokenized {
		if len(toks) == 0 {
			continue
		}
		termFreq := make(map[string]int, len(toks))
		for _, tok := range toks {
			termFreq[tok]++
		}
		score := 0.0
		domainHits := 0
		for tok, count := range termFreq {
			idf := math.Log(n/float64(1+docFreq[tok])) + 1
			score += (float64(count) / float64(len(toks))) * idf
			if _, ok := domainSet[tok]; ok {
				domainHits += count
			}
		}
		if domainHits > 0 {
			score *= 1 + (domainTermBoost-1)*float64(domainHits)
		}
		if i == 0 {
			score *= leadSentenceBias
		}
		scores[i] = score
	}

	picked := topIndices(scores, tfidfSentences)
	sort.Ints(picked)
	chosen := make([]string, 0, len(picked))
	for _, idx := range picked {
		chosen = append(chosen, sentences[idx])
	}
	return build(joinSentences(chosen), clean)
}

func tokens(sentence string) []string {
	fields := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r))
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			out = append(out, f)
		}
	}
	return out
}
