// Package textfeatures pulls document type, priority, key terms, important
// sentences and entities out of raw text with frequency analysis and
// keyword/regex matching. Everything here is pure and deterministic.
package textfeatures

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/docintel/internal/core/domain"
)

const (
	DefaultKeyTerms       = 10
	maxImportantSentences = 5
	minSentenceLength     = 20
)

var sentenceSplitter = regexp.MustCompile(`[.!?]+`)

type Features struct {
	DocumentType       domain.Category `json:"documentType"`
	Priority           domain.Priority `json:"priority"`
	KeyTerms           []string        `json:"keyTerms"`
	ImportantSentences []string        `json:"importantSentences"`
	SafetyInfo         []string        `json:"safetyInfo"`
	ComplianceInfo     []string        `json:"complianceInfo"`
	Departments        []string        `json:"departments"`
	Dates              []string        `json:"dates"`
	Amounts            []string        `json:"amounts"`
	Locations          []string        `json:"locations"`
	People             []string        `json:"people"`
	Regulations        []string        `json:"regulations"`
}

type Extractor struct {
	vocab        Vocabulary
	stopWords    map[string]struct{}
	domainTerms  map[string]struct{}
	nonNameWords map[string]struct{}
	departments  []namedPattern
	locations    []namedPattern
}

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

func NewExtractor(vocab Vocabulary) *Extractor {
	e := &Extractor{
		vocab:        vocab,
		stopWords:    toSet(vocab.StopWords, strings.ToLower),
		domainTerms:  toSet(vocab.DomainTerms, strings.ToLower),
		nonNameWords: toSet(vocab.NonNameWords, func(s string) string { return s }),
	}
	e.departments = compileNamed(vocab.Departments)
	e.locations = compileNamed(vocab.Locations)
	return e
}

var defaultExtractor = NewExtractor(DefaultVocabulary())

// Extract runs every extractor with the default vocabulary.
func Extract(text string) Features {
	return defaultExtractor.Extract(text)
}

func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

func (e *Extractor) Extract(text string) Features {
	return Features{
		DocumentType:       e.DocumentType(text),
		Priority:           e.Priority(text),
		KeyTerms:           e.KeyTerms(text, DefaultKeyTerms),
		ImportantSentences: e.ImportantSentences(text),
		SafetyInfo:         e.SafetyInfo(text),
		ComplianceInfo:     e.ComplianceInfo(text),
		Departments:        e.Departments(text),
		Dates:              e.Dates(text),
		Amounts:            e.Amounts(text),
		Locations:          e.Locations(text),
		People:             e.People(text),
		Regulations:        e.Regulations(text),
	}
}

// DocumentType returns the highest scoring category, General when nothing scores.
func (e *Extractor) DocumentType(text string) domain.Category {
	lower := strings.ToLower(text)
	best, bestScore := domain.CategoryGeneral, 0
	for _, category := range domain.Categories {
		score := countAll(lower, e.vocab.Categories[string(category)])
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	return best
}

// Priority scores the priority keyword sets; medium when nothing scores.
func (e *Extractor) Priority(text string) domain.Priority {
	lower := strings.ToLower(text)
	best, bestScore := domain.PriorityMedium, 0
	for _, priority := range domain.Priorities {
		score := countAll(lower, e.vocab.Priorities[string(priority)])
		if score > bestScore {
			best, bestScore = priority, score
		}
	}
	return best
}

// KeyTerms returns the top n tokens by frequency; domain terms count double.
func (e *Extractor) KeyTerms(text string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	scores := make(map[string]int)
	order := make([]string, 0, 32)
	for _, token := range e.tokenize(text) {
		if len([]rune(token)) <= 3 {
			continue
		}
		if _, stop := e.stopWords[token]; stop {
			continue
		}
		weight := 1
		if _, ok := e.domainTerms[token]; ok {
			weight = 2
		}
		if _, seen := scores[token]; !seen {
			order = append(order, token)
		}
		scores[token] += weight
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// ImportantSentences ranks sentences by importance keywords, domain terms and length.
func (e *Extractor) ImportantSentences(text string) []string {
	type scored struct {
		text  string
		score int
	}
	candidates := make([]scored, 0, 16)
	for _, sentence := range SplitSentences(text) {
		lower := strings.ToLower(sentence)
		score := 2*countAll(lower, e.vocab.Importance) + countAll(lower, e.vocab.DomainTerms)
		if n := len([]rune(sentence)); n >= 50 && n < 200 {
			score++
		}
		candidates = append(candidates, scored{text: sentence, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > maxImportantSentences {
		candidates = candidates[:maxImportantSentences]
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.text)
	}
	return out
}

// SafetyInfo lists the safety keywords present, in vocabulary order.
func (e *Extractor) SafetyInfo(text string) []string {
	return presentKeywords(strings.ToLower(text), e.vocab.Safety)
}

func (e *Extractor) ComplianceInfo(text string) []string {
	return presentKeywords(strings.ToLower(text), e.vocab.Compliance)
}

// SplitSentences splits on runs of terminal punctuation and keeps sentences longer than 20 chars.
func SplitSentences(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		s := strings.Join(strings.Fields(part), " ")
		if len([]rune(s)) > minSentenceLength {
			out = append(out, s)
		}
	}
	return out
}

func (e *Extractor) tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}

func countAll(lower string, keywords []string) int {
	total := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		total += strings.Count(lower, strings.ToLower(kw))
	}
	return total
}

func presentKeywords(lower string, keywords []string) []string {
	out := make([]string, 0, 4)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			out = appendUnique(out, kw)
		}
	}
	return out
}

func toSet(words []string, norm func(string) string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[norm(w)] = struct{}{}
	}
	return out
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
