package textfeatures

import (
	"regexp"
	"strings"
)

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec`

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`\b\d{1,2}-\d{1,2}-\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:` + monthNames + `)\.?,?\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
	}

	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:₹|\bRs\.?|\bINR|\$|\bUSD|€|\bEUR)\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:lakhs?|crores?|million|billion))?`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:lakhs?|crores?)\b`),
		regexp.MustCompile(`\b\d{1,3}(?:,\d{2,3})+(?:\.\d+)?\b`),
	}

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bPlatform\s+\d+\b`),
		regexp.MustCompile(`\b[A-Z][a-z]+(?:\s[A-Z][a-z]+)?\s(?:Station|Depot|Yard|Junction)\b`),
	}

	titledNamePattern  = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Shri|Smt|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?`)
	capitalisedRunExpr = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)+\b`)

	regulationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:Section|Clause|Rule|Regulation|Article)\s+\d+[A-Za-z]?(?:\(\d+\))?(?:\.\d+)*`),
		regexp.MustCompile(`\b(?:ISO|IEC|EN|IS|RDSO|CMRS)[\s:-]?\d{2,6}(?:[-:]\d+)*\b`),
		regexp.MustCompile(`\b(?:[A-Z][a-z]+\s){1,4}Act,?\s\d{4}\b`),
	}
)

func compileNamed(names []string) []namedPattern {
	out := make([]namedPattern, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, namedPattern{
			name: name,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`),
		})
	}
	return out
}

// Departments returns canonical department names mentioned in text.
func (e *Extractor) Departments(text string) []string {
	out := make([]string, 0, 2)
	for _, d := range e.departments {
		if d.re.MatchString(text) {
			out = appendUnique(out, d.name)
		}
	}
	return out
}

func (e *Extractor) Dates(text string) []string {
	return collect(text, datePatterns)
}

// Amounts returns currency and grouped-number mentions. A bare grouped number
// already covered by a currency match is not reported twice.
func (e *Extractor) Amounts(text string) []string {
	return collect(text, amountPatterns)
}

func (e *Extractor) Locations(text string) []string {
	out := make([]string, 0, 2)
	for _, l := range e.locations {
		if l.re.MatchString(text) {
			out = appendUnique(out, l.name)
		}
	}
	for _, m := range collect(text, locationPatterns) {
		out = appendUnique(out, m)
	}
	return out
}

// People finds titled names first, then runs of capitalised words with
// vocabulary words (months, departments, greetings) removed.
func (e *Extractor) People(text string) []string {
	out := make([]string, 0, 2)
	for _, m := range titledNamePattern.FindAllString(text, -1) {
		out = appendUnique(out, strings.Join(strings.Fields(m), " "))
	}
	for _, run := range capitalisedRunExpr.FindAllString(text, -1) {
		segment := make([]string, 0, 3)
		flush := func() {
			if len(segment) >= 2 && len(segment) <= 3 {
				name := strings.Join(segment, " ")
				if !containedIn(out, name) {
					out = appendUnique(out, name)
				}
			}
			segment = segment[:0]
		}
		for _, word := range strings.Fields(run) {
			if _, skip := e.nonNameWords[word]; skip {
				flush()
				continue
			}
			segment = append(segment, word)
		}
		flush()
	}
	return out
}

func (e *Extractor) Regulations(text string) []string {
	return collect(text, regulationPatterns)
}

// collect runs patterns in order, deduplicating and skipping matches that are
// substrings of an earlier, longer match.
func collect(text string, patterns []*regexp.Regexp) []string {
	out := make([]string, 0, 2)
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if m == "" || containedIn(out, m) {
				continue
			}
			out = append(out, m)
		}
	}
	return out
}

func containedIn(list []string, value string) bool {
	for _, existing := range list {
		if strings.Contains(existing, value) {
			return true
		}
	}
	return false
}
