package summarize

import (
	"strings"
	"unicode"

	"github.com/kirillkom/docintel/internal/core/domain"
)

// Postprocess tidies model output: whitespace is collapsed, leading
// characters before the first letter or digit are dropped and the text ends
// in terminal punctuation.
func Postprocess(summary string) string {
	out := strings.Join(strings.Fields(summary), " ")
	out = strings.TrimLeftFunc(out, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if out == "" {
		return ""
	}
	if !strings.ContainsRune(".!?", []rune(out)[len([]rune(out))-1]) {
		out += "."
	}
	return out
}

// Result measures summary against the original text.
func Result(summary, original string) domain.SummaryResult {
	return build(summary, original)
}
