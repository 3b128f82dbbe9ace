package summarize

import (
	"strings"
	"testing"
)

const depotBulletin = "The depot received new rolling stock this week. " +
	"Emergency hazard procedure training is mandatory for staff. " +
	"Lunch menus were updated by the canteen team. " +
	"Parking near the station will be resurfaced soon. " +
	"Visitors should sign in at the front desk always."

func TestExtractiveShortTextPassthrough(t *testing.T) {
	in := "Signal check done."
	res := Extractive(in)
	if res.Summary != in {
		t.Fatalf("expected passthrough, got %q", res.Summary)
	}
	if res.CompressionRatio != 1.0 {
		t.Fatalf("expected ratio 1.0, got %f", res.CompressionRatio)
	}
}

func TestExtractivePicksTopTwoByScore(t *testing.T) {
	res := Extractive(depotBulletin)
	want := "Emergency hazard procedure training is mandatory for staff. The depot received new rolling stock this week."
	if res.Summary != want {
		t.Fatalf("summary = %q, want %q", res.Summary, want)
	}
	if res.CompressionRatio <= 0 || res.CompressionRatio > 1.0 {
		t.Fatalf("ratio out of range: %f", res.CompressionRatio)
	}
	if res.OriginalWordCount <= res.WordCount {
		t.Fatalf("summary must be shorter: %d vs %d", res.WordCount, res.OriginalWordCount)
	}
}

func TestExtractiveWithoutSentencesUsesPrefix(t *testing.T) {
	res := Extractive(strings.Repeat("Go now. ", 20))
	if !strings.HasSuffix(res.Summary, "...") {
		t.Fatalf("expected ellipsis prefix, got %q", res.Summary)
	}
	if res.CompressionRatio > 1.0 {
		t.Fatalf("ratio must not exceed 1: %f", res.CompressionRatio)
	}
}

func TestExtractiveEmptyInput(t *testing.T) {
	res := Extractive("")
	if res.Summary != "" || res.CompressionRatio != 1.0 {
		t.Fatalf("unexpected empty-input result: %+v", res)
	}
}

func TestPreprocess(t *testing.T) {
	if got := Preprocess("Hello\n\n  world ★ ok"); got != "Hello world ok" {
		t.Fatalf("Preprocess() = %q", got)
	}
	if got := Preprocess(strings.Repeat("a", 5000)); len([]rune(got)) != MaxInputRunes {
		t.Fatalf("expected truncation to %d, got %d", MaxInputRunes, len([]rune(got)))
	}
	ml := "സുരക്ഷ പരിശോധന"
	if got := Preprocess(ml); got != ml {
		t.Fatalf("malayalam text must survive, got %q", got)
	}
}

func TestTFIDFKeepsOriginalOrder(t *testing.T) {
	res := TFIDF(depotBulletin, []string{"depot", "station", "rolling"})
	if res.Summary == "" || res.CompressionRatio > 1.0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	parts := strings.Split(strings.TrimSuffix(res.Summary, "."), ". ")
	if len(parts) != tfidfSentences {
		t.Fatalf("expected %d sentences, got %v", tfidfSentences, parts)
	}
	last := -1
	for _, p := range parts {
		pos := strings.Index(depotBulletin, p)
		if pos < 0 {
			t.Fatalf("sentence %q not taken from input", p)
		}
		if pos <= last {
			t.Fatalf("sentences out of original order: %v", parts)
		}
		last = pos
	}
}

func TestTFIDFShortTextPassthrough(t *testing.T) {
	in := "Brake pads replaced."
	if res := TFIDF(in, nil); res.Summary != in {
		t.Fatalf("expected passthrough, got %q", res.Summary)
	}
}

func TestPostprocess(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{in: "  - * Platform 3   closes today ", want: "Platform 3 closes today."},
		{in: "Inspection complete!", want: "Inspection complete!"},
		{in: "\n\n:: 42 trains serviced", want: "42 trains serviced."},
		{in: "  ...  ", want: ""},
		{in: "പ്ലാറ്റ്ഫോം അടച്ചു", want: "പ്ലാറ്റ്ഫോം അടച്ചു."},
	}
	for _, tc := range cases {
		if got := Postprocess(tc.in); got != tc.want {
			t.Fatalf("Postprocess(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResultCountsWords(t *testing.T) {
	res := Result("two words", "four words in total")
	if res.WordCount != 2 || res.OriginalWordCount != 4 || res.CompressionRatio != 0.5 {
		t.Fatalf("unexpected result %+v", res)
	}
}
