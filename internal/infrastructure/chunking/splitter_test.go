package chunking

import (
	"strings"
	"testing"
)

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	text := "Platform three is closed today. Trains will use platform four until the inspection finishes."
	chunks := NewSplitter(40, 0).Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %v", chunks)
	}
	if chunks[0] != "Platform three is closed today." {
		t.Fatalf("first chunk should end at the sentence, got %q", chunks[0])
	}
	for _, c := range chunks {
		if len([]rune(c)) > 40 {
			t.Fatalf("chunk too long: %q", c)
		}
	}
	if got := strings.Join(chunks, " "); got != text {
		t.Fatalf("chunks without overlap should cover the text, got %q", got)
	}
}

func TestSplitOverlapAndDefaults(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != DefaultChunkSize || s.Overlap != 0 {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s := NewSplitter(10, 20); s.Overlap != 2 {
		t.Fatalf("overlap must stay below chunk size, got %d", s.Overlap)
	}

	chunks := NewSplitter(10, 4).Split(strings.Repeat("x", 25))
	if len(chunks) != 4 || chunks[1] != strings.Repeat("x", 10) {
		t.Fatalf("unexpected overlapping windows %v", chunks)
	}
	if NewSplitter(10, 0).Split("   ") != nil {
		t.Fatalf("blank text yields no chunks")
	}
}
