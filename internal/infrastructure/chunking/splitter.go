// Package chunking cuts extracted document text into overlapping windows
// for the search index.
package chunking

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize = 900
	DefaultOverlap   = 150
)

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split returns windows of at most ChunkSize runes. A window ends at the last
// sentence boundary, or failing that the last space, in its second half so
// chunks rarely cut words.
func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := min(start+s.ChunkSize, len(runes))
		if end < len(runes) {
			end = boundary(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func boundary(runes []rune, start, end int) int {
	floor := start + (end-start)/2
	space := -1
	for i := end - 1; i > floor; i-- {
		switch {
		case strings.ContainsRune(".!?", runes[i-1]) && unicode.IsSpace(runes[i]):
			return i
		case space < 0 && unicode.IsSpace(runes[i]):
			space = i
		}
	}
	if space > 0 {
		return space
	}
	return end
}
