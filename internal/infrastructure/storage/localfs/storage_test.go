package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/kirillkom/docintel/internal/core/domain"
)

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := s.Save(context.Background(), "doc-1_notice.txt", strings.NewReader("hello depot")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	rc, err := s.Open(context.Background(), "doc-1_notice.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello depot" {
		t.Fatalf("unexpected contents %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestOpenMissingAndInvalidKeys(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Open(context.Background(), "missing.txt"); !errors.Is(err, domain.ErrObjectNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.Save(context.Background(), key, strings.NewReader("x")); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("key %q: expected invalid input, got %v", key, err)
		}
	}
}
