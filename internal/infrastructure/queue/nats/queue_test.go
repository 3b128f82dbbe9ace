package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docintel/internal/core/domain"
)

func TestDecodeJob(t *testing.T) {
	job, err := decodeJob([]byte(`{"document_id":"d1","storage_key":"d1_a.txt","file_name":"a.txt","language":"ML"}`))
	if err != nil {
		t.Fatalf("decodeJob() error = %v", err)
	}
	if job.DocumentID != "d1" || job.Language != domain.LanguageMalayalam {
		t.Fatalf("unexpected job %+v", job)
	}

	for _, raw := range []string{`not json`, `{"document_id":"d1"}`, `{}`} {
		if _, err := decodeJob([]byte(raw)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", raw, err)
		}
	}
}

func TestProgressSubject(t *testing.T) {
	cases := map[string]string{
		"doc-1":      "documents.progress.doc-1",
		"a.b*c>d":    "documents.progress.a_b_c_d",
		"":           "documents.progress._",
		"with space": "documents.progress.with_space",
	}
	for id, want := range cases {
		if got := progressSubject(DefaultProgressSubject, id); got != want {
			t.Fatalf("progressSubject(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestClassifyNATSError(t *testing.T) {
	if c := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrNoServers)); !c.Retryable || !c.RecordFailure {
		t.Fatalf("no servers should be retryable, got %+v", c)
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation is neither retryable nor a failure, got %+v", c)
	}
	if c := classifyNATSError(nats.ErrBadSubject); c.Retryable {
		t.Fatalf("bad subject is permanent, got %+v", c)
	}
	if !domain.IsKind(wrapTemporaryIfNeeded("op", nats.ErrTimeout), domain.ErrTemporary) {
		t.Fatalf("timeout should be wrapped as temporary")
	}
	if domain.IsKind(wrapTemporaryIfNeeded("op", nats.ErrBadSubject), domain.ErrTemporary) {
		t.Fatalf("bad subject must stay permanent")
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.IngestSubject != DefaultIngestSubject || o.ProgressSubject != DefaultProgressSubject || !*o.RetryOnFailedConnect || o.Logger == nil {
		t.Fatalf("unexpected defaults %+v", o)
	}
}
