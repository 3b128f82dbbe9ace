package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/docintel/internal/core/domain"
)

func setupStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return New(client, ttl), mr
}

func TestSaveAndGet(t *testing.T) {
	store, mr := setupStore(t, time.Hour)
	in := &domain.DocumentProcessingResult{
		DocumentID: "doc-7",
		Status:     domain.ProcessingPartial,
		Errors:     []string{"ocr: blurry scan"},
		OCR:        domain.OCRResult{Text: "Platform 3", Confidence: 0.7, Language: domain.LanguageEnglish},
	}
	if err := store.Save(context.Background(), in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if ttl := mr.TTL(keyPrefix + "doc-7"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}

	got, err := store.Get(context.Background(), "doc-7")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.ProcessingPartial || got.OCR.Text != "Platform 3" || len(got.Errors) != 1 {
		t.Fatalf("unexpected round trip %+v", got)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	store, _ := setupStore(t, 0)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpiredResultIsNotFound(t *testing.T) {
	store, mr := setupStore(t, time.Minute)
	_ = store.Save(context.Background(), &domain.DocumentProcessingResult{DocumentID: "old"})
	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(context.Background(), "old"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestServerDownIsTemporary(t *testing.T) {
	store, mr := setupStore(t, 0)
	mr.Close()
	err := store.Save(context.Background(), &domain.DocumentProcessingResult{DocumentID: "d"})
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
