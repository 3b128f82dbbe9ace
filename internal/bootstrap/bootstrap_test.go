package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/core/domain"
)

func localConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		StoragePath:     t.TempDir(),
		ResultStore:     "memory",
		AIProviderOrder: []string{"gemini", "openai", "anthropic"},
	}
}

func TestNewLocalOnly(t *testing.T) {
	app, err := New(context.Background(), localConfig(t), Options{Role: RoleBatch})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil || app.Archive != nil || app.Search != nil {
		t.Fatalf("no optional adapters expected without configuration")
	}
	if got := app.Analyzer.EnabledProviders(); len(got) != 0 {
		t.Fatalf("providers without keys must be skipped, got %v", got)
	}

	result := app.Processor.ProcessDocument(context.Background(), domain.DocumentFile{
		Name:     "notice.txt",
		MimeType: "text/plain",
		Content:  []byte("Urgent safety notice: platform 2 closed for track maintenance on 12/03/2024."),
	}, "doc-1", domain.LanguageEnglish)
	if result.Analysis.Provider != domain.ProviderIntelligentFallback {
		t.Fatalf("expected local fallback provider, got %q", result.Analysis.Provider)
	}
	if _, err := app.Results.GetProcessingResult(context.Background(), "doc-1"); err != nil {
		t.Fatalf("result should be retrievable, got %v", err)
	}
}

func TestNewRejectsUnknownResultStore(t *testing.T) {
	cfg := localConfig(t)
	cfg.ResultStore = "dynamo"
	if _, err := New(context.Background(), cfg, Options{Role: RoleBatch}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestProviderSpecsFollowConfiguredOrder(t *testing.T) {
	cfg := localConfig(t)
	cfg.AIProviderOrder = []string{"anthropic", "mystery", "gemini"}
	cfg.AnthropicAPIKey = "sk-ant"

	var names []string
	for _, spec := range providerSpecs(cfg, discardLogger()) {
		names = append(names, spec.Name)
	}
	if !slices.Equal(names, []string{"anthropic", "gemini"}) {
		t.Fatalf("unexpected provider order %v", names)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
