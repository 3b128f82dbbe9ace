// Command batch runs every file of a directory through the processing
// pipeline and prints one JSON line per document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/google/uuid"

	"github.com/kirillkom/docintel/internal/bootstrap"
	"github.com/kirillkom/docintel/internal/config"
	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/usecase"
	"github.com/kirillkom/docintel/internal/observability/logging"
)

type line struct {
	DocumentID string                  `json:"documentId"`
	File       string                  `json:"file"`
	Status     domain.ProcessingStatus `json:"status"`
	Provider   string                  `json:"provider"`
	Category   domain.Category         `json:"category"`
	Priority   domain.Priority         `json:"priority"`
	Summary    string                  `json:"summary"`
	Errors     []string                `json:"errors,omitempty"`
}

func main() {
	dir := flag.String("dir", ".", "directory with documents to process")
	lang := flag.String("lang", "en", "document language (en or ml)")
	full := flag.Bool("full", false, "print the complete processing result")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewStderrLogger("docintel-batch", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	items, err := loadItems(*dir, domain.Language(*lang))
	if err != nil {
		logger.Error("batch_load_failed", "dir", *dir, "error", err.Error())
		os.Exit(1)
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Role: bootstrap.RoleBatch, Logger: logger})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer app.Close()

	results := app.Processor.ProcessBatch(ctx, items)

	enc := json.NewEncoder(os.Stdout)
	for i, res := range results {
		if app.Archive != nil {
			if err := app.Archive.SaveResult(ctx, res); err != nil {
				logger.Error("result_archive_failed", "document_id", res.DocumentID, "error", err.Error())
			}
		}
		var out any = res
		if !*full {
			out = line{
				DocumentID: res.DocumentID,
				File:       items[i].File.Name,
				Status:     res.Status,
				Provider:   res.Analysis.Provider,
				Category:   res.Analysis.Classification.Category,
				Priority:   res.Analysis.Classification.Priority,
				Summary:    res.Analysis.Summary,
				Errors:     res.Errors,
			}
		}
		if err := enc.Encode(out); err != nil {
			logger.Error("batch_output_failed", "error", err.Error())
			os.Exit(1)
		}
	}
}

func loadItems(dir string, language domain.Language) ([]usecase.BatchItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	items := make([]usecase.BatchItem, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		items = append(items, usecase.BatchItem{
			DocumentID: uuid.NewString(),
			File: domain.DocumentFile{
				Name:     entry.Name(),
				MimeType: mime.TypeByExtension(filepath.Ext(entry.Name())),
				Content:  content,
			},
			Language: language,
		})
	}
	return items, nil
}
