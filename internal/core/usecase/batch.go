package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docintel/internal/core/domain"
)

// BatchConcurrency caps how many documents are processed at once.
const BatchConcurrency = 5

type BatchItem struct {
	DocumentID string
	File       domain.DocumentFile
	Language   domain.Language
}

// ProcessBatch processes items with bounded concurrency. Results are
// returned in input order; completion order is not guaranteed.
func (uc *ProcessDocumentUseCase) ProcessBatch(ctx context.Context, items []BatchItem) []*domain.DocumentProcessingResult {
	results := make([]*domain.DocumentProcessingResult, len(items))
	var g errgroup.Group
	g.SetLimit(BatchConcurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = uc.ProcessDocument(ctx, item.File, item.DocumentID, item.Language)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
