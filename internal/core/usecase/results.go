package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

// ResultLookup reads results from the processor's store first and falls back
// to the durable archive once the cached copy has expired.
type ResultLookup struct {
	processor ports.DocumentProcessor
	archive   ports.ResultArchive
}

func NewResultLookup(processor ports.DocumentProcessor, archive ports.ResultArchive) *ResultLookup {
	return &ResultLookup{processor: processor, archive: archive}
}

func (l *ResultLookup) GetProcessingResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error) {
	if documentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get processing result", errors.New("document id is required"))
	}
	result, err := l.processor.GetProcessingResult(ctx, documentID)
	if err == nil || l.archive == nil || !errors.Is(err, domain.ErrResultNotFound) {
		return result, err
	}
	archived, aerr := l.archive.GetResult(ctx, documentID)
	if aerr != nil {
		return nil, fmt.Errorf("get archived result: %w", aerr)
	}
	return archived, nil
}
