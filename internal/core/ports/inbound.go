package ports

import (
	"context"
	"io"

	"github.com/kirillkom/docintel/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for one-shot analysis.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, content, fileName string, language domain.Language) (*domain.DocumentAnalysis, error)
}

// ProgressListener is called synchronously for each event of a document.
type ProgressListener func(domain.ProgressEvent)

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

// ProgressSubscriber exposes live progress for a document.
type ProgressSubscriber interface {
	OnProgress(documentID string, listener ProgressListener) ListenerID
	OffProgress(documentID string, id ListenerID)
	Subscribe(documentID string) (<-chan domain.ProgressEvent, func())
}

// DocumentProcessor is the inbound contract for staged processing.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, file domain.DocumentFile, documentID string, language domain.Language) *domain.DocumentProcessingResult
	GetProcessingResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error)
}

// DocumentUploader stores an upload and schedules its processing.
type DocumentUploader interface {
	Upload(ctx context.Context, filename, mimeType string, language domain.Language, body io.Reader) (string, error)
}

// DocumentSearcher finds indexed chunks by keyword.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int, category domain.Category) ([]domain.SearchHit, error)
}
