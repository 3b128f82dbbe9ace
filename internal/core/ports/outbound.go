package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
)

// AIProvider is an external prompt-in/text-out model.
type AIProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Summarizer produces a summary and reports which tier produced it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) domain.SummaryResult
}

// SummarizationParams bounds the generated summary length in words.
type SummarizationParams struct {
	MaxLength int
	MinLength int
}

// SummarizationModel is a loadable pretrained summarization model.
type SummarizationModel interface {
	Name() string
	Load(ctx context.Context) error
	Summarize(ctx context.Context, text string, params SummarizationParams) (string, error)
	Unload(ctx context.Context) error
}

// OCRProvider turns an uploaded file into text.
type OCRProvider interface {
	Extract(ctx context.Context, file domain.DocumentFile, language domain.Language) (domain.OCRResult, error)
}

// SafetyChecker is the downstream safety-check integration point.
type SafetyChecker interface {
	Check(ctx context.Context, documentID string, analysis domain.DocumentAnalysis) error
}

// SearchIndexer is the downstream search-indexing integration point.
type SearchIndexer interface {
	IndexDocument(ctx context.Context, documentID, fileName, text string, analysis domain.DocumentAnalysis) error
}

// ProgressPublisher receives every progress event as it is emitted.
type ProgressPublisher interface {
	Publish(ctx context.Context, event domain.ProgressEvent)
}

// ResultStore caches finished processing results by document id.
type ResultStore interface {
	Save(ctx context.Context, result *domain.DocumentProcessingResult) error
	Get(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error)
}

// ResultArchive durably persists finished results on behalf of callers.
type ResultArchive interface {
	SaveResult(ctx context.Context, result *domain.DocumentProcessingResult) error
	GetResult(ctx context.Context, documentID string) (*domain.DocumentProcessingResult, error)
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// IngestJob is the unit of work handed from the upload surface to workers.
type IngestJob struct {
	DocumentID string          `json:"document_id"`
	StorageKey string          `json:"storage_key"`
	FileName   string          `json:"file_name"`
	MimeType   string          `json:"mime_type"`
	Language   domain.Language `json:"language"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// JobQueue publishes/consumes ingest jobs.
type JobQueue interface {
	PublishJob(ctx context.Context, job IngestJob) error
	SubscribeJobs(ctx context.Context, handler func(context.Context, IngestJob) error) error
}

// AnalysisRecorder observes cascade behaviour for metrics.
type AnalysisRecorder interface {
	ObserveProviderAttempt(provider string, duration time.Duration, err error)
	ObserveAnalysis(provider string, duration time.Duration)
}
