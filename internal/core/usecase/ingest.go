package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

type IngestDocumentUseCase struct {
	storage   ports.ObjectStorage
	queue     ports.JobQueue
	processor ports.DocumentProcessor
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// NewIngestDocumentUseCase stores uploads and hands them to workers through
// queue. With a nil queue the upload is processed in-process in the background.
func NewIngestDocumentUseCase(
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	processor ports.DocumentProcessor,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{
		storage:   storage,
		queue:     queue,
		processor: processor,
		logger:    logger,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Upload returns the document id the caller can poll or subscribe to.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	language domain.Language,
	body io.Reader,
) (string, error) {
	if body == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("missing body"))
	}
	id := uc.newID()
	displayName := filepath.Base(filename)
	if displayName == "." || displayName == string(filepath.Separator) {
		displayName = "document.bin"
	}
	job := ports.IngestJob{
		DocumentID: id,
		StorageKey: fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)),
		FileName:   displayName,
		MimeType:   mimeType,
		Language:   domain.NormalizeLanguage(string(language)),
		EnqueuedAt: uc.now().UTC(),
	}

	if err := uc.storage.Save(ctx, job.StorageKey, body); err != nil {
		return "", fmt.Errorf("save to object storage: %w", err)
	}

	if uc.queue != nil {
		if err := uc.queue.PublishJob(ctx, job); err != nil {
			return "", fmt.Errorf("publish ingest job: %w", err)
		}
		return id, nil
	}

	if uc.processor == nil {
		return "", errors.New("no queue or processor configured")
	}
	go func() {
		bg := context.WithoutCancel(ctx)
		if _, err := ProcessStoredJob(bg, uc.storage, uc.processor, job); err != nil {
			uc.logger.Error("inline_processing_failed", "document_id", job.DocumentID, "error", err.Error())
		}
	}()
	return id, nil
}

// ProcessStoredJob loads the uploaded file for job and runs it through processor.
func ProcessStoredJob(
	ctx context.Context,
	storage ports.ObjectStorage,
	processor ports.DocumentProcessor,
	job ports.IngestJob,
) (*domain.DocumentProcessingResult, error) {
	rc, err := storage.Open(ctx, job.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored document: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored document: %w", err)
	}
	file := domain.DocumentFile{Name: job.FileName, MimeType: job.MimeType, Content: content}
	return processor.ProcessDocument(ctx, file, job.DocumentID, job.Language), nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r):
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "_" {
		return "document.bin"
	}
	return base
}
