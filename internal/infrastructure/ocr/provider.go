// Package ocr turns uploaded files into text. Text layers are read directly;
// formats without one are rejected so the pipeline degrades to its
// placeholder result.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
	"github.com/kirillkom/docintel/internal/core/ports"
)

type textExtractor interface {
	method() string
	confidence() float64
	extract(ctx context.Context, content []byte) (string, error)
}

// Provider dispatches on file extension, then on MIME type.
type Provider struct {
	byExt  map[string]textExtractor
	byMime map[string]textExtractor
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.OCRProvider = (*Provider)(nil)

func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	text := plainText{}
	pdfText := pdfText{logger: logger}
	sheet := spreadsheet{}
	return &Provider{
		byExt: map[string]textExtractor{
			".txt": text, ".md": text, ".csv": text, ".log": text, ".json": text,
			".pdf":  pdfText,
			".xlsx": sheet, ".xlsm": sheet,
		},
		byMime: map[string]textExtractor{
			"text/plain":      text,
			"text/markdown":   text,
			"text/csv":        text,
			"application/pdf": pdfText,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": sheet,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (p *Provider) Extract(ctx context.Context, file domain.DocumentFile, language domain.Language) (domain.OCRResult, error) {
	start := p.now()
	ex, ok := p.lookup(file)
	if !ok {
		return domain.OCRResult{}, domain.WrapError(domain.ErrInvalidInput, "ocr.extract", fmt.Errorf("unsupported file type %q (%s)", file.Name, file.MimeType))
	}

	text, err := ex.extract(ctx, file.Content)
	if err != nil {
		return domain.OCRResult{}, fmt.Errorf("ocr %s %s: %w", ex.method(), file.Name, err)
	}
	text = strings.TrimSpace(text)
	confidence := ex.confidence()
	if text == "" {
		confidence = 0
	}

	result := domain.OCRResult{
		Text:           text,
		Confidence:     confidence,
		Language:       language,
		ProcessingTime: p.now().Sub(start).Milliseconds(),
		Method:         ex.method(),
	}
	p.logger.Debug("text_extracted", "file", file.Name, "method", result.Method, "chars", len(text))
	return result, nil
}

func (p *Provider) lookup(file domain.DocumentFile) (textExtractor, bool) {
	if ex, ok := p.byExt[strings.ToLower(filepath.Ext(file.Name))]; ok {
		return ex, true
	}
	mime, _, _ := strings.Cut(file.MimeType, ";")
	ex, ok := p.byMime[strings.ToLower(strings.TrimSpace(mime))]
	return ex, ok
}
