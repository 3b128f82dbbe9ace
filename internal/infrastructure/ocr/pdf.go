package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfText reads the embedded text layer. Scanned PDFs without one yield
// empty text.
type pdfText struct {
	logger *slog.Logger
}

func (pdfText) method() string      { return "pdf-text" }
func (pdfText) confidence() float64 { return 0.9 }

func (p pdfText) extract(ctx context.Context, content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			p.logger.Warn("pdf_page_null", "page", i)
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		out.WriteString(text)
		out.WriteString("\n")
	}
	return out.String(), nil
}
