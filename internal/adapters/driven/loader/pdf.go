package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/stackpine/ragcell/internal/core/domain"
)

// loadPDF extracts one raw document per non-empty page. The pdf library
// panics on some malformed files, so extraction runs under a recover.
func loadPDF(ctx context.Context, path string) (docs []domain.RawDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("malformed pdf %s: %v: %w", path, r, domain.ErrInvalidInput)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract pdf %s page %d: %w", path, i, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, domain.RawDocument{Text: content, Source: path, Page: i})
	}
	return docs, nil
}
