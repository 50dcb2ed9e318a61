// Package extractor reads per-page text out of PDF documents.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"paperqa/internal/domain"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether content starts with the PDF file signature.
func IsPDF(content []byte) bool {
	return bytes.HasPrefix(content, pdfMagic)
}

type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) ExtractPages(ctx context.Context, path string) ([]domain.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return e.ExtractBytes(ctx, content)
}

// ExtractBytes returns one Page per PDF page, numbered from 1.
func (e *PDFExtractor) ExtractBytes(ctx context.Context, content []byte) (pages []domain.Page, err error) {
	if !IsPDF(content) {
		return nil, fmt.Errorf("%w: missing %%PDF- header", domain.ErrMalformedSource)
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", domain.ErrMalformedSource, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedSource, err)
	}

	n := reader.NumPage()
	pages = make([]domain.Page, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() || page.V.Key("Contents").IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrMalformedSource, i, err)
		}
		pages = append(pages, domain.Page{Number: i, Text: text})
	}
	return pages, nil
}
