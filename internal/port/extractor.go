package port

import (
	"context"

	"paperqa/internal/domain"
)

// PageExtractor pulls per-page text out of a source document.
type PageExtractor interface {
	// ExtractPages returns pages in order, numbered from 1. Blank pages
	// are returned with empty text. Unparsable input fails with
	// domain.ErrMalformedSource.
	ExtractPages(ctx context.Context, path string) ([]domain.Page, error)
}
