package port

import (
	"context"

	"paperqa/internal/domain"
)

// Retriever searches one document's index for chunks relevant to a query.
type Retriever interface {
	// Retrieve returns at most topK chunks ordered by descending score.
	Retrieve(ctx context.Context, docID, query string, topK int) ([]domain.RetrievedChunk, error)
}

// RelevanceFilter narrows retrieved chunks before prompt assembly.
type RelevanceFilter interface {
	Filter(chunks []domain.RetrievedChunk) []domain.RetrievedChunk
}
