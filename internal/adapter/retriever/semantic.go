package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paperqa/internal/adapter/cache"
	"paperqa/internal/adapter/vectorindex"
	"paperqa/internal/domain"
	"paperqa/internal/port"
	"paperqa/internal/telemetry"
)

// IndexLoader resolves a document id to its loaded index.
type IndexLoader interface {
	Load(ctx context.Context, docID string) (*cache.DocumentIndex, error)
}

// SemanticRetriever ranks a document's chunks by cosine similarity to the query.
type SemanticRetriever struct {
	indexes  IndexLoader
	embedder port.Embedder
	metrics  *telemetry.Metrics
}

func NewSemanticRetriever(indexes IndexLoader, embedder port.Embedder, metrics *telemetry.Metrics) *SemanticRetriever {
	return &SemanticRetriever{
		indexes:  indexes,
		embedder: embedder,
		metrics:  metrics,
	}
}

func (r *SemanticRetriever) Retrieve(ctx context.Context, docID, query string, topK int) (chunks []domain.RetrievedChunk, err error) {
	start := time.Now()
	defer func() {
		result := telemetry.ResultOK
		switch {
		case errors.Is(err, domain.ErrNotIndexed):
			result = telemetry.ResultNotIndexed
		case err != nil:
			result = telemetry.ResultError
		}
		r.metrics.ObserveRetrieval(result, time.Since(start))
	}()

	doc, err := r.indexes.Load(ctx, docID)
	if err != nil {
		return nil, err
	}
	if topK <= 0 || doc.Index.Size() == 0 {
		return nil, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := doc.Index.Search(vectorindex.Normalize(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", docID, err)
	}

	chunks = make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, domain.RetrievedChunk{
			IndexedChunk: doc.Metadata[hit.ID],
			Score:        hit.Score,
		})
	}
	return chunks, nil
}
