package port

import (
	"context"

	"paperqa/internal/domain"
)

// ArtifactStore persists the vector-index and metadata artifacts of a
// document. Both are written together; a document whose pair is incomplete
// is reported as domain.ErrNotIndexed.
type ArtifactStore interface {
	// Save writes both artifacts for docID atomically, replacing any
	// previous pair.
	Save(ctx context.Context, docID string, index []byte, metadata []domain.IndexedChunk) error

	// Load reads both artifacts for docID.
	Load(ctx context.Context, docID string) ([]byte, []domain.IndexedChunk, error)

	// Exists reports whether both artifacts for docID are present.
	Exists(ctx context.Context, docID string) (bool, error)

	// List returns the ids of all documents with a complete pair, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes both artifacts for docID.
	Delete(ctx context.Context, docID string) error
}
