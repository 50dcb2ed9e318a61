package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"paperqa/config"
	"paperqa/internal/domain"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// SchemaInfo is recorded next to every document in the bolt backend.
type SchemaInfo struct {
	Version    int       `json:"version"`
	ConfigHash string    `json:"config_hash"`
	Chunks     int       `json:"chunks"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// GetSchemaInfo returns the schema info stored for docID, or nil if none.
func (s *BoltStore) GetSchemaInfo(docID string) (*SchemaInfo, error) {
	var info *SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSchema).Get([]byte(docID))
		if data == nil {
			return nil
		}
		info = &SchemaInfo{}
		return json.Unmarshal(data, info)
	})
	return info, err
}

// Stale reports whether docID was indexed with a different schema version
// or configuration than the store was opened with.
func (s *BoltStore) Stale(ctx context.Context, docID string) (bool, error) {
	info, err := s.GetSchemaInfo(docID)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil
	}
	return info.Version != CurrentSchemaVersion || info.ConfigHash != s.configHash, nil
}

// IndexedAt returns when docID was last saved.
func (s *BoltStore) IndexedAt(ctx context.Context, docID string) (time.Time, error) {
	info, err := s.GetSchemaInfo(docID)
	if err != nil {
		return time.Time{}, err
	}
	if info == nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	return info.IndexedAt, nil
}

// ComputeConfigHash computes a hash of index-relevant configuration.
// Changes to this hash indicate the document should be re-indexed.
func ComputeConfigHash(cfg *config.Config) string {
	relevant := struct {
		MaxTokens int    `json:"max_tokens"`
		Overlap   int    `json:"overlap"`
		Encoding  string `json:"encoding"`
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		Dimension int    `json:"dimension"`
	}{
		MaxTokens: cfg.Chunk.MaxTokens,
		Overlap:   cfg.Chunk.Overlap,
		Encoding:  cfg.Chunk.Encoding,
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	}

	data, _ := json.Marshal(relevant)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:8])
}
