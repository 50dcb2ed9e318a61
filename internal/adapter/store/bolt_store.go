package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"paperqa/internal/domain"
)

var (
	bucketIndexes  = []byte("indexes")
	bucketMetadata = []byte("metadata")
	bucketSchema   = []byte("schema")
)

// BoltStore keeps every document's artifact pair in one BoltDB file. A
// pair is written in a single transaction, so it is all-or-nothing.
type BoltStore struct {
	db         *bbolt.DB
	configHash string
}

// NewBoltStore opens (or creates) the database at path. configHash is
// recorded with every saved document; see ComputeConfigHash.
func NewBoltStore(path, configHash string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketIndexes, bucketMetadata, bucketSchema} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, configHash: configHash}, nil
}

func (s *BoltStore) Save(ctx context.Context, docID string, index []byte, metadata []domain.IndexedChunk) error {
	if err := validateDocID(docID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	info, err := json.Marshal(SchemaInfo{
		Version:    CurrentSchemaVersion,
		ConfigHash: s.configHash,
		Chunks:     len(metadata),
		IndexedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	key := []byte(docID)
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketIndexes).Put(key, index); err != nil {
			return err
		}
		if err := tx.Bucket(bucketMetadata).Put(key, metaData); err != nil {
			return err
		}
		return tx.Bucket(bucketSchema).Put(key, info)
	})
}

func (s *BoltStore) Load(ctx context.Context, docID string) ([]byte, []domain.IndexedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var index []byte
	var metadata []domain.IndexedChunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := []byte(docID)
		indexData := tx.Bucket(bucketIndexes).Get(key)
		metaData := tx.Bucket(bucketMetadata).Get(key)
		if indexData == nil || metaData == nil {
			return fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
		}

		if infoData := tx.Bucket(bucketSchema).Get(key); infoData != nil {
			var info SchemaInfo
			if err := json.Unmarshal(infoData, &info); err != nil {
				return fmt.Errorf("%w: schema info for %s: %v", domain.ErrInvariantViolation, docID, err)
			}
			if info.Version != CurrentSchemaVersion {
				return fmt.Errorf("%w: %s was written with schema version %d, expected %d",
					domain.ErrInvariantViolation, docID, info.Version, CurrentSchemaVersion)
			}
		}

		// Slices returned by bbolt are only valid inside the transaction.
		index = append([]byte(nil), indexData...)
		if err := json.Unmarshal(metaData, &metadata); err != nil {
			return fmt.Errorf("%w: metadata for %s: %v", domain.ErrInvariantViolation, docID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return index, metadata, nil
}

func (s *BoltStore) Exists(ctx context.Context, docID string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := []byte(docID)
		ok = tx.Bucket(bucketIndexes).Get(key) != nil && tx.Bucket(bucketMetadata).Get(key) != nil
		return nil
	})
	return ok, err
}

func (s *BoltStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMetadata)
		return tx.Bucket(bucketIndexes).ForEach(func(k, v []byte) error {
			if meta.Get(k) != nil {
				ids = append(ids, string(k))
			}
			return nil
		})
	})
	sort.Strings(ids)
	return ids, err
}

func (s *BoltStore) Delete(ctx context.Context, docID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(docID)
		for _, b := range [][]byte{bucketMetadata, bucketIndexes, bucketSchema} {
			if err := tx.Bucket(b).Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
