package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"paperqa/internal/domain"
)

const (
	indexExt    = ".index"
	metadataExt = ".json"
)

// FileStore keeps each document as two files in one directory:
// <id>.index (vector index) and <id>.json (chunk metadata).
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) indexPath(docID string) string {
	return filepath.Join(s.dir, docID+indexExt)
}

func (s *FileStore) metadataPath(docID string) string {
	return filepath.Join(s.dir, docID+metadataExt)
}

// Save writes both artifacts through temp files and renames. The old
// metadata file is removed before the new index lands and the new metadata
// is renamed last, so an interrupted save leaves the document absent
// rather than half-written.
func (s *FileStore) Save(ctx context.Context, docID string, index []byte, metadata []domain.IndexedChunk) error {
	if err := validateDocID(docID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	metaData, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	indexTmp, err := s.writeTemp(docID, index)
	if err != nil {
		return err
	}
	defer os.Remove(indexTmp)

	metaTmp, err := s.writeTemp(docID, metaData)
	if err != nil {
		return err
	}
	defer os.Remove(metaTmp)

	if err := os.Remove(s.metadataPath(docID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	if err := os.Rename(indexTmp, s.indexPath(docID)); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	if err := os.Rename(metaTmp, s.metadataPath(docID)); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

func (s *FileStore) writeTemp(docID string, data []byte) (string, error) {
	f, err := os.CreateTemp(s.dir, "."+docID+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// Load reads both artifacts. A missing file of either kind is reported as
// domain.ErrNotIndexed.
func (s *FileStore) Load(ctx context.Context, docID string) ([]byte, []domain.IndexedChunk, error) {
	if err := validateDocID(docID); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	index, err := os.ReadFile(s.indexPath(docID))
	if err != nil {
		return nil, nil, notIndexedOr(docID, err)
	}
	metaData, err := os.ReadFile(s.metadataPath(docID))
	if err != nil {
		return nil, nil, notIndexedOr(docID, err)
	}

	var metadata []domain.IndexedChunk
	if err := json.Unmarshal(metaData, &metadata); err != nil {
		return nil, nil, fmt.Errorf("%w: metadata for %s: %v", domain.ErrInvariantViolation, docID, err)
	}
	return index, metadata, nil
}

// Exists reports whether both artifacts are present.
func (s *FileStore) Exists(ctx context.Context, docID string) (bool, error) {
	if validateDocID(docID) != nil {
		return false, nil
	}
	for _, path := range []string{s.indexPath(docID), s.metadataPath(docID)} {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

// IndexedAt returns the modification time of the metadata file, which a
// save renames into place last.
func (s *FileStore) IndexedAt(ctx context.Context, docID string) (time.Time, error) {
	if validateDocID(docID) != nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	info, err := os.Stat(s.metadataPath(docID))
	if err != nil {
		return time.Time{}, notIndexedOr(docID, err)
	}
	return info.ModTime(), nil
}

// List returns the ids of documents with both artifacts present.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+metadataExt))
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, m := range matches {
		id := strings.TrimSuffix(filepath.Base(m), metadataExt)
		ok, err := s.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the metadata first so the document stops being
// retrievable before the index goes away.
func (s *FileStore) Delete(ctx context.Context, docID string) error {
	if err := validateDocID(docID); err != nil {
		return err
	}
	for _, path := range []string{s.metadataPath(docID), s.indexPath(docID)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func notIndexedOr(docID string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	return err
}

func validateDocID(docID string) error {
	if docID == "" || docID == "." || docID == ".." || strings.ContainsAny(docID, `/\`) {
		return fmt.Errorf("invalid document id %q", docID)
	}
	return nil
}
