package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"paperqa/internal/domain"
)

type artifactPair struct {
	index    []byte
	metadata []domain.IndexedChunk
	saved    time.Time
}

// MemoryStore is a process-local ArtifactStore. It also counts writes so
// tests can assert that read paths never persist anything.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]artifactPair
	writes int
	loads  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]artifactPair),
	}
}

func (s *MemoryStore) Save(ctx context.Context, docID string, index []byte, metadata []domain.IndexedChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docID] = artifactPair{
		index:    append([]byte(nil), index...),
		metadata: append([]domain.IndexedChunk(nil), metadata...),
		saved:    time.Now(),
	}
	s.writes++
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, docID string) ([]byte, []domain.IndexedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	pair, ok := s.docs[docID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	return append([]byte(nil), pair.index...), append([]domain.IndexedChunk(nil), pair.metadata...), nil
}

func (s *MemoryStore) Exists(ctx context.Context, docID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[docID]
	return ok, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Delete(ctx context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docID)
	s.writes++
	return nil
}

// Writes returns the number of Save and Delete calls.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Loads returns the number of Load calls.
func (s *MemoryStore) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}

// IndexedAt returns when docID was last saved.
func (s *MemoryStore) IndexedAt(ctx context.Context, docID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.docs[docID]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrNotIndexed, docID)
	}
	return pair.saved, nil
}
