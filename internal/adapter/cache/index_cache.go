package cache

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"paperqa/internal/adapter/vectorindex"
	"paperqa/internal/domain"
	"paperqa/internal/port"
	"paperqa/internal/telemetry"
)

const DefaultCapacity = 8

// DocumentIndex is a loaded, validated index with its aligned metadata.
// Shared between readers; never mutated after load.
type DocumentIndex struct {
	ID       string
	Index    *vectorindex.FlatIndex
	Metadata []domain.IndexedChunk
}

// IndexCache keeps the most recently used document indexes in memory.
// Concurrent loads of the same document share one store read.
type IndexCache struct {
	store   port.ArtifactStore
	entries *lru.Cache[string, *DocumentIndex]
	group   singleflight.Group
	metrics *telemetry.Metrics

	mu  sync.Mutex
	gen uint64
}

func NewIndexCache(store port.ArtifactStore, capacity int, metrics *telemetry.Metrics) (*IndexCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	entries, err := lru.New[string, *DocumentIndex](capacity)
	if err != nil {
		return nil, err
	}
	return &IndexCache{
		store:   store,
		entries: entries,
		metrics: metrics,
	}, nil
}

// Load returns the index for docID, reading the store on a miss.
// Failed loads are not cached.
func (c *IndexCache) Load(ctx context.Context, docID string) (*DocumentIndex, error) {
	if doc, ok := c.entries.Get(docID); ok {
		c.metrics.IndexCache(telemetry.ResultHit)
		return doc, nil
	}
	c.metrics.IndexCache(telemetry.ResultMiss)

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(docID, func() (interface{}, error) {
		if doc, ok := c.entries.Peek(docID); ok {
			return doc, nil
		}
		// The load is shared; one caller giving up must not fail the others.
		raw, meta, err := c.store.Load(context.WithoutCancel(ctx), docID)
		if err != nil {
			return nil, err
		}
		doc, err := assemble(docID, raw, meta)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.entries.Add(docID, doc)
		}
		c.mu.Unlock()
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*DocumentIndex), nil
}

// Invalidate drops docID so the next Load sees freshly written artifacts.
func (c *IndexCache) Invalidate(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Remove(docID)
}

func (c *IndexCache) Len() int {
	return c.entries.Len()
}

func (c *IndexCache) Contains(docID string) bool {
	return c.entries.Contains(docID)
}

func assemble(docID string, raw []byte, meta []domain.IndexedChunk) (*DocumentIndex, error) {
	idx, err := vectorindex.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode index %s: %w", docID, err)
	}
	if idx.Size() != len(meta) {
		return nil, fmt.Errorf("%w: %s has %d vectors but %d metadata entries",
			domain.ErrInvariantViolation, docID, idx.Size(), len(meta))
	}
	for i, m := range meta {
		if m.ID != i {
			return nil, fmt.Errorf("%w: %s metadata entry %d has id %d",
				domain.ErrInvariantViolation, docID, i, m.ID)
		}
	}
	return &DocumentIndex{ID: docID, Index: idx, Metadata: meta}, nil
}
