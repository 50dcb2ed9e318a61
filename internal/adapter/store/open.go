package store

import (
	"fmt"
	"os"
	"path/filepath"

	"paperqa/config"
	"paperqa/internal/adapter/memstore"
	"paperqa/internal/port"
)

// Open builds the artifact store selected by cfg.Store.Backend. The
// returned close function is never nil.
func Open(cfg *config.Config) (port.ArtifactStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case "", "file":
		s, err := NewFileStore(cfg.Store.VectorDir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case "bolt":
		if err := os.MkdirAll(filepath.Dir(cfg.Store.BoltPath), 0755); err != nil {
			return nil, noop, err
		}
		s, err := NewBoltStore(cfg.Store.BoltPath, ComputeConfigHash(cfg))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case "memory":
		return memstore.NewMemoryStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}
