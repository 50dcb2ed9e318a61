package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"paperqa/internal/adapter/chunker"
	"paperqa/internal/adapter/vectorindex"
	"paperqa/internal/domain"
	"paperqa/internal/port"
	"paperqa/internal/telemetry"
)

// IndexInvalidator drops a cached index after its artifacts are rewritten.
type IndexInvalidator interface {
	Invalidate(docID string)
}

// staleChecker is implemented by stores that record how a document was indexed.
type staleChecker interface {
	Stale(ctx context.Context, docID string) (bool, error)
}

// indexTimer is implemented by stores that know when a document was saved.
type indexTimer interface {
	IndexedAt(ctx context.Context, docID string) (time.Time, error)
}

// IndexUseCase turns documents into persisted vector indexes.
type IndexUseCase struct {
	store     port.ArtifactStore
	chunker   *chunker.TokenChunker
	embedder  port.Embedder
	extractor port.PageExtractor
	walker    port.FileWalker
	cache     IndexInvalidator
	logger    *zap.Logger
	metrics   *telemetry.Metrics
}

// NewIndexUseCase creates a new index use case. walker may be nil when
// only single documents are indexed.
func NewIndexUseCase(
	store port.ArtifactStore,
	chunker *chunker.TokenChunker,
	embedder port.Embedder,
	extractor port.PageExtractor,
	walker port.FileWalker,
	logger *zap.Logger,
) *IndexUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexUseCase{
		store:     store,
		chunker:   chunker,
		embedder:  embedder,
		extractor: extractor,
		walker:    walker,
		logger:    logger,
	}
}

// WithCache makes every successful save evict the document from c.
func (u *IndexUseCase) WithCache(c IndexInvalidator) *IndexUseCase {
	u.cache = c
	return u
}

func (u *IndexUseCase) WithMetrics(m *telemetry.Metrics) *IndexUseCase {
	u.metrics = m
	return u
}

// IndexDocument chunks, embeds and stores one document. Chunk ids are
// assigned densely in page order. Nothing is persisted unless every chunk
// was embedded.
func (u *IndexUseCase) IndexDocument(ctx context.Context, docID, pdfName string, pages []domain.Page) (int, error) {
	idx, err := vectorindex.NewFlatIndex(u.embedder.Dimension())
	if err != nil {
		return 0, err
	}

	var meta []domain.IndexedChunk
	for _, page := range pages {
		for _, c := range u.chunker.ChunkPage(page.Text, page.Number) {
			vec, err := u.embedder.Embed(ctx, c.Text)
			if err != nil {
				return 0, fmt.Errorf("embed %s page %d chunk %d: %w", docID, c.PageNum, c.ChunkIdx, err)
			}

			id := len(meta)
			if err := idx.Add(id, vectorindex.Normalize(vec)); err != nil {
				return 0, fmt.Errorf("index %s chunk %d: %w", docID, id, err)
			}
			meta = append(meta, domain.IndexedChunk{
				Chunk:     c,
				ID:        id,
				PDFName:   pdfName,
				CleanText: c.Text,
			})
		}
	}

	raw, err := idx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := u.store.Save(ctx, docID, raw, meta); err != nil {
		return 0, fmt.Errorf("save %s: %w", docID, err)
	}
	if u.cache != nil {
		u.cache.Invalidate(docID)
	}

	u.metrics.Indexed(len(meta))
	u.logger.Info("indexed document",
		zap.String("doc_id", docID),
		zap.Int("pages", len(pages)),
		zap.Int("vectors", len(meta)))
	return len(meta), nil
}

// IndexFile extracts and indexes the PDF at path. The document id is the
// file name without its extension.
func (u *IndexUseCase) IndexFile(ctx context.Context, path string) (string, int, error) {
	name := filepath.Base(path)
	docID := domain.DocumentID(name)

	pages, err := u.extractor.ExtractPages(ctx, path)
	if err != nil {
		return docID, 0, fmt.Errorf("extract %s: %w", name, err)
	}
	n, err := u.IndexDocument(ctx, docID, name, pages)
	return docID, n, err
}

// IndexOptions controls a directory run.
type IndexOptions struct {
	Force      bool // reindex documents that already have artifacts
	Workers    int
	OnStart    func(total int)
	OnProgress func(FileResult)
}

// FileResult reports the outcome for one file of a directory run.
type FileResult struct {
	Path    string
	DocID   string
	Vectors int
	Skipped bool
	Err     error
}

// IndexResult contains the results of an indexing operation.
type IndexResult struct {
	Files          []FileResult
	FilesIndexed   int
	FilesSkipped   int
	FilesFailed    int
	VectorsCreated int
}

// IndexDir indexes every matching file under root. A failing document is
// recorded and the run continues. Files are reported in walk order. Two
// files that map to the same document id are never indexed together: the
// first in walk order wins and the rest fail.
func (u *IndexUseCase) IndexDir(ctx context.Context, root string, opts IndexOptions) (*IndexResult, error) {
	if u.walker == nil {
		return nil, fmt.Errorf("directory indexing needs a file walker")
	}
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", root)
	}

	if opts.OnStart != nil {
		opts.OnStart(len(files))
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]FileResult, len(files))
	var mu sync.Mutex

	owners := make(map[string]string, len(files))
	for i, file := range files {
		docID := domain.DocumentID(filepath.Base(file.Path))
		if first, taken := owners[docID]; taken {
			results[i] = FileResult{
				Path:  file.Path,
				DocID: docID,
				Err:   fmt.Errorf("document id %q is already used by %s", docID, first),
			}
			u.logger.Warn("duplicate document id", zap.String("path", file.Path), zap.String("doc_id", docID))
			if opts.OnProgress != nil {
				opts.OnProgress(results[i])
			}
			continue
		}
		owners[docID] = file.Path
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		if results[i].Err != nil {
			continue
		}
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := u.indexOne(gctx, file, opts.Force)

			mu.Lock()
			results[i] = res
			if opts.OnProgress != nil {
				opts.OnProgress(res)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &IndexResult{Files: results}
	for _, r := range results {
		switch {
		case r.Err != nil:
			out.FilesFailed++
		case r.Skipped:
			out.FilesSkipped++
		default:
			out.FilesIndexed++
			out.VectorsCreated += r.Vectors
		}
	}
	return out, nil
}

func (u *IndexUseCase) indexOne(ctx context.Context, file port.FileInfo, force bool) FileResult {
	path := file.Path
	res := FileResult{Path: path, DocID: domain.DocumentID(filepath.Base(path))}

	if !force {
		fresh, err := u.upToDate(ctx, res.DocID, file.ModTime)
		if err != nil {
			res.Err = err
			return res
		}
		if fresh {
			res.Skipped = true
			return res
		}
	}

	_, n, err := u.IndexFile(ctx, path)
	if err != nil {
		u.logger.Warn("indexing failed", zap.String("path", path), zap.Error(err))
		res.Err = err
		return res
	}
	res.Vectors = n
	return res
}

// upToDate reports whether docID has artifacts that were built with the
// current settings and are no older than the source file.
func (u *IndexUseCase) upToDate(ctx context.Context, docID string, sourceMod time.Time) (bool, error) {
	exists, err := u.store.Exists(ctx, docID)
	if err != nil || !exists {
		return false, err
	}
	if sc, ok := u.store.(staleChecker); ok {
		stale, err := sc.Stale(ctx, docID)
		if err != nil || stale {
			return false, err
		}
	}
	if it, ok := u.store.(indexTimer); ok && !sourceMod.IsZero() {
		at, err := it.IndexedAt(ctx, docID)
		if err != nil {
			return false, err
		}
		if at.Before(sourceMod) {
			return false, nil
		}
	}
	return true, nil
}
