package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperqa/config"
	"paperqa/internal/adapter/cache"
	"paperqa/internal/adapter/chunker"
	"paperqa/internal/adapter/embedding"
	"paperqa/internal/adapter/fs"
	"paperqa/internal/adapter/memstore"
	"paperqa/internal/adapter/store"
	"paperqa/internal/adapter/vectorindex"
	"paperqa/internal/domain"
	"paperqa/internal/port"
)

const testDim = 64

func newIndexer(st port.ArtifactStore, emb port.Embedder, maxTokens int) *IndexUseCase {
	return NewIndexUseCase(
		st,
		chunker.NewTokenChunker(maxTokens, 0, newWordCodec()),
		emb,
		textExtractor{},
		fs.NewWalker(nil, nil),
		nil,
	)
}

func TestIndexDocumentAssignsDenseIDs(t *testing.T) {
	st := memstore.NewMemoryStore()
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 3)

	pages := []domain.Page{
		{Number: 1, Text: "alpha beta gamma\n\n delta   epsilon zeta"},
		{Number: 2, Text: "triplet loss margin"},
	}
	n, err := u.IndexDocument(context.Background(), "paper", "paper.pdf", pages)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	raw, meta, err := st.Load(context.Background(), "paper")
	require.NoError(t, err)
	idx, err := vectorindex.Decode(raw)
	require.NoError(t, err)

	require.Equal(t, idx.Size(), len(meta))
	wantPages := []int{1, 1, 2}
	wantIdx := []int{0, 1, 0}
	for i, m := range meta {
		assert.Equal(t, i, m.ID)
		assert.Equal(t, wantPages[i], m.PageNum)
		assert.Equal(t, wantIdx[i], m.ChunkIdx)
		assert.Equal(t, "paper.pdf", m.PDFName)
		assert.Equal(t, m.Text, m.CleanText)
		assert.InDelta(t, 1.0, vectorindex.Norm(idx.Vector(i)), 1e-6)
	}
	assert.Equal(t, "delta epsilon zeta", meta[1].Text)
}

func TestIndexDocumentAbortsOnEmbedFailure(t *testing.T) {
	st := memstore.NewMemoryStore()
	emb := &failingEmbedder{inner: embedding.NewMockEmbedder(testDim), failAt: 2}
	u := newIndexer(st, emb, 2)

	_, err := u.IndexDocument(context.Background(), "paper", "paper.pdf", []domain.Page{
		{Number: 1, Text: "one two three four five"},
	})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	assert.Equal(t, 0, st.Writes())

	exists, err := st.Exists(context.Background(), "paper")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndexDocumentEmptyPages(t *testing.T) {
	st := memstore.NewMemoryStore()
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 3)

	n, err := u.IndexDocument(context.Background(), "blank", "blank.pdf", []domain.Page{{Number: 1}, {Number: 2, Text: "  \n "}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	raw, meta, err := st.Load(context.Background(), "blank")
	require.NoError(t, err)
	idx, err := vectorindex.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Size())
	assert.Empty(t, meta)
}

func TestIndexDocumentInvalidatesCache(t *testing.T) {
	st := memstore.NewMemoryStore()
	c, err := cache.NewIndexCache(st, 4, nil)
	require.NoError(t, err)
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 3).WithCache(c)
	ctx := context.Background()

	_, err = u.IndexDocument(ctx, "paper", "paper.pdf", []domain.Page{{Number: 1, Text: "a b c"}})
	require.NoError(t, err)
	doc, err := c.Load(ctx, "paper")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Index.Size())

	_, err = u.IndexDocument(ctx, "paper", "paper.pdf", []domain.Page{{Number: 1, Text: "a b c d e f"}})
	require.NoError(t, err)
	doc, err = c.Load(ctx, "paper")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Index.Size())
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestIndexDirContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"b.pdf":     "second paper text",
		"a.pdf":     "first paper text here",
		"bad.pdf":   "broken bytes",
		"notes.txt": "ignored",
	})

	st := memstore.NewMemoryStore()
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 2)

	var mu sync.Mutex
	var progressed []string
	res, err := u.IndexDir(context.Background(), dir, IndexOptions{
		Workers: 2,
		OnProgress: func(r FileResult) {
			mu.Lock()
			progressed = append(progressed, r.DocID)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.FilesIndexed)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 4, res.VectorsCreated)

	require.Len(t, res.Files, 3)
	assert.Equal(t, "a", res.Files[0].DocID)
	assert.Equal(t, "b", res.Files[1].DocID)
	assert.Equal(t, "bad", res.Files[2].DocID)
	assert.ErrorIs(t, res.Files[2].Err, domain.ErrMalformedSource)

	sort.Strings(progressed)
	assert.Equal(t, []string{"a", "b", "bad"}, progressed)

	ids, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestIndexDirSkipsExisting(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pdf": "some words"})

	st := memstore.NewMemoryStore()
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 4)
	ctx := context.Background()

	_, err := u.IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)

	res, err := u.IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesSkipped)
	assert.Equal(t, 1, st.Writes())

	res, err = u.IndexDir(ctx, dir, IndexOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 2, st.Writes())
}

func TestIndexDirReindexesStaleBoltDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pdf": "some words"})
	dbPath := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	cfg := config.DefaultConfig()
	first, err := store.NewBoltStore(dbPath, store.ComputeConfigHash(cfg))
	require.NoError(t, err)
	_, err = newIndexer(first, embedding.NewMockEmbedder(testDim), 4).IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	cfg.Chunk.MaxTokens = 4
	second, err := store.NewBoltStore(dbPath, store.ComputeConfigHash(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	res, err := newIndexer(second, embedding.NewMockEmbedder(testDim), 4).IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 0, res.FilesSkipped)
}

func TestIndexDirRejectsDuplicateDocumentIDs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a/paper.pdf": "alpha words",
		"b/paper.pdf": "beta words and more",
	})

	st := memstore.NewMemoryStore()
	u := NewIndexUseCase(
		st,
		chunker.NewTokenChunker(4, 0, newWordCodec()),
		embedding.NewMockEmbedder(testDim),
		textExtractor{},
		fs.NewWalker([]string{"**/*.pdf"}, nil),
		nil,
	)

	res, err := u.IndexDir(context.Background(), dir, IndexOptions{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 1, res.FilesFailed)
	assert.Equal(t, 1, st.Writes())

	require.Len(t, res.Files, 2)
	assert.NoError(t, res.Files[0].Err)
	assert.Equal(t, filepath.Join(dir, "a", "paper.pdf"), res.Files[0].Path)
	require.Error(t, res.Files[1].Err)
	assert.Contains(t, res.Files[1].Err.Error(), "already used")

	_, meta, err := st.Load(context.Background(), "paper")
	require.NoError(t, err)
	require.Len(t, meta, 1)
	assert.Equal(t, "alpha words", meta[0].Text)
}

func TestIndexDirReindexesModifiedSource(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.pdf": "some words"})

	st := memstore.NewMemoryStore()
	u := newIndexer(st, embedding.NewMockEmbedder(testDim), 4)
	ctx := context.Background()

	_, err := u.IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "a.pdf"), later, later))

	res, err := u.IndexDir(ctx, dir, IndexOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesIndexed)
	assert.Equal(t, 0, res.FilesSkipped)
	assert.Equal(t, 2, st.Writes())
}

func TestIndexDirNoFiles(t *testing.T) {
	u := newIndexer(memstore.NewMemoryStore(), embedding.NewMockEmbedder(testDim), 4)
	_, err := u.IndexDir(context.Background(), t.TempDir(), IndexOptions{})
	assert.Error(t, err)
}
