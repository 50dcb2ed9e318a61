// Package app wires adapters and use cases from one config. The CLI,
// the HTTP server and the benchmark tool all build on it.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"paperqa/config"
	"paperqa/internal/adapter/analyzer"
	"paperqa/internal/adapter/cache"
	"paperqa/internal/adapter/chunker"
	"paperqa/internal/adapter/embedding"
	"paperqa/internal/adapter/extractor"
	"paperqa/internal/adapter/fs"
	"paperqa/internal/adapter/llm"
	"paperqa/internal/adapter/resilience"
	"paperqa/internal/adapter/retriever"
	"paperqa/internal/adapter/store"
	"paperqa/internal/logging"
	"paperqa/internal/port"
	"paperqa/internal/telemetry"
	"paperqa/internal/usecase"
)

// App holds the shared adapters for one process.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	Metrics   *telemetry.Metrics
	Store     port.ArtifactStore
	Cache     *cache.IndexCache
	Embedder  port.Embedder
	Extractor *extractor.PDFExtractor
	closeFn   func() error
}

// New opens the configured store and builds the guarded embedder.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(registry)

	st, closeFn, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact store: %w", err)
	}

	idxCache, err := cache.NewIndexCache(st, cfg.Cache.Capacity, metrics)
	if err != nil {
		closeFn()
		return nil, err
	}

	emb, err := newEmbedder(cfg, logger, metrics)
	if err != nil {
		closeFn()
		return nil, err
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Registry:  registry,
		Metrics:   metrics,
		Store:     st,
		Cache:     idxCache,
		Embedder:  emb,
		Extractor: extractor.NewPDFExtractor(),
		closeFn:   closeFn,
	}, nil
}

func (r *App) Close() error {
	return r.closeFn()
}

func newEmbedder(cfg *config.Config, logger *zap.Logger, metrics *telemetry.Metrics) (port.Embedder, error) {
	var inner port.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		inner = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(cfg.Embedding)
		if err != nil {
			return nil, err
		}
		inner = e
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
	guard := resilience.NewGuard("embedding", cfg.Resilience, logger, metrics)
	return resilience.NewEmbedder(inner, guard), nil
}

// Answerer builds the configured chat model behind the resilience guard.
func (r *App) Answerer() (port.Answerer, error) {
	var inner port.Answerer
	switch r.Config.LLM.Provider {
	case "mock":
		inner = llm.NewMockAnswerer()
	case "openai":
		a, err := llm.NewOpenAIAnswerer(r.Config.LLM)
		if err != nil {
			return nil, err
		}
		inner = a
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", r.Config.LLM.Provider)
	}
	guard := resilience.NewGuard("llm", r.Config.Resilience, r.Logger, r.Metrics)
	return resilience.NewAnswerer(inner, guard), nil
}

func (r *App) Chunker() (*chunker.TokenChunker, error) {
	tok, err := analyzer.NewTokenizer(r.Config.Chunk.Encoding)
	if err != nil {
		return nil, err
	}
	return chunker.NewTokenChunker(r.Config.Chunk.MaxTokens, r.Config.Chunk.Overlap, tok), nil
}

func (r *App) Indexer() (*usecase.IndexUseCase, error) {
	chk, err := r.Chunker()
	if err != nil {
		return nil, err
	}
	walker := fs.NewWalker(r.Config.Index.Includes, r.Config.Index.Excludes)
	return usecase.NewIndexUseCase(r.Store, chk, r.Embedder, r.Extractor, walker, r.Logger).
		WithCache(r.Cache).
		WithMetrics(r.Metrics), nil
}

func (r *App) Retriever() *retriever.SemanticRetriever {
	return retriever.NewSemanticRetriever(r.Cache, r.Embedder, r.Metrics)
}

// Asker builds the ask use case; a nil answerer is allowed for dry runs.
func (r *App) Asker(answerer port.Answerer) *usecase.AskUseCase {
	return usecase.NewAskUseCase(
		r.Retriever(),
		retriever.NewKeywordFilter(r.Config.Retrieve.Keywords),
		answerer,
		usecase.AskOptions{
			Candidates:   r.Config.Retrieve.Candidates,
			TopK:         r.Config.Retrieve.TopK,
			SnippetChars: r.Config.Retrieve.SnippetChars,
		},
		r.Logger,
	)
}
