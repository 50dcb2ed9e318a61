// Package server exposes upload, chat, health and metrics endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"paperqa/config"
	"paperqa/internal/domain"
	"paperqa/internal/port"
)

// Asker answers a question about one indexed document.
type Asker interface {
	Ask(ctx context.Context, docID, question string) (*domain.Answer, error)
}

// Indexer builds and stores the index of an uploaded document.
type Indexer interface {
	IndexDocument(ctx context.Context, docID, pdfName string, pages []domain.Page) (int, error)
}

// Deps are the collaborators the handlers call into. Indexer may be nil,
// in which case ?index=true uploads are rejected.
type Deps struct {
	Config    config.ServerConfig
	Asker     Asker
	Indexer   Indexer
	Extractor port.PageExtractor
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

type Server struct {
	router *gin.Engine
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.MaxUploadBytes <= 0 {
		deps.Config.MaxUploadBytes = config.DefaultConfig().Server.MaxUploadBytes
	}

	router := gin.New()
	router.Use(requestLogger(deps.Logger))
	router.Use(gin.Recovery())

	if len(deps.Config.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = deps.Config.CORSOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}

	s := &Server{router: router, deps: deps, logger: deps.Logger}

	router.GET("/healthz", s.health)
	router.POST("/upload", s.upload)
	router.POST("/api/chat", s.chat)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
