package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"paperqa/internal/app"
	"paperqa/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serve POST /upload, POST /api/chat, GET /healthz and GET /metrics.

Example:
  paperqa serve --addr :8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	rt, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	answerer, err := rt.Answerer()
	if err != nil {
		return err
	}
	indexUC, err := rt.Indexer()
	if err != nil {
		return err
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Deps{
		Config:    cfg.Server,
		Asker:     rt.Asker(answerer),
		Indexer:   indexUC,
		Extractor: rt.Extractor,
		Gatherer:  rt.Registry,
		Logger:    logger,
	})

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, addr)
}
