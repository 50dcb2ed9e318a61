package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"paperqa/internal/app"
	"paperqa/internal/usecase"
)

var (
	indexForce   bool
	indexWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index every PDF in a directory",
	Long: `Chunk, embed and store a vector index for every PDF under the directory
(default: index.dir from config). Papers that already have an index are
skipped unless --force is given or the bolt backend reports them stale.

Examples:
  paperqa index                 # Index the configured upload directory
  paperqa index ./papers -w 4   # Index ./papers with 4 workers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "reindex papers that already have an index")
	indexCmd.Flags().IntVarP(&indexWorkers, "workers", "w", 0, "papers indexed in parallel (default from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := cfg.Index.Dir
	if len(args) > 0 {
		path = args[0]
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	rt, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	indexUC, err := rt.Indexer()
	if err != nil {
		return err
	}

	workers := cfg.Index.Workers
	if indexWorkers > 0 {
		workers = indexWorkers
	}

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	opts := usecase.IndexOptions{
		Force:   indexForce,
		Workers: workers,
		OnStart: func(total int) {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		},
		OnProgress: func(r usecase.FileResult) {
			barMu.Lock()
			defer barMu.Unlock()

			bar.Clear()
			name := filepath.Base(r.Path)
			switch {
			case r.Err != nil:
				fmt.Printf("%s ✗ %v\n", name, r.Err)
			case r.Skipped:
				fmt.Printf("%s (already indexed)\n", name)
			default:
				fmt.Printf("%s → %d vectors\n", name, r.Vectors)
			}
			bar.Add(1)
		},
	}

	result, err := indexUC.IndexDir(cmd.Context(), path, opts)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Papers indexed:  %d\n", result.FilesIndexed)
	fmt.Printf("  Papers skipped:  %d (already indexed)\n", result.FilesSkipped)
	fmt.Printf("  Papers failed:   %d\n", result.FilesFailed)
	fmt.Printf("  Vectors created: %d\n", result.VectorsCreated)
	fmt.Printf("\nIndex stored in: %s\n", storeLocation())
	return nil
}

func storeLocation() string {
	cfg := GetConfig()
	switch cfg.Store.Backend {
	case "bolt":
		return cfg.Store.BoltPath
	case "memory":
		return "memory (discarded on exit)"
	default:
		return cfg.Store.VectorDir
	}
}
