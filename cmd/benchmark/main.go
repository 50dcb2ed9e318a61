package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"paperqa/config"
	"paperqa/internal/app"
	"paperqa/internal/eval"
	"paperqa/internal/logging"
)

func main() {
	root := flag.String("root", ".", "Directory holding paperqa.yaml")
	golden := flag.String("golden", "", "Golden set YAML (paper_id, cases)")
	topK := flag.Int("k", 0, "Chunks retrieved per question (default: golden set top_k, then 5)")
	verbose := flag.Bool("v", false, "Print every question")
	flag.Parse()

	if *golden == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -golden golden.yaml [-root .] [-k 5]")
		fmt.Println("\nReports, over the labelled questions of one indexed paper:")
		fmt.Println("  precision@k, recall@k, MRR and NDCG of the retrieved pages")
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.LoadFromDir(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	gs, err := eval.LoadGoldenSet(*golden)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading golden set: %v\n", err)
		os.Exit(1)
	}

	rt, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	report, err := eval.Run(context.Background(), rt.Retriever(), gs, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Paper: %s\n", report.PaperID)
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Questions: %d, top-k: %d\n\n", len(report.Cases), report.TopK)

	if *verbose {
		for i, c := range report.Cases {
			fmt.Printf("%d. %s\n", i+1, c.Question)
			fmt.Printf("   pages %v  P=%.2f R=%.2f RR=%.2f top=%.3f\n\n", c.Retrieved, c.Precision, c.Recall, c.RR, c.TopScore)
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("QUALITY METRICS:")
	fmt.Printf("  Precision@%d: %.3f\n", report.TopK, report.MeanPrecision)
	fmt.Printf("  Recall@%d:    %.3f\n", report.TopK, report.MeanRecall)
	fmt.Printf("  MRR:          %.3f\n", report.MRR)
	fmt.Printf("  NDCG:         %.3f\n", report.MeanNDCG)

	switch {
	case report.MRR > 0.7:
		fmt.Println("  Status: GOOD - relevant pages rank near the top")
	case report.MRR > 0.4:
		fmt.Println("  Status: OK - relevant pages are usually retrieved")
	default:
		fmt.Println("  Status: POOR - check chunk size or the embedding model")
	}
}
