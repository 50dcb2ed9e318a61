package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"paperqa/internal/adapter/analyzer"
	"paperqa/internal/adapter/chunker"
	"paperqa/internal/adapter/extractor"
	"paperqa/internal/domain"
)

var (
	chunkMax     int
	chunkOverlap int
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <pdf>",
	Short: "Show how a PDF would be chunked",
	Long: `Extract a PDF's pages and split them into token windows without embedding
anything. Prints the chunk count and the first chunk.

Example:
  paperqa chunk uploads/2504.13079v1.pdf --max 300 --overlap 30`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)
	chunkCmd.Flags().IntVar(&chunkMax, "max", 0, "max tokens per chunk (default from config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "tokens shared by consecutive chunks (default from config)")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	maxTokens := cfg.Chunk.MaxTokens
	if chunkMax > 0 {
		maxTokens = chunkMax
	}
	overlap := cfg.Chunk.Overlap
	if chunkOverlap >= 0 {
		overlap = chunkOverlap
	}

	tok, err := analyzer.NewTokenizer(cfg.Chunk.Encoding)
	if err != nil {
		return err
	}
	chk := chunker.NewTokenChunker(maxTokens, overlap, tok)

	pages, err := extractor.NewPDFExtractor().ExtractPages(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	var chunks []domain.Chunk
	tokens := 0
	for _, p := range pages {
		tokens += tok.CountTokens(chunker.NormalizeWhitespace(p.Text))
		chunks = append(chunks, chk.ChunkPage(p.Text, p.Number)...)
	}

	fmt.Printf("Pages:  %d\n", len(pages))
	fmt.Printf("Tokens: %d\n", tokens)
	fmt.Printf("Chunks: %d\n", len(chunks))
	if len(chunks) == 0 {
		return nil
	}

	data, err := json.MarshalIndent(chunks[0], "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
