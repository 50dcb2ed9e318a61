package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"paperqa/internal/app"
	"paperqa/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <paper-id>",
	Short: "Show the excerpts closest to a question",
	Long: `Embed the question and list the nearest chunks of one indexed paper,
highest cosine similarity first. No answer is generated.

Examples:
  paperqa query 2504.13079v1 -q "loss function"
  paperqa query 2504.13079v1 -q "datasets" -k 10 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

// ScoredChunkResult is a simplified result for CLI output.
type ScoredChunkResult struct {
	ID    int     `json:"id"`
	Page  int     `json:"page"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	paperID := args[0]

	rt, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	chunks, err := rt.Retriever().Retrieve(cmd.Context(), paperID, queryText, topK)
	if err != nil {
		return describe(paperID, err)
	}

	results := make([]ScoredChunkResult, 0, len(chunks))
	for _, c := range chunks {
		results = append(results, ScoredChunkResult{
			ID:    c.ID,
			Page:  c.PageNum,
			Score: c.Score,
			Text:  c.Excerpt(),
		})
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("\n[%d] page %d, chunk %d (score: %.4f)\n", i+1, r.Page, r.ID, r.Score)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println(usecase.Snippet(r.Text, 300))
	}
	return nil
}
