package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"paperqa/internal/app"
	"paperqa/internal/domain"
)

var (
	askQuestion string
	askDryRun   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <paper-id>",
	Short: "Answer a question from one paper, with page citations",
	Long: `Retrieve candidate excerpts, keep those matching the configured keywords
(falling back to all of them), and ask the model for a grounded answer.
With --dry-run the assembled prompt is printed instead of sent.

Examples:
  paperqa ask 2504.13079v1 -q "Which loss function is used?"
  paperqa ask 2504.13079v1 -q "Which loss function is used?" --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "query", "q", "", "question (required)")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompt without calling the model")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	paperID := args[0]

	rt, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	if askDryRun {
		prompt, _, err := rt.Asker(nil).Prompt(cmd.Context(), paperID, askQuestion)
		if err != nil {
			return describe(paperID, err)
		}
		fmt.Printf("=== system ===\n%s\n\n=== user ===\n%s\n", prompt.System, prompt.User)
		return nil
	}

	answerer, err := rt.Answerer()
	if err != nil {
		return err
	}
	ans, err := rt.Asker(answerer).Ask(cmd.Context(), paperID, askQuestion)
	if err != nil {
		return describe(paperID, err)
	}

	fmt.Println(ans.Text)
	if len(ans.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range ans.Citations {
			fmt.Printf("  p. %d  %s\n", c.Page, c.TextSnippet)
		}
	}
	return nil
}

// describe turns domain errors into the messages a CLI user can act on.
func describe(paperID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotIndexed):
		return fmt.Errorf("paper %s is not indexed; run 'paperqa index' first", paperID)
	case errors.Is(err, domain.ErrServiceUnavailable):
		return fmt.Errorf("model service unavailable, try again later")
	default:
		return err
	}
}
