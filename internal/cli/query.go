package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieve the passages most similar to the question, assemble them into a
bounded context and ask the generative model for a cited answer.

Examples:
  docqa query -q "What does the contract say about termination?"
  docqa query -q "summarize chapter 2" -k 8 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	resp, err := svc.query.Answer(cmd.Context(), queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("could not answer: %w", err)
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	switch resp.Status {
	case domain.StatusEmptyIndex, domain.StatusNoRelevantInformation:
		color.Yellow("%s", resp.Answer)
		return nil
	}

	fmt.Println(resp.Answer)
	if len(resp.Citations) > 0 {
		fmt.Println()
		color.Cyan("Sources:")
		for _, c := range resp.Citations {
			fmt.Printf("  [%d] %s (chunk %d, chars %d-%d, score %.3f)\n", c.Ref, c.Source, c.Position, c.Start, c.End, c.Score)
		}
	}
	return nil
}
