package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	contextQuery  string
	contextTopK   int
	contextOutput string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the context assembled for a question",
	Long: `Retrieve and assemble the context block for a question without calling the
generative model. The block is printed as JSON with its citations.

Examples:
  docqa context -q "termination clause"
  docqa context -q "chapter 2" -k 10 -o context.json`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVarP(&contextQuery, "query", "q", "", "question (required)")
	contextCmd.Flags().IntVarP(&contextTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	contextCmd.Flags().StringVarP(&contextOutput, "output", "o", "", "output file (default: stdout)")
	contextCmd.MarkFlagRequired("query")
}

func runContext(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	block, err := svc.query.Context(cmd.Context(), contextQuery, contextTopK)
	if err != nil {
		return fmt.Errorf("failed to assemble context: %w", err)
	}

	output, err := json.MarshalIndent(block, "", "  ")
	if err != nil {
		return err
	}
	if contextOutput == "" {
		fmt.Println(string(output))
		return nil
	}
	if err := os.WriteFile(contextOutput, output, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Printf("Context written to %s (%d passages, %d/%d units)\n", contextOutput, len(block.Passages), block.UsedUnits, block.BudgetUnits)
	return nil
}
