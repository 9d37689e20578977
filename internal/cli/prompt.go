package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	promptQuery string
	promptTopK  int
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent to the model",
	Long: `Render the answer prompt for a question, with its retrieved context, without
calling the generative model. Useful for checking what the model sees or for
pasting into another tool.

Examples:
  docqa prompt -q "How does billing work?"`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().IntVarP(&promptTopK, "top-k", "k", 0, "number of passages to retrieve (default from config)")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	prompt, err := svc.query.Prompt(cmd.Context(), promptQuery, promptTopK)
	if err != nil {
		return fmt.Errorf("failed to render prompt: %w", err)
	}
	fmt.Println(prompt)
	return nil
}
