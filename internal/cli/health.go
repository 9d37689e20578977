package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the model services and the index",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	status := svc.health.Check(cmd.Context())

	report := func(name string, ok bool, detail string) {
		if ok {
			color.Green("✓ %s", name)
			return
		}
		color.Red("✗ %s: %s", name, detail)
	}
	report("embedding service ("+svc.embedder.ModelName()+")", status.EmbeddingReachable, status.EmbeddingError)
	report("generation service ("+svc.generator.ModelName()+")", status.GenerationReachable, status.GenerationError)
	fmt.Printf("Index: %d entries, %d documents\n", status.IndexEntries, status.Documents)

	if !status.Healthy() {
		return fmt.Errorf("unhealthy")
	}
	return nil
}
