package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchTopK  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show raw similarity matches for a query",
	Long: `Embed the query and list the nearest index entries with their similarity,
without assembling context or calling the generative model. Ends with a short
quality summary, which helps judge whether the embedding model suits the
documents.

Examples:
  docqa search -q "termination notice period" -k 10`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 10, "number of results")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Printf("Index: %d entries, model %s, dimension %d\n", svc.index.Len(), svc.index.Model(), svc.index.Dimension())
	fmt.Printf("Query: %q\n", searchQuery)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := svc.retrieve.Retrieve(cmd.Context(), searchQuery, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	elapsed := time.Since(start)

	if len(results) == 0 {
		fmt.Println("No results above the score threshold.")
		return nil
	}

	total := 0.0
	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Chunk.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		total += r.Score

		fmt.Printf("%d. [%s %.3f] %s chunk %d (chars %d-%d)\n", i+1, rating(r.Score), r.Score, r.Chunk.Source, r.Chunk.Position, r.Chunk.Start, r.Chunk.End)
		fmt.Printf("   %s\n\n", string(preview))
	}

	avg := total / float64(len(results))
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("  Average similarity: %.3f\n", avg)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
	fmt.Printf("  Latency:            %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Status:             %s\n", rating(avg))
	return nil
}

func rating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}
