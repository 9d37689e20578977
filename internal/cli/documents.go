package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	RunE:  runDocuments,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
}

func runDocuments(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	docs, err := svc.docs.ListDocs()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	if len(docs) == 0 {
		fmt.Println("No documents ingested yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILENAME\tCHUNKS\tUNITS\tINGESTED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", d.ID, d.Filename, d.Chunks, d.Units, d.IngestedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
