package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/pgexport"
)

var (
	exportDatabaseURL string
	exportTable       string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy the index to another store",
}

var exportPgvectorCmd = &cobra.Command{
	Use:   "pgvector",
	Short: "Copy the index into a Postgres table with pgvector",
	Long: `Create the vector extension and target table if needed, then upsert every
index entry in a single transaction. Re-running the export updates rows in place.

Examples:
  DATABASE_URL=postgres://localhost/docqa docqa export pgvector
  docqa export pgvector --database-url postgres://... --table my_chunks`,
	RunE: runExportPgvector,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportPgvectorCmd)
	exportPgvectorCmd.Flags().StringVar(&exportDatabaseURL, "database-url", "", "Postgres connection string (default from config or DATABASE_URL)")
	exportPgvectorCmd.Flags().StringVar(&exportTable, "table", "", "target table (default from config)")
}

func runExportPgvector(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	dbURL := cfg.Export.DatabaseURL
	if exportDatabaseURL != "" {
		dbURL = exportDatabaseURL
	}
	if dbURL == "" {
		return fmt.Errorf("no database URL: set --database-url, export.database_url or DATABASE_URL")
	}
	table := cfg.Export.Table
	if exportTable != "" {
		table = exportTable
	}

	svc, err := buildServices(cfg, GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	pool, err := pgexport.Connect(cmd.Context(), dbURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	exporter, err := pgexport.New(pool, pgexport.Config{
		Table:     table,
		BatchSize: cfg.Export.BatchSize,
		Metric:    cfg.Index.Metric,
	})
	if err != nil {
		return err
	}

	n, err := exporter.Export(cmd.Context(), svc.index)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	color.Green("✓ Exported %d entries to %s", n, table)
	return nil
}
