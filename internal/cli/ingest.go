package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/fs"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Add documents to the index",
	Long: `Extract, chunk and embed documents, then append them to the index.
Directories are walked using the configured include and exclude globs.
Documents whose content is already indexed are skipped.

Examples:
  docqa ingest notes.md report.pdf
  docqa ingest ./papers`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func collectFiles(cfg walkConfig, args []string) ([]port.FileInfo, error) {
	walker := fs.NewWalker(cfg.includes, cfg.excludes, cfg.maxSize)

	var files []port.FileInfo
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("path does not exist: %w", err)
		}
		if !info.IsDir() {
			files = append(files, port.FileInfo{Path: path, Size: info.Size()})
			continue
		}
		found, err := walker.Walk(path)
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

type walkConfig struct {
	includes []string
	excludes []string
	maxSize  int64
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	files, err := collectFiles(walkConfig{
		includes: cfg.Ingest.Includes,
		excludes: cfg.Ingest.Excludes,
		maxSize:  int64(cfg.Ingest.MaxFileMB) * 1024 * 1024,
	}, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		color.Yellow("No matching documents found.")
		return nil
	}

	svc, err := buildServices(cfg, GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer svc.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	start := time.Now()
	processed := 0
	onFile := func(usecase.FileResult) {
		processed++
		bar.Set(processed)
		if elapsed := time.Since(start); processed < len(files) && elapsed > 0 {
			rate := float64(processed) / elapsed.Seconds()
			eta := time.Duration(float64(len(files)-processed)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
		}
	}

	batch, err := svc.ingest.IngestFiles(cmd.Context(), files, onFile)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	color.Green("✓ Ingested %d documents (%d chunks) in %s", batch.Ingested, batch.Chunks, formatDuration(time.Since(start)))
	if batch.Duplicates > 0 {
		color.Yellow("  Skipped %d already indexed", batch.Duplicates)
	}
	if batch.Failed > 0 {
		color.Red("  Failed: %d", batch.Failed)
		for _, f := range batch.Files {
			if f.Err != nil && !errors.Is(f.Err, domain.ErrDuplicateDocument) {
				fmt.Printf("  - %s: %v\n", f.Path, f.Err)
			}
		}
	}
	fmt.Printf("\nIndex: %d entries in %s\n", svc.index.Len(), svc.indexDir)
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
