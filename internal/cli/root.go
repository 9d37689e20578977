package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa ingests documents into a local vector index and answers questions
about them with a generative model, citing the passages it used.

Examples:
  docqa ingest ./papers            # index a directory of documents
  docqa query -q "what is RLHF?"   # ask a question
  docqa serve                      # start the HTTP API`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// setup runs before every command: .env, config, validation, logging.
func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	if err := loaded.Validate().Err(); err != nil {
		return err
	}
	cfg = loaded

	_, err = logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format, verbose)
	return err
}

func loadConfig() (*config.Config, error) {
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		rootDir = wd
	}

	load := func() (*config.Config, error) { return config.LoadFromDir(rootDir) }
	if cfgFile != "" {
		load = func() (*config.Config, error) { return config.Load(cfgFile) }
	}
	c, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return c, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./docqa.yaml, then ./.docqa/config.yaml)")
	flags.StringVarP(&rootDir, "dir", "d", "", "working root for config and index (default current directory)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
