package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/httpapi"
)

var (
	serveAddr      string
	serveEphemeral bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API exposing /ingest, /query, /health, /documents and
/progress/:id. The index is loaded at startup; a corrupt index aborts startup.

Examples:
  docqa serve
  docqa serve --addr :9000 --ephemeral`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveEphemeral, "ephemeral", false, "keep the index in memory only")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	svc, err := buildServices(cfg, GetRootDir(), buildOptions{ephemeral: serveEphemeral})
	if err != nil {
		return err
	}
	defer svc.Close()

	slog.Info("starting docqa",
		"addr", addr,
		"index_dir", svc.indexDir,
		"index_entries", svc.index.Len(),
		"embedding_model", svc.embedder.ModelName(),
		"generation_model", svc.generator.ModelName(),
	)
	prewarm(cmd.Context(), svc)

	server := httpapi.NewServer(httpapi.Options{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimitMB:  cfg.Server.BodyLimitMB,
		AllowOrigins: cfg.Server.AllowOrigins,
		AccessLog:    true,
	}, svc.ingest, svc.query, svc.health, svc.docs, svc.tracker)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case s := <-sig:
		slog.Info("shutting down", "signal", s.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if !serveEphemeral {
		if err := svc.index.Save(svc.indexDir); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}
	}
	return nil
}

// prewarm pings both services so a misconfigured model shows up in the log
// before the first request. Failures are not fatal.
func prewarm(ctx context.Context, svc *services) {
	status := svc.health.Check(ctx)
	if status.Healthy() {
		slog.Info("external services reachable", "documents", status.Documents)
		return
	}
	if !status.EmbeddingReachable {
		slog.Warn("embedding service unreachable", "error", status.EmbeddingError)
	}
	if !status.GenerationReachable {
		slog.Warn("generation service unreachable", "error", status.GenerationError)
	}
}
