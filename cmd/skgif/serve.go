package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cessda/skgif-api/internal/api"
)

var (
	serveAddr      string
	serveNoRebuild bool
)

// preloadTimeout bounds the vocabulary downloads done before listening.
const preloadTimeout = time.Minute

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.listen_addr)")
	serveCmd.Flags().BoolVar(&serveNoRebuild, "no-rebuild", false, "Serve the existing index instead of rebuilding it from JSONL")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the SKG-IF API",
	Long: `Serve products and topics as SKG-IF JSON-LD.

On startup the study index is rebuilt from the JSONL file, the topic
vocabularies of the configured languages are preloaded and the ELSST export
is loaded. The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	mustEnsureDataDir(cfg)

	if serveAddr != "" {
		cfg.Server.ListenAddr = serveAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db := mustOpenDatabase(cfg, logger)
	defer db.Close()

	if !serveNoRebuild {
		n, err := db.RebuildFromJSONL(cfg.StudiesPath())
		if err != nil {
			exitWithError(ExitDataError, "rebuilding study index: %v", err)
		}
		logger.Info("study index rebuilt", slog.String("path", cfg.StudiesPath()), slog.Int("studies", n))
	}

	svc := mustBuildServices(cfg, logger, reg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	preloadCtx, cancel := context.WithTimeout(ctx, preloadTimeout)
	if err := svc.vocab.Preload(preloadCtx, cfg.Vocabulary.Preload); err != nil {
		logger.Warn("vocabulary preload incomplete", slog.Any("error", err))
	}
	cancel()

	srv := api.New(db, svc.transformer, api.Config{
		BaseURL:         cfg.Server.APIBaseURL,
		Prefix:          cfg.Server.APIPrefix,
		DefaultPageSize: cfg.Server.DefaultPageSize,
		MaxPageSize:     cfg.Server.MaxPageSize,
	},
		api.WithLogger(logger),
		api.WithVocabularies(svc.vocab),
		api.WithTopics(mustLoadTopics(cfg, logger)),
		api.WithMetrics(reg, reg),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Server.ListenAddr), slog.String("base_url", cfg.Server.APIBaseURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			exitWithError(ExitError, "serving: %v", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	if err := svc.vocab.Save(); err != nil {
		logger.Warn("saving vocabulary cache failed", slog.Any("error", err))
	}
	return nil
}
