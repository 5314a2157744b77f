package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/config"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/logging"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/server"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/version"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "shellff",
	Short:   "Shellff catalog relevance and index-refresh pipeline",
	Long:    "Shellff scores and personalizes catalog search results and keeps downstream ranking signals fresh by watching catalog mutations.",
	Version: version.String(),
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog pipeline server",
	RunE:  runServe,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild [region...]",
	Short: "Schedule a full index rebuild and dispatch it immediately",
	RunE:  runRebuild,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Str("version", version.String()).Msg("Shellff catalog pipeline starting")

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	if err := srv.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown cleanup failed")
	}

	logger.Info().Msg("Shellff catalog pipeline stopped")
	return nil
}

// runRebuild wires the pipeline without the HTTP server, schedules a
// manual-rebuild task for every release, dispatches once, and exits.
func runRebuild(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("cleanup failed")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	scheduled, err := srv.Watcher().TriggerFullRebuild(ctx, args, nil)
	if err != nil {
		return fmt.Errorf("trigger rebuild: %w", err)
	}

	dispatched := srv.Watcher().DispatchNow(ctx)
	logger.Info().Int("scheduled", scheduled).Int("dispatched", dispatched).Msg("rebuild complete")
	return nil
}
