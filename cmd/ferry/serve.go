package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgrewal/ferry"
	"github.com/mgrewal/ferry/config"
	"github.com/mgrewal/ferry/filesystem"
	ferryhttp "github.com/mgrewal/ferry/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the ferry HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5710, "HTTP server port")
	serveCmd.Flags().String("mode", "static", "server mode (store, static, spa)")
	serveCmd.Flags().Int("chunk-size", ferry.DefaultChunkSize, "streaming chunk size in bytes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	// The storage root comes from trusted configuration; request paths
	// are the untrusted input and go through the resolver per request.
	rootDir := filepath.Clean(cfg.Storage.Root)

	if err := os.MkdirAll(rootDir, 0o750); err != nil {
		return fmt.Errorf("create storage root: %w", err)
	}

	root, err := os.OpenRoot(rootDir)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	defer func() { _ = root.Close() }()

	storage := filesystem.NewStore(root)

	mode, err := ferry.ParseServerMode(cfg.Server.Mode)
	if err != nil {
		return fmt.Errorf("parse server mode: %w", err)
	}

	service, err := ferry.NewService(storage, mode)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	handler := ferryhttp.NewHandler(&ferryhttp.HandlerConfig{
		Mode:          mode,
		ChunkSize:     cfg.Stream.ChunkSize,
		HighWaterMark: cfg.Stream.HighWaterMark,
		CORS:          cfg.CORS,
	}, service)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", cfg.Server.Port, "mode", mode, "root", rootDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case <-ctx.Done():
		slog.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
