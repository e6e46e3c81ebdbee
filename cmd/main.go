/*
Package main is the entry point for the signaling relay.

It parses the command line, loads configuration, initializes the global logging system,
sets up the HTTP server and the signaling Manager, and gracefully handles operating
system interrupt signals (SIGINT, SIGTERM) by closing every live connection.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"signalroom/internal/app/signaling"
	"signalroom/internal/app/storage"
	"signalroom/internal/configs"
	"signalroom/internal/handler"
	"signalroom/internal/pkg/limiter"
	"signalroom/internal/pkg/logx"
)

var (
	flagPort int
	flagEnv  string
)

// rootCmd starts the relay server.
var rootCmd = &cobra.Command{
	Use:   "signalroom",
	Short: "WebRTC signaling relay with rooms, offers, answers, ICE candidates and danmaku",
	Long: `signalroom relays WebRTC signaling messages between a room host and its guests
over a single WebSocket endpoint, and serves the list of open rooms over HTTP.

Flags override environment variables, which override defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configs.LoadConfig(configs.Options{
			Environment: flagEnv,
			Port:        flagPort,
		})
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		return run(cfg)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (env PORT, default 8080)")
	rootCmd.Flags().StringVar(&flagEnv, "env", "", "environment: development or production (env ENVIRONMENT)")
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *configs.AppConfig) error {
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Bool("cover_storage", cfg.StorageEnabled()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var covers *storage.CoverService
	if cfg.StorageEnabled() {
		store, err := storage.NewStorageService(ctx, storage.ServiceConfig{
			S3BucketName:      cfg.S3BucketName,
			S3Endpoint:        cfg.S3Endpoint,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return err
		}
		covers = storage.NewCoverService(store, cfg.S3PublicBaseURL, cfg.CoverURLTTL)
	}

	upgradeLimiter := limiter.NewIPRateLimiter(rate.Limit(cfg.UpgradeRate), cfg.UpgradeBurst)
	defer upgradeLimiter.Close()

	manager := signaling.NewManager()

	router := handler.Router(&handler.AppDeps{
		Manager:        manager,
		Config:         cfg,
		Covers:         covers,
		UpgradeLimiter: upgradeLimiter,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logx.Info(fmt.Sprintf("Signaling relay starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logx.Fatal(err, "Server failed to start")
	case <-ctx.Done():
	}

	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// hijacked WebSocket connections are not tracked by http.Server
	manager.Shutdown()

	logx.Info("Server gracefully stopped.")
	return nil
}
