// Package main is the CLI entry point for focusfade.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/focusfade/focusfade/internal/api"
	"github.com/focusfade/focusfade/internal/config"
	"github.com/focusfade/focusfade/internal/daemon"
	"github.com/focusfade/focusfade/internal/domain"
	"github.com/focusfade/focusfade/internal/infra"
	"github.com/focusfade/focusfade/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	// Local overrides for tokens and keys; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusfade",
	Short: "Focus monitor - tracks where your attention actually goes",
	Long: `focusfade watches the active application through a local screen-capture
service, keeps per-app focus time for the running session, asks a
language model which apps are relevant to your focus task, and serves
the results over a local HTTP API for the dashboard.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor and the dashboard API",
	Long: `Starts the background monitoring loop and the HTTP API.
The monitor polls the capture service while a session is active;
sessions are started and stopped through the API.`,
	RunE: runServe,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check capture service and host status",
	Long:  `Shows whether the screen-capture service is running and basic host health.`,
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logger := createLogger(cfg.DataDir)
	defer func() { _ = logger.Sync() }()

	logger.Info("starting focusfade",
		zap.String("version", Version),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.String("ai_provider", cfg.AI.Provider))

	// Session archive is best effort. Without it the live session still
	// works; only history persistence is lost.
	archive := openArchive(cfg.DataDir, logger)
	if archive != nil {
		defer func() { _ = archive.Close() }()
	}

	logStore := infra.NewFileLogStore(cfg.LogFile)
	tracker := usecase.NewTracker(logStore, archive, logger)

	// The AI API key rests encrypted in the archive: a configured key
	// is persisted there, and later runs can omit it from config/env.
	if archive != nil {
		key, err := infra.SyncAPIKey(archive, cfg.AI.APIKey)
		if err != nil {
			logger.Warn("failed to persist ai api key", zap.Error(err))
		}
		cfg.AI.APIKey = key
	}

	model := infra.NewModelClient(cfg.AI, logger)
	classifier := usecase.NewRelevanceClassifier(model, logger)
	summarizer := usecase.NewActivitySummarizer(model, logger)

	capture := infra.NewScreenpipeClient(cfg.Capture.URL)
	probe := infra.NewProcessProbe(cfg.Capture.ProcessName)
	notifier := buildNotifier(cfg.Notify, logger)

	monitor := daemon.NewMonitor(
		daemon.MonitorConfig{
			PollInterval:   cfg.Focus.PollInterval,
			NotifyInterval: cfg.Focus.NotifyInterval,
			SummarizeEvery: cfg.Focus.SummarizeEvery,
			QueryLimit:     cfg.Capture.QueryLimit,
			ContentType:    cfg.Capture.ContentType,
		},
		tracker, capture, classifier, summarizer, notifier, logger,
	)

	handler := api.NewHandler(
		tracker, classifier, summarizer,
		logStore, archive, probe,
		cfg.Focus.DefaultTask, logger,
	)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		_ = monitor.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}

	// Flush the in-progress session so its stats survive restarts.
	if _, err := tracker.Stop(time.Now()); err != nil && !errors.Is(err, usecase.ErrSessionInactive) {
		logger.Warn("failed to stop session on shutdown", zap.Error(err))
	}

	logger.Info("focusfade stopped")
	return nil
}

// openArchive sets up the encrypted session archive. A missing or
// broken archive degrades to in-memory sessions only.
func openArchive(dataDir string, logger *zap.Logger) domain.SessionArchive {
	keyProvider := infra.NewFileKeyProvider(dataDir)
	key, err := infra.EnsureKey(keyProvider)
	if err != nil {
		logger.Warn("session archive disabled: no encryption key", zap.Error(err))
		return nil
	}

	archive, err := infra.NewSQLCipherArchive(dataDir, key)
	if err != nil {
		logger.Warn("session archive disabled: cannot open database", zap.Error(err))
		return nil
	}
	return archive
}

// buildNotifier assembles the alert fan-out. The log notifier is
// always present so alerts are never dropped.
func buildNotifier(settings config.NotifySettings, logger *zap.Logger) domain.Notifier {
	notifiers := []domain.Notifier{infra.NewLogNotifier(logger)}

	if settings.DiscordToken != "" && settings.DiscordChannelID != "" {
		discord, err := infra.NewDiscordNotifier(settings.DiscordToken, settings.DiscordChannelID)
		if err != nil {
			logger.Warn("discord notifier disabled", zap.Error(err))
		} else {
			notifiers = append(notifiers, discord)
		}
	}

	if len(notifiers) == 1 {
		return notifiers[0]
	}
	return infra.MultiNotifier(notifiers)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	probe := infra.NewProcessProbe(cfg.Capture.ProcessName)
	snap, err := probe.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}

	fmt.Println("\n=== focusfade Status ===")
	if snap.CaptureRunning {
		fmt.Printf("Capture service (%s): RUNNING\n", cfg.Capture.ProcessName)
	} else {
		fmt.Printf("Capture service (%s): NOT RUNNING\n", cfg.Capture.ProcessName)
		fmt.Println("  Focus tracking needs the capture service. Start it first.")
	}
	fmt.Printf("Host: %d CPUs, %.1f%% memory used\n", snap.CPUCount, snap.MemUsedPercent)
	fmt.Printf("API address: %s\n", cfg.ListenAddr)
	fmt.Printf("Data directory: %s\n", cfg.DataDir)
	fmt.Println("========================")
	return nil
}

func createLogger(dataDir string) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout", filepath.Join(dataDir, "focusfade.log")}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focusfade %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
