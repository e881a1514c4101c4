package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/cwhitley/propmail/internal/config"
	"github.com/cwhitley/propmail/internal/domain"
	"github.com/cwhitley/propmail/internal/ingest"
	"github.com/cwhitley/propmail/internal/mailbox"
	"github.com/cwhitley/propmail/internal/notifier/telegram"
	"github.com/cwhitley/propmail/internal/parser"
	"github.com/cwhitley/propmail/internal/repository/sqlite"
	"github.com/cwhitley/propmail/internal/scheduler"
)

func main() {
	// Load .env file if present (ignores error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	runOnce := flag.Bool("once", false, "Run a single ingest cycle and exit")
	flag.Parse()

	// Setup logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"poll_interval", cfg.PollInterval,
		"mailbox", cfg.Mailbox.Address,
		"telegram_enabled", cfg.Telegram.Enabled,
	)

	// Ensure data directory exists
	dataDir := filepath.Dir(cfg.DatabasePath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Initialize repository
	repo, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	logger.Info("database initialized", "path", cfg.DatabasePath)

	// Initialize mailbox client
	mail := mailbox.New(cfg.Mailbox, logger)

	// Initialize Telegram notifier
	notifier, err := telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Enabled)
	if err != nil {
		logger.Error("failed to initialize Telegram notifier", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline
	pipeline := ingest.New(repo, parser.New(), logger)

	// Create scheduler
	sched := scheduler.NewScheduler(cfg, mail, pipeline, notifier, logger)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		sched.Stop()
	}()

	if *runOnce {
		logger.Info("running single ingest cycle")
		if err := sched.RunOnce(ctx); err != nil {
			logger.Error("ingest cycle failed", "error", err)
			os.Exit(1)
		}
		logger.Info("ingest cycle complete")
		return
	}

	// Chat commands for querying the catalog
	controller, err := telegram.NewBotController(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Enabled)
	if err != nil {
		logger.Error("failed to initialize Telegram commands", "error", err)
		os.Exit(1)
	}
	controller.SetCallbacks(statusCallback(cfg, repo), statsCallback(repo))
	controller.StartCommandListener(ctx)

	logger.Info("starting scheduler", "poll_interval", cfg.PollInterval)
	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler failed to start", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutdown complete")
}

func statusCallback(cfg *config.Config, repo *sqlite.Repository) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		n, err := repo.CountProperties(ctx)
		if err != nil {
			return "Status unavailable: " + err.Error()
		}
		return fmt.Sprintf("🏠 <b>propmail</b>\n\n<b>Catalog:</b> %d listings\n<b>Poll interval:</b> %s",
			n, cfg.PollInterval)
	}
}

func statsCallback(repo *sqlite.Repository) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		counts, err := repo.CountBySource(ctx)
		if err != nil {
			return "Stats unavailable: " + err.Error()
		}
		var sb strings.Builder
		sb.WriteString("📊 <b>Catalog by source</b>\n")
		for _, src := range domain.Sources {
			sb.WriteString(fmt.Sprintf("\n<b>%s:</b> %d", src, counts[src]))
		}
		return sb.String()
	}
}
