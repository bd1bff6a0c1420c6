package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/oddsaudit/internal/api"
	"github.com/rewired-gh/oddsaudit/internal/config"
	"github.com/rewired-gh/oddsaudit/internal/cronrunner"
	"github.com/rewired-gh/oddsaudit/internal/feed"
	"github.com/rewired-gh/oddsaudit/internal/logger"
	"github.com/rewired-gh/oddsaudit/internal/models"
	"github.com/rewired-gh/oddsaudit/internal/pipeline"
	"github.com/rewired-gh/oddsaudit/internal/review"
	"github.com/rewired-gh/oddsaudit/internal/storage"
	"github.com/rewired-gh/oddsaudit/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

const shutdownTimeout = 10 * time.Second

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.MaxReviews, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feedClient := feed.NewClient(
		cfg.Feed.BaseURL,
		cfg.Feed.Timeout,
		feed.ClientConfig{
			MaxRetries:          cfg.Feed.MaxRetries,
			RetryDelayBase:      cfg.Feed.RetryDelayBase,
			MaxIdleConns:        cfg.Feed.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.Feed.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.Feed.IdleConnTimeout,
			MockFallback:        cfg.Feed.MockFallback,
		},
	)

	engine := review.NewEngine(review.Config{Workers: cfg.Review.Workers})

	// notifier stays a nil interface when Telegram is off
	var notifier pipeline.Notifier
	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		telegramClient.SetFeaturedProvider(func() ([]models.ArchivedReview, error) {
			return store.ListLatest(storage.ListFilter{FeaturedOnly: true, UsableOnly: true, Limit: cfg.Schedule.MaxNotify})
		})
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	pipe := pipeline.New(feedClient, engine, store, notifier, pipeline.Config{
		LeagueIDs:    cfg.Feed.LeagueIDs,
		CycleTimeout: cfg.Schedule.CycleTimeout,
		Cooldown:     cfg.Schedule.Cooldown,
		MaxNotify:    cfg.Schedule.MaxNotify,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		handler := api.NewHandler(engine, store, cfg.Server.MaxBodyBytes)
		srv = &http.Server{
			Addr: cfg.Server.Addr,
			Handler: api.NewRouter(handler, api.RouterOptions{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				RequestTimeout: cfg.Server.RequestTimeout,
			}),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			logger.Info("HTTP API listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed: %v", err)
				cancel()
			}
		}()
	}

	var runner *cronrunner.Runner
	if cfg.Schedule.Enabled {
		runner = cronrunner.New(ctx)
		if _, err := runner.Add(cfg.Schedule.Cron, pipe.Tick); err != nil {
			logger.Fatal("Failed to schedule review cycle: %v", err)
		}
		logger.Info("Starting review service (schedule: %s, leagues: %v, workers: %d)",
			cfg.Schedule.Cron, cfg.Feed.LeagueIDs, cfg.Review.Workers)

		logger.Debug("Running initial review cycle")
		pipe.Tick(ctx)
		runner.Start()
	}

	<-ctx.Done()

	if runner != nil {
		runner.Stop()
	}
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown: %v", err)
		}
	}
	logger.Info("Service stopped")
}
