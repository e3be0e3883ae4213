package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/collector"
	"StrategyLab/internal/config"
	"StrategyLab/internal/logger"
	"StrategyLab/internal/notifier"
	"StrategyLab/internal/publisher"
	"StrategyLab/internal/recorder"
	"StrategyLab/internal/scheduler"
	"StrategyLab/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Init("strategylab", "")
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init("strategylab", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("config", cfgPath).Msg("StrategyLab starting")

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher, err := collector.New(cfg.DataSource.Provider, cfg.Proxy, cfg.DataSource.RequestsPerSecond)
	if err != nil {
		log.Fatal().Err(err).Msg("init fetcher")
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	// Init recorder
	rec, err := recorder.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("init recorder failed, using noop")
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	pub, err := publisher.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Warn().Err(err).Msg("init kafka publisher failed, using noop")
		pub = publisher.NoopPublisher{}
	}
	defer pub.Close()

	an := analysis.NewAnalyzer(fetcher, cfg.Portfolio.Workers, recorder.AsSink(rec), pub)

	// Telegram is optional.
	var (
		tn    *notifier.TelegramNotifier
		notif notifier.Notifier
	)
	if cfg.Telegram.BotToken != "" {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("init telegram failed, notifications disabled")
			tn = nil
		} else {
			notif = tn
		}
	}

	sched := scheduler.NewScheduler(ctx, cfg, an, notif, rec)
	if err := sched.Register(cfg.Schedule.PortfolioCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running watchlist now")
		go sched.RunNow()
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(cfg, an, rec).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	}
	log.Info().Msg("StrategyLab stopped")
}
