package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"BalanceSentinel/internal/config"
	"BalanceSentinel/internal/notifier"
	"BalanceSentinel/internal/scheduler"
	"BalanceSentinel/internal/server"
	"BalanceSentinel/internal/store"
	"BalanceSentinel/internal/telemetry"
	"BalanceSentinel/internal/upstream"
	"BalanceSentinel/internal/vault"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Info("BalanceSentinel starting...")

	// .env first so config env overrides see it.
	if err := godotenv.Load(); err == nil {
		log.Info("loaded .env")
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}

	v, err := vault.New(cfg.Security.EncryptionKey)
	if err != nil {
		log.WithError(err).Fatal("init vault")
	}

	st, err := store.New(cfg.Database.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("init store")
	}
	defer st.Close()

	fetcher := upstream.NewClient(
		cfg.Upstream.AccountURL,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		cfg.Proxy,
	)
	log.WithField("source", fetcher.Name()).Info("upstream client ready")

	var alerts notifier.Notifier = notifier.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		alerts = notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		log.Info("telegram alerts enabled")
	}

	metrics := telemetry.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(ctx, st, v, fetcher, alerts, metrics, scheduler.SettingsFromConfig(cfg))
	if err := sched.Register(cfg.Schedule.BatchCron); err != nil {
		log.WithError(err).Fatal("register batch task")
	}
	sched.Start()
	defer sched.Stop()

	// Hot reload of the cadence knobs.
	go func() {
		err := config.Watch(ctx, cfgPath, func(next *config.Config) {
			sched.UpdateSettings(scheduler.SettingsFromConfig(next))
		})
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("config watcher stopped")
		}
	}()

	srv := server.New(st, v, sched, metrics)
	go func() {
		if err := srv.Run(ctx, cfg.Server.ListenAddr); err != nil {
			log.WithError(err).Error("http server")
			cancel()
		}
	}()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, executing batch pass now")
		go sched.RunBatch()
	}

	log.Info("BalanceSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
	log.Info("BalanceSentinel stopped")
}
