package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"

	"github.com/pershin-daniil/icscal/internal/calendar"
	"github.com/pershin-daniil/icscal/internal/cyu"
	"github.com/pershin-daniil/icscal/internal/rest"
	"github.com/pershin-daniil/icscal/internal/telegram"
	"github.com/pershin-daniil/icscal/pkg/config"
	"github.com/pershin-daniil/icscal/pkg/crypt"
	"github.com/pershin-daniil/icscal/pkg/logger"
	"github.com/pershin-daniil/icscal/pkg/notifier"
	"github.com/pershin-daniil/icscal/pkg/pgstore"
	"github.com/pershin-daniil/icscal/pkg/service"
	"github.com/pershin-daniil/icscal/pkg/worker"
)

const version = "0.1.0"

func main() {
	log := logger.New()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Panic(err)
	}
	if err = cfg.Validate(); err != nil {
		log.Panic(err)
	}
	logger.SetLevel(log, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store, err := pgstore.New(ctx, log, cfg.PgDSN)
	if err != nil {
		log.Panic(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warnf("err during closing store: %v", err)
		}
	}()
	if err = store.Migrate(migrate.Up); err != nil {
		log.Panic(err)
	}
	encrypter, err := crypt.New(cfg.ICSAuthKey)
	if err != nil {
		log.Panic(err)
	}

	var tg *telegram.Telegram
	var notify service.Notifier = notifier.New(log)
	if cfg.Telegram.Token != "" {
		bot, err := telegram.NewBot(cfg.Telegram.Token)
		if err != nil {
			log.Panic(err)
		}
		tg = telegram.New(log, bot, cfg.Telegram.ChatID)
		notify = tg
	}

	app := service.NewCalendarService(log, cyu.New(log, cfg.CyuBaseURL), store, encrypter, notify)
	if cfg.Google.CredentialsFile != "" {
		lister, err := calendar.NewGoogleLister(ctx, cfg.Google.CredentialsFile)
		if err != nil {
			log.Panic(err)
		}
		app = app.WithOverlay(calendar.New(log, lister, cfg.Google.CalendarID))
	}

	sweeper, err := worker.New(log, app, cfg.SweepCron, cfg.TokenMaxIdle)
	if err != nil {
		log.Panic(err)
	}
	server := rest.New(log, app, cfg.Address, version, cfg.JWTSecret, cfg.SessionTTL)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
		<-sigCh
		log.Info("Received signal, shutting down...")
		cancel()
	}()
	var wg sync.WaitGroup
	if tg != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.WithFields(logrus.Fields{"address": cfg.Address}).Error(err)
			cancel()
		}
	}()
	wg.Wait()
	log.Info("Server stopped")
}
