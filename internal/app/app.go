// Package app assembles the exam bot: configuration, storage, services and
// the Telegram runtime hooks.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/exambot/core/bootstrap"
	coreconfig "github.com/m3rciful/exambot/core/config"
	coredatabase "github.com/m3rciful/exambot/core/database"
	"github.com/m3rciful/exambot/core/logger"
	coretelegram "github.com/m3rciful/exambot/core/telegram"
	"github.com/m3rciful/exambot/internal/bot"
	"github.com/m3rciful/exambot/internal/cleanup"
	"github.com/m3rciful/exambot/internal/exam"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/store"
	"github.com/m3rciful/exambot/internal/store/migrations"
)

// App is a bootstrapped bot ready to be run by the core runtime.
type App struct {
	cfg       *Config
	store     store.Store
	messenger *bot.Messenger
	handlers  *bot.Handlers
	cleaner   *cleanup.Cleaner

	stopCleanup context.CancelFunc
	cleanupDone chan struct{}
}

// Bootstrap initializes logging and storage and wires the services.
func Bootstrap(cfg *Config) (*App, error) {
	return build(cfg, nil)
}

func build(cfg *Config, loggerInit func(*coreconfig.Config) error) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver != StorageFile {
		d := cfg.Storage.Database
		dbCfg = &d
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:     &cfg.Core,
		Database:   dbCfg,
		Migrations: migrations.FS,
		LoggerInit: loggerInit,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var st store.Store
	if res.DB != nil {
		st = store.NewSQL(res.DB)
		logger.Info(ctx, "app", "storage.ready",
			slog.String("driver", cfg.Storage.Driver),
			slog.String("target", cfg.Storage.Database.Target()),
		)
	} else {
		fileStore, err := store.OpenFile(ctx, cfg.Storage.DataFile)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		st = fileStore
		logger.Info(ctx, "app", "storage.ready",
			slog.String("driver", StorageFile),
			slog.String("path", fileStore.Path()),
		)
	}

	loc := cfg.Exam.Location()
	adminID := cfg.Core.Telegram.AdminID
	if adminID == 0 {
		logger.Warn(ctx, "app", "admin.missing")
	}

	messenger := bot.NewMessenger(adminID)
	svc := exam.New(exam.Options{
		Store:    st,
		Invites:  invite.New(messenger, st, loc),
		Notifier: messenger,
	})

	return &App{
		cfg:       cfg,
		store:     st,
		messenger: messenger,
		handlers:  bot.New(bot.Options{Service: svc, AdminID: adminID}),
		cleaner:   cleanup.New(st, messenger, loc),
	}, nil
}

// TelegramRunOptions describes routes, middlewares and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg)
	return coretelegram.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Core, a.handlers.Limited),
		Routes:      a.handlers.Routes(reg),
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	a.messenger.Attach(rt.Bot, rt.Dispatcher)

	cctx, cancel := context.WithCancel(ctx)
	a.stopCleanup = cancel
	a.cleanupDone = make(chan struct{})
	go func() {
		defer close(a.cleanupDone)
		a.cleaner.Run(cctx, a.cfg.Exam.CleanupInterval())
	}()
	logger.Info(ctx, "app", "cleanup.started", slog.Duration("interval", a.cfg.Exam.CleanupInterval()))
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.stopCleanup != nil {
		a.stopCleanup()
		<-a.cleanupDone
	}
	a.messenger.Detach()
	if err := a.store.Close(); err != nil {
		logger.Error(ctx, "app", "storage.close_failed", logger.Err(err))
		return err
	}
	return nil
}
