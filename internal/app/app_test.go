package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	coreconfig "github.com/m3rciful/exambot/core/config"
	coretelegram "github.com/m3rciful/exambot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

func noLogger(*coreconfig.Config) error { return nil }

func testConfig(t *testing.T, driver string) *Config {
	t.Helper()
	cfg := &Config{}
	cfg.Core.Telegram.Token = "123:abc"
	cfg.Core.Telegram.AdminID = 42
	cfg.Storage.Driver = driver
	cfg.Storage.DataFile = filepath.Join(t.TempDir(), "state", "data.json")
	cfg.Storage.Database.Path = filepath.Join(t.TempDir(), "exambot.db")
	cfg.Exam.Timezone = "UTC"
	if err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestBuildSelectsStorage(t *testing.T) {
	for _, driver := range []string{StorageFile, StorageSQLite} {
		t.Run(driver, func(t *testing.T) {
			a, err := build(testConfig(t, driver), noLogger)
			if err != nil {
				t.Fatal(err)
			}
			defer a.store.Close()
			if _, err := a.store.AddRegistration(context.Background(), 1, "Ivan", "+7999", 1); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestRunOptionsAndLifecycle(t *testing.T) {
	a, err := build(testConfig(t, StorageFile), noLogger)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Config != &a.cfg.Core || opts.Registry == nil || len(opts.Routes) == 0 || len(opts.Middlewares) == 0 {
		t.Fatalf("options = %+v", opts)
	}
	var hasCallbacks bool
	for _, r := range opts.Routes {
		if r.Endpoint == tele.OnCallback {
			hasCallbacks = true
		}
	}
	if !hasCallbacks {
		t.Fatal("callback route missing")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rt := coretelegram.Runtime{Registry: opts.Registry}
	if err := opts.OnStart(ctx, rt); err != nil {
		t.Fatal(err)
	}
	if err := opts.OnStop(ctx, rt); err != nil {
		t.Fatal(err)
	}
}
