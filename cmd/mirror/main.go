package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"board_mirror/internal/bot"
	"board_mirror/internal/config"
	"board_mirror/internal/cursor"
	"board_mirror/internal/fetcher"
	"board_mirror/internal/logging"
	"board_mirror/internal/model"
	"board_mirror/internal/scheduler"
	"board_mirror/internal/storage"
	"board_mirror/internal/syncer"
)

const defaultStorageRoot = "./data/threads"

func main() {
	once := flag.Bool("once", false, "run a single catalog and archive round, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	base, closeLog := logging.New(logging.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: os.Stderr,
	})
	defer func() { _ = closeLog() }()

	var alerts logging.Relay
	log := slog.New(logging.Fanout(base.Handler(), logging.NewAlertHandler(&alerts, slog.LevelError)))

	cursors, err := cursor.NewFileStore(cfg.CursorPath)
	if err != nil {
		log.Error("open cursor", "path", cfg.CursorPath, "error", err)
		os.Exit(1)
	}

	store, err := openStorage(cfg, cursors)
	if err != nil {
		log.Error("open storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	policy, err := syncer.ParseClaimPolicy(cfg.ClaimPolicy)
	if err != nil {
		log.Error("parse claim policy", "error", err)
		os.Exit(1)
	}

	source := fetcher.New(&http.Client{}, fetcher.Options{
		Board:     cfg.Board,
		APIBase:   cfg.APIBaseURL,
		ImageBase: cfg.ImageBaseURL,
		Timeout:   cfg.HTTPTimeout,
	})
	mirror := syncer.New(source, store, cursors, log, syncer.Options{
		Shards: cfg.ShardCount,
		Policy: policy,
	})
	sched := scheduler.New(mirror, cfg.SyncInterval, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting mirror",
		"board", cfg.Board,
		"backend", cfg.StorageBackend,
		"shards", cfg.ShardCount,
		"policy", policy,
		"interval", cfg.SyncInterval,
	)

	if *once {
		if err := sched.RunOnce(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	if cfg.TelegramBotToken == "" {
		sched.Run(ctx)
		log.Info("mirror stopped")
		return
	}

	b, err := bot.New(cfg.TelegramBotToken, store, cursors, sched, cfg, base)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}
	alerts.Attach(b)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("mirror stopped")
}

// openStorage opens the configured backend. For the directory backend the
// root is taken from STORAGE_ROOT, then from the cursor, then the default,
// and the chosen root is recorded in the cursor.
func openStorage(cfg *config.Config, cursors *cursor.FileStore) (storage.Storage, error) {
	if cfg.StorageBackend == config.BackendSQLite {
		if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, err
			}
		}
		return storage.NewSQLite(cfg.DatabasePath)
	}

	cur, err := cursors.Update(func(c *model.SyncCursor) {
		switch {
		case cfg.StorageRoot != "":
			c.StorageRoot = cfg.StorageRoot
		case c.StorageRoot == "":
			c.StorageRoot = defaultStorageRoot
		}
	})
	if err != nil {
		return nil, err
	}
	return storage.NewDir(cur.StorageRoot)
}
