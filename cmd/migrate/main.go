package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"board_mirror/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Manages the schema of the sqlite thread store (STORAGE_BACKEND=sqlite).

Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  redo        Roll back and re-apply the latest version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/mirror.db"), "path to sqlite database")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		log.Fatalf("setup: %v", err)
	}

	ctx := context.Background()
	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "up-one":
		err = goose.UpByOneContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "redo":
		err = goose.RedoContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	case "version":
		err = goose.VersionContext(ctx, db, ".")
	case "reset":
		err = goose.ResetContext(ctx, db, ".")
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
