// Package main runs PostgreSQL schema migrations for the NutriPlan engine.
// SQLite deployments migrate through GORM at startup and do not need it.
package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/migrations"
	"github.com/nutriplan/engine/pkg/logger"
)

const usage = `Usage: migrate [flags] <command> [arg]

Commands:
  up            apply all pending migrations
  down [n]      roll back n migrations (default 1)
  reset         roll back every migration
  version       print the current version
  status        print applied and pending versions as JSON
  force <v>     set the version without running migrations
`

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, command string, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations target postgres, database.driver is %q", cfg.Database.Driver)
	}

	log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	m, err := migrations.New(db, cfg.Database.Database, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		return m.Up()
	case "down":
		n := 1
		if len(args) > 0 {
			if n, err = strconv.Atoi(args[0]); err != nil || n < 1 {
				return fmt.Errorf("down expects a positive step count, got %q", args[0])
			}
		}
		if n == 1 {
			return m.Down()
		}
		return m.Steps(-n)
	case "reset":
		return m.Reset()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "status":
		status, err := m.Status()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "force":
		if len(args) < 1 {
			return fmt.Errorf("force expects a version")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return m.Force(v)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
