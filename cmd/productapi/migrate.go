package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Strob0t/productapi/internal/adapter/postgres"
	"github.com/Strob0t/productapi/internal/config"
)

// runMigrate dispatches migrate subcommands (up, down, version).
func runMigrate(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printMigrateHelp()
		return nil
	}

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Migrations applied.")
		return nil
	case "down":
		return runMigrateDown(ctx, cfg, args[1:])
	case "version":
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	default:
		printMigrateHelp()
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}
}

func runMigrateDown(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *steps < 1 {
		return fmt.Errorf("--steps must be >= 1")
	}

	if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Rolled back %d migration(s).\n", *steps)
	return nil
}

func printMigrateHelp() {
	fmt.Fprintf(os.Stderr, `Usage: productapi [flags] migrate <command> [options]

Commands:
  up                 Apply all pending migrations
  down [--steps N]   Roll back the last N migrations (default 1)
  version            Print the current schema version
  help               Show this help message

Examples:
  productapi --dsn postgres://localhost/productapi migrate up
  productapi migrate down --steps 2
`)
}
