package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/AlibekovAA/defis-users/internal/common/bootstrap"
	"github.com/AlibekovAA/defis-users/internal/common/config"
	"github.com/AlibekovAA/defis-users/internal/common/db"
	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

const usage = `usage: migrate [flags] <up|down|status>

Applies, rolls back or lists the users schema migrations against the store
selected by DATABASE_DRIVER.
`

func main() {
	unique := flag.Bool("unique-username", false, "enforce unique usernames after migrating up")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadMigrateConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stdout, "migrate", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, log, cfg, flag.Arg(0), *unique); err != nil {
		log.Errorf("migrate %s failed: %v", flag.Arg(0), err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, cfg config.MigrateConfig, command string, unique bool) error {
	store, sqlDB, err := bootstrap.OpenMigrationDB(cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	switch command {
	case "up":
		if err := db.Migrate(ctx, log, store, sqlDB); err != nil {
			return err
		}
		return db.ApplyUsernameConstraint(ctx, store, sqlDB, unique)
	case "down":
		return db.MigrateDown(ctx, log, store, sqlDB)
	case "status":
		states, err := db.MigrationStatus(ctx, store, sqlDB)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED\tAPPLIED AT\tPATH")
		for _, s := range states {
			appliedAt := "-"
			if s.Applied {
				appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%t\t%s\t%s\n", s.Version, s.Applied, appliedAt, s.Path)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
