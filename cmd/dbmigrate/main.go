package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/willemschots/newsletter/internal"
	"github.com/willemschots/newsletter/internal/db"
	"github.com/willemschots/newsletter/internal/db/migrate"
	"github.com/willemschots/newsletter/migrations"
)

const helpText = `Usage: dbmigrate [sqlite_file] [up|status]

up (default)  applies all pending migrations.
status        lists applied and pending migrations without changing anything.`

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "up"
	switch len(args) {
	case 1:
	case 2:
		cmd = args[1]
	default:
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	sqlDB, err := db.OpenSQLite(args[0], true)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open database: %v\n", err)
		return 1
	}
	defer sqlDB.Close()

	switch cmd {
	case "up":
		ran, err := migrate.Up(ctx, sqlDB, migrations.FS, migrate.Metadata{
			AppVersion: internal.CurrentBuild.Revision,
			BuildTime:  internal.CurrentBuild.RevisionTime,
		})
		if err != nil {
			fmt.Fprintf(stderr, "failed to run migrations: %v\n", err)
			return 1
		}

		for _, m := range ran {
			fmt.Fprintf(stdout, "applied %d: %s\n", m.Sequence, m.Filename)
		}
	case "status":
		report, err := migrate.Status(ctx, sqlDB, migrations.FS)
		if err != nil {
			fmt.Fprintf(stderr, "failed to get migration status: %v\n", err)
			return 1
		}

		for _, m := range report.Applied {
			fmt.Fprintf(stdout, "applied %d: %s (%s)\n", m.Sequence, m.Filename, m.Metadata.AppVersion)
		}
		for _, name := range report.Pending {
			fmt.Fprintf(stdout, "pending: %s\n", name)
		}
	default:
		fmt.Fprintln(stderr, helpText)
		return 1
	}

	return 0
}
