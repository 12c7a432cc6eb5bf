package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/db"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/utils/cmd"
)

const (
	defaultGracefulShutdown = 1
	defaultTarget           = "all"
	defaultType             = "schema"
	targetOptions           = "shared, all, or tenant"
	typeOptions             = "data or schema"
)

var (
	gracefulShutdownSec     = flag.Int64("graceful-shutdown", defaultGracefulShutdown, "graceful shutdown seconds")
	gracefulShutdownMessage = flag.String(
		"graceful-shutdown-message",
		"Graceful shutdown in %d seconds",
		"graceful shutdown message",
	)
	version       = flag.Int64("version", 0, "run migration until targeted version")
	rollback      = flag.Bool("r", false, "run down migrations (rollback)")
	target        = flag.String("target", defaultTarget, "migration target ("+targetOptions+")")
	migrationType = flag.String("type", defaultType, "migration type ("+typeOptions+")")
	autoMigrate   = flag.Bool("auto", false, "create the shared tables from the models instead of running goose")
)

// migrationFromFlags rejects unknown flag values before any connection is opened.
func migrationFromFlags() (db.Migration, error) {
	req := db.Migration{
		Downgrade: *rollback,
		Type:      db.MigrationType(*migrationType),
		Target:    db.MigrationTarget(*target),
	}

	switch req.Type {
	case db.SchemaMigration, db.DataMigration:
	default:
		return req, errs.Wrapf(db.ErrUnsupportedMigration, "type "+*migrationType)
	}

	switch req.Target {
	case db.SharedTarget, db.TenantTarget, db.AllTarget:
	default:
		return req, errs.Wrapf(db.ErrUnsupportedMigration, "target "+*target)
	}

	return req, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	req, err := migrationFromFlags()
	if err != nil {
		return err
	}

	rt, err := daemon.NewRuntime(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating runtime")
	}
	defer rt.Close(ctx)

	if *autoMigrate {
		log.Info(ctx, "Auto migrating shared models")

		return db.AutoMigrateShared(ctx, rt.Tenancy)
	}

	log.Info(ctx, "Running migrations",
		slog.String("type", string(req.Type)),
		slog.String("target", string(req.Target)),
		slog.Bool("rollback", req.Downgrade),
	)

	if *version != 0 {
		err = rt.Migrator.MigrateTo(ctx, req, *version)
	} else {
		err = rt.Migrator.MigrateToLatest(ctx, req)
	}
	if err != nil {
		return err
	}

	return nil
}

// main is the entry point for the application. It is intentionally kept small
// because it is hard to test, which would lower test coverage.
func main() {
	flag.Parse()

	exitCode := cmd.RunFuncWithSignalHandling(run, cmd.RunFlags{
		GracefulShutdownSec:     *gracefulShutdownSec,
		GracefulShutdownMessage: *gracefulShutdownMessage,
		Env:                     "DB_MIGRATOR",
	})
	os.Exit(exitCode)
}
