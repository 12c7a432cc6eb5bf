package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/openkcm/common-sdk/pkg/status"
	"github.com/samber/oops"

	root "github.com/openkcm/compliance-hub"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/db/dsn"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/utils/cmd"
)

var (
	gracefulShutdownSec     = flag.Int64("graceful-shutdown", 1, "graceful shutdown seconds")
	gracefulShutdownMessage = flag.String("graceful-shutdown-message", "Graceful shutdown in %d seconds",
		"graceful shutdown message")
)

const (
	healthStatusTimeoutS = 5 * time.Second
	postgresDriverName   = "pgx"
)

// Run starts the status server and the hub API server, and blocks until
// ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	err := commoncfg.UpdateConfigVersion(&cfg.BaseConfig, root.BuildVersion)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to update the version configuration")
	}

	// OpenTelemetry initialisation
	err = otlp.Init(ctx, &cfg.Application, &cfg.Telemetry, &cfg.Logger)
	if err != nil {
		return oops.In("main").
			Wrapf(err, "Failed to load the telemetry")
	}

	if cfg.Status.Enabled {
		startStatusServer(ctx, cfg)
	}

	rt, err := daemon.NewRuntime(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating runtime")
	}

	s, err := daemon.NewHubServer(ctx, rt)
	if err != nil {
		rt.Close(ctx)
		return oops.In("main").Wrapf(err, "creating hub server")
	}

	err = s.Start(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "starting hub api server")
	}

	log.Info(ctx, "Hub API server started", slog.String("address", cfg.HTTP.Address))

	<-ctx.Done()

	err = s.Close(context.WithoutCancel(ctx))
	if err != nil {
		return oops.In("main").Wrapf(err, "closing server")
	}

	return nil
}

func startStatusServer(ctx context.Context, cfg *config.Config) {
	liveness := status.WithLiveness(
		health.NewHandler(
			health.NewChecker(health.WithDisabledAutostart()),
		),
	)

	healthOptions := []health.Option{
		health.WithDisabledAutostart(),
		health.WithTimeout(healthStatusTimeoutS),
		health.WithStatusListener(func(ctx context.Context, state health.State) {
			log.Info(ctx, "readiness status changed", slog.String("status", string(state.Status)))
		}),
	}

	dsnFromConfig, err := dsn.FromDBConfig(cfg.Database)
	if err != nil {
		log.Error(ctx, "Could not load DSN from database config", err)
	} else {
		healthOptions = append(healthOptions,
			health.WithDatabaseChecker(
				postgresDriverName,
				dsnFromConfig,
			),
		)
	}

	readiness := status.WithReadiness(
		health.NewHandler(
			health.NewChecker(healthOptions...),
		),
	)

	go func() {
		err := status.Start(ctx, &cfg.BaseConfig, liveness, readiness)
		if err != nil {
			log.Error(ctx, "Failure on the status server", err)

			_ = syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
		}
	}()
}

// main is the entry point for the application. It is intentionally kept small
// because it is hard to test, which would lower test coverage.
func main() {
	flag.Parse()

	exitCode := cmd.RunFuncWithSignalHandling(Run, cmd.RunFlags{
		GracefulShutdownSec:     *gracefulShutdownSec,
		GracefulShutdownMessage: *gracefulShutdownMessage,
		Env:                     "API_SERVER",
	})
	os.Exit(exitCode)
}
