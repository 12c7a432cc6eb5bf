package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/async"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/utils/cmd"
)

const AppName = "worker"

var (
	gracefulShutdownSec     = flag.Int64("graceful-shutdown", 1, "graceful shutdown seconds")
	gracefulShutdownMessage = flag.String("graceful-shutdown-message", "Graceful shutdown in %d seconds",
		"graceful shutdown message")
)

// Run processes tenant tasks until the worker receives a stop signal.
func Run(ctx context.Context, cfg *config.Config) error {
	worker, err := async.New(cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to create the worker")
	}

	rt, err := daemon.NewRuntime(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "creating runtime")
	}
	defer rt.Close(context.WithoutCancel(ctx))

	loaded, err := rt.LoadTenants(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "loading tenant connections")
	}

	log.Info(ctx, "Tenant connections loaded", slog.Int("count", loaded))

	worker.RegisterTasks(ctx, async.TenantTasks(rt.Manager))

	err = worker.RunWorker(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to start the worker")
	}

	err = worker.Shutdown(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "%s", async.ErrClientShutdown.Error())
	}

	log.Info(ctx, "shutting down worker")

	return nil
}

func main() {
	flag.Parse()

	exitCode := cmd.RunFuncWithSignalHandling(Run, cmd.RunFlags{
		GracefulShutdownSec:     *gracefulShutdownSec,
		GracefulShutdownMessage: *gracefulShutdownMessage,
		Env:                     "TASK_WORKER",
	})
	os.Exit(exitCode)
}
