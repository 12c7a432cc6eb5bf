package main

import (
	"context"
	"flag"
	"os"

	"github.com/samber/oops"

	"github.com/openkcm/compliance-hub/internal/async"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/utils/cmd"
)

const AppName = "scheduler"

// Run enqueues the periodic tasks until the scheduler receives a stop signal.
func Run(ctx context.Context, cfg *config.Config) error {
	cronJob, err := async.New(cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to create the scheduler")
	}

	err = cronJob.RunScheduler()
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to start the scheduler job")
	}

	err = cronJob.Shutdown(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "failed to shutdown the scheduler")
	}

	log.Info(ctx, "shutting down scheduler")

	return nil
}

func main() {
	flag.Parse()

	os.Exit(cmd.RunFuncWithSignalHandling(Run, cmd.RunFlags{Env: "TASK_SCHEDULER"}))
}
