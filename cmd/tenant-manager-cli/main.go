package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/cmd/tenant-manager-cli/commands"
	"github.com/openkcm/compliance-hub/internal/async"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/utils/cmd"
)

func run(ctx context.Context, cfg *config.Config) error {
	rt, err := daemon.NewRuntime(ctx, cfg)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to initialise the runtime")
	}
	defer rt.Close(ctx)

	loaded, err := rt.LoadTenants(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "Failed to load tenant connections")
	}

	log.Debug(ctx, "Tenant connections loaded", slog.Int("count", loaded))

	var queue *async.App

	defer func() {
		if queue != nil {
			_ = queue.Shutdown(ctx)
		}
	}()

	rootCmd := SetupCommands(ctx, rt.Manager, func() (commands.Enqueuer, error) {
		if queue != nil {
			return queue, nil
		}

		app, err := async.New(cfg)
		if err != nil {
			return nil, err
		}

		queue = app

		return queue, nil
	})

	err = rootCmd.ExecuteContext(ctx)
	if err != nil {
		return oops.In("main").Wrapf(err, "error executing command")
	}

	return nil
}

// SetupCommands creates and configures all CLI commands and flags
func SetupCommands(ctx context.Context, m *manager.Manager, queue commands.QueueFunc) *cobra.Command {
	factory := commands.NewCommandFactory(m, queue)

	return factory.NewRootCmdWithCommands(ctx)
}

func main() {
	exitCode := cmd.RunFuncWithSignalHandling(run, cmd.RunFlags{
		Env:   "TENANT_MANAGER_CLI",
		Paths: []string{".", "/etc/tenant-manager-cli"},
	})
	os.Exit(exitCode)
}
