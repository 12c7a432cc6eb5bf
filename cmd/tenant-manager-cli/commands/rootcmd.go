package commands

import (
	"context"

	"github.com/spf13/cobra"

	cliUtils "github.com/openkcm/compliance-hub/utils/cli"
)

func (f *CommandFactory) NewRootCmd(ctx context.Context) *cobra.Command {
	return cliUtils.NewRootCmdWithInfinitySleep(
		ctx,
		"tm",
		"Tenant Manager CLI Application",
		"Tenant Manager is a CLI tool to operate the tenants of the compliance hub, supporting: "+
			"creating tenants with or without payment, "+
			"activating, suspending, resuming and cancelling tenants, "+
			"subscribing tenants to frameworks and checking their versions, "+
			"validating template frameworks and seeding the plan catalog.",
	)
}

// NewRootCmdWithCommands builds the root command with every subcommand attached.
func (f *CommandFactory) NewRootCmdWithCommands(ctx context.Context) *cobra.Command {
	rootCmd := f.NewRootCmd(ctx)

	rootCmd.AddCommand(
		f.NewCreateTenantCmd(ctx),
		f.NewCreatePendingTenantCmd(ctx),
		f.NewActivateTenantCmd(ctx),
		f.NewDeletePendingTenantCmd(ctx),
		f.NewSuspendTenantCmd(ctx),
		f.NewResumeTenantCmd(ctx),
		f.NewCancelTenantCmd(ctx),
		f.NewGetTenantCmd(ctx),
		f.NewListTenantsCmd(ctx),
		f.NewSubscribeCmd(ctx),
		f.NewCheckVersionCmd(ctx),
		f.NewValidateFrameworkCmd(ctx),
		f.NewSeedPlansCmd(ctx),
	)

	return rootCmd
}
