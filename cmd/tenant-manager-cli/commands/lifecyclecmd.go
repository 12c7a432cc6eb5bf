package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewDeletePendingTenantCmd creates a Cobra command that removes a tenant
// whose store was never provisioned.
func (f *CommandFactory) NewDeletePendingTenantCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-pending",
		Short: "Delete a tenant awaiting payment. Usage: tm delete-pending -s [slug]",
		Long:  "Delete a tenant awaiting payment. Usage: tm delete-pending --slug [slug]",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			slug, err := requiredSlug(cmd)
			if err != nil {
				return err
			}

			err = f.tm.DeletePendingTenant(cmd.Context(), slug)
			if err != nil {
				cmd.PrintErrf("Failed to delete pending tenant %s: %v\n", slug, err)
				return err
			}

			cmd.Printf("Pending tenant deleted: %s\n", slug)

			return nil
		},
	}

	addSlugFlag(cmd)
	cmd.SetContext(ctx)

	return cmd
}

func (f *CommandFactory) NewSuspendTenantCmd(ctx context.Context) *cobra.Command {
	return f.newLifecycleCmd(ctx, "suspend", "Suspend an active tenant", true,
		func(ctx context.Context, slug, reason string) error {
			return f.tm.SuspendTenant(ctx, slug, reason)
		})
}

func (f *CommandFactory) NewResumeTenantCmd(ctx context.Context) *cobra.Command {
	return f.newLifecycleCmd(ctx, "resume", "Resume a suspended tenant", false,
		func(ctx context.Context, slug, _ string) error {
			return f.tm.ResumeTenant(ctx, slug)
		})
}

func (f *CommandFactory) NewCancelTenantCmd(ctx context.Context) *cobra.Command {
	return f.newLifecycleCmd(ctx, "cancel", "Cancel the subscription of a tenant", true,
		func(ctx context.Context, slug, reason string) error {
			return f.tm.CancelTenant(ctx, slug, reason)
		})
}

// newLifecycleCmd builds a command moving one tenant through its lifecycle.
func (f *CommandFactory) newLifecycleCmd(
	ctx context.Context,
	use, short string,
	withReason bool,
	op func(ctx context.Context, slug, reason string) error,
) *cobra.Command {
	usage := "tm " + use + " -s [slug]"
	if withReason {
		usage += " -r [reason]"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short + ". Usage: " + usage,
		Long:  short + ". Usage: " + usage,
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			slug, err := requiredSlug(cmd)
			if err != nil {
				return err
			}

			reason, _ := cmd.Flags().GetString("reason")

			err = op(cmd.Context(), slug, reason)
			if err != nil {
				cmd.PrintErrf("Failed to %s tenant %s: %v\n", use, slug, err)
				return err
			}

			tenant, err := f.tm.GetTenant(cmd.Context(), slug)
			if err != nil {
				return err
			}

			cmd.Printf("Tenant %s is now %s\n", slug, tenant.SubscriptionStatus)

			return nil
		},
	}

	addSlugFlag(cmd)

	if withReason {
		cmd.Flags().StringP("reason", "r", "", "Reason recorded in the audit log")
	}

	cmd.SetContext(ctx)

	return cmd
}
