package commands

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/internal/async/tasks"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
)

// NewActivateTenantCmd creates a Cobra command that activates a tenant
// after payment, either in process or through the worker queue.
//
//nolint:funlen
func (f *CommandFactory) NewActivateTenantCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a tenant after payment. Usage: tm activate -s [slug] -f [framework id] [--async]",
		Long: "Activate a PENDING_PAYMENT tenant and distribute its first framework." +
			" Usage: tm activate --slug [slug] --framework [framework id] --level [customization level] [--async]",
		Args: cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			slug, err := requiredSlug(cmd)
			if err != nil {
				return err
			}

			fwID, err := frameworkID(cmd, false)
			if err != nil {
				return err
			}

			level, _ := cmd.Flags().GetString("level")
			queued, _ := cmd.Flags().GetBool("async")

			if queued {
				return f.enqueue(cmd, func() (*asynq.Task, error) {
					return tasks.NewActivateTenantTask(cmd.Context(), slug, tasks.FrameworkRequest{
						FrameworkID: fwID,
						Level:       model.CustomizationLevel(level),
					})
				})
			}

			result, err := f.tm.ActivateTenant(cmd.Context(), slug, fwID, model.CustomizationLevel(level))
			if errors.Is(err, manager.ErrDistributionFailed) {
				cmd.PrintErrf("Tenant %s activated but the framework was not distributed: %v\n", slug, err)
				return err
			}

			if err != nil {
				cmd.PrintErrf("Failed to activate tenant %s: %v\n", slug, err)
				return err
			}

			cmd.Printf("Tenant activated: %s\n", slug)

			if result.Stats != nil {
				return FormatJSON(result.Stats, cmd)
			}

			return nil
		},
	}

	addSlugFlag(cmd)
	cmd.Flags().StringP("framework", "f", "", "Framework to distribute on activation")
	cmd.Flags().StringP("level", "l", "", "Customization level, defaults to the plan level")
	cmd.Flags().Bool("async", false, "Enqueue the activation for the task worker")

	cmd.SetContext(ctx)

	return cmd
}
