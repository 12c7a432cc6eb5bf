package commands

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/internal/async/tasks"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
)

type bulkLine struct {
	Slug  string `json:"slug"`
	Error string `json:"error,omitempty"`
	Stats any    `json:"stats,omitempty"`
}

// NewSubscribeCmd creates a Cobra command that subscribes one or more
// tenants to a framework.
//
//nolint:funlen
func (f *CommandFactory) NewSubscribeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscribe",
		Short: "Subscribe tenants to a framework. Usage: tm subscribe -s [slug,...] -f [framework id]",
		Long: "Subscribe tenants to a framework under their plan rules." +
			" Usage: tm subscribe --slug [slug] --slug [slug] --framework [framework id] --level [level] [--async]",
		Args: cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			slugs, _ := cmd.Flags().GetStringSlice("slug")
			if len(slugs) == 0 {
				return ErrTenantSlugRequired
			}

			fwID, err := frameworkID(cmd, true)
			if err != nil {
				return err
			}

			rawLevel, _ := cmd.Flags().GetString("level")
			level := model.CustomizationLevel(rawLevel)

			queued, _ := cmd.Flags().GetBool("async")
			if queued {
				for _, slug := range slugs {
					err = f.enqueue(cmd, func() (*asynq.Task, error) {
						return tasks.NewDistributeFrameworkTask(cmd.Context(), slug, tasks.FrameworkRequest{
							FrameworkID: fwID,
							Level:       level,
						})
					})
					if err != nil {
						return err
					}
				}

				return nil
			}

			if len(slugs) == 1 {
				stats, err := f.dm.Subscribe(cmd.Context(), slugs[0], fwID, level)
				if err != nil {
					cmd.PrintErrf("Failed to subscribe tenant %s: %v\n", slugs[0], err)
					return err
				}

				return FormatJSON(stats, cmd)
			}

			result := f.dm.BulkDistribute(cmd.Context(), fwID, slugs, level)

			lines := make([]bulkLine, 0, len(slugs))
			for _, s := range result.Successful {
				lines = append(lines, bulkLine{Slug: s.Slug, Stats: s.Stats})
			}

			for _, failure := range result.Failed {
				lines = append(lines, bulkLine{Slug: failure.Slug, Error: failure.Err.Error()})
			}

			err = FormatJSON(lines, cmd)
			if err != nil {
				return err
			}

			if len(result.Failed) > 0 {
				return ErrSubscriptionsFailed
			}

			return nil
		},
	}

	cmd.Flags().StringSliceP("slug", "s", nil, "Tenant slug, repeatable")
	cmd.Flags().StringP("framework", "f", "", "Framework id")
	cmd.Flags().StringP("level", "l", "", "Customization level, defaults to the plan level")
	cmd.Flags().Bool("async", false, "Enqueue one distribution task per tenant")
	markRequired(cmd, "slug", "framework")

	cmd.SetContext(ctx)

	return cmd
}

// NewCheckVersionCmd creates a Cobra command that compares tenant copies
// with their templates.
func (f *CommandFactory) NewCheckVersionCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-version",
		Short: "Check framework versions. Usage: tm check-version -s [slug] -f [framework id] | --all",
		Long:  "Check the framework version of one subscription, or of every active one with --all.",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all {
				outdated, err := f.dm.CheckAllVersions(cmd.Context())
				if err != nil {
					cmd.PrintErrf("Failed to check framework versions: %v\n", err)
					return err
				}

				log.Info(cmd.Context(), "Framework versions checked", slog.Int("outdated", outdated))
				cmd.Printf("%d subscriptions have an upgrade available\n", outdated)

				return nil
			}

			slug, err := requiredSlug(cmd)
			if err != nil {
				return err
			}

			fwID, err := frameworkID(cmd, true)
			if err != nil {
				return err
			}

			status, err := f.dm.CheckFrameworkVersion(cmd.Context(), slug, fwID)
			if err != nil {
				cmd.PrintErrf("Failed to check framework version: %v\n", err)
				return err
			}

			return FormatJSON(status, cmd)
		},
	}

	cmd.Flags().StringP("slug", "s", "", "Tenant slug")
	cmd.Flags().StringP("framework", "f", "", "Framework id")
	cmd.Flags().Bool("all", false, "Check every active subscription")
	cmd.MarkFlagsMutuallyExclusive("all", "slug")

	cmd.SetContext(ctx)

	return cmd
}

// NewValidateFrameworkCmd creates a Cobra command that reports the
// completeness of a template framework.
func (f *CommandFactory) NewValidateFrameworkCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate-framework",
		Short: "Validate a template framework. Usage: tm validate-framework -f [framework id] [--orphans]",
		Long:  "Report the completeness of a template framework, and optionally the orphaned template items.",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			orphans, _ := cmd.Flags().GetBool("orphans")
			if orphans {
				report, err := f.validator.OrphanedItems(cmd.Context())
				if err != nil {
					cmd.PrintErrf("Failed to list orphaned items: %v\n", err)
					return err
				}

				return FormatJSON(report, cmd)
			}

			fwID, err := frameworkID(cmd, true)
			if err != nil {
				return err
			}

			report, err := f.validator.ValidateCompleteness(cmd.Context(), fwID)
			if err != nil {
				cmd.PrintErrf("Failed to validate framework: %v\n", err)
				return err
			}

			err = FormatJSON(report, cmd)
			if err != nil {
				return err
			}

			if !report.IsDistributable {
				return ErrFrameworkIncomplete
			}

			return nil
		},
	}

	cmd.Flags().StringP("framework", "f", "", "Framework id")
	cmd.Flags().Bool("orphans", false, "List active template items whose parent is missing")

	cmd.SetContext(ctx)

	return cmd
}

// NewSeedPlansCmd creates a Cobra command that stores the default plan catalog.
func (f *CommandFactory) NewSeedPlansCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-plans",
		Short: "Seed the subscription plan catalog. Usage: tm seed-plans",
		Long:  "Create the default subscription plans that do not exist yet. Usage: tm seed-plans",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := f.pm.SeedPlans(cmd.Context())
			if err != nil {
				cmd.PrintErrf("Failed to seed plans: %v\n", err)
				return err
			}

			cmd.Printf("%d plans created\n", created)

			return nil
		},
	}

	cmd.SetContext(ctx)

	return cmd
}
