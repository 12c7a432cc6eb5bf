package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
)

// NewGetTenantCmd creates a Cobra command that gets tenant information.
func (f *CommandFactory) NewGetTenantCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get tenant by slug. Usage: tm get -s [slug]",
		Long:  "Get tenant by slug. Usage: tm get --slug [slug]",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			slug, err := requiredSlug(cmd)
			if err != nil {
				return err
			}

			tenant, err := f.tm.GetTenant(cmd.Context(), slug)
			if errors.Is(err, repo.ErrTenantNotFound) {
				cmd.Printf("Tenant with slug %s not found\n", slug)
				return err
			}

			if err != nil {
				cmd.PrintErrf("Failed to get tenant %s: %v\n", slug, err)
				return err
			}

			return FormatJSON(tenant, cmd)
		},
	}

	addSlugFlag(cmd)
	cmd.SetContext(ctx)

	return cmd
}

// NewListTenantsCmd creates a Cobra command that gets tenant list.
func (f *CommandFactory) NewListTenantsCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tenants. Usage: tm list [--status status] [--top n] [--skip n]",
		Long:  "List tenants ordered by slug. Usage: tm list --status [subscription status] --top [n] --skip [n]",

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetString("status")
			top, _ := cmd.Flags().GetInt("top")
			skip, _ := cmd.Flags().GetInt("skip")

			tenants, count, err := f.tm.ListTenants(cmd.Context(), manager.ListTenantsFilter{
				SubscriptionStatus: model.SubscriptionStatus(status),
				Top:                top,
				Skip:               skip,
			})
			if err != nil {
				cmd.PrintErrf("failed to get tenants: %v\n", err)
				return err
			}

			for _, tenant := range tenants {
				err = FormatJSON(tenant, cmd)
				if err != nil {
					return err
				}
			}

			cmd.Printf("%d of %d tenants\n", len(tenants), count)

			return nil
		},
	}

	cmd.Flags().String("status", "", "Only list tenants with this subscription status")
	cmd.Flags().Int("top", 0, "Maximum number of tenants")
	cmd.Flags().Int("skip", 0, "Number of tenants to skip")

	cmd.SetContext(ctx)

	return cmd
}
