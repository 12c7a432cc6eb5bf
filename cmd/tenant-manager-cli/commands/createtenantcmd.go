package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
)

// NewCreateTenantCmd creates a Cobra command that registers and provisions a tenant.
func (f *CommandFactory) NewCreateTenantCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and provision a tenant. Usage: tm create -s [slug] -n [company name] -p [plan] [--trial]",
		Long: "Create and provision a tenant. Usage: tm create --slug [slug] --name [company name]" +
			" --email [company email] --plan [plan code] [--trial]",
		Args: cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := tenantRequest(cmd)
			req.Trial, _ = cmd.Flags().GetBool("trial")

			tenant, err := f.tm.CreateTenant(cmd.Context(), req)
			if err != nil {
				printCreateError(cmd, req.Slug, err)
				return err
			}

			cmd.Printf("Tenant created: %s (%s)\n", tenant.Slug, tenant.SubscriptionStatus)

			return FormatJSON(tenant, cmd)
		},
	}

	addTenantRequestFlags(cmd)
	cmd.Flags().Bool("trial", false, "Start the tenant in TRIAL")

	cmd.SetContext(ctx)

	return cmd
}

// NewCreatePendingTenantCmd creates a Cobra command that registers a tenant
// awaiting payment. No store is provisioned.
func (f *CommandFactory) NewCreatePendingTenantCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-pending",
		Short: "Register a tenant awaiting payment. Usage: tm create-pending -s [slug] -n [company name]",
		Long:  "Register a tenant awaiting payment. Usage: tm create-pending --slug [slug] --name [company name] --plan [plan code]",
		Args:  cobra.ExactArgs(0),

		//nolint:contextcheck
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := tenantRequest(cmd)

			tenant, err := f.tm.CreatePendingTenant(cmd.Context(), req)
			if err != nil {
				printCreateError(cmd, req.Slug, err)
				return err
			}

			cmd.Printf("Tenant registered: %s (%s)\n", tenant.Slug, tenant.SubscriptionStatus)

			return FormatJSON(tenant, cmd)
		},
	}

	addTenantRequestFlags(cmd)

	cmd.SetContext(ctx)

	return cmd
}

func addTenantRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("slug", "s", "", "Tenant slug")
	cmd.Flags().StringP("name", "n", "", "Company name")
	cmd.Flags().StringP("email", "e", "", "Company email")
	cmd.Flags().StringP("plan", "p", string(model.PlanBasic), "Subscription plan code")

	markRequired(cmd, "slug", "name")
}

func tenantRequest(cmd *cobra.Command) manager.CreateTenantRequest {
	slug, _ := cmd.Flags().GetString("slug")
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	plan, _ := cmd.Flags().GetString("plan")

	return manager.CreateTenantRequest{
		Slug:         slug,
		CompanyName:  name,
		CompanyEmail: email,
		PlanCode:     model.PlanCode(plan),
	}
}

func printCreateError(cmd *cobra.Command, slug string, err error) {
	switch {
	case errors.Is(err, manager.ErrTenantExists):
		cmd.PrintErrf("Tenant with slug %s already exists\n", slug)
	case errors.Is(err, model.ErrInvalidSlug), errors.Is(err, model.ErrReservedSlug):
		cmd.PrintErrf("Tenant slug %s is not valid: %v\n", slug, err)
	default:
		cmd.PrintErrf("Failed to create tenant: %v\n", err)
	}
}
