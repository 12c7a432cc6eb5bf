package commands

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// FormatJSON prints v indented on the command output.
func FormatJSON(v any, cmd *cobra.Command) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	cmd.Println(string(out))

	return nil
}

func requiredSlug(cmd *cobra.Command) (string, error) {
	slug, _ := cmd.Flags().GetString("slug")
	if slug == "" {
		cmd.Println("Tenant slug is required")
		return "", ErrTenantSlugRequired
	}

	return slug, nil
}

// frameworkID parses the framework flag. An empty flag gives uuid.Nil
// unless required is set.
func frameworkID(cmd *cobra.Command, required bool) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString("framework")
	if raw == "" {
		if required {
			return uuid.Nil, ErrFrameworkIDRequired
		}

		return uuid.Nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidFrameworkID
	}

	return id, nil
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		err := cmd.MarkFlagRequired(name)
		if err != nil {
			cmd.PrintErrf("failed to mark flag '%s' as required: %v\n", name, err)
		}
	}
}

func addSlugFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("slug", "s", "", "Tenant slug")
	markRequired(cmd, "slug")
}
