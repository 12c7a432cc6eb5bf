package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var (
	ErrExtractTenantInfo = errors.New("failed to extract tenant info")
	ErrExtractPrincipal  = errors.New("failed to extract principal")
	ErrAuthzDecision     = errors.New("permission denied")
)

// CheckPermission verifies that the principal of ctx holds code in the
// tenant resolved for the request.
func CheckPermission(ctx context.Context, provider MembershipProvider, code string) error {
	tenant, err := hubcontext.ExtractTenantInfo(ctx)
	if err != nil {
		return errs.Wrap(ErrExtractTenantInfo, err)
	}

	principal, err := hubcontext.ExtractPrincipal(ctx)
	if err != nil {
		return errs.Wrap(ErrExtractPrincipal, err)
	}

	log.Debug(ctx, "checking authorization request",
		slog.String("user", principal.UserID),
		slog.String("tenant", tenant.Slug),
		slog.String("permission", code),
	)

	allowed, err := provider.HasPermission(ctx, tenant, principal, code)
	if err != nil {
		return errs.Wrap(ErrAuthzDecision, err)
	}

	if !allowed {
		return errs.Wrapf(ErrAuthzDecision, code)
	}

	return nil
}
