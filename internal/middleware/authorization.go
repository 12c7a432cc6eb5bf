package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/apierrors"
	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// DenialAuditor records tenant requests the gate refused.
type DenialAuditor interface {
	SendUnauthorizedRequestAuditLog(ctx context.Context, resource, action string) error
}

type GateOption func(*gate)

type gate struct {
	auditor DenialAuditor
}

// WithDenialAuditor reports every refused membership to a.
func WithDenialAuditor(a DenialAuditor) GateOption {
	return func(g *gate) {
		g.auditor = a
	}
}

// AuthorizationGate authenticates the caller and, on tenant scoped requests,
// requires a membership that grants access. It must run after
// TenantMiddleware.
func AuthorizationGate(
	extractor authz.PrincipalExtractor,
	memberships authz.MembershipProvider,
	opts ...GateOption,
) func(http.Handler) http.Handler {
	g := &gate{}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tenant, err := hubcontext.ExtractTenantInfo(ctx)
			if err != nil {
				// Exempt or tenant free request, the handler decides on authentication.
				principal, extractErr := extractor.Extract(r)
				if extractErr == nil {
					ctx = hubcontext.InjectPrincipal(ctx, principal)
				}

				next.ServeHTTP(w, r.WithContext(ctx))

				return
			}

			principal, err := extractor.Extract(r)
			if err != nil {
				log.Debug(ctx, "Request not authenticated", log.ErrorAttr(err))
				write.ErrorResponse(ctx, w, apierrors.Transform(errs.Wrap(apierrors.ErrNoPrincipal, err)))

				return
			}

			ctx = hubcontext.InjectPrincipal(ctx, principal)

			err = admitMember(ctx, memberships, tenant, principal)
			if err != nil {
				log.Warn(ctx, "Tenant access denied", slog.String("user", principal.UserID), log.ErrorAttr(err))
				g.audit(ctx, r)
				write.ErrorResponse(ctx, w, apierrors.Transform(err))

				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *gate) audit(ctx context.Context, r *http.Request) {
	if g.auditor == nil {
		return
	}

	err := g.auditor.SendUnauthorizedRequestAuditLog(ctx, r.URL.Path, r.Method)
	if err != nil {
		log.Warn(ctx, "Failed to audit denied request", log.ErrorAttr(err))
	}
}

func admitMember(
	ctx context.Context,
	memberships authz.MembershipProvider,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
) error {
	if principal.IsSuperuser {
		log.Debug(ctx, "SuperAdmin access to tenant")

		return nil
	}

	membership, err := memberships.Membership(ctx, tenant, principal)
	if errors.Is(err, authz.ErrMembershipNotFound) {
		return errs.Wrap(apierrors.ErrNoMembership, err)
	}

	if err != nil {
		return errs.Wrap(apierrors.ErrMembershipLookup, err)
	}

	if !membership.Status.GrantsAccess() {
		return apierrors.WithDetail(apierrors.ErrMembershipInactive, fmt.Sprintf(
			"Your access to this tenant is %s. Please contact your administrator.", membership.Status))
	}

	return nil
}
