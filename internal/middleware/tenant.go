package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"slices"
	"strings"

	"github.com/bartventer/gorm-multitenancy/middleware/nethttp/v8"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/apierrors"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/log"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// Identification methods reported in the request log.
const (
	ViaHeader      = "header"
	ViaSubdomain   = "subdomain"
	ViaPath        = "path"
	ViaTenantAdmin = "tenant_admin_url"

	viaExempt = "exempt"
)

// minSubdomainLabels keeps bare domains such as example.com from being read
// as tenant subdomains.
const minSubdomainLabels = 3

var (
	tenantPathPattern  = regexp.MustCompile(`^/t/([a-z0-9-]{3,50})/`)
	tenantAdminPattern = regexp.MustCompile(`^/admin/tenant/([a-z0-9-]+)/admin/`)
)

// TenantResolver loads the admission view of a tenant.
type TenantResolver interface {
	GetTenantInfo(ctx context.Context, slug string) (*model.TenantInfo, error)
}

type tenantMiddleware struct {
	resolver         TenantResolver
	exemptPrefixes   []string
	requiredPatterns []*regexp.Regexp
	reserved         []string
}

// TenantMiddleware resolves the tenant of each request and runs the next
// handler with it as the current tenant. Requests on exempt paths and
// requests without a tenant run with a cleared tenant context.
func TenantMiddleware(cfg config.Tenancy, resolver TenantResolver) (func(http.Handler) http.Handler, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.RequiredPatterns))

	for _, p := range cfg.RequiredPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("required tenant pattern %q: %w", p, err)
		}

		patterns = append(patterns, re)
	}

	m := &tenantMiddleware{
		resolver:         resolver,
		exemptPrefixes:   cfg.ExemptPrefixes,
		requiredPatterns: patterns,
		reserved:         cfg.ReservedSubdomains,
	}

	return m.handler, nil
}

func (m *tenantMiddleware) handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := hubcontext.Clear(r.Context())

		slug, method := m.identify(r)
		if slug == "" {
			if method != viaExempt && m.requiresTenant(r.URL.Path) {
				log.Warn(ctx, "No tenant context for path", slog.String("path", r.URL.Path))
				write.ErrorResponse(ctx, w, apierrors.Transform(apierrors.ErrTenantRequired))

				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))

			return
		}

		scoped, err := m.admit(ctx, slug)
		if err != nil {
			log.Warn(ctx, "Tenant rejected", slog.String("tenant", slug), slog.String("method", method),
				log.ErrorAttr(err))
			write.ErrorResponse(ctx, w, apierrors.Transform(err))

			return
		}

		log.Info(scoped, "Set tenant context", slog.String("method", method))

		next.ServeHTTP(w, r.WithContext(scoped))
	})
}

// identify returns the candidate slug of r and how it was found.
func (m *tenantMiddleware) identify(r *http.Request) (string, string) {
	path := r.URL.Path

	match := tenantAdminPattern.FindStringSubmatch(path)
	if match != nil {
		return match[1], ViaTenantAdmin
	}

	if m.isExempt(path) {
		return "", viaExempt
	}

	slug := r.Header.Get(constants.TenantHeader)
	if slug != "" {
		return slug, ViaHeader
	}

	slug = m.fromSubdomain(r.Host)
	if slug != "" {
		return slug, ViaSubdomain
	}

	match = tenantPathPattern.FindStringSubmatch(path)
	if match != nil {
		return match[1], ViaPath
	}

	return "", ""
}

func (m *tenantMiddleware) isExempt(path string) bool {
	for _, prefix := range m.exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (m *tenantMiddleware) requiresTenant(path string) bool {
	for _, re := range m.requiredPatterns {
		if re.MatchString(path) {
			return true
		}
	}

	return false
}

func (m *tenantMiddleware) fromSubdomain(host string) string {
	hostname, _, err := net.SplitHostPort(host)
	if err != nil {
		hostname = host
	}

	labels := strings.Split(hostname, ".")
	if len(labels) < minSubdomainLabels {
		return ""
	}

	sub := strings.ToLower(labels[0])
	if slices.Contains(m.reserved, sub) || !hubcontext.IsValidTenantID(sub) {
		return ""
	}

	return sub
}

// admit validates slug and derives the tenant scoped request context.
func (m *tenantMiddleware) admit(ctx context.Context, slug string) (context.Context, error) {
	if !hubcontext.IsValidTenantID(slug) {
		return nil, apierrors.ErrInvalidTenantID
	}

	info, err := m.resolver.GetTenantInfo(ctx, slug)
	if errors.Is(err, repo.ErrTenantNotFound) {
		return nil, apierrors.WithDetail(err, "No tenant found with identifier: "+slug)
	}

	if err != nil {
		return nil, err
	}

	if !info.SubscriptionStatus.IsRequestAccessible() {
		return nil, apierrors.WithDetail(apierrors.ErrTenantNotAccessible,
			fmt.Sprintf("Tenant is currently %s. Please contact support.", info.SubscriptionStatus))
	}

	if !info.IsServable() {
		return nil, apierrors.WithDetail(apierrors.ErrTenantNotAccessible,
			fmt.Sprintf("Tenant provisioning is %s. Please contact support.", info.ProvisioningStatus))
	}

	scoped, ok := hubcontext.Set(ctx, slug)
	if !ok {
		return nil, apierrors.ErrTenantContext
	}

	scoped = context.WithValue(scoped, nethttp.TenantKey, slug)
	scoped = hubcontext.InjectTenantInfo(scoped, info)

	return log.InjectTenant(scoped, slug), nil
}
