package daemon

import (
	"net/http"
	"strings"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/apierrors"
	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/constants"
)

// RoutePermissions holds the permission each tenant scoped route requires.
// Patterns are relative to the BaseURL of the mux.
var RoutePermissions = map[string]string{
	"GET /company/info":                   constants.PermissionViewCompliance,
	"PATCH /company/controls/{id}":        constants.PermissionCustomizeControl,
	"GET /company/frameworks/{id}/verify": constants.PermissionViewCompliance,
}

// PublicRoutes are served without a permission check.
var PublicRoutes = map[string]struct{}{
	"GET /health/": {},
}

// ServeMux refuses to register a route that is neither public nor bound to
// a permission, and checks that permission before calling the handler.
type ServeMux struct {
	httpServeMux http.ServeMux
	BaseURL      string
	memberships  authz.MembershipProvider
}

func NewServeMux(baseURL string, memberships authz.MembershipProvider) *ServeMux {
	return &ServeMux{
		httpServeMux: http.ServeMux{},
		BaseURL:      baseURL,
		memberships:  memberships,
	}
}

func (m *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.httpServeMux.ServeHTTP(w, r)
}

func (m *ServeMux) HandleFunc(
	pattern string,
	handler func(http.ResponseWriter, *http.Request),
) {
	p := strings.Replace(pattern, m.BaseURL, "", 1)

	if _, public := PublicRoutes[pattern]; public {
		m.httpServeMux.HandleFunc(pattern, handler)

		return
	}

	permission, restricted := RoutePermissions[p]
	if !restricted {
		panic("pattern not registered in route permissions or public routes: " + p)
	}

	m.httpServeMux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		err := authz.CheckPermission(r.Context(), m.memberships, permission)
		if err != nil {
			write.ErrorResponse(r.Context(), w, apierrors.Transform(err))

			return
		}

		handler(w, r)
	})
}
