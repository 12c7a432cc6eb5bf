package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/model"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// allowList grants exactly the listed permission codes.
type allowList map[string]bool

func (a allowList) Membership(context.Context, *model.TenantInfo, *hubcontext.Principal) (*model.TenantMembership, error) {
	return &model.TenantMembership{Status: model.MembershipActive}, nil
}

func (a allowList) HasPermission(_ context.Context, _ *model.TenantInfo, _ *hubcontext.Principal, code string) (bool, error) {
	return a[code], nil
}

func (a allowList) IsAdmin(context.Context, *model.TenantInfo, *hubcontext.Principal) (bool, error) {
	return false, nil
}

func admitted(r *http.Request) *http.Request {
	ctx := hubcontext.InjectTenantInfo(r.Context(), &model.TenantInfo{Slug: "acme"})
	ctx = hubcontext.InjectPrincipal(ctx, &hubcontext.Principal{UserID: "alice"})

	return r.WithContext(ctx)
}

func TestServeMux_HandleFunc(t *testing.T) {
	mux := daemon.NewServeMux("/api/v1", allowList{"view_compliance": true})

	called := false
	handler := func(w http.ResponseWriter, _ *http.Request) {
		called = true

		w.WriteHeader(http.StatusOK)
	}

	// Should not panic for registered pattern
	assert.NotPanics(t, func() {
		mux.HandleFunc("GET /api/v1/company/info", handler)
	})

	assert.NotPanics(t, func() {
		mux.HandleFunc("PATCH /api/v1/company/controls/{id}", handler)
	})

	assert.NotPanics(t, func() {
		mux.HandleFunc("GET /health/", handler)
	})

	// Should panic for unregistered pattern
	assert.Panics(t, func() {
		mux.HandleFunc("POST /unregistered", handler)
	})

	t.Run("Should call a handler whose permission is held", func(t *testing.T) {
		called = false

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, admitted(httptest.NewRequest(http.MethodGet, "/api/v1/company/info", nil)))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should refuse a handler whose permission is missing", func(t *testing.T) {
		called = false

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, admitted(httptest.NewRequest(http.MethodPatch, "/api/v1/company/controls/42", nil)))

		assert.False(t, called)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Should serve public routes without a tenant", func(t *testing.T) {
		called = false

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRoutePermissionsAreKnownCodes(t *testing.T) {
	known := map[string]bool{
		"view_compliance":   true,
		"customize_control": true,
		"manage_frameworks": true,
	}

	for pattern, code := range daemon.RoutePermissions {
		assert.True(t, known[code], "route %s requires unknown permission %s", pattern, code)
	}
}
