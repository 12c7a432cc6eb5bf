package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/middleware"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/testutils"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var errLookup = errors.New("catalog unavailable")

// fakeMemberships keys memberships by user id.
type fakeMemberships map[string]model.MembershipStatus

func (f fakeMemberships) Membership(
	_ context.Context,
	tenant *model.TenantInfo,
	principal *hubcontext.Principal,
) (*model.TenantMembership, error) {
	if principal.UserID == "broken" {
		return nil, errLookup
	}

	status, ok := f[principal.UserID]
	if !ok {
		return nil, authz.ErrMembershipNotFound
	}

	return &model.TenantMembership{TenantID: tenant.ID, UserID: principal.UserID, Status: status}, nil
}

func (f fakeMemberships) HasPermission(ctx context.Context, tenant *model.TenantInfo, principal *hubcontext.Principal, _ string) (bool, error) {
	return f.IsAdmin(ctx, tenant, principal)
}

func (f fakeMemberships) IsAdmin(_ context.Context, _ *model.TenantInfo, principal *hubcontext.Principal) (bool, error) {
	return principal.IsSuperuser, nil
}

func TestAuthorizationGate(t *testing.T) {
	extractor, err := authz.NewJWTExtractor(testutils.TestSigningKey)
	require.NoError(t, err)

	memberships := fakeMemberships{
		"alice": model.MembershipActive,
		"paul":  model.MembershipPending,
		"sam":   model.MembershipSuspended,
		"ian":   model.MembershipInactive,
	}

	tenantMW, err := middleware.TenantMiddleware(testTenancy, testTenants)
	require.NoError(t, err)

	var principal *hubcontext.Principal

	handler := tenantMW(middleware.AuthorizationGate(extractor, memberships)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, _ = hubcontext.ExtractPrincipal(r.Context())

			w.WriteHeader(http.StatusOK)
		}),
	))

	tests := []struct {
		name           string
		path           string
		user           string
		superuser      bool
		expectedStatus int
		expectedCode   string
		expectedDetail string
	}{
		{name: "active member", path: "/t/acme/x", user: "alice", expectedStatus: http.StatusOK},
		{name: "pending member", path: "/t/acme/x", user: "paul", expectedStatus: http.StatusOK},
		{name: "superuser without membership", path: "/t/acme/x", user: "root", superuser: true, expectedStatus: http.StatusOK},
		{
			name:           "suspended member",
			path:           "/t/acme/x",
			user:           "sam",
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCESS_DENIED",
			expectedDetail: "Your access to this tenant is SUSPENDED. Please contact your administrator.",
		},
		{
			name:           "inactive member",
			path:           "/t/acme/x",
			user:           "ian",
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCESS_DENIED",
			expectedDetail: "Your access to this tenant is INACTIVE. Please contact your administrator.",
		},
		{
			name:           "not a member",
			path:           "/t/acme/x",
			user:           "eve",
			expectedStatus: http.StatusForbidden,
			expectedCode:   "ACCESS_DENIED",
			expectedDetail: "You do not have access to this tenant. Please contact your administrator.",
		},
		{
			name:           "membership lookup failure",
			path:           "/t/acme/x",
			user:           "broken",
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name:           "anonymous on a tenant path",
			path:           "/t/acme/x",
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
		},
		{name: "anonymous on an exempt path", path: "/health/", expectedStatus: http.StatusOK},
		{name: "authenticated on an exempt path", path: "/health/", user: "eve", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal = nil

			opt := testutils.RequestOptions{Path: tt.path, Headers: map[string]string{}}
			if tt.user != "" {
				opt.Headers["Authorization"] = testutils.BearerToken(t, tt.user, tt.superuser)
			}

			w := testutils.MakeHTTPRequest(t, handler, opt)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus != http.StatusOK {
				assert.Nil(t, principal)

				if tt.expectedCode != "" {
					body := testutils.GetJSONBody[write.ErrorMessage](t, w)
					assert.Equal(t, tt.expectedCode, body.Error.Code)

					if tt.expectedDetail != "" {
						assert.Equal(t, tt.expectedDetail, body.Error.Message)
					}
				}

				return
			}

			if tt.user == "" {
				assert.Nil(t, principal)

				return
			}

			require.NotNil(t, principal)
			assert.Equal(t, tt.user, principal.UserID)
		})
	}
}

func TestCheckPermissionBehindGate(t *testing.T) {
	extractor, err := authz.NewJWTExtractor(testutils.TestSigningKey)
	require.NoError(t, err)

	tenantMW, err := middleware.TenantMiddleware(testTenancy, testTenants)
	require.NoError(t, err)

	memberships := fakeMemberships{"alice": model.MembershipActive}

	handler := tenantMW(middleware.AuthorizationGate(extractor, memberships)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := authz.CheckPermission(r.Context(), memberships, constants.PermissionManageFrameworks)
			if err != nil {
				w.WriteHeader(http.StatusForbidden)

				return
			}

			w.WriteHeader(http.StatusOK)
		}),
	))

	w := testutils.MakeHTTPRequest(t, handler, testutils.RequestOptions{
		Path:    "/t/acme/x",
		Headers: map[string]string{"Authorization": testutils.BearerToken(t, "alice", false)},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.MakeHTTPRequest(t, handler, testutils.RequestOptions{
		Path:    "/t/acme/x",
		Headers: map[string]string{"Authorization": testutils.BearerToken(t, "root", true)},
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

type recordingDenials struct {
	resources []string
}

func (r *recordingDenials) SendUnauthorizedRequestAuditLog(_ context.Context, resource, _ string) error {
	r.resources = append(r.resources, resource)

	return nil
}

func TestAuthorizationGateAuditsDenials(t *testing.T) {
	extractor, err := authz.NewJWTExtractor(testutils.TestSigningKey)
	require.NoError(t, err)

	tenantMW, err := middleware.TenantMiddleware(testTenancy, testTenants)
	require.NoError(t, err)

	denials := &recordingDenials{}
	memberships := fakeMemberships{"alice": model.MembershipActive}

	handler := tenantMW(middleware.AuthorizationGate(extractor, memberships, middleware.WithDenialAuditor(denials))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	for _, user := range []string{"alice", "eve"} {
		testutils.MakeHTTPRequest(t, handler, testutils.RequestOptions{
			Path:    "/t/acme/x",
			Headers: map[string]string{"Authorization": testutils.BearerToken(t, user, false)},
		})
	}

	assert.Equal(t, []string{"/t/acme/x"}, denials.resources)
}
