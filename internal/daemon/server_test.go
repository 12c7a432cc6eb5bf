package daemon_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/constants"
	"github.com/openkcm/compliance-hub/internal/daemon"
	"github.com/openkcm/compliance-hub/internal/handlers"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo/sql"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

func newTestRuntime(t *testing.T) *daemon.Runtime {
	t.Helper()

	shared := testutils.NewSharedStore(t)
	testutils.SeedPlans(t, shared)

	mgr, rt := testutils.NewManager(t, shared)

	cfg := &config.Config{
		HTTP: config.HTTPServer{Address: "localhost:0", ShutdownTimeout: time.Second},
		Tenancy: config.Tenancy{
			ExemptPrefixes:     []string{"/admin/", "/health/"},
			RequiredPatterns:   []string{"^/api/v1/company/"},
			ReservedSubdomains: []string{"www", "api"},
			TrialDays:          14,
			SigningKey: commoncfg.SourceRef{
				Source: commoncfg.EmbeddedSourceValue,
				Value:  string(testutils.TestSigningKey),
			},
			Probe: config.Probe{Attempts: 1},
		},
	}

	return &daemon.Runtime{
		Config:  cfg,
		Shared:  shared,
		Router:  rt,
		Repo:    sql.NewRepository(rt),
		Manager: mgr,
	}
}

func addMember(t *testing.T, rt *daemon.Runtime, slug, user string, permissions ...string) {
	t.Helper()

	tenant, err := rt.Manager.Tenants.GetTenant(t.Context(), slug)
	require.NoError(t, err)

	require.NoError(t, rt.Shared.Create(&model.TenantMembership{
		TenantID:    tenant.ID,
		UserID:      user,
		Status:      model.MembershipActive,
		Permissions: permissions,
	}).Error)
}

func TestNewHandler(t *testing.T) {
	rt := newTestRuntime(t)

	_, err := rt.Manager.Tenants.CreateTenant(t.Context(), manager.CreateTenantRequest{
		Slug:        "acme",
		CompanyName: "Acme Corp",
		PlanCode:    model.PlanProfessional,
	})
	require.NoError(t, err)

	addMember(t, rt, "acme", "alice", constants.PermissionViewCompliance)
	addMember(t, rt, "acme", "bob")

	handler, err := daemon.NewHandler(rt)
	require.NoError(t, err)

	tests := []struct {
		name           string
		opt            testutils.RequestOptions
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "member with permission",
			opt: testutils.RequestOptions{
				Path:    "/api/v1/company/info",
				Headers: map[string]string{constants.TenantHeader: "acme", "Authorization": testutils.BearerToken(t, "alice", false)},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "member without permission",
			opt: testutils.RequestOptions{
				Path:    "/api/v1/company/info",
				Headers: map[string]string{constants.TenantHeader: "acme", "Authorization": testutils.BearerToken(t, "bob", false)},
			},
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
		{
			name: "superuser",
			opt: testutils.RequestOptions{
				Path:    "/api/v1/company/info",
				Host:    "acme.hub.test",
				Headers: map[string]string{"Authorization": testutils.BearerToken(t, "root", true)},
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "anonymous",
			opt: testutils.RequestOptions{
				Path:    "/api/v1/company/info",
				Headers: map[string]string{constants.TenantHeader: "acme"},
			},
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "UNAUTHORIZED",
		},
		{
			name:           "no tenant",
			opt:            testutils.RequestOptions{Path: "/api/v1/company/info"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "TENANT_REQUIRED",
		},
		{
			name:           "health is public",
			opt:            testutils.RequestOptions{Path: "/health/"},
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutils.MakeHTTPRequest(t, handler, tt.opt)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

			if tt.expectedCode != "" {
				body := testutils.GetJSONBody[write.ErrorMessage](t, w)
				assert.Equal(t, tt.expectedCode, body.Error.Code)
			}
		})
	}

	t.Run("Should report every registered store on health", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, handler, testutils.RequestOptions{Path: "/health/"})

		report := testutils.GetJSONBody[handlers.HealthReport](t, w)
		assert.Equal(t, handlers.StatusHealthy, report.Status)
		assert.Contains(t, report.Databases, constants.SharedConnectionID)
		assert.Len(t, report.Databases, 2)
	})
}

func TestNewHandlerRejectsMissingSigningKey(t *testing.T) {
	rt := newTestRuntime(t)
	rt.Config.Tenancy.SigningKey = commoncfg.SourceRef{}

	_, err := daemon.NewHandler(rt)
	assert.Error(t, err)
}
