package handlers_test

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/handlers"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/internal/testutils"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

type companyEnv struct {
	handler   http.Handler
	framework *model.Framework
	control   *model.CompanyControl
}

// newCompanyEnv provisions slug on plan with one distributed framework and
// serves the company routes as if the tenant middleware admitted slug.
func newCompanyEnv(t *testing.T, slug string, plan model.PlanCode) *companyEnv {
	t.Helper()

	shared := testutils.NewSharedStore(t)
	testutils.SeedPlans(t, shared)

	mgr, rt := testutils.NewManager(t, shared)

	fw := testutils.CreateFramework(t, shared, "ISO-"+slug, "1", testutils.FrameworkShape{
		Domains: 1, Categories: 1, Subcategories: 1, Controls: 2, Questions: 1, Evidence: 1,
	})

	_, err := mgr.Tenants.CreateTenant(t.Context(), manager.CreateTenantRequest{
		Slug:        slug,
		CompanyName: "Company " + slug,
		PlanCode:    plan,
	})
	require.NoError(t, err)

	_, err = mgr.Distribution.Distribute(t.Context(), slug, fw.ID, model.CustomizationControlLevel)
	require.NoError(t, err)

	info, err := mgr.Tenants.GetTenantInfo(t.Context(), slug)
	require.NoError(t, err)

	store, ok := rt.Registry().Lookup(router.ConnectionID(slug))
	require.True(t, ok)

	control := firstControl(t, store)

	company := handlers.NewCompany(mgr)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /company/info", company.Info)
	mux.HandleFunc("PATCH /company/controls/{id}", company.CustomizeControl)
	mux.HandleFunc("GET /company/frameworks/{id}/verify", company.VerifyFramework)

	admitted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := hubcontext.Set(r.Context(), info.Slug)
		require.True(t, ok)

		ctx = hubcontext.InjectTenantInfo(ctx, info)
		ctx = hubcontext.InjectPrincipal(ctx, &hubcontext.Principal{UserID: "alice"})

		mux.ServeHTTP(w, r.WithContext(ctx))
	})

	return &companyEnv{handler: admitted, framework: fw, control: control}
}

func firstControl(t *testing.T, store *gorm.DB) *model.CompanyControl {
	t.Helper()

	control := &model.CompanyControl{}
	require.NoError(t, store.Order("control_code").First(control).Error)

	return control
}

func TestCompanyInfo(t *testing.T) {
	env := newCompanyEnv(t, "acme", model.PlanProfessional)

	w := testutils.MakeHTTPRequest(t, env.handler, testutils.RequestOptions{Path: "/company/info"})
	require.Equal(t, http.StatusOK, w.Code)

	info := testutils.GetJSONBody[handlers.CompanyInfo](t, w)
	assert.Equal(t, "acme", info.Slug)
	assert.Equal(t, "Company acme", info.CompanyName)
	assert.Equal(t, model.PlanProfessional, info.PlanCode)
	assert.Equal(t, model.SubscriptionActive, info.SubscriptionStatus)
}

func TestCompanyInfoWithoutTenant(t *testing.T) {
	shared := testutils.NewSharedStore(t)
	mgr, _ := testutils.NewManager(t, shared)

	w := testutils.MakeHTTPRequest(t, http.HandlerFunc(handlers.NewCompany(mgr).Info), testutils.RequestOptions{Path: "/company/info"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomizeControlHandler(t *testing.T) {
	env := newCompanyEnv(t, "acme", model.PlanProfessional)

	tests := []struct {
		name           string
		path           string
		body           any
		rawBody        string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "content fields",
			path:           "/company/controls/" + env.control.ID.String(),
			body:           map[string]string{manager.FieldCustomTitle: "Access reviews"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "structural field on the mid tier",
			path:           "/company/controls/" + env.control.ID.String(),
			body:           map[string]string{manager.FieldControlCode: "NEW-1"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unknown control",
			path:           "/company/controls/" + uuid.NewString(),
			body:           map[string]string{manager.FieldCustomTitle: "x"},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad id",
			path:           "/company/controls/not-a-uuid",
			body:           map[string]string{manager.FieldCustomTitle: "x"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "PARAMS_ERROR",
		},
		{
			name:           "empty body",
			path:           "/company/controls/" + env.control.ID.String(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "JSON_DECODE_ERROR",
		},
		{
			name:           "malformed body",
			path:           "/company/controls/" + env.control.ID.String(),
			rawBody:        `{"custom_title": 3}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "JSON_DECODE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := testutils.RequestOptions{Method: http.MethodPatch, Path: tt.path}

			switch {
			case tt.body != nil:
				opt.Body = testutils.WithJSON(t, tt.body)
			case tt.rawBody != "":
				opt.Body = testutils.WithString(tt.rawBody)
			}

			w := testutils.MakeHTTPRequest(t, env.handler, opt)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedCode != "" {
				body := testutils.GetJSONBody[write.ErrorMessage](t, w)
				assert.Equal(t, tt.expectedCode, body.Error.Code)
			}
		})
	}

	t.Run("Should return the customized control", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, env.handler, testutils.RequestOptions{
			Method: http.MethodPatch,
			Path:   "/company/controls/" + env.control.ID.String(),
			Body:   testutils.WithJSON(t, map[string]string{manager.FieldCustomTitle: "Quarterly reviews"}),
		})
		require.Equal(t, http.StatusOK, w.Code)

		view := testutils.GetJSONBody[handlers.ControlView](t, w)
		assert.Equal(t, env.control.ID, view.ID)
		assert.True(t, view.IsCustomized)
		assert.Equal(t, "Quarterly reviews", view.EffectiveTitle)
		assert.Equal(t, env.control.Title, view.Title)
		assert.Equal(t, "alice", view.CustomizedBy)
	})
}

func TestVerifyFrameworkHandler(t *testing.T) {
	env := newCompanyEnv(t, "acme", model.PlanEnterprise)

	t.Run("Should count the copied framework", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, env.handler, testutils.RequestOptions{
			Path: "/company/frameworks/" + env.framework.ID.String() + "/verify",
		})
		require.Equal(t, http.StatusOK, w.Code)

		stats := testutils.GetJSONBody[manager.DistributionStats](t, w)
		assert.Equal(t, 1, stats.Frameworks)
		assert.Equal(t, 1, stats.Domains)
		assert.Equal(t, 2, stats.Controls)
	})

	t.Run("Should report a framework the tenant does not hold", func(t *testing.T) {
		w := testutils.MakeHTTPRequest(t, env.handler, testutils.RequestOptions{
			Path: "/company/frameworks/" + uuid.NewString() + "/verify",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
