package sql_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/repo/sql"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/internal/testutils"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

func newRepo(t *testing.T) (*sql.ResourceRepository, context.Context) {
	t.Helper()

	rt := testutils.NewRouter(t, testutils.NewSharedStore(t))
	rt.RegisterTenant("acmecorp", testutils.NewTenantStore(t))

	ctx, _ := hubcontext.Set(t.Context(), "acmecorp")

	return sql.NewRepository(rt), ctx
}

func newDomain(name string, order int) *model.CompanyDomain {
	return &model.CompanyDomain{
		Node:        model.Node{ID: uuid.New(), SortOrder: order, IsActive: true},
		FrameworkID: uuid.New(),
		Name:        name,
		Code:        name,
	}
}

func TestRepo_WithStore(t *testing.T) {
	r, ctx := newRepo(t)

	t.Run("Should run tenant action on tenant store", func(t *testing.T) {
		err := r.WithStore(ctx, &model.CompanyControl{}, router.Read, func(tx *gorm.DB) error {
			assert.True(t, tx.Migrator().HasTable(&model.CompanyControl{}))
			assert.False(t, tx.Migrator().HasTable(&model.Tenant{}))

			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("Should run shared action without tenant", func(t *testing.T) {
		err := r.WithStore(t.Context(), &model.Tenant{}, router.Read, func(tx *gorm.DB) error {
			assert.True(t, tx.Migrator().HasTable(&model.Tenant{}))
			return nil
		})
		assert.NoError(t, err)
	})
}

func TestRepo_List(t *testing.T) {
	r, ctx := newRepo(t)

	n := 3
	for i := range n {
		require.NoError(t, r.Create(ctx, newDomain("test-"+strconv.Itoa(i), i)))
	}

	t.Run("Should list resources", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		count, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery())
		assert.NoError(t, err)
		assert.Equal(t, n, count)
		assert.Len(t, res, n)
	})

	t.Run("Should count total when paginated resources", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		count, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery().SetLimit(1))
		assert.NoError(t, err)
		assert.Equal(t, n, count)
		assert.Len(t, res, 1)
	})

	t.Run("Should list IN", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		key := repo.NewCompositeKey().Where(repo.NameField, []string{"test-0", "test-1"})
		count, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(key)))
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Should order resources descending", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		_, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery().Order(repo.OrderField{
			Field:     repo.SortOrderField,
			Direction: repo.Desc,
		}))
		require.NoError(t, err)
		require.Len(t, res, n)
		assert.Equal(t, "test-2", res[0].Name)
	})

	t.Run("Should refuse unknown order directive", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		_, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery().Order(repo.OrderField{
			Field:     repo.SortOrderField,
			Direction: "sideways",
		}))
		assert.ErrorIs(t, err, sql.ErrUnsupportedOrderDirective)
	})

	t.Run("Should not see tenant rows from the shared store", func(t *testing.T) {
		res := []*model.CompanyDomain{}
		_, err := r.List(t.Context(), model.CompanyDomain{}, &res, *repo.NewQuery())
		assert.Error(t, err)
	})
}

func TestRepo_FirstPatchDelete(t *testing.T) {
	r, ctx := newRepo(t)
	domain := newDomain("governance", 1)
	require.NoError(t, r.Create(ctx, domain))

	t.Run("Should find by primary key", func(t *testing.T) {
		got := &model.CompanyDomain{Node: model.Node{ID: domain.ID}}
		ok, err := r.First(ctx, got, *repo.NewQuery())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "governance", got.Name)
	})

	t.Run("Should patch selected zero value", func(t *testing.T) {
		patch := &model.CompanyDomain{Node: model.Node{ID: domain.ID, IsActive: false}}
		ok, err := r.Patch(ctx, patch, *repo.NewQuery().Update(repo.IsActiveField))
		require.NoError(t, err)
		assert.True(t, ok)

		got := &model.CompanyDomain{Node: model.Node{ID: domain.ID}}
		_, err = r.First(ctx, got, *repo.NewQuery())
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	})

	t.Run("Should report unique violation", func(t *testing.T) {
		err := r.Create(ctx, &model.CompanyDomain{Node: model.Node{ID: domain.ID}, Name: "dup"})
		assert.ErrorIs(t, err, repo.ErrUniqueConstraint)
	})

	t.Run("Should delete", func(t *testing.T) {
		ok, err := r.Delete(ctx, &model.CompanyDomain{Node: model.Node{ID: domain.ID}}, *repo.NewQuery())
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = r.First(ctx, &model.CompanyDomain{Node: model.Node{ID: domain.ID}}, *repo.NewQuery())
		assert.ErrorIs(t, err, repo.ErrNotFound)
	})
}

func TestRepo_Transaction(t *testing.T) {
	r, ctx := newRepo(t)

	t.Run("Should commit on success", func(t *testing.T) {
		err := r.Transaction(ctx, model.ModuleCompanyCompliance, func(ctx context.Context, tx repo.Repo) error {
			return tx.Create(ctx, newDomain("committed", 1))
		})
		require.NoError(t, err)

		res := []*model.CompanyDomain{}
		count, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Should roll back on error", func(t *testing.T) {
		err := r.Transaction(ctx, model.ModuleCompanyCompliance, func(ctx context.Context, tx repo.Repo) error {
			d := newDomain("rolled-back", 2)
			require.NoError(t, tx.Create(ctx, d))

			return tx.Create(ctx, &model.CompanyDomain{Node: model.Node{ID: d.ID}})
		})
		require.ErrorIs(t, err, repo.ErrTransaction)

		res := []*model.CompanyDomain{}
		count, err := r.List(ctx, model.CompanyDomain{}, &res, *repo.NewQuery())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Should refuse resources of another store", func(t *testing.T) {
		err := r.Transaction(ctx, model.ModuleCompanyCompliance, func(ctx context.Context, tx repo.Repo) error {
			return tx.Create(ctx, &model.SuperAdminAuditLog{Action: model.AuditCreateTenant})
		})
		assert.ErrorIs(t, err, repo.ErrCrossStore)
	})
}

func TestRepo_Update(t *testing.T) {
	r, _ := newRepo(t)
	ctx := t.Context()

	plans, err := model.DefaultPlans()
	require.NoError(t, err)
	require.NoError(t, r.Create(ctx, plans[0]))

	tenant := &model.Tenant{
		Slug:               "acme-corp",
		CompanyName:        "Acme",
		PlanID:             plans[0].ID,
		IsolationMode:      model.IsolationSchema,
		SubscriptionStatus: model.SubscriptionActive,
		ProvisioningStatus: model.ProvisioningActive,
	}
	tenant.SchemaName = "acme_corp_schema"
	require.NoError(t, r.Create(ctx, tenant))

	t.Run("Should write columns and expressions", func(t *testing.T) {
		ok, err := r.Update(ctx, tenant, map[string]any{
			"subscription_status": model.SubscriptionSuspended,
			"current_frameworks":  gorm.Expr("current_frameworks + ?", 2),
		}, *repo.NewQuery())
		require.NoError(t, err)
		assert.True(t, ok)

		got := &model.Tenant{ID: tenant.ID}
		_, err = r.First(ctx, got, *repo.NewQuery())
		require.NoError(t, err)
		assert.Equal(t, model.SubscriptionSuspended, got.SubscriptionStatus)
		assert.Equal(t, 2, got.CurrentFrameworks)
	})

	t.Run("Should refuse identity changes of provisioned tenants", func(t *testing.T) {
		loaded := &model.Tenant{ID: tenant.ID}
		_, err := r.First(ctx, loaded, *repo.NewQuery())
		require.NoError(t, err)

		_, err = r.Update(ctx, loaded, map[string]any{
			"isolation_mode": model.IsolationDatabase,
		}, *repo.NewQuery())
		assert.ErrorIs(t, err, model.ErrTenantIdentityImmutable)
	})

	t.Run("Should report untouched rows", func(t *testing.T) {
		ok, err := r.Update(ctx, &model.Tenant{ID: uuid.New()}, map[string]any{
			"company_name": "nobody",
		}, *repo.NewQuery())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
