package manager_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

// subscribedControl provisions slug on plan, copies a framework into it and
// returns one of the copied controls.
func subscribedControl(t *testing.T, env *testEnv, slug string, plan model.PlanCode) (context.Context, *model.CompanyControl) {
	t.Helper()

	fw := testutils.CreateFramework(t, env.shared, "FW-"+slug, "1", smallShape)
	env.createTenant(t, slug, plan)

	_, err := env.mgr.Distribution.Distribute(t.Context(), slug, fw.ID, model.CustomizationControlLevel)
	require.NoError(t, err)

	control := &model.CompanyControl{}
	require.NoError(t, env.store(t, slug).Order("control_code").First(control).Error)

	return tenantCtx(t, slug), control
}

func TestCustomizeControl(t *testing.T) {
	env := newTestEnv(t)

	proCtx, proControl := subscribedControl(t, env, "pro-co", model.PlanProfessional)
	entCtx, entControl := subscribedControl(t, env, "ent-co", model.PlanEnterprise)
	basicCtx, basicControl := subscribedControl(t, env, "basic-co", model.PlanBasic)

	t.Run("Should apply content fields on the mid tier", func(t *testing.T) {
		control, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, map[string]string{
			manager.FieldCustomTitle:       "<b>Access</b> reviews",
			manager.FieldCustomDescription: `<p>Quarterly</p><script>alert(1)</script>`,
		}, "alice")
		require.NoError(t, err)

		assert.True(t, control.IsCustomized)
		assert.Equal(t, "Access reviews", control.CustomTitle)
		assert.Equal(t, "<p>Quarterly</p>", control.CustomDescription)
		assert.Equal(t, "alice", control.CustomizedBy)
		assert.NotNil(t, control.CustomizedAt)
		assert.Equal(t, "Access reviews", control.EffectiveTitle())
		assert.Equal(t, proControl.Title, control.Title)
	})

	t.Run("Should refuse plans without customization", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(basicCtx, basicControl.ID, map[string]string{
			manager.FieldCustomTitle: "x",
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrPlanCustomization)
		assert.EqualError(t, manager.ErrPlanCustomization, "Control customization requires Professional or Enterprise plan")
	})

	t.Run("Should refuse structural fields on the mid tier", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, map[string]string{
			manager.FieldCustomTitle: "x",
			manager.FieldControlCode: "NEW-1",
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrPlanStructural)
	})

	t.Run("Should list refused fields", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, map[string]string{
			"title":    "x",
			"priority": "high",
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrPlanFieldsNotAllowed)
		assert.Contains(t, err.Error(), "priority, title")
	})

	t.Run("Should allow structural edits on enterprise", func(t *testing.T) {
		var target model.CompanySubcategory
		require.NoError(t, env.store(t, "ent-co").Where("id <> ?", entControl.SubcategoryID).First(&target).Error)

		control, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldControlCode: "ENT-<i>1</i>",
			manager.FieldSubcategory: target.ID.String(),
		}, "")
		require.NoError(t, err)

		assert.Equal(t, "ENT-1", control.ControlCode)
		assert.Equal(t, target.ID, control.SubcategoryID)
		assert.Equal(t, "system", control.CustomizedBy)
	})

	t.Run("Should accept every control field on enterprise", func(t *testing.T) {
		control, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldTitle:       "Enterprise access",
			manager.FieldDescription: "<p>Owned by IT</p>",
			manager.FieldRiskLevel:   "HIGH",
			manager.FieldControlID:   "ENT-2",
		}, "alice")
		require.NoError(t, err)

		assert.Equal(t, "Enterprise access", control.Title)
		assert.Equal(t, "<p>Owned by IT</p>", control.Description)
		assert.Equal(t, "HIGH", control.RiskLevel)
		assert.Equal(t, "ENT-2", control.ControlCode)
	})

	t.Run("Should move a control to another domain on enterprise", func(t *testing.T) {
		current := &model.CompanySubcategory{}
		require.NoError(t, env.store(t, "ent-co").First(current, "id = ?", entControl.SubcategoryID).Error)

		category := &model.CompanyCategory{}
		require.NoError(t, env.store(t, "ent-co").First(category, "id = ?", current.CategoryID).Error)

		var other model.CompanyDomain
		require.NoError(t, env.store(t, "ent-co").Where("id <> ?", category.DomainID).First(&other).Error)

		control, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldFramework: other.FrameworkID.String(),
			manager.FieldDomain:    other.ID.String(),
		}, "alice")
		require.NoError(t, err)

		moved := &model.CompanySubcategory{}
		require.NoError(t, env.store(t, "ent-co").First(moved, "id = ?", control.SubcategoryID).Error)

		movedCategory := &model.CompanyCategory{}
		require.NoError(t, env.store(t, "ent-co").First(movedCategory, "id = ?", moved.CategoryID).Error)
		assert.Equal(t, other.ID, movedCategory.DomainID)
	})

	t.Run("Should move a control to the first subcategory of a category", func(t *testing.T) {
		var category model.CompanyCategory
		require.NoError(t, env.store(t, "ent-co").Order("sort_order").Last(&category).Error)

		control, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldCategory: category.ID.String(),
		}, "alice")
		require.NoError(t, err)

		moved := &model.CompanySubcategory{}
		require.NoError(t, env.store(t, "ent-co").First(moved, "id = ?", control.SubcategoryID).Error)
		assert.Equal(t, category.ID, moved.CategoryID)
	})

	t.Run("Should refuse a subcategory outside the named category", func(t *testing.T) {
		var subcategory model.CompanySubcategory
		require.NoError(t, env.store(t, "ent-co").First(&subcategory).Error)

		var category model.CompanyCategory
		require.NoError(t, env.store(t, "ent-co").Where("id <> ?", subcategory.CategoryID).First(&category).Error)

		_, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldSubcategory: subcategory.ID.String(),
			manager.FieldCategory:    category.ID.String(),
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrInvalidPlacement)
	})

	t.Run("Should refuse an unknown domain", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldDomain: uuid.NewString(),
		}, "")
		assert.ErrorIs(t, err, manager.ErrNodeNotFound)
	})

	t.Run("Should refuse fields a control does not have", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			"can_customize": "false",
			"priority":      "high",
		}, "")
		assert.ErrorIs(t, err, manager.ErrUnknownControlField)
		assert.Contains(t, err.Error(), "can_customize, priority")
	})

	t.Run("Should refuse an unknown subcategory", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(entCtx, entControl.ID, map[string]string{
			manager.FieldSubcategory: uuid.NewString(),
		}, "")
		assert.ErrorIs(t, err, manager.ErrNodeNotFound)
	})

	t.Run("Should follow the current plan over the copy default", func(t *testing.T) {
		require.NoError(t, env.store(t, "pro-co").Model(&model.CompanyControl{}).
			Where("id = ?", proControl.ID).Update("can_customize", false).Error)

		control, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, map[string]string{
			manager.FieldCustomObjective: "x",
		}, "alice")
		require.NoError(t, err)
		assert.True(t, control.CanCustomize)
	})

	t.Run("Should refuse deactivated controls", func(t *testing.T) {
		require.NoError(t, env.store(t, "pro-co").Model(&model.CompanyControl{}).
			Where("id = ?", proControl.ID).Update("is_active", false).Error)

		_, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, map[string]string{
			manager.FieldCustomObjective: "x",
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrControlLocked)
	})

	t.Run("Should report unknown controls", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(proCtx, uuid.New(), map[string]string{
			manager.FieldCustomObjective: "x",
		}, "alice")
		assert.ErrorIs(t, err, manager.ErrControlNotFound)
	})

	t.Run("Should need changes", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(proCtx, proControl.ID, nil, "alice")
		assert.ErrorIs(t, err, manager.ErrNoChanges)
	})

	t.Run("Should need a tenant", func(t *testing.T) {
		_, err := env.mgr.Customization.CustomizeControl(t.Context(), proControl.ID, map[string]string{
			manager.FieldCustomObjective: "x",
		}, "alice")
		assert.Error(t, err)
	})
}

func TestCustomizeControlAfterPlanUpgrade(t *testing.T) {
	env := newTestEnv(t)

	fw := testutils.CreateFramework(t, env.shared, "FW-upgrade", "1", smallShape)
	env.createTenant(t, "grow-co", model.PlanBasic)

	_, err := env.mgr.Distribution.Distribute(t.Context(), "grow-co", fw.ID, model.CustomizationViewOnly)
	require.NoError(t, err)

	control := &model.CompanyControl{}
	require.NoError(t, env.store(t, "grow-co").Order("control_code").First(control).Error)
	require.False(t, control.CanCustomize)

	ctx := tenantCtx(t, "grow-co")
	changes := map[string]string{manager.FieldCustomTitle: "Our access reviews"}

	_, err = env.mgr.Customization.CustomizeControl(ctx, control.ID, changes, "alice")
	require.ErrorIs(t, err, manager.ErrPlanCustomization)

	enterprise := &model.SubscriptionPlan{}
	require.NoError(t, env.shared.First(enterprise, "code = ?", model.PlanEnterprise).Error)
	require.NoError(t, env.shared.Model(&model.Tenant{}).
		Where("slug = ?", "grow-co").Update("plan_id", enterprise.ID).Error)

	customized, err := env.mgr.Customization.CustomizeControl(ctx, control.ID, changes, "alice")
	require.NoError(t, err)

	assert.True(t, customized.CanCustomize)
	assert.Equal(t, "Our access reviews", customized.EffectiveTitle())
}
