package manager_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

func TestValidateCompleteness(t *testing.T) {
	tests := []struct {
		name            string
		shape           testutils.FrameworkShape
		complete        bool
		distributable   bool
		issues          []string
		warnings        []string
		expectedDomains int
	}{
		{
			name:            "complete framework",
			shape:           smallShape,
			complete:        true,
			distributable:   true,
			issues:          []string{},
			warnings:        []string{},
			expectedDomains: 2,
		},
		{
			name:     "no domains",
			shape:    testutils.FrameworkShape{},
			issues:   []string{"Framework has no domains", "Framework has no controls"},
			warnings: []string{},
		},
		{
			name:            "domain without categories",
			shape:           testutils.FrameworkShape{Domains: 1},
			issues:          []string{"Framework has no controls", "Domain 'D0' has no categories"},
			warnings:        []string{},
			expectedDomains: 1,
		},
		{
			name:            "subcategory without controls",
			shape:           testutils.FrameworkShape{Domains: 1, Categories: 1, Subcategories: 1},
			issues:          []string{"Framework has no controls"},
			warnings:        []string{"Subcategory 'S0.0.0' has no controls"},
			expectedDomains: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			fw := testutils.CreateFramework(t, env.shared, "FW", "1", tt.shape)

			report, err := env.mgr.Validator.ValidateCompleteness(t.Context(), fw.ID)
			require.NoError(t, err)

			assert.Equal(t, fw.ID, report.FrameworkID)
			assert.Equal(t, tt.complete, report.IsComplete)
			assert.Equal(t, tt.distributable, report.IsDistributable)
			assert.Equal(t, tt.issues, report.Issues)
			assert.Equal(t, tt.warnings, report.Warnings)
			assert.Equal(t, tt.expectedDomains, report.Stats.Domains)

			err = env.mgr.Validator.ValidateForDistribution(t.Context(), fw.ID)
			if tt.distributable {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, manager.ErrNotDistributable)
			}
		})
	}

	t.Run("Should warn about a category without subcategories", func(t *testing.T) {
		env := newTestEnv(t)
		fw := testutils.CreateFramework(t, env.shared, "FW", "1", smallShape)

		var domain model.Domain
		require.NoError(t, env.shared.Where("code = ?", "D0").First(&domain).Error)
		require.NoError(t, env.shared.Create(&model.Category{
			Node:     model.Node{IsActive: true, SortOrder: 9},
			DomainID: &domain.ID,
			Name:     "Empty",
			Code:     "EMPTY",
		}).Error)

		report, err := env.mgr.Validator.ValidateCompleteness(t.Context(), fw.ID)
		require.NoError(t, err)
		assert.True(t, report.IsDistributable)
		assert.Equal(t, []string{"Category 'EMPTY' has no subcategories"}, report.Warnings)
	})

	t.Run("Should refuse inactive frameworks for distribution", func(t *testing.T) {
		env := newTestEnv(t)
		fw := testutils.CreateFramework(t, env.shared, "FW", "1", smallShape)
		require.NoError(t, env.shared.Model(&model.Framework{}).Where("id = ?", fw.ID).Update("is_active", false).Error)

		err := env.mgr.Validator.ValidateForDistribution(t.Context(), fw.ID)
		assert.ErrorIs(t, err, manager.ErrFrameworkNotFound)
	})
}

func TestHierarchyPath(t *testing.T) {
	env := newTestEnv(t)
	fw := testutils.CreateFramework(t, env.shared, "FW", "1", smallShape)

	t.Run("Should walk a control up to its framework", func(t *testing.T) {
		var control model.Control
		require.NoError(t, env.shared.First(&control).Error)

		path, err := env.mgr.Validator.HierarchyPath(t.Context(), manager.NodeRef{Kind: manager.NodeControl, ID: control.ID})
		require.NoError(t, err)

		assert.True(t, path.IsValid)
		assert.Empty(t, path.MissingLinks)
		assert.Len(t, path.Path, 5)
		assert.Equal(t, fw.ID, path.Path[manager.NodeFramework])
		assert.Equal(t, control.ID, path.Path[manager.NodeControl])
	})

	t.Run("Should report a missing parent", func(t *testing.T) {
		orphan := &model.Domain{Node: model.Node{IsActive: true}, Name: "Orphan", Code: "ORPHAN"}
		require.NoError(t, env.shared.Create(orphan).Error)

		category := &model.Category{Node: model.Node{IsActive: true}, DomainID: &orphan.ID, Name: "C", Code: "C"}
		require.NoError(t, env.shared.Create(category).Error)

		path, err := env.mgr.Validator.HierarchyPath(t.Context(), manager.NodeRef{Kind: manager.NodeCategory, ID: category.ID})
		require.NoError(t, err)

		assert.False(t, path.IsValid)
		assert.Equal(t, []manager.NodeKind{manager.NodeFramework}, path.MissingLinks)
		assert.Equal(t, orphan.ID, path.Path[manager.NodeDomain])
	})

	t.Run("Should report a dangling parent", func(t *testing.T) {
		missing := uuid.New()
		sub := &model.Subcategory{Node: model.Node{IsActive: true}, CategoryID: &missing, Name: "S", Code: "S"}
		require.NoError(t, env.shared.Create(sub).Error)

		path, err := env.mgr.Validator.HierarchyPath(t.Context(), manager.NodeRef{Kind: manager.NodeSubcategory, ID: sub.ID})
		require.NoError(t, err)

		assert.False(t, path.IsValid)
		assert.Equal(t, []manager.NodeKind{manager.NodeCategory}, path.MissingLinks)
	})

	t.Run("Should fail on unknown nodes", func(t *testing.T) {
		_, err := env.mgr.Validator.HierarchyPath(t.Context(), manager.NodeRef{Kind: manager.NodeControl, ID: uuid.New()})
		assert.ErrorIs(t, err, manager.ErrNodeNotFound)

		_, err = env.mgr.Validator.HierarchyPath(t.Context(), manager.NodeRef{Kind: "question", ID: uuid.New()})
		assert.ErrorIs(t, err, manager.ErrUnknownNodeKind)
	})
}

func TestOrphanedItems(t *testing.T) {
	env := newTestEnv(t)
	testutils.CreateFramework(t, env.shared, "FW", "1", smallShape)

	report, err := env.mgr.Validator.OrphanedItems(t.Context())
	require.NoError(t, err)
	assert.Zero(t, report.Count)

	orphan := &model.Domain{Node: model.Node{IsActive: true}, Name: "Orphan", Code: "ORPHAN"}
	require.NoError(t, env.shared.Create(orphan).Error)

	var inactive model.Category
	require.NoError(t, env.shared.Where("code = ?", "C0.0").First(&inactive).Error)
	require.NoError(t, env.shared.Model(&inactive).Update("is_active", false).Error)

	var below model.Subcategory
	require.NoError(t, env.shared.Where("category_id = ?", inactive.ID).First(&below).Error)

	report, err = env.mgr.Validator.OrphanedItems(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{orphan.ID}, report.Domains)
	assert.Equal(t, []uuid.UUID{below.ID}, report.Subcategories)
	assert.Empty(t, report.Categories)
	assert.Equal(t, 2, report.Count)
}
