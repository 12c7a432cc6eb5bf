package testutils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/openkcm/compliance-hub/internal/model"
)

// SeedPlans stores the default plan catalog and returns it by code.
func SeedPlans(tb testing.TB, db *gorm.DB) map[model.PlanCode]*model.SubscriptionPlan {
	tb.Helper()

	plans, err := model.DefaultPlans()
	require.NoError(tb, err)

	byCode := make(map[model.PlanCode]*model.SubscriptionPlan, len(plans))

	for _, p := range plans {
		require.NoError(tb, db.Create(p).Error)
		byCode[p.Code] = p
	}

	return byCode
}

// FrameworkShape gives the fan out of every level of a generated template.
type FrameworkShape struct {
	Domains       int
	Categories    int
	Subcategories int
	Controls      int
	Questions     int
	Evidence      int
}

// TotalControls is the number of controls the shape produces.
func (s FrameworkShape) TotalControls() int {
	return s.Domains * s.Categories * s.Subcategories * s.Controls
}

// CreateFramework stores an active template framework of the given shape.
// Sort orders are assigned in reverse so that ordered reads differ from
// insertion order.
func CreateFramework(tb testing.TB, db *gorm.DB, name, version string, shape FrameworkShape) *model.Framework {
	tb.Helper()

	fw := &model.Framework{
		Node:     model.Node{IsActive: true},
		Name:     name,
		FullName: name + " full name",
		Version:  version,
		Status:   model.FrameworkActive,
	}
	require.NoError(tb, db.Create(fw).Error)

	for d := range shape.Domains {
		domain := &model.Domain{
			Node:        activeNode(shape.Domains - d),
			FrameworkID: &fw.ID,
			Name:        fmt.Sprintf("Domain %d", d),
			Code:        fmt.Sprintf("D%d", d),
		}
		require.NoError(tb, db.Create(domain).Error)

		for c := range shape.Categories {
			category := &model.Category{
				Node:     activeNode(shape.Categories - c),
				DomainID: &domain.ID,
				Name:     fmt.Sprintf("Category %d.%d", d, c),
				Code:     fmt.Sprintf("C%d.%d", d, c),
			}
			require.NoError(tb, db.Create(category).Error)

			for s := range shape.Subcategories {
				sub := &model.Subcategory{
					Node:       activeNode(shape.Subcategories - s),
					CategoryID: &category.ID,
					Name:       fmt.Sprintf("Subcategory %d.%d.%d", d, c, s),
					Code:       fmt.Sprintf("S%d.%d.%d", d, c, s),
				}
				require.NoError(tb, db.Create(sub).Error)

				createControls(tb, db, sub, fmt.Sprintf("%d.%d.%d", d, c, s), shape)
			}
		}
	}

	return fw
}

func createControls(tb testing.TB, db *gorm.DB, sub *model.Subcategory, prefix string, shape FrameworkShape) {
	tb.Helper()

	for k := range shape.Controls {
		control := &model.Control{
			Node:          activeNode(shape.Controls - k),
			SubcategoryID: &sub.ID,
			ControlCode:   fmt.Sprintf("%s.%d", prefix, k),
			Title:         fmt.Sprintf("Control %s.%d", prefix, k),
			Description:   "description",
			Objective:     "objective",
		}
		require.NoError(tb, db.Create(control).Error)

		for q := range shape.Questions {
			require.NoError(tb, db.Create(&model.AssessmentQuestion{
				Node:         activeNode(q + 1),
				ControlID:    &control.ID,
				Question:     fmt.Sprintf("Question %d?", q),
				QuestionType: "YES_NO",
				Options:      []string{"yes", "no"},
				IsMandatory:  true,
			}).Error)
		}

		for e := range shape.Evidence {
			require.NoError(tb, db.Create(&model.EvidenceRequirement{
				Node:         activeNode(e + 1),
				ControlID:    &control.ID,
				Title:        fmt.Sprintf("Evidence %d", e),
				Description:  "evidence",
				EvidenceType: "DOCUMENT",
			}).Error)
		}
	}
}

func activeNode(order int) model.Node {
	return model.Node{SortOrder: order, IsActive: true}
}
