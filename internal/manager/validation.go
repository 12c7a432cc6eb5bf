package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
)

type HierarchyStats struct {
	Domains       int `json:"domains"`
	Categories    int `json:"categories"`
	Subcategories int `json:"subcategories"`
	Controls      int `json:"controls"`
}

type CompletenessReport struct {
	FrameworkID     uuid.UUID      `json:"frameworkId"`
	IsComplete      bool           `json:"isComplete"`
	IsDistributable bool           `json:"isDistributable"`
	Issues          []string       `json:"issues"`
	Warnings        []string       `json:"warnings"`
	Stats           HierarchyStats `json:"stats"`
}

type NodeKind string

const (
	NodeFramework   NodeKind = "framework"
	NodeDomain      NodeKind = "domain"
	NodeCategory    NodeKind = "category"
	NodeSubcategory NodeKind = "subcategory"
	NodeControl     NodeKind = "control"
)

// NodeRef points at one template node.
type NodeRef struct {
	Kind NodeKind
	ID   uuid.UUID
}

type HierarchyPath struct {
	IsValid      bool                   `json:"isValid"`
	Path         map[NodeKind]uuid.UUID `json:"path"`
	MissingLinks []NodeKind             `json:"missingLinks"`
}

// OrphanReport lists active template nodes whose parent is missing or
// inactive.
type OrphanReport struct {
	Domains       []uuid.UUID `json:"domains"`
	Categories    []uuid.UUID `json:"categories"`
	Subcategories []uuid.UUID `json:"subcategories"`
	Controls      []uuid.UUID `json:"controls"`
	Count         int         `json:"count"`
}

// Validator checks the template hierarchy of the system catalog.
type Validator struct {
	repo repo.Repo
}

func NewValidator(r repo.Repo) *Validator {
	return &Validator{repo: r}
}

func (v *Validator) ValidateCompleteness(ctx context.Context, frameworkID uuid.UUID) (*CompletenessReport, error) {
	fw, err := loadFramework(ctx, v.repo, frameworkID, true)
	if err != nil {
		return nil, err
	}

	tree, err := loadTemplateTree(ctx, v.repo, fw)
	if err != nil {
		return nil, err
	}

	return completeness(tree), nil
}

// ValidateForDistribution fails with ErrNotDistributable when the framework
// cannot be copied into a tenant store.
func (v *Validator) ValidateForDistribution(ctx context.Context, frameworkID uuid.UUID) error {
	_, err := v.distributableTree(ctx, frameworkID)
	return err
}

func (v *Validator) distributableTree(ctx context.Context, frameworkID uuid.UUID) (*templateTree, error) {
	fw, err := loadFramework(ctx, v.repo, frameworkID, false)
	if err != nil {
		return nil, err
	}

	tree, err := loadTemplateTree(ctx, v.repo, fw)
	if err != nil {
		return nil, err
	}

	report := completeness(tree)
	if !report.IsDistributable {
		reasons := report.Issues
		if len(reasons) == 0 {
			reasons = []string{"framework hierarchy is incomplete"}
		}

		return nil, errs.Wrapf(ErrNotDistributable, strings.Join(reasons, "; "))
	}

	return tree, nil
}

func completeness(tree *templateTree) *CompletenessReport {
	report := &CompletenessReport{
		FrameworkID: tree.framework.ID,
		Issues:      []string{},
		Warnings:    []string{},
		Stats:       tree.stats(),
	}

	if report.Stats.Domains == 0 {
		report.Issues = append(report.Issues, "Framework has no domains")
	}

	if report.Stats.Controls == 0 {
		report.Issues = append(report.Issues, "Framework has no controls")
	}

	for _, d := range tree.domains {
		categories := tree.categories[d.ID]
		if len(categories) == 0 {
			report.Issues = append(report.Issues, fmt.Sprintf("Domain '%s' has no categories", d.Code))
			continue
		}

		for _, c := range categories {
			subcategories := tree.subcategories[c.ID]
			if len(subcategories) == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("Category '%s' has no subcategories", c.Code))
				continue
			}

			for _, s := range subcategories {
				if len(tree.controls[s.ID]) == 0 {
					report.Warnings = append(report.Warnings, fmt.Sprintf("Subcategory '%s' has no controls", s.Code))
				}
			}
		}
	}

	s := report.Stats
	report.IsComplete = s.Domains > 0 && s.Categories > 0 && s.Subcategories > 0 && s.Controls > 0
	report.IsDistributable = report.IsComplete && len(report.Issues) == 0

	return report
}

// HierarchyPath walks from node up to its framework. The walk stops at the
// first parent that is unset or cannot be found.
func (v *Validator) HierarchyPath(ctx context.Context, node NodeRef) (*HierarchyPath, error) {
	if _, ok := parentKind[node.Kind]; !ok && node.Kind != NodeFramework {
		return nil, errs.Wrapf(ErrUnknownNodeKind, string(node.Kind))
	}

	path := &HierarchyPath{
		Path:         map[NodeKind]uuid.UUID{},
		MissingLinks: []NodeKind{},
	}

	kind := node.Kind
	id := &node.ID
	first := true

	for {
		parent, err := v.parentOf(ctx, kind, *id)
		if errors.Is(err, repo.ErrNotFound) {
			if first {
				return nil, errs.Wrapf(ErrNodeNotFound, string(kind)+" "+id.String())
			}

			path.MissingLinks = append(path.MissingLinks, kind)

			break
		}

		if err != nil {
			return nil, err
		}

		first = false
		path.Path[kind] = *id

		if kind == NodeFramework {
			break
		}

		kind = parentKind[kind]

		if parent == nil {
			path.MissingLinks = append(path.MissingLinks, kind)
			break
		}

		id = parent
	}

	path.IsValid = len(path.MissingLinks) == 0

	return path, nil
}

var parentKind = map[NodeKind]NodeKind{
	NodeDomain:      NodeFramework,
	NodeCategory:    NodeDomain,
	NodeSubcategory: NodeCategory,
	NodeControl:     NodeSubcategory,
}

// parentOf loads the node of kind and returns its parent id.
func (v *Validator) parentOf(ctx context.Context, kind NodeKind, id uuid.UUID) (*uuid.UUID, error) {
	query := *repo.NewQuery().Where(repo.NewCompositeKeyGroup(repo.NewCompositeKey().Where(repo.IDField, id)))

	switch kind {
	case NodeFramework:
		_, err := v.repo.First(ctx, &model.Framework{}, query)
		return nil, err
	case NodeDomain:
		d := &model.Domain{}
		_, err := v.repo.First(ctx, d, query)

		return d.FrameworkID, err
	case NodeCategory:
		c := &model.Category{}
		_, err := v.repo.First(ctx, c, query)

		return c.DomainID, err
	case NodeSubcategory:
		s := &model.Subcategory{}
		_, err := v.repo.First(ctx, s, query)

		return s.CategoryID, err
	case NodeControl:
		c := &model.Control{}
		_, err := v.repo.First(ctx, c, query)

		return c.SubcategoryID, err
	default:
		return nil, errs.Wrapf(ErrUnknownNodeKind, string(kind))
	}
}

// OrphanedItems reports active nodes whose parent is unset or inactive.
func (v *Validator) OrphanedItems(ctx context.Context) (*OrphanReport, error) {
	report := &OrphanReport{}

	var err error

	report.Domains, err = orphansOf[model.Framework, model.Domain](ctx, v.repo, repo.FrameworkIDField)
	if err != nil {
		return nil, err
	}

	report.Categories, err = orphansOf[model.Domain, model.Category](ctx, v.repo, repo.DomainIDField)
	if err != nil {
		return nil, err
	}

	report.Subcategories, err = orphansOf[model.Category, model.Subcategory](ctx, v.repo, repo.CategoryIDField)
	if err != nil {
		return nil, err
	}

	report.Controls, err = orphansOf[model.Subcategory, model.Control](ctx, v.repo, repo.SubcategoryIDField)
	if err != nil {
		return nil, err
	}

	report.Count = len(report.Domains) + len(report.Categories) + len(report.Subcategories) + len(report.Controls)

	return report, nil
}

type resourceNode interface {
	repo.Resource
	identified
}

// orphansOf returns the ids of active C rows whose field is null or points
// at an inactive P.
func orphansOf[P, C resourceNode](ctx context.Context, r repo.Repo, field repo.QueryField) ([]uuid.UUID, error) {
	unset, err := listAll[C](ctx, r, repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(field, repo.Null).
			Where(repo.IsActiveField, true))))
	if err != nil {
		return nil, err
	}

	inactive, err := listAll[P](ctx, r, repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().Where(repo.IsActiveField, false))))
	if err != nil {
		return nil, err
	}

	below, err := listByParent[C](ctx, r, field, derefIDs(inactive))
	if err != nil {
		return nil, err
	}

	return append(derefIDs(unset), derefIDs(below)...), nil
}

func derefIDs[T identified](items []*T) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, (*item).GetID())
	}

	return out
}
