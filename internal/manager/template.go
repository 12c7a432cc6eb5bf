package manager

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/utils/ptr"
)

const templateBatchSize = 500

// templateTree is the active part of a framework template, each level
// grouped by parent id and ordered by sort order.
type templateTree struct {
	framework     *model.Framework
	domains       []*model.Domain
	categories    map[uuid.UUID][]*model.Category
	subcategories map[uuid.UUID][]*model.Subcategory
	controls      map[uuid.UUID][]*model.Control
	questions     map[uuid.UUID][]*model.AssessmentQuestion
	evidence      map[uuid.UUID][]*model.EvidenceRequirement
}

// loadFramework returns the template framework with id. Inactive ones are
// only returned when includeInactive is set.
func loadFramework(ctx context.Context, r repo.Repo, id uuid.UUID, includeInactive bool) (*model.Framework, error) {
	fw := &model.Framework{}

	ck := repo.NewCompositeKey().Where(repo.IDField, id)
	if !includeInactive {
		ck = ck.Where(repo.IsActiveField, true)
	}

	_, err := r.First(ctx, fw, *repo.NewQuery().Where(repo.NewCompositeKeyGroup(ck)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.Wrapf(ErrFrameworkNotFound, id.String())
	}

	if err != nil {
		return nil, err
	}

	return fw, nil
}

// loadTemplateTree reads the active hierarchy below fw one level at a time.
func loadTemplateTree(ctx context.Context, r repo.Repo, fw *model.Framework) (*templateTree, error) {
	tree := &templateTree{framework: fw}

	var err error

	tree.domains, err = listByParent[model.Domain](ctx, r, repo.FrameworkIDField, []uuid.UUID{fw.ID})
	if err != nil {
		return nil, err
	}

	categories, err := listByParent[model.Category](ctx, r, repo.DomainIDField, ids(tree.domains))
	if err != nil {
		return nil, err
	}

	tree.categories = groupByParent(categories, func(c *model.Category) *uuid.UUID { return c.DomainID })

	subcategories, err := listByParent[model.Subcategory](ctx, r, repo.CategoryIDField, ids(categories))
	if err != nil {
		return nil, err
	}

	tree.subcategories = groupByParent(subcategories, func(s *model.Subcategory) *uuid.UUID { return s.CategoryID })

	controls, err := listByParent[model.Control](ctx, r, repo.SubcategoryIDField, ids(subcategories))
	if err != nil {
		return nil, err
	}

	tree.controls = groupByParent(controls, func(c *model.Control) *uuid.UUID { return c.SubcategoryID })

	controlIDs := ids(controls)

	questions, err := listByParent[model.AssessmentQuestion](ctx, r, repo.ControlIDField, controlIDs)
	if err != nil {
		return nil, err
	}

	tree.questions = groupByParent(questions, func(q *model.AssessmentQuestion) *uuid.UUID { return q.ControlID })

	evidence, err := listByParent[model.EvidenceRequirement](ctx, r, repo.ControlIDField, controlIDs)
	if err != nil {
		return nil, err
	}

	tree.evidence = groupByParent(evidence, func(e *model.EvidenceRequirement) *uuid.UUID { return e.ControlID })

	return tree, nil
}

// stats counts the nodes of every level of the tree.
func (t *templateTree) stats() HierarchyStats {
	s := HierarchyStats{Domains: len(t.domains)}

	for _, cs := range t.categories {
		s.Categories += len(cs)
	}

	for _, ss := range t.subcategories {
		s.Subcategories += len(ss)
	}

	for _, cs := range t.controls {
		s.Controls += len(cs)
	}

	return s
}

// listByParent returns the active rows of T whose field is one of parents,
// ordered by sort order.
func listByParent[T repo.Resource](
	ctx context.Context,
	r repo.Repo,
	field repo.QueryField,
	parents []uuid.UUID,
) ([]*T, error) {
	if len(parents) == 0 {
		return nil, nil
	}

	return listAll[T](ctx, r, repo.NewQuery().Where(repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(field, parents).
			Where(repo.IsActiveField, true))))
}

// listAll drains query in batches. Results are ordered by sort order then id
// so that paging is stable.
func listAll[T repo.Resource](ctx context.Context, r repo.Repo, query *repo.Query) ([]*T, error) {
	var all []*T

	query = query.Order(
		repo.OrderField{Field: repo.SortOrderField, Direction: repo.Asc},
		repo.OrderField{Field: repo.IDField, Direction: repo.Asc},
	)

	err := repo.ProcessInBatch(ctx, r, query, templateBatchSize, func(items []*T) error {
		all = append(all, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

func groupByParent[T any](items []*T, parent func(*T) *uuid.UUID) map[uuid.UUID][]*T {
	grouped := make(map[uuid.UUID][]*T)

	for _, item := range items {
		p := parent(item)
		if !ptr.IsNotNilUUID(p) {
			continue
		}

		grouped[*p] = append(grouped[*p], item)
	}

	return grouped
}

type identified interface {
	GetID() uuid.UUID
}

func ids[T identified](items []T) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		out = append(out, item.GetID())
	}

	return out
}
