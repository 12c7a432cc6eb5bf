package repo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/compliance-hub/internal/repo"
)

func TestCompositeKey(t *testing.T) {
	t.Run("Should default to equality", func(t *testing.T) {
		key := repo.NewCompositeKey().Where(repo.SlugField, "acmecorp")
		assert.Len(t, key.Conds, 1)
		assert.Equal(t, repo.Equal, key.Conds[0].Value.Key.Operation)
	})

	t.Run("Should apply single option", func(t *testing.T) {
		key := repo.NewCompositeKey().Where(repo.TrialEndsAtField, 3, repo.Lt)
		assert.Equal(t, repo.LessThan, key.Conds[0].Value.Key.Operation)
	})

	t.Run("Should refuse multiple options", func(t *testing.T) {
		key := repo.NewCompositeKey().Where(repo.StatusField, "ACTIVE", repo.Lt, repo.Gt)
		assert.ErrorIs(t, key.Conds[0].Value.Err, repo.ErrMultipleOperationsProvided)
	})
}

func TestCompositeKeyGroupString(t *testing.T) {
	group := repo.NewCompositeKeyGroup(
		repo.NewCompositeKey().
			Where(repo.IsActiveField, true).
			Where(repo.SlugField, "acmecorp"),
	)

	assert.Equal(t, "is_active = 'true' AND slug = 'acmecorp'", group.String())
}

func TestQueryBuilder(t *testing.T) {
	q := repo.NewQuery().
		SetLimit(5).
		SetOffset(10).
		Update(repo.StatusField).
		Preload(repo.Preload{repo.PlanAssociation}).
		Order(repo.OrderField{Field: repo.CreatedField, Direction: repo.Desc})

	assert.Equal(t, 5, q.Limit)
	assert.Equal(t, 10, q.Offset)
	assert.Equal(t, []string{repo.StatusField}, q.UpdateFields.Fields)
	assert.Equal(t, repo.Preload{"Plan"}, q.PreloadModel)
	assert.Len(t, q.OrderFields, 1)
}
