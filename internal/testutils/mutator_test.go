package testutils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/compliance-hub/internal/config"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

func TestNewMutator(t *testing.T) {
	mutator := testutils.NewMutator(func() config.Tenancy {
		return config.Tenancy{
			TrialDays:          14,
			ReservedSubdomains: []string{"www"},
		}
	})

	t.Run("Should return the base value", func(t *testing.T) {
		got := mutator(func(*config.Tenancy) {})
		assert.Equal(t, 14, got.TrialDays)
	})

	t.Run("Should not leak mutations into later values", func(t *testing.T) {
		changed := mutator(func(c *config.Tenancy) {
			c.TrialDays = 30
			c.ReservedSubdomains = append(c.ReservedSubdomains, "api")
		})
		assert.Equal(t, 30, changed.TrialDays)
		assert.Equal(t, []string{"www", "api"}, changed.ReservedSubdomains)

		fresh := mutator(func(*config.Tenancy) {})
		assert.Equal(t, 14, fresh.TrialDays)
		assert.Equal(t, []string{"www"}, fresh.ReservedSubdomains)
	})
}
