package benchmark_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/testutils"
)

const maxConcurrentTenants = 8

var benchShape = testutils.FrameworkShape{
	Domains:       4,
	Categories:    3,
	Subcategories: 3,
	Controls:      5,
	Questions:     2,
	Evidence:      2,
}

func setupBenchmark(b *testing.B, nTenants int) (*manager.Manager, *model.Framework, []string) {
	b.Helper()

	shared := testutils.NewSharedStore(b)
	testutils.SeedPlans(b, shared)
	fw := testutils.CreateFramework(b, shared, "ISO27001", "2022", benchShape)

	m, _ := testutils.NewManager(b, shared)

	slugs := make([]string, 0, nTenants)
	for i := range nTenants {
		slug := fmt.Sprintf("bench-%d", i)

		_, err := m.Tenants.CreateTenant(b.Context(), manager.CreateTenantRequest{
			Slug:        slug,
			CompanyName: "Bench " + slug,
			PlanCode:    model.PlanEnterprise,
		})
		require.NoError(b, err)

		slugs = append(slugs, slug)
	}

	return m, fw, slugs
}

func BenchmarkDistribute(b *testing.B) {
	m, fw, slugs := setupBenchmark(b, 1)

	b.ResetTimer()

	for b.Loop() {
		_, err := m.Distribution.Distribute(b.Context(), slugs[0], fw.ID, model.CustomizationControlLevel)
		require.NoError(b, err)
	}
}

func BenchmarkDistributeConcurrentTenants(b *testing.B) {
	for _, nTenants := range []int{4, 16} {
		b.Run(fmt.Sprintf("tenants=%d", nTenants), func(b *testing.B) {
			m, fw, slugs := setupBenchmark(b, nTenants)

			sem := semaphore.NewWeighted(maxConcurrentTenants)

			b.ResetTimer()

			for b.Loop() {
				var wg sync.WaitGroup

				for _, slug := range slugs {
					require.NoError(b, sem.Acquire(b.Context(), 1))

					wg.Add(1)

					go func() {
						defer wg.Done()
						defer sem.Release(1)

						_, err := m.Distribution.Distribute(b.Context(), slug, fw.ID, model.CustomizationControlLevel)
						if err != nil {
							b.Error(err)
						}
					}()
				}

				wg.Wait()
			}
		})
	}
}

func BenchmarkValidateCompleteness(b *testing.B) {
	m, fw, _ := setupBenchmark(b, 0)

	b.ResetTimer()

	for b.Loop() {
		_, err := m.Validator.ValidateCompleteness(b.Context(), fw.ID)
		require.NoError(b, err)
	}
}
