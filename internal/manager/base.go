package manager

import (
	"github.com/openkcm/compliance-hub/internal/cache"
	"github.com/openkcm/compliance-hub/internal/repo"
	"github.com/openkcm/compliance-hub/internal/router"
	"github.com/openkcm/compliance-hub/utils/crypto"
)

// Manager groups the services the processes are built from.
type Manager struct {
	Tenants       *TenantManager
	Plans         *PlanManager
	Distribution  *DistributionManager
	Customization *CustomizationManager
	Validator     *Validator
	Auditor       *Auditor
}

func New(
	r repo.Repo,
	rt *router.Router,
	provisioner Provisioner,
	tenantCache cache.TenantInfoCache,
	sealer crypto.Sealer,
	opts ...TenantOption,
) *Manager {
	auditor := NewAuditor(r)
	validator := NewValidator(r)
	distribution := NewDistributionManager(r, rt, validator, auditor)

	return &Manager{
		Tenants:       NewTenantManager(r, rt, provisioner, tenantCache, sealer, auditor, distribution, opts...),
		Plans:         NewPlanManager(r),
		Distribution:  distribution,
		Customization: NewCustomizationManager(r),
		Validator:     validator,
		Auditor:       auditor,
	}
}
