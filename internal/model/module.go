package model

// Module names the logical owner of a set of entities. The owner decides
// which physical store the entities live in.
type Module string

const (
	ModuleAuth              Module = "auth"
	ModuleRoles             Module = "roles"
	ModuleTenantManagement  Module = "tenant_management"
	ModuleTemplatesHost     Module = "templates_host"
	ModuleCompanyCompliance Module = "company_compliance"
)

var systemCatalogModules = map[Module]struct{}{
	ModuleAuth:             {},
	ModuleRoles:            {},
	ModuleTenantManagement: {},
	ModuleTemplatesHost:    {},
}

var tenantModules = map[Module]struct{}{
	ModuleCompanyCompliance: {},
}

// IsSystemCatalog reports whether entities of m live in the shared store.
func (m Module) IsSystemCatalog() bool {
	_, ok := systemCatalogModules[m]
	return ok
}

// IsTenantScoped reports whether entities of m live in a tenant store.
func (m Module) IsTenantScoped() bool {
	_, ok := tenantModules[m]
	return ok
}

// Owned is implemented by every persisted entity.
type Owned interface {
	Module() Module
}
