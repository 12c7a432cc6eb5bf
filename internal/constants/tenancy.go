package constants

const (
	// TenantHeader carries an explicit tenant slug on inbound requests.
	TenantHeader = "X-Tenant-Slug"

	// SharedConnectionID names the system catalog connection.
	SharedConnectionID = "default"

	// TenantConnectionSuffix is appended to a slug to name its connection.
	TenantConnectionSuffix = "_store"

	// TenantInfoCachePrefix prefixes cached tenant lookups.
	TenantInfoCachePrefix = "tenant_db_info:"

	DefaultTrialDays = 14
)

// Permission codes checked by the membership provider.
const (
	PermissionManageFrameworks = "manage_frameworks"
	PermissionCustomizeControl = "customize_control"
	PermissionViewCompliance   = "view_compliance"
)
