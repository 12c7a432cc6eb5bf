package manager

import (
	"errors"
)

var (
	ErrTenantExists         = errors.New("tenant already exists")
	ErrCreatingTenant       = errors.New("failed to create tenant")
	ErrProvisioningFailed   = errors.New("tenant provisioning failed")
	ErrTenantState          = errors.New("operation not allowed in the current tenant state")
	ErrUpdatingTenant       = errors.New("failed to update tenant")
	ErrListTenants          = errors.New("failed to list tenants")
	ErrLoadTenantConnection = errors.New("failed to load tenant connection")
	ErrSeedingPlans         = errors.New("failed to seed subscription plans")

	ErrFrameworkNotFound  = errors.New("framework not found")
	ErrAlreadySubscribed  = errors.New("tenant is already subscribed to the framework")
	ErrFrameworkLimit     = errors.New("framework limit of the subscription plan reached")
	ErrFullCustomization  = errors.New("FULL customization requires a plan that can create custom frameworks")
	ErrDistributionFailed = errors.New("framework distribution failed")
	ErrNotImplemented     = errors.New("not implemented")
	ErrNotDistributable   = errors.New("framework is not distributable")
	ErrSubscriptionLookup = errors.New("failed to load framework subscription")

	ErrPlanCustomization    = errors.New("Control customization requires Professional or Enterprise plan") //nolint:staticcheck
	ErrPlanStructural       = errors.New("Modifying control structure requires Enterprise plan")           //nolint:staticcheck
	ErrPlanFieldsNotAllowed = errors.New("fields not allowed on the current plan")
	ErrUnknownControlField  = errors.New("unknown control fields")
	ErrControlLocked        = errors.New("control cannot be customized")
	ErrControlNotFound      = errors.New("control not found")
	ErrNoChanges            = errors.New("no changes given")
	ErrInvalidPlacement     = errors.New("control placement does not match the hierarchy")

	ErrUnknownNodeKind = errors.New("unknown hierarchy node kind")
	ErrNodeNotFound    = errors.New("hierarchy node not found")
)
