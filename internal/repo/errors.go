package repo

import "errors"

var (
	ErrInvalidUUID       = errors.New("invalid UUID format")
	ErrNotFound          = errors.New("resource not found")
	ErrUniqueConstraint  = errors.New("unique constraint violation")
	ErrCreateResource    = errors.New("failed to create resource")
	ErrUpdateResource    = errors.New("failed to update resource")
	ErrDeleteResource    = errors.New("failed to delete resource")
	ErrGetResource       = errors.New("failed to get resource")
	ErrSetResource       = errors.New("failed to set resource")
	ErrTransaction       = errors.New("failed to execute transaction")
	ErrResolveConnection = errors.New("failed to resolve connection for resource")
	ErrCrossStore        = errors.New("resource lives in another store than the transaction")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrPlanNotFound      = errors.New("subscription plan not found")
)
