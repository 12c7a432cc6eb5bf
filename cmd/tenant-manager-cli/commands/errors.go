package commands

import "errors"

var (
	ErrTenantSlugRequired  = errors.New("tenant slug is required")
	ErrFrameworkIDRequired = errors.New("framework id is required")
	ErrInvalidFrameworkID  = errors.New("framework id is not a valid uuid")
	ErrQueueNotConfigured  = errors.New("task queue is not configured")
	ErrFrameworkIncomplete = errors.New("framework is not distributable")
	ErrSubscriptionsFailed = errors.New("one or more subscriptions failed")
)
