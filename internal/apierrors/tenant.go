package apierrors

import (
	"errors"
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
)

var (
	ErrTenantRequired      = errors.New("tenant identification required")
	ErrInvalidTenantID     = errors.New("invalid tenant identifier")
	ErrTenantNotAccessible = errors.New("tenant not available")
	ErrTenantContext       = errors.New("failed to set tenant context")
	ErrNoPrincipal         = errors.New("authentication required")
	ErrNoMembership        = errors.New("principal is not a member of the tenant")
	ErrMembershipInactive  = errors.New("membership does not grant access")
	ErrMembershipLookup    = errors.New("failed to load tenant membership")
)

const (
	TenantRequired      = "TENANT_REQUIRED"
	InvalidTenantID     = "INVALID_TENANT_ID"
	TenantNotAccessible = "TENANT_NOT_AVAILABLE"
	AccessDenied        = "ACCESS_DENIED"
)

// DetailError carries the caller facing detail of a failed request next to
// its internal cause.
type DetailError struct {
	Err    error
	Detail string
}

func (e *DetailError) Error() string {
	return e.Err.Error() + ": " + e.Detail
}

func (e *DetailError) Unwrap() error {
	return e.Err
}

func WithDetail(err error, detail string) error {
	return &DetailError{Err: err, Detail: detail}
}

func detailOr(fallback string) func(error) string {
	return func(err error) string {
		var detail *DetailError
		if errors.As(err, &detail) && detail.Detail != "" {
			return detail.Detail
		}

		return fallback
	}
}

var tenancy = []errs.Mapping{
	{
		InternalErrorChain: []error{ErrTenantRequired},
		Exposed: errs.ExposedError{
			Code:    TenantRequired,
			Message: "Please provide tenant via header (X-Tenant-Slug), subdomain, or URL path",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{ErrInvalidTenantID},
		Exposed: errs.ExposedError{
			Code:    InvalidTenantID,
			Message: "Tenant slug must be 3-50 lowercase alphanumeric characters with hyphens",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{ErrTenantNotAccessible},
		Exposed: errs.ExposedError{
			Code:    TenantNotAccessible,
			Message: "Tenant is not available. Please contact support.",
			Status:  http.StatusForbidden,
		},
		Detail: detailOr("Tenant is not available. Please contact support."),
	},
	{
		InternalErrorChain: []error{ErrTenantContext},
		Exposed: errs.ExposedError{
			Code:    InternalServerErr,
			Message: "Internal error setting tenant context",
			Status:  http.StatusInternalServerError,
		},
	},
	{
		InternalErrorChain: []error{ErrNoPrincipal},
		Exposed: errs.ExposedError{
			Code:    UnauthorizedErr,
			Message: "Authentication credentials were not provided or are invalid",
			Status:  http.StatusUnauthorized,
		},
	},
	{
		InternalErrorChain: []error{ErrNoMembership},
		Exposed: errs.ExposedError{
			Code:    AccessDenied,
			Message: "You do not have access to this tenant. Please contact your administrator.",
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{ErrMembershipInactive},
		Exposed: errs.ExposedError{
			Code:    AccessDenied,
			Message: "Your access to this tenant is not active. Please contact your administrator.",
			Status:  http.StatusForbidden,
		},
		Detail: detailOr("Your access to this tenant is not active. Please contact your administrator."),
	},
	{
		InternalErrorChain: []error{ErrMembershipLookup},
		Exposed: errs.ExposedError{
			Code:    InternalServerErr,
			Message: "Failed to verify tenant membership",
			Status:  http.StatusInternalServerError,
		},
	},
}
