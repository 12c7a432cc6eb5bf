package apierrors

import (
	"net/http"

	"github.com/openkcm/compliance-hub/internal/authz"
	"github.com/openkcm/compliance-hub/internal/errs"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

var authorization = []errs.Mapping{
	{
		InternalErrorChain: []error{authz.ErrAuthzDecision},
		Exposed: errs.ExposedError{
			Code:    ForbiddenErr,
			Message: "You do not have permission to perform this action",
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{authz.ErrExtractPrincipal},
		Exposed: errs.ExposedError{
			Code:    UnauthorizedErr,
			Message: "Authentication credentials were not provided or are invalid",
			Status:  http.StatusUnauthorized,
		},
	},
	{
		InternalErrorChain: []error{authz.ErrExtractTenantInfo},
		Exposed: errs.ExposedError{
			Code:    TenantRequired,
			Message: "Please provide tenant via header (X-Tenant-Slug), subdomain, or URL path",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{hubcontext.ErrExtractTenantInfo},
		Exposed: errs.ExposedError{
			Code:    TenantRequired,
			Message: "Please provide tenant via header (X-Tenant-Slug), subdomain, or URL path",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{hubcontext.ErrExtractTenantID},
		Exposed: errs.ExposedError{
			Code:    TenantRequired,
			Message: "Please provide tenant via header (X-Tenant-Slug), subdomain, or URL path",
			Status:  http.StatusBadRequest,
		},
	},
}
