package apierrors

import (
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/repo"
)

const (
	TenantNotFound = "TENANT_NOT_FOUND"
)

var highPrio = []errs.Mapping{
	{
		InternalErrorChain: []error{repo.ErrTenantNotFound},
		Exposed: errs.ExposedError{
			Code:    TenantNotFound,
			Message: "Tenant not found",
			Status:  http.StatusNotFound,
		},
		Detail: detailOr("Tenant not found"),
	},
}
