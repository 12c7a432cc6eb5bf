package apierrors

import (
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/manager"
	"github.com/openkcm/compliance-hub/internal/workflow"
)

var lifecycle = []errs.Mapping{
	{
		InternalErrorChain: []error{manager.ErrTenantExists},
		Exposed: errs.ExposedError{
			Code:    "TENANT_EXISTS",
			Message: "A tenant with this slug already exists",
			Status:  http.StatusConflict,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrTenantState},
		Exposed: errs.ExposedError{
			Code:    "TENANT_STATE",
			Message: "Operation not allowed in the current tenant state",
			Status:  http.StatusConflict,
		},
	},
	{
		InternalErrorChain: []error{workflow.ErrInvalidTransition},
		Exposed: errs.ExposedError{
			Code:    "TENANT_STATE",
			Message: "Operation not allowed in the current tenant state",
			Status:  http.StatusConflict,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrProvisioningFailed},
		Exposed: errs.ExposedError{
			Code:    "PROVISIONING_FAILED",
			Message: "Tenant provisioning failed",
			Status:  http.StatusInternalServerError,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrLoadTenantConnection},
		Exposed: errs.ExposedError{
			Code:    "TENANT_CONNECTION",
			Message: "Tenant store is not available",
			Status:  http.StatusServiceUnavailable,
		},
	},
}

var distribution = []errs.Mapping{
	{
		InternalErrorChain: []error{manager.ErrFrameworkNotFound},
		Exposed: errs.ExposedError{
			Code:    "FRAMEWORK_NOT_FOUND",
			Message: "Framework does not exist",
			Status:  http.StatusNotFound,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrAlreadySubscribed},
		Exposed: errs.ExposedError{
			Code:    "ALREADY_SUBSCRIBED",
			Message: "Tenant is already subscribed to the framework",
			Status:  http.StatusConflict,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrFrameworkLimit},
		Exposed: errs.ExposedError{
			Code:    "FRAMEWORK_LIMIT",
			Message: "Framework limit of the subscription plan reached",
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrFullCustomization},
		Exposed: errs.ExposedError{
			Code:    "PLAN_LIMIT",
			Message: "FULL customization requires a plan that can create custom frameworks",
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrNotDistributable},
		Exposed: errs.ExposedError{
			Code:    "NOT_DISTRIBUTABLE",
			Message: "Framework is not distributable",
			Status:  http.StatusUnprocessableEntity,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrDistributionFailed},
		Exposed: errs.ExposedError{
			Code:    "DISTRIBUTION_FAILED",
			Message: "Framework distribution failed",
			Status:  http.StatusInternalServerError,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrNotImplemented},
		Exposed: errs.ExposedError{
			Code:    "NOT_IMPLEMENTED",
			Message: "Not implemented",
			Status:  http.StatusNotImplemented,
		},
	},
}

var customization = []errs.Mapping{
	{
		InternalErrorChain: []error{manager.ErrPlanCustomization},
		Exposed: errs.ExposedError{
			Code:    "PLAN_LIMIT",
			Message: manager.ErrPlanCustomization.Error(),
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrPlanStructural},
		Exposed: errs.ExposedError{
			Code:    "PLAN_LIMIT",
			Message: manager.ErrPlanStructural.Error(),
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrPlanFieldsNotAllowed},
		Exposed: errs.ExposedError{
			Code:    "FIELDS_NOT_ALLOWED",
			Message: "Fields not allowed on the current plan",
			Status:  http.StatusForbidden,
		},
		Detail: func(err error) string { return err.Error() },
	},
	{
		InternalErrorChain: []error{manager.ErrControlLocked},
		Exposed: errs.ExposedError{
			Code:    "CONTROL_LOCKED",
			Message: "Control cannot be customized",
			Status:  http.StatusForbidden,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrControlNotFound},
		Exposed: errs.ExposedError{
			Code:    ResourceNotFound,
			Message: "Control not found",
			Status:  http.StatusNotFound,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrNoChanges},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "No changes given",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{manager.ErrUnknownControlField},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "Unknown control fields",
			Status:  http.StatusBadRequest,
		},
		Detail: func(err error) string { return err.Error() },
	},
	{
		InternalErrorChain: []error{manager.ErrInvalidPlacement},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "Control placement does not match the framework hierarchy",
			Status:  http.StatusBadRequest,
		},
		Detail: func(err error) string { return err.Error() },
	},
}
