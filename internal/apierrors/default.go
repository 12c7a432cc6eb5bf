package apierrors

import (
	"database/sql"
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/model"
	"github.com/openkcm/compliance-hub/internal/repo"
)

const (
	ResourceNotFound = "RESOURCE_NOT_FOUND"
	UniqueError      = "UNIQUE_ERROR"
	BadRequest       = "BAD_REQUEST"
	GetResource      = "GET_RESOURCE"
)

var defaultMapper = []errs.Mapping{
	{
		InternalErrorChain: []error{sql.ErrNoRows},
		Exposed: errs.ExposedError{
			Code:    ResourceNotFound,
			Message: "Requested resource not found",
			Status:  http.StatusNotFound,
		},
	},
	{
		InternalErrorChain: []error{repo.ErrUniqueConstraint},
		Exposed: errs.ExposedError{
			Code:    UniqueError,
			Message: "Resource with such ID already exists",
			Status:  http.StatusConflict,
		},
	},
	{
		InternalErrorChain: []error{repo.ErrNotFound},
		Exposed: errs.ExposedError{
			Code:    ResourceNotFound,
			Message: "The requested resource was not found",
			Status:  http.StatusNotFound,
		},
	},
	{
		InternalErrorChain: []error{repo.ErrInvalidUUID},
		Exposed: errs.ExposedError{
			Code:    BadRequest,
			Message: "Invalid uuid provided",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{repo.ErrGetResource},
		Exposed: errs.ExposedError{
			Code:    GetResource,
			Message: "The requested resource was not found",
			Status:  http.StatusInternalServerError,
		},
	},
	{
		InternalErrorChain: []error{repo.ErrPlanNotFound},
		Exposed: errs.ExposedError{
			Code:    "PLAN_NOT_FOUND",
			Message: "Subscription plan does not exist",
			Status:  http.StatusNotFound,
		},
	},
	{
		InternalErrorChain: []error{model.ErrInvalidSlug},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "Tenant slug must be 3-50 lowercase alphanumeric characters with hyphens",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{model.ErrReservedSlug},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "Tenant slug is reserved",
			Status:  http.StatusBadRequest,
		},
	},
	{
		InternalErrorChain: []error{model.ErrInvalidCompanyName},
		Exposed: errs.ExposedError{
			Code:    ValidationErr,
			Message: "Company name must be 2-200 characters without markup",
			Status:  http.StatusBadRequest,
		},
	},
}
