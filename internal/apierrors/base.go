package apierrors

import (
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
)

const (
	InternalServerErr = "INTERNAL_SERVER_ERROR"
	JSONDecodeErr     = "JSON_DECODE_ERROR"
	ValidationErr     = "VALIDATION_ERROR"
	UnauthorizedErr   = "UNAUTHORIZED"
	ForbiddenErr      = "FORBIDDEN"
	ParamsErr         = "PARAMS_ERROR"
)

func InternalServerErrorMessage() errs.ExposedError {
	return errs.ExposedError{
		Code:    InternalServerErr,
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}
}

func JSONDecodeErrorMessage() errs.ExposedError {
	return errs.ExposedError{
		Code:    JSONDecodeErr,
		Message: "Can't decode JSON body",
		Status:  http.StatusBadRequest,
	}
}

func ParamsErrorMessage(message string) errs.ExposedError {
	return errs.ExposedError{
		Code:    ParamsErr,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}
