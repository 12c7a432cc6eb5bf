package write

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openkcm/compliance-hub/internal/errs"
	"github.com/openkcm/compliance-hub/internal/log"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

// ErrorMessage is the body of every error response.
type ErrorMessage struct {
	Error DetailedError `json:"error"`
}

type DetailedError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse writes an error response to the client and logs the error
func ErrorResponse(ctx context.Context, w http.ResponseWriter, exposed errs.ExposedError) {
	requestID, _ := hubcontext.GetRequestID(ctx)

	JSON(ctx, w, exposed.Status, ErrorMessage{Error: DetailedError{
		Code:      exposed.Code,
		Message:   exposed.Message,
		Status:    exposed.Status,
		RequestID: requestID,
	}})
}

// JSON writes v with the given status code.
func JSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)

	err := enc.Encode(v)
	if err != nil {
		log.Error(ctx, "Failed to encode response", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}
}
