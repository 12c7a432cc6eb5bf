package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/compliance-hub/internal/api/write"
	"github.com/openkcm/compliance-hub/internal/apierrors"
	"github.com/openkcm/compliance-hub/internal/log"
	hubcontext "github.com/openkcm/compliance-hub/utils/context"
)

const maxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("request body is empty")

// ParamsErrorHandler is called whenever a path or query parameter cannot be bound.
// Must create RequestID and logger when the middlewares weren't ran
func ParamsErrorHandler() func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		ctx := r.Context()

		if _, idErr := hubcontext.GetRequestID(ctx); idErr != nil {
			ctx = hubcontext.InjectRequestID(ctx)
			requestID, _ := hubcontext.GetRequestID(ctx)

			ctx = slogctx.With(ctx,
				slog.String("RequestID", requestID),
			)
		}

		log.Error(ctx, "The error encountered during parameters binding", err)

		write.ErrorResponse(ctx, w, apierrors.ParamsErrorMessage(err.Error()))
	}
}

// RequestErrorHandlerFunc is called when Request JSON Body Decoding fails
func RequestErrorHandlerFunc() func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error(r.Context(), "Receiving Request", err)

		write.ErrorResponse(r.Context(), w, apierrors.JSONDecodeErrorMessage())
	}
}

// ResponseErrorHandlerFunc is called when HTTP Handlers fail to serve a request
func ResponseErrorHandlerFunc() func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error(r.Context(), "Processing Request", err)

		write.ErrorResponse(r.Context(), w, apierrors.Transform(err))
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return ErrEmptyBody
	}

	return err
}
