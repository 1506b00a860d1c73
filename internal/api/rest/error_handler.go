package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/kundrost/feedback-rewards-backend/internal/domain/errors"
)

// writeJSON encodes v with the given status. Encoding failures are logged
// and otherwise ignored; headers have already been sent.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps an error to its HTTP shape and writes the envelope
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, resp := classifyError(err)

	if logger != nil && status >= 500 {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	writeJSON(w, logger, status, errorEnvelope{Error: resp})
}

func classifyError(err error) (int, ErrorResponse) {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode, ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]interface{}, len(valErrs))
		for _, fe := range valErrs {
			details[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_FAILED",
			Message: "request validation failed",
			Details: details,
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return http.StatusBadRequest, ErrorResponse{
			Code:    "INVALID_JSON",
			Message: "request body is not valid JSON",
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, ErrorResponse{
			Code:    "REQUEST_TIMEOUT",
			Message: "request cancelled or timed out",
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}
}
