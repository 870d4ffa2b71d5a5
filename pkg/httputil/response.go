package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	"github.com/utafrali/CosmeticsGo/pkg/logger"
	"github.com/utafrali/CosmeticsGo/pkg/validator"
)

// Response is the JSON envelope every storefront endpoint answers with.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Meta  any            `json:"meta,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the error half of the envelope.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// WriteJSON writes v with the given status. Encoding errors are dropped
// because the header has already been sent.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a 200 envelope with data and optional meta.
func WriteData(w http.ResponseWriter, data, meta any) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteError maps err to a status and error envelope. Validation errors get
// field details, 503s are flagged retryable and 5xx errors are logged with
// the request-scoped logger when the RequestLogger middleware is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{Error: &ErrorResponse{
			Code:      "VALIDATION_ERROR",
			Message:   "request validation failed",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		}})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := &ErrorResponse{RequestID: requestID, Retryable: status == http.StatusServiceUnavailable}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Code, resp.Message = appErr.Code, appErr.Message
	} else {
		switch status {
		case http.StatusNotFound:
			resp.Code, resp.Message = "NOT_FOUND", "resource not found"
		case http.StatusBadRequest:
			resp.Code, resp.Message = "INVALID_INPUT", err.Error()
		case http.StatusConflict:
			resp.Code, resp.Message = "CONFLICT", err.Error()
		case http.StatusServiceUnavailable:
			resp.Code, resp.Message = "SERVICE_UNAVAILABLE", "service temporarily unavailable"
		default:
			resp.Code, resp.Message = "INTERNAL_ERROR", "an internal error occurred"
		}
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: resp})
}
