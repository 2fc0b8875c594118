package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"myomesh/internal/types"
)

// Request bodies here are a single address; 64 KB is generous.
const maxRequestBodySize = 64 << 10

const errCodeValidationInvalidJSON types.ErrorCode = "validation_invalid_json"

// APIResponse wraps successful payloads as {"data": ...}.
type APIResponse struct {
	Data any `json:"data"`
}

// APIErrorResponse wraps failures as {"error": {...}}.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the client-visible part of an AppError.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id"`
}

func errorBody(r *http.Request, code types.ErrorCode, msg string, details map[string]any) APIErrorResponse {
	return APIErrorResponse{Error: ErrorDetail{
		Code:      string(code),
		Message:   msg,
		Details:   details,
		RequestID: types.GetRequestID(r.Context()),
	}}
}

// JSON writes v with the given status. A value that cannot be marshalled
// becomes a 500 internal_unexpected_error body.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorBody(r, types.ErrCodeInternalUnexpected, "failed to encode response", nil))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Data writes v inside the APIResponse envelope.
func Data(w http.ResponseWriter, r *http.Request, status int, v any) {
	JSON(w, r, status, APIResponse{Data: v})
}

// Error writes err as an APIErrorResponse. Only AppError messages reach the
// client; anything else is reported as a generic 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		JSON(w, r, http.StatusInternalServerError,
			errorBody(r, types.ErrCodeInternalUnexpected, "an unexpected error occurred", nil))
		return
	}
	JSON(w, r, appErr.HTTPStatus(), errorBody(r, appErr.Code, appErr.Message, appErr.Details))
}

// DecodeJSON strictly decodes exactly one JSON object from the request body
// into dst. Every failure is a validation_invalid_json AppError.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return types.NewAppError(errCodeValidationInvalidJSON, "request body must contain a single JSON object", nil)
	}
	return nil
}

func decodeError(err error) *types.AppError {
	var (
		tooLarge  *http.MaxBytesError
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)
	msg := "invalid JSON in request body"
	var details map[string]any

	switch {
	case errors.As(err, &tooLarge):
		msg = "request body is too large"
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		msg = "malformed JSON in request body"
	case errors.As(err, &typeError):
		msg = "invalid value for field " + typeError.Field
		details = map[string]any{"field": typeError.Field, "expected": typeError.Type.String()}
	case errors.Is(err, io.EOF):
		msg = "request body must not be empty"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		msg = "unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	}

	appErr := types.NewAppError(errCodeValidationInvalidJSON, msg, err)
	if details != nil {
		return appErr.WithDetails(details)
	}
	return appErr
}
