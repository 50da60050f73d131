package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"novoape/internal/core"
	"novoape/internal/identity"
	"novoape/internal/log"
	"novoape/internal/session"
)

// Error codes sent in error bodies besides the identity codes.
const (
	codeBadRequest   = "bad_request"
	codeValidation   = "validation_error"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeRateLimited  = "rate_limited"
	codeUnavailable  = "unavailable"
	codeInternal     = "internal_error"
)

type errorBody struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Error: apiError{Code: code, Message: message}})
}

// mapError picks the status, code and message for an error returned by the
// session or identity layers.
func mapError(err error) (int, string, string) {
	switch {
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, codeValidation, err.Error()
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, codeNotFound, "record not found"
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrMissingToken), errors.Is(err, session.ErrNoUser):
		return http.StatusUnauthorized, codeUnauthorized, "authentication required"
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable, codeUnavailable, "session was closed, retry the request"
	}

	switch code := identity.CodeOf(err); code {
	case identity.CodeWrongPassword, identity.CodeUserNotFound:
		return http.StatusUnauthorized, string(code), identity.Message(err)
	case identity.CodeEmailInUse:
		return http.StatusConflict, string(code), identity.Message(err)
	case identity.CodeWeakPassword, identity.CodeInvalidEmail, identity.CodeMissingFields:
		return http.StatusUnprocessableEntity, string(code), identity.Message(err)
	}
	return http.StatusInternalServerError, codeInternal, identity.GenericMessage
}

// writeMappedError writes err and logs it when it is not the caller's fault.
func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapError(err)
	logger := log.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, operation, nil)
	} else {
		logger.DebugContext(ctx, "Request rejected",
			log.FieldOperation, operation,
			log.FieldStatusCode, status,
			log.FieldError, err.Error())
	}
	writeError(w, status, code, msg)
}
