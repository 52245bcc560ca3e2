package app

import (
	"errors"
	"fmt"
	"net/http"

	"folio/api/internal/auth"
	"folio/api/internal/authpw"
	"folio/api/internal/comments"
	"folio/api/internal/content"
	"folio/api/internal/email"
	"folio/api/internal/export"
	"folio/api/internal/gitrepo"
	"folio/api/internal/store"
	"folio/api/internal/validate"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// mapError turns any error returned by the service into the JSON error
// envelope. Unknown errors are reported as 500 without leaking their text.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var commentErr *comments.Error
	if errors.As(err, &commentErr) {
		return commentStatus(commentErr), string(commentErr.Kind), commentMessage(commentErr), nil
	}

	var invalid *validate.Errors
	if errors.As(err, &invalid) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", invalid.Error(), invalid.Fields
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrEmailExists):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, content.ErrPostNotFound), errors.Is(err, gitrepo.ErrNoHistory), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export is not available on this server", nil
	case errors.Is(err, email.ErrNotConfigured):
		return http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email is not configured", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// commentStatus picks the HTTP status for a comment failure. An
// unauthorized caller with no session gets 401; a signed-in caller acting
// on someone else's comment gets 403.
func commentStatus(err *comments.Error) int {
	switch err.Kind {
	case comments.KindValidation:
		return http.StatusUnprocessableEntity
	case comments.KindNotFound:
		return http.StatusNotFound
	case comments.KindUnauthorized:
		if errors.Is(err, comments.ErrSignedOut) {
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case comments.KindIllegalPinTarget:
		return http.StatusConflict
	case comments.KindStoreFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func commentMessage(err *comments.Error) string {
	if err.Kind == comments.KindStoreFailure {
		return "Comments are temporarily unavailable"
	}
	return err.Message
}
