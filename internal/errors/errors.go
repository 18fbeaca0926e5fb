package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFileRequired is returned when an upload has no file attached.
	ErrFileRequired = errors.New("no file uploaded")
	// ErrFileTooLarge is returned when the file exceeds the configured maximum.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrInvalidFileType is returned when the file extension is not allowed.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("unauthorized: please log in")
	// ErrNotOwner is returned when the caller does not own the target note.
	ErrNotOwner = errors.New("not the owner of this note")

	// ErrNoteNotFound is returned when the note does not exist.
	ErrNoteNotFound = errors.New("note not found")
	// ErrUserNotFound is returned when the user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("username already taken")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("user with email already exists")
	// ErrDuplicateStorageKey is returned when an assigned storage key already
	// exists. Internal: the orchestrator retries once, then fails.
	ErrDuplicateStorageKey = errors.New("storage key already exists")

	// ErrStorageWrite is returned when writing the object fails; internal
	// detail is never exposed to the caller.
	ErrStorageWrite = errors.New("upload failed, please retry")
	// ErrStorageDelete is returned when removing an object fails.
	ErrStorageDelete = errors.New("failed to delete stored file")

	// ErrInvalidCursor is returned for a malformed pagination cursor or one
	// bound to a different sort key.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
	// ErrInvalidSort is returned for an unknown sort key.
	ErrInvalidSort = errors.New("invalid sort key")
)

// MissingFieldError reports a required upload field that was empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// NewMissingField creates a MissingFieldError for the given field.
func NewMissingField(field string) *MissingFieldError {
	return &MissingFieldError{Field: field}
}

// FieldTooLongError reports a field exceeding its character cap.
type FieldTooLongError struct {
	Field string
	Max   int
}

func (e *FieldTooLongError) Error() string {
	return fmt.Sprintf("%s must be at most %d characters", e.Field, e.Max)
}

// NewFieldTooLong creates a FieldTooLongError for the given field and cap.
func NewFieldTooLong(field string, max int) *FieldTooLongError {
	return &FieldTooLongError{Field: field, Max: max}
}

// ErrorResponse represents a standardized error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors. Timeouts map to 503 with
// a retry code so clients can tell a transient failure from a rejection.
func MapErrorToHTTP(err error) *HTTPError {
	var missing *MissingFieldError
	if errors.As(err, &missing) {
		return NewHTTPError(http.StatusBadRequest, missing.Error(), "MISSING_FIELDS")
	}
	var tooLong *FieldTooLongError
	if errors.As(err, &tooLong) {
		return NewHTTPError(http.StatusBadRequest, tooLong.Error(), "FIELD_TOO_LONG")
	}

	switch {
	case errors.Is(err, ErrFileRequired):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "NO_FILE")
	case errors.Is(err, ErrFileTooLarge):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "FILE_TOO_LARGE")
	case errors.Is(err, ErrInvalidFileType):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "INVALID_FILE_TYPE")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, err.Error(), "AUTH_REQUIRED")
	case errors.Is(err, ErrNotOwner):
		return NewHTTPError(http.StatusForbidden, err.Error(), "NOT_OWNER")
	case errors.Is(err, ErrNoteNotFound), errors.Is(err, ErrUserNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrDuplicateUsername):
		return NewHTTPError(http.StatusConflict, err.Error(), "USERNAME_EXISTS")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusConflict, err.Error(), "EMAIL_EXISTS")
	case errors.Is(err, ErrInvalidCursor), errors.Is(err, ErrInvalidSort):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "BAD_QUERY")
	case errors.Is(err, ErrStorageWrite):
		return NewHTTPError(http.StatusInternalServerError, err.Error(), "UPLOAD_FAILED")
	case errors.Is(err, context.DeadlineExceeded):
		return NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable, please retry", "RETRY_LATER")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "SERVER_ERROR")
	}
}
