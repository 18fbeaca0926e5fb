package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "notesu/internal/errors"
)

// ContextUserIDKey is where the auth middleware stores the authenticated
// user's id on the request context.
const ContextUserIDKey = "userID"

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session"

// Envelope is the uniform response shape: {success, data} on success,
// {success, error, code} on failure.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

func respondMessage(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// respondError maps a domain error onto the envelope.
func respondError(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, Envelope{
		Success: false,
		Error:   httpErr.Message,
		Code:    httpErr.Code,
	})
}

func respondErrorWith(c echo.Context, status int, message, code string) error {
	return c.JSON(status, Envelope{Success: false, Error: message, Code: code})
}

// userIDFrom reads the authenticated identity placed by the session gate.
// Client-supplied owner ids are never trusted; this is the only source.
func userIDFrom(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(ContextUserIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, apperrors.ErrUnauthorized
	}
	return id, nil
}
