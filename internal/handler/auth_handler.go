package handler

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"notesu/internal/auth"
	apperrors "notesu/internal/errors"
	"notesu/internal/service"
)

// AuthHandler handles signup, login, logout and the current-user endpoint.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest represents a signup request.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Signup godoc
// @Summary Create a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} Envelope
// @Failure 400 {object} Envelope
// @Failure 409 {object} Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
	}
	if err := c.Validate(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, err.Error(), "VALIDATION_FAILED")
	}

	user, err := h.authService.Signup(c.Request().Context(), req.Username, req.Password, req.Email)
	if err != nil {
		if err == service.ErrWeakPassword {
			return respondErrorWith(c, http.StatusBadRequest, err.Error(), "WEAK_PASSWORD")
		}
		return respondError(c, err)
	}
	return respondMessage(c, http.StatusCreated, echo.Map{"user": user}, "Account created.")
}

// Login godoc
// @Summary Log in and start a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
	}
	if err := c.Validate(&req); err != nil {
		return respondErrorWith(c, http.StatusBadRequest, err.Error(), "MISSING_FIELDS")
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			return respondErrorWith(c, http.StatusUnauthorized, err.Error(), "BAD_CREDENTIALS")
		}
		return respondError(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(auth.SessionTokenExpiry),
	})
	return respondMessage(c, http.StatusOK, echo.Map{"token": token, "user": user}, "Login successful.")
}

// Logout godoc
// @Summary Destroy the current session
// @Tags auth
// @Produce json
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /auth/logout [get]
// @Security SessionCookie
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return respondError(c, apperrors.ErrUnauthorized)
	}

	if err := h.authService.Logout(c.Request().Context(), token.Raw); err != nil {
		return respondError(c, err)
	}

	// Expire the cookie on the client too.
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	return respondMessage(c, http.StatusOK, nil, "Logged out.")
}

// CurrentUser godoc
// @Summary Get the logged-in user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} Envelope
// @Failure 401 {object} Envelope
// @Router /auth/user [get]
// @Security SessionCookie
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return respond(c, http.StatusOK, echo.Map{"user": user})
}
