package router

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"notesu/internal/auth"
	"notesu/internal/config"
	apperrors "notesu/internal/errors"
	"notesu/internal/handler"
)

// loginRedirectTarget is where browser requests without a session are sent.
const loginRedirectTarget = "/auth.html?mode=login"

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	sessions auth.SessionStore,
	authHandler *handler.AuthHandler,
	noteHandler *handler.NoteHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
		Limit: bodyLimit(cfg.MaxUploadBytes),
	}))
	e.HTTPErrorHandler = requestErrorHandler(e)

	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/signup", authHandler.Signup)
	api.POST("/auth/login", authHandler.Login)

	// Secured routes: a valid signature is not enough, the session named by
	// the token's JTI must still exist in the store.
	secured := api.Group("",
		echojwt.WithConfig(echojwt.Config{
			SigningKey:    []byte(cfg.JWTSecret),
			TokenLookup:   "cookie:" + handler.SessionCookieName + ",header:" + echo.HeaderAuthorization,
			NewClaimsFunc: func(c echo.Context) jwt.Claims { return &auth.SessionClaims{} },
			ErrorHandler: func(c echo.Context, err error) error {
				return unauthorized(c)
			},
		}),
		sessionGate(sessions),
	)

	secured.GET("/auth/logout", authHandler.Logout)
	secured.GET("/auth/user", authHandler.CurrentUser)

	secured.GET("/notes", noteHandler.List)
	secured.POST("/notes/upload", noteHandler.Upload)
	secured.PATCH("/notes/:id", noteHandler.Update)
	secured.DELETE("/notes/:id", noteHandler.Delete)
	secured.GET("/notes/:id/file", noteHandler.Download)
}

// sessionGate resolves the validated token to a live session and stamps the
// request with the owning user's id. The id always comes from the store, so
// handlers never trust a client-supplied owner field.
func sessionGate(sessions auth.SessionStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(*auth.SessionClaims)
			if !ok || claims.ID == "" {
				return unauthorized(c)
			}

			userID, err := sessions.Lookup(c.Request().Context(), claims.ID)
			if err != nil {
				if errors.Is(err, apperrors.ErrUnauthorized) {
					return unauthorized(c)
				}
				// A store outage is not a logout; answer retryable.
				httpErr := apperrors.MapErrorToHTTP(err)
				return c.JSON(httpErr.StatusCode, handler.Envelope{
					Success: false,
					Error:   httpErr.Message,
					Code:    httpErr.Code,
				})
			}
			if userID != claims.UserID {
				return unauthorized(c)
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return unauthorized(c)
			}
			c.Set(handler.ContextUserIDKey, id)
			return next(c)
		}
	}
}

// unauthorized answers 401 JSON for API clients and redirects browsers to the
// login page. The core only signals Unauthorized; this is the boundary that
// adapts it per content negotiation.
func unauthorized(c echo.Context) error {
	if wantsHTML(c.Request()) {
		return c.Redirect(http.StatusFound, loginRedirectTarget)
	}
	return c.JSON(http.StatusUnauthorized, handler.Envelope{
		Success: false,
		Error:   "unauthorized: please log in",
		Code:    "AUTH_REQUIRED",
	})
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMETextHTML) &&
		!strings.Contains(accept, echo.MIMEApplicationJSON)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// requestErrorHandler wraps echo's default error handler so the body-limit
// 413 is rendered in the standard envelope instead of echo's bare payload.
func requestErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge && !c.Response().Committed {
			_ = c.JSON(http.StatusRequestEntityTooLarge, handler.Envelope{
				Success: false,
				Error:   apperrors.ErrFileTooLarge.Error(),
				Code:    "FILE_TOO_LARGE",
			})
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}

// bodyLimit leaves generous slack above the per-file cap so a moderately
// over-limit upload reaches validation and gets the FILE_TOO_LARGE envelope
// there; the middleware only cuts off grossly oversized requests.
func bodyLimit(maxUploadBytes int64) string {
	mb := (2*maxUploadBytes)/(1<<20) + 1
	return strconv.FormatInt(mb, 10) + "M"
}
