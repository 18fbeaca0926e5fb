package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"notesu/internal/auth"
	apperrors "notesu/internal/errors"
	"notesu/internal/model"
	"notesu/internal/repository"
)

const bcryptCost = 10

// MinPasswordLength is the signup password policy.
const MinPasswordLength = 8

var (
	// ErrInvalidCredentials is returned when username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrWeakPassword is returned when the password fails the length policy.
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// AuthService handles signup, login and session lifecycle.
type AuthService interface {
	Signup(ctx context.Context, username, password, email string) (*model.User, error)
	Login(ctx context.Context, username, password string) (token string, user *model.User, err error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
	sessions   auth.SessionStore
	sessionTTL time.Duration
	dbTimeout  time.Duration
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService, sessions auth.SessionStore, sessionTTL, dbTimeout time.Duration) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		dbTimeout:  dbTimeout,
	}
}

// Signup creates a new user with a hashed password. Usernames are normalized
// to lowercase so uniqueness is case-insensitive.
func (s *authService) Signup(ctx context.Context, username, password, email string) (*model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperrors.NewMissingField("username")
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	existing, err := s.users.FindByUsername(dctx, username)
	if err == nil && existing != nil {
		return nil, apperrors.ErrDuplicateUsername
	}
	if err != nil && !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hashed),
	}
	if email = strings.TrimSpace(email); email != "" {
		user.Email = &email
	}

	if err := s.users.Create(dctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a user, creates a session and returns its signed token.
func (s *authService) Login(ctx context.Context, username, password string) (string, *model.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))

	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()

	user, err := s.users.FindByUsername(dctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Create(dctx, user.ID.String(), s.sessionTTL)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.jwtService.GenerateSessionToken(sessionID, user.ID.String())
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, user, nil
}

// Logout destroys the session named by the token.
func (s *authService) Logout(ctx context.Context, token string) error {
	sessionID, err := s.jwtService.ExtractSessionID(token)
	if err != nil {
		return apperrors.ErrUnauthorized
	}
	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.sessions.Destroy(dctx, sessionID)
}

// CurrentUser loads the profile of the authenticated user.
func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	dctx, cancel := context.WithTimeout(ctx, s.dbTimeout)
	defer cancel()
	return s.users.FindByID(dctx, userID)
}
