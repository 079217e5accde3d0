package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

// AuthService handles registration, login and token issuance.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

var registerMessages = map[string]string{
	"name.required":     "Please provide a name",
	"name.max":          "Name cannot be more than 50 characters",
	"email.required":    "Please provide an email",
	"email.email":       "Please provide a valid email",
	"password.required": "Please provide a password",
	"password.min":      "Password must be at least 6 characters",
	"password.max":      "Password cannot be more than 72 bytes",
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errInvalidCredentials = apperror.Unauthenticated("Invalid credentials")

// Register creates an account and signs the new user in. The email is
// trimmed and lower-cased before the uniqueness check, so addresses differing
// only in case collide.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	if violations := structViolations(in, registerMessages); len(violations) > 0 {
		return nil, apperror.Invalid(violations)
	}

	_, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, userExists()
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, userExists()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return s.issue(user)
}

// Login verifies credentials and issues a fresh token. An unknown email and
// a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "Please provide email and password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/auth: looking up user: %w", err)
		}
		// Spend roughly the same time as a real comparison.
		_ = s.passwords.Verify(s.dummy(), in.Password)
		return nil, errInvalidCredentials
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// GetUserByID returns the user for the given ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func userExists() error {
	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: "User already exists",
		Field:   "email",
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
