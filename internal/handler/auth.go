package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/service"
)

// Authenticator is the slice of service.AuthService the auth handlers use.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
}

// AuthHandler serves the account endpoints:
//   - HandleRegister → POST /api/auth/register
//   - HandleLogin    → POST /api/auth/login
//   - HandleMe       → GET  /api/auth/me (behind auth.RequireAuth)
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(a Authenticator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: a, logger: logger}
}

type authResponse struct {
	Success bool          `json:"success"`
	Token   string        `json:"token"`
	User    model.Profile `json:"user"`
}

type meResponse struct {
	Success bool          `json:"success"`
	User    model.Profile `json:"user"`
}

// HandleRegister creates an account and returns a token for it.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
// RESPONSE: 201 {"success": true, "token": "...", "user": {"id","name","email"}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Success: true,
		Token:   res.Token,
		User:    res.User.PublicProfile(),
	})
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info("user logged in", slog.String("userID", res.User.ID))

	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Token:   res.Token,
		User:    res.User.PublicProfile(),
	})
}

// HandleMe returns the caller's profile. RequireAuth has already loaded the
// user, so no store access happens here.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, apperror.Unauthenticated("Not authorized to access this route"))
		return
	}

	profile := user.PublicProfile()
	createdAt := user.CreatedAt
	profile.CreatedAt = &createdAt

	writeJSON(w, http.StatusOK, meResponse{Success: true, User: profile})
}
