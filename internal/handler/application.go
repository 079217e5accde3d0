package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/service"
)

// ApplicationService is the set of operations ApplicationHandler needs.
// *service.ApplicationService satisfies it.
type ApplicationService interface {
	List(ctx context.Context, userID string, q service.ListQuery) ([]model.Application, error)
	Get(ctx context.Context, userID, id string) (*model.Application, error)
	Create(ctx context.Context, userID string, in model.ApplicationInput) (*model.Application, error)
	Update(ctx context.Context, userID, id string, in model.ApplicationInput) (*model.Application, error)
	Delete(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, userID string) (*model.Stats, error)
}

// ApplicationHandler serves /api/applications. Every route sits behind
// auth.RequireAuth and acts on behalf of the user it put in the context.
type ApplicationHandler struct {
	svc    ApplicationService
	logger *slog.Logger
}

// NewApplicationHandler creates an ApplicationHandler.
func NewApplicationHandler(svc ApplicationService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, logger: logger}
}

// applicationRequest decodes an application body. The date fields shadow the
// embedded ones so that bare YYYY-MM-DD dates are accepted. A "user" field in
// the body has nowhere to land and is dropped.
type applicationRequest struct {
	model.ApplicationInput
	ApplicationDate *flexTime `json:"applicationDate"`
	Deadline        *flexTime `json:"deadline"`
}

func (req *applicationRequest) input() model.ApplicationInput {
	in := req.ApplicationInput
	in.ApplicationDate = req.ApplicationDate.timePtr()
	in.Deadline = req.Deadline.timePtr()
	return in
}

// HandleList returns the caller's applications.
//
// HTTP: GET /api/applications?status=Interview&jobType=Remote&search=acme&sortBy=-applicationDate
// RESPONSE: {"success": true, "count": N, "data": [...]}
func (h *ApplicationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	apps, err := h.svc.List(r.Context(), userID, service.ListQuery{
		Status:  q.Get("status"),
		JobType: q.Get("jobType"),
		Search:  q.Get("search"),
		SortBy:  q.Get("sortBy"),
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	count := len(apps)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Count: &count, Data: apps})
}

// HandleGet returns one application.
//
// HTTP: GET /api/applications/{id}
func (h *ApplicationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	app, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, err)
		return
	}

	writeData(w, http.StatusOK, app)
}

// HandleCreate stores a new application for the caller.
//
// HTTP: POST /api/applications
// RESPONSE: 201 {"success": true, "data": {...}}
func (h *ApplicationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeApplication(w, r, userID)
	if !ok {
		return
	}

	app, err := h.svc.Create(r.Context(), userID, req.input())
	if err != nil {
		WriteError(w, err)
		return
	}

	writeData(w, http.StatusCreated, app)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /api/applications/{id}
func (h *ApplicationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeApplication(w, r, userID)
	if !ok {
		return
	}

	app, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), req.input())
	if err != nil {
		WriteError(w, err)
		return
	}

	writeData(w, http.StatusOK, app)
}

// HandleDelete removes an application.
//
// HTTP: DELETE /api/applications/{id}
// RESPONSE: {"success": true, "data": {}, "message": "Application deleted successfully"}
func (h *ApplicationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    struct{}{},
		Message: "Application deleted successfully",
	})
}

// HandleStats returns the caller's reporting snapshot.
//
// HTTP: GET /api/applications/stats
func (h *ApplicationHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	writeData(w, http.StatusOK, stats)
}

// decodeApplication reads an application body. A rejected body is logged at
// Warn and answered with 400; ok is false in that case.
func (h *ApplicationHandler) decodeApplication(w http.ResponseWriter, r *http.Request, userID string) (*applicationRequest, bool) {
	var req applicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid application body",
			slog.String("userID", userID),
			slog.String("method", r.Method),
			slog.String("error", err.Error()),
		)
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

// callerID reads the authenticated user. Outside RequireAuth it writes a 401
// and reports false.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, apperror.Unauthenticated("Not authorized to access this route"))
		return "", false
	}
	return user.ID, true
}
