package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/auth"
	"github.com/sakif/job-tracker/internal/handler"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var alice = &model.User{
	ID:        "alice-id",
	Name:      "Alice",
	Email:     "alice@example.com",
	CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
}

// envelope mirrors handler.Envelope with raw data for flexible decoding.
type envelope struct {
	Success bool                 `json:"success"`
	Count   *int                 `json:"count"`
	Data    json.RawMessage      `json:"data"`
	Message string               `json:"message"`
	Errors  []apperror.Violation `json:"errors"`
	Token   string               `json:"token"`
	User    json.RawMessage      `json:"user"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target string, body string, user *model.User, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// =========================================================================
// WriteError
// =========================================================================

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"validation", apperror.ValidationFailed("status", "bad status"), http.StatusBadRequest, "bad status"},
		{"unauthenticated", apperror.Unauthenticated("no token"), http.StatusUnauthorized, "no token"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{"not found", apperror.NotFound("Application", "x"), http.StatusNotFound, "Application not found with id x"},
		{"conflict", apperror.Conflict("user", "a@b.co"), http.StatusConflict, ""},
		{"wrapped", fmt.Errorf("outer: %w", apperror.Forbidden("deep")), http.StatusForbidden, "deep"},
		{"internal", errors.New("sql: connection refused"), http.StatusInternalServerError, "Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.WriteError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			env := decode(t, rr)
			assert.False(t, env.Success)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, env.Message)
			}
			assert.NotContains(t, env.Message, "sql:", "internal details must not leak")
		})
	}
}

func TestWriteError_IncludesViolations(t *testing.T) {
	rr := httptest.NewRecorder()
	handler.WriteError(rr, apperror.Invalid([]apperror.Violation{
		{Field: "companyName", Message: "Please provide a company name"},
		{Field: "jobTitle", Message: "Please provide a job title"},
	}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	env := decode(t, rr)
	require.Len(t, env.Errors, 2)
	assert.Equal(t, "companyName", env.Errors[0].Field)
	assert.Equal(t, "Please provide a company name, Please provide a job title", env.Message)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	r := chi.NewRouter()
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)
	r.Get("/only-get", func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Route /nope not found", decode(t, rr).Message)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.False(t, decode(t, rr).Success)
}

// =========================================================================
// AuthHandler
// =========================================================================

type fakeAuthenticator struct {
	gotRegister service.RegisterInput
	gotLogin    service.LoginInput
	result      *service.AuthResult
	err         error
}

func (f *fakeAuthenticator) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.gotRegister = in
	return f.result, f.err
}

func (f *fakeAuthenticator) Login(_ context.Context, in service.LoginInput) (*service.AuthResult, error) {
	f.gotLogin = in
	return f.result, f.err
}

func TestHandleRegister(t *testing.T) {
	fake := &fakeAuthenticator{result: &service.AuthResult{User: alice, Token: "tok"}}
	h := handler.NewAuthHandler(fake, testLogger)

	rr := serve(http.MethodPost, "/api/auth/register", "/api/auth/register",
		`{"name":"Alice","email":"alice@example.com","password":"secret123"}`, nil, h.HandleRegister)

	assert.Equal(t, http.StatusCreated, rr.Code)
	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "tok", env.Token)
	assert.JSONEq(t, `{"id":"alice-id","name":"Alice","email":"alice@example.com"}`, string(env.User))
	assert.Equal(t, "secret123", fake.gotRegister.Password)
}

func TestHandleRegister_Conflict(t *testing.T) {
	fake := &fakeAuthenticator{err: &apperror.AppError{Err: apperror.ErrConflict, Message: "User already exists"}}
	h := handler.NewAuthHandler(fake, testLogger)

	rr := serve(http.MethodPost, "/r", "/r", `{"name":"A","email":"a@b.co","password":"secret123"}`, nil, h.HandleRegister)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "User already exists", decode(t, rr).Message)
}

func TestHandleLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeAuthenticator{result: &service.AuthResult{User: alice, Token: "tok"}}
		h := handler.NewAuthHandler(fake, testLogger)

		rr := serve(http.MethodPost, "/l", "/l", `{"email":"alice@example.com","password":"pw"}`, nil, h.HandleLogin)

		assert.Equal(t, http.StatusOK, rr.Code)
		env := decode(t, rr)
		assert.Equal(t, "tok", env.Token)
		assert.Equal(t, "alice@example.com", fake.gotLogin.Email)
	})

	t.Run("bad credentials", func(t *testing.T) {
		fake := &fakeAuthenticator{err: apperror.Unauthenticated("Invalid credentials")}
		h := handler.NewAuthHandler(fake, testLogger)

		rr := serve(http.MethodPost, "/l", "/l", `{"email":"x@y.z","password":"pw"}`, nil, h.HandleLogin)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rr).Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		h := handler.NewAuthHandler(&fakeAuthenticator{}, testLogger)

		rr := serve(http.MethodPost, "/l", "/l", `{"email":`, nil, h.HandleLogin)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body", decode(t, rr).Message)
	})

	t.Run("empty body", func(t *testing.T) {
		h := handler.NewAuthHandler(&fakeAuthenticator{}, testLogger)

		rr := serve(http.MethodPost, "/l", "/l", "", nil, h.HandleLogin)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleMe(t *testing.T) {
	h := handler.NewAuthHandler(&fakeAuthenticator{}, testLogger)

	rr := serve(http.MethodGet, "/me", "/me", "", alice, h.HandleMe)
	assert.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	assert.JSONEq(t,
		`{"id":"alice-id","name":"Alice","email":"alice@example.com","createdAt":"2024-01-01T00:00:00Z"}`,
		string(env.User))

	rr = serve(http.MethodGet, "/me", "/me", "", nil, h.HandleMe)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// =========================================================================
// ApplicationHandler
// =========================================================================

type fakeAppService struct {
	gotUserID string
	gotID     string
	gotQuery  service.ListQuery
	gotInput  model.ApplicationInput

	apps  []model.Application
	app   *model.Application
	stats *model.Stats
	err   error
}

func (f *fakeAppService) List(_ context.Context, userID string, q service.ListQuery) ([]model.Application, error) {
	f.gotUserID, f.gotQuery = userID, q
	return f.apps, f.err
}

func (f *fakeAppService) Get(_ context.Context, userID, id string) (*model.Application, error) {
	f.gotUserID, f.gotID = userID, id
	return f.app, f.err
}

func (f *fakeAppService) Create(_ context.Context, userID string, in model.ApplicationInput) (*model.Application, error) {
	f.gotUserID, f.gotInput = userID, in
	return f.app, f.err
}

func (f *fakeAppService) Update(_ context.Context, userID, id string, in model.ApplicationInput) (*model.Application, error) {
	f.gotUserID, f.gotID, f.gotInput = userID, id, in
	return f.app, f.err
}

func (f *fakeAppService) Delete(_ context.Context, userID, id string) error {
	f.gotUserID, f.gotID = userID, id
	return f.err
}

func (f *fakeAppService) Stats(_ context.Context, userID string) (*model.Stats, error) {
	f.gotUserID = userID
	return f.stats, f.err
}

func sampleApp() *model.Application {
	return &model.Application{
		ID:              "app-1",
		UserID:          alice.ID,
		CompanyName:     "Acme",
		JobTitle:        "Engineer",
		ApplicationDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Status:          model.StatusApplied,
		Tags:            []string{},
	}
}

func TestHandleList(t *testing.T) {
	fake := &fakeAppService{apps: []model.Application{*sampleApp()}}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodGet, "/api/applications",
		"/api/applications?status=Interview&jobType=Remote&search=ac&sortBy=-salary", "", alice, h.HandleList)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	assert.True(t, env.Success)
	require.NotNil(t, env.Count)
	assert.Equal(t, 1, *env.Count)

	assert.Equal(t, alice.ID, fake.gotUserID)
	assert.Equal(t, service.ListQuery{Status: "Interview", JobType: "Remote", Search: "ac", SortBy: "-salary"}, fake.gotQuery)
}

func TestHandleList_EmptyHasZeroCountAndArray(t *testing.T) {
	h := handler.NewApplicationHandler(&fakeAppService{apps: []model.Application{}}, testLogger)

	rr := serve(http.MethodGet, "/a", "/a", "", alice, h.HandleList)

	env := decode(t, rr)
	require.NotNil(t, env.Count, "count must be present even when zero")
	assert.Equal(t, 0, *env.Count)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHandleList_RequiresUser(t *testing.T) {
	fake := &fakeAppService{}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodGet, "/a", "/a", "", nil, h.HandleList)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, fake.gotUserID, "service must not be called")
}

func TestHandleGet_PassesIDAndMapsErrors(t *testing.T) {
	fake := &fakeAppService{err: apperror.Forbidden("You are not authorized to access this application")}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodGet, "/api/applications/{id}", "/api/applications/abc", "", alice, h.HandleGet)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "abc", fake.gotID)
}

func TestHandleCreate(t *testing.T) {
	fake := &fakeAppService{app: sampleApp()}
	h := handler.NewApplicationHandler(fake, testLogger)

	body := `{
		"companyName": "Acme",
		"jobTitle": "Engineer",
		"applicationDate": "2024-03-01",
		"deadline": "2024-04-01T09:30:00Z",
		"salary": 0,
		"tags": ["go"],
		"user": "someone-else"
	}`
	rr := serve(http.MethodPost, "/a", "/a", body, alice, h.HandleCreate)

	assert.Equal(t, http.StatusCreated, rr.Code)
	env := decode(t, rr)
	assert.True(t, env.Success)

	var got model.Application
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "app-1", got.ID)

	in := fake.gotInput
	assert.Equal(t, alice.ID, fake.gotUserID, "owner comes from the token, not the body")
	require.NotNil(t, in.CompanyName)
	assert.Equal(t, "Acme", *in.CompanyName)
	require.NotNil(t, in.ApplicationDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *in.ApplicationDate)
	require.NotNil(t, in.Deadline)
	assert.Equal(t, time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC), *in.Deadline)
	require.NotNil(t, in.Salary)
	assert.Equal(t, 0.0, *in.Salary)
	assert.Equal(t, []string{"go"}, in.Tags)
	assert.Nil(t, in.Status)
}

func TestHandleCreate_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"companyName":`},
		{"bad date", `{"companyName":"A","jobTitle":"B","applicationDate":"yesterday"}`},
		{"wrong type", `{"companyName":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAppService{}
			h := handler.NewApplicationHandler(fake, testLogger)

			rr := serve(http.MethodPost, "/a", "/a", tt.body, alice, h.HandleCreate)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.False(t, decode(t, rr).Success)
			assert.Empty(t, fake.gotUserID, "service must not be called")
		})
	}
}

func TestHandleCreate_LogsRejectedBody(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := handler.NewApplicationHandler(&fakeAppService{}, logger)

	rr := serve(http.MethodPost, "/a", "/a", `{"applicationDate":"someday"}`, alice, h.HandleCreate)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, buf.String(), "invalid application body")
	assert.Contains(t, buf.String(), "userID="+alice.ID)
}

func TestHandleUpdate_PartialBody(t *testing.T) {
	fake := &fakeAppService{app: sampleApp()}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodPut, "/api/applications/{id}", "/api/applications/app-1",
		`{"status":"Interview"}`, alice, h.HandleUpdate)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "app-1", fake.gotID)
	require.NotNil(t, fake.gotInput.Status)
	assert.Equal(t, model.StatusInterview, *fake.gotInput.Status)
	assert.Nil(t, fake.gotInput.CompanyName)
	assert.Nil(t, fake.gotInput.ApplicationDate)
	assert.Nil(t, fake.gotInput.Tags)
}

func TestHandleDelete(t *testing.T) {
	fake := &fakeAppService{}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodDelete, "/api/applications/{id}", "/api/applications/app-1", "", alice, h.HandleDelete)

	assert.Equal(t, http.StatusOK, rr.Code)
	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{}`, string(env.Data))
	assert.Equal(t, "Application deleted successfully", env.Message)
	assert.Equal(t, "app-1", fake.gotID)
}

func TestHandleDelete_NotFound(t *testing.T) {
	fake := &fakeAppService{err: apperror.NotFound("Application", "app-9")}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodDelete, "/api/applications/{id}", "/api/applications/app-9", "", alice, h.HandleDelete)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleStats(t *testing.T) {
	fake := &fakeAppService{stats: &model.Stats{
		Total:        3,
		ByStatus:     map[string]int{"Applied": 1, "Interview": 1, "Rejected": 1},
		ByJobType:    map[string]int{"Full-time": 2, "N/A": 1},
		Recent:       2,
		ResponseRate: 66.7,
	}}
	h := handler.NewApplicationHandler(fake, testLogger)

	rr := serve(http.MethodGet, "/s", "/s", "", alice, h.HandleStats)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"total": 3,
		"byStatus": {"Applied": 1, "Interview": 1, "Rejected": 1},
		"byJobType": {"Full-time": 2, "N/A": 1},
		"recent": 2,
		"responseRate": 66.7
	}`, string(decode(t, rr).Data))
}
