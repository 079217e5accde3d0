// Package service contains the business logic layer of the application.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces ownership, computes statistics
//	Repository      → reads/writes the store
//
// Services accept plain Go values and return domain errors from
// internal/apperror; they know nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

// RecentWindowDays is the trailing window counted as "recent" in Stats.
const RecentWindowDays = 30

// ListQuery carries the optional list parameters exactly as the client sent
// them.
type ListQuery struct {
	Status  string
	JobType string
	Search  string
	SortBy  string // e.g. "-applicationDate" or "companyName -salary"
}

// ApplicationService implements the per-user application operations. Every
// method takes the caller's user ID and never reads or writes another user's
// records.
type ApplicationService struct {
	repo   repository.ApplicationRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewApplicationService creates an ApplicationService backed by repo.
func NewApplicationService(repo repository.ApplicationRepository, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the caller's applications matching q. An unknown status or
// job type is passed through and matches nothing.
func (s *ApplicationService) List(ctx context.Context, userID string, q ListQuery) ([]model.Application, error) {
	apps, err := s.repo.List(ctx, repository.ApplicationFilter{
		UserID:  userID,
		Status:  strings.TrimSpace(q.Status),
		JobType: strings.TrimSpace(q.JobType),
		Search:  strings.TrimSpace(q.Search),
		Sort:    ParseSort(q.SortBy),
	})
	if err != nil {
		s.logger.Error("failed to list applications",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	return apps, nil
}

// Get returns one application. NotFound if no such id exists (or the id is
// malformed), Forbidden if it belongs to someone else.
func (s *ApplicationService) Get(ctx context.Context, userID, id string) (*model.Application, error) {
	return s.owned(ctx, userID, id, "You are not authorized to access this application")
}

// Create validates in and stores a new application owned by userID.
// Omitted fields take their defaults: status Applied, applicationDate now,
// no tags.
func (s *ApplicationService) Create(ctx context.Context, userID string, in model.ApplicationInput) (*model.Application, error) {
	app := &model.Application{
		Status:          model.StatusApplied,
		ApplicationDate: s.now(),
		Tags:            []string{},
	}
	applyInput(app, in)
	app.UserID = userID

	if violations := ValidateApplication(app); len(violations) > 0 {
		return nil, apperror.Invalid(violations)
	}

	if err := s.repo.Create(ctx, app); err != nil {
		s.logger.Error("failed to create application",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating application: %w", err)
	}

	s.logger.Info("application created",
		slog.String("id", app.ID),
		slog.String("userID", userID),
		slog.String("company", app.CompanyName),
	)

	return app, nil
}

// Update applies the fields present in in to an application the caller owns.
// Absent fields keep their stored values. The merged record is validated
// with the same rules as Create.
func (s *ApplicationService) Update(ctx context.Context, userID, id string, in model.ApplicationInput) (*model.Application, error) {
	app, err := s.owned(ctx, userID, id, "Not authorized to update this application")
	if err != nil {
		return nil, err
	}

	applyInput(app, in)

	if violations := ValidateApplication(app); len(violations) > 0 {
		return nil, apperror.Invalid(violations)
	}

	if err := s.repo.Update(ctx, app); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Deleted between the read and the write.
			return nil, err
		}
		s.logger.Error("failed to update application",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating application: %w", err)
	}

	s.logger.Info("application updated",
		slog.String("id", app.ID),
		slog.String("status", string(app.Status)),
	)

	return app, nil
}

// Delete removes an application the caller owns.
func (s *ApplicationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id, "Not authorized to delete this application"); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete application",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting application: %w", err)
	}

	s.logger.Info("application deleted", slog.String("id", id))
	return nil
}

// Stats computes the caller's reporting snapshot from current data. Nothing
// is cached; two calls racing a write may disagree.
func (s *ApplicationService) Stats(ctx context.Context, userID string) (*model.Stats, error) {
	total, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, s.statsErr(userID, "total", err)
	}

	byStatus, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, s.statsErr(userID, "byStatus", err)
	}

	byJobType, err := s.repo.CountByJobType(ctx, userID)
	if err != nil {
		return nil, s.statsErr(userID, "byJobType", err)
	}

	since := s.now().AddDate(0, 0, -RecentWindowDays)
	recent, err := s.repo.CountSince(ctx, userID, since)
	if err != nil {
		return nil, s.statsErr(userID, "recent", err)
	}

	responded, err := s.repo.CountResponded(ctx, userID)
	if err != nil {
		return nil, s.statsErr(userID, "responded", err)
	}

	if byStatus == nil {
		byStatus = map[string]int{}
	}
	if byJobType == nil {
		byJobType = map[string]int{}
	}

	return &model.Stats{
		Total:        total,
		ByStatus:     byStatus,
		ByJobType:    byJobType,
		Recent:       recent,
		ResponseRate: ResponseRate(responded, total),
	}, nil
}

func (s *ApplicationService) statsErr(userID, part string, err error) error {
	s.logger.Error("failed to compute statistics",
		slog.String("userID", userID),
		slog.String("part", part),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("computing %s: %w", part, err)
}

// owned loads an application and checks it belongs to userID. Existence is
// checked first so the caller can tell NotFound from Forbidden.
func (s *ApplicationService) owned(ctx context.Context, userID, id, forbiddenMsg string) (*model.Application, error) {
	id = strings.TrimSpace(id)

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to load application",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("getting application: %w", err)
	}

	if app.UserID != userID {
		s.logger.Warn("ownership check failed",
			slog.String("id", id),
			slog.String("userID", userID),
		)
		return nil, apperror.Forbidden(forbiddenMsg)
	}

	return app, nil
}

// ResponseRate is the percentage of applications that moved past Applied,
// rounded to one decimal place. Zero applications yield 0.
func ResponseRate(responded, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(responded)*1000/float64(total)) / 10
}

// ParseSort turns a sort expression into sort fields. Keys are separated by
// spaces or commas; a leading "-" means descending and a leading "+" is
// accepted for ascending. Unknown keys are kept here and dropped by the
// repository. An empty expression yields nil, the repository default
// (newest applicationDate first).
func ParseSort(expr string) []repository.SortField {
	keys := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	var fields []repository.SortField
	for _, k := range keys {
		f := repository.SortField{Field: k}
		switch {
		case strings.HasPrefix(k, "-"):
			f.Field, f.Desc = k[1:], true
		case strings.HasPrefix(k, "+"):
			f.Field = k[1:]
		}
		if f.Field != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// applyInput copies the fields present in in onto app. Strings are trimmed
// and contactEmail is lower-cased, matching how they are stored.
func applyInput(app *model.Application, in model.ApplicationInput) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	setString(&app.CompanyName, in.CompanyName)
	setString(&app.JobTitle, in.JobTitle)
	setString(&app.JobDescription, in.JobDescription)
	setString(&app.Location, in.Location)
	setString(&app.Source, in.Source)
	setString(&app.Notes, in.Notes)

	if in.ContactEmail != nil {
		app.ContactEmail = strings.ToLower(strings.TrimSpace(*in.ContactEmail))
	}
	if in.ApplicationDate != nil {
		app.ApplicationDate = *in.ApplicationDate
	}
	if in.Status != nil {
		app.Status = model.Status(strings.TrimSpace(string(*in.Status)))
	}
	if in.JobType != nil {
		app.JobType = model.JobType(strings.TrimSpace(string(*in.JobType)))
	}
	if in.Salary != nil {
		v := *in.Salary
		app.Salary = &v
	}
	if in.Deadline != nil {
		d := *in.Deadline
		app.Deadline = &d
	}
	if in.Tags != nil {
		app.Tags = append([]string{}, in.Tags...)
	}
}
