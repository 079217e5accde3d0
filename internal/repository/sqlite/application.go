package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/job-tracker/internal/apperror"
	"github.com/sakif/job-tracker/internal/model"
	"github.com/sakif/job-tracker/internal/repository"
)

var _ repository.ApplicationRepository = (*DB)(nil)

// NoJobTypeBucket is the byJobType key for applications without a job type.
const NoJobTypeBucket = "N/A"

const applicationColumns = `id, user_id, company_name, job_title, job_description,
	application_date, status, salary, location, job_type, source, notes,
	deadline, contact_email, tags, created_at, updated_at`

// sortColumns maps the JSON field names clients sort by to SQL columns.
// Anything not listed here is ignored, which also keeps user input out of
// the ORDER BY clause.
var sortColumns = map[string]string{
	"applicationDate": "application_date",
	"companyName":     "company_name",
	"jobTitle":        "job_title",
	"status":          "status",
	"salary":          "salary",
	"location":        "location",
	"jobType":         "job_type",
	"source":          "source",
	"deadline":        "deadline",
	"createdAt":       "created_at",
	"updatedAt":       "updated_at",
}

// Create inserts a new application. ID and timestamps are generated here; the
// caller's struct is updated in place.
func (db *DB) Create(ctx context.Context, app *model.Application) error {
	app.ID = xid.New().String()
	app.CreatedAt = now()
	app.UpdatedAt = app.CreatedAt
	normalize(app)

	tags, err := json.Marshal(app.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID,
		app.UserID,
		app.CompanyName,
		app.JobTitle,
		app.JobDescription,
		toMillis(app.ApplicationDate),
		string(app.Status),
		nullFloat(app.Salary),
		app.Location,
		string(app.JobType),
		app.Source,
		app.Notes,
		nullMillis(app.Deadline),
		app.ContactEmail,
		string(tags),
		toMillis(app.CreatedAt),
		toMillis(app.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating application: %w", err)
	}

	return nil
}

// GetByID retrieves a single application.
//
// An id that is not a well-formed xid cannot exist, so it is reported as
// NotFound without touching the database.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Application, error) {
	if _, err := xid.FromString(id); err != nil {
		return nil, apperror.NotFound("Application", id)
	}

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("Application", id)
		}
		return nil, fmt.Errorf("sqlite: getting application %s: %w", id, err)
	}

	return app, nil
}

// List returns every application matching the filter. There is no
// pagination: callers receive the full result set.
func (db *DB) List(ctx context.Context, filter repository.ApplicationFilter) ([]model.Application, error) {
	where := []string{"user_id = ?"}
	args := []any{filter.UserID}

	// Status and job type are plain equality filters. A value outside the
	// enumeration simply matches no rows.
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.JobType != "" {
		where = append(where, "job_type = ?")
		args = append(args, filter.JobType)
	}
	if filter.Search != "" {
		// Both sides are lower-cased with ulower so non-ASCII letters
		// match regardless of case.
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		where = append(where, `(ulower(company_name) LIKE ? ESCAPE '\' OR ulower(job_title) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY ` + orderBy(filter.Sort)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing applications: %w", err)
	}
	defer rows.Close()

	apps := []model.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning application row: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating applications: %w", err)
	}

	return apps, nil
}

// Update writes every mutable column of app. user_id and created_at are never
// touched. UpdatedAt is advanced on the caller's struct.
func (db *DB) Update(ctx context.Context, app *model.Application) error {
	app.UpdatedAt = now()
	normalize(app)

	tags, err := json.Marshal(app.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE applications
		 SET company_name = ?, job_title = ?, job_description = ?,
		     application_date = ?, status = ?, salary = ?, location = ?,
		     job_type = ?, source = ?, notes = ?, deadline = ?,
		     contact_email = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		app.CompanyName,
		app.JobTitle,
		app.JobDescription,
		toMillis(app.ApplicationDate),
		string(app.Status),
		nullFloat(app.Salary),
		app.Location,
		string(app.JobType),
		app.Source,
		app.Notes,
		nullMillis(app.Deadline),
		app.ContactEmail,
		string(tags),
		toMillis(app.UpdatedAt),
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating application %s: %w", app.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Application", app.ID)
	}

	return nil
}

// Delete removes an application by ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting application %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("Application", id)
	}

	return nil
}

// CountByUser returns the number of applications owned by userID.
func (db *DB) CountByUser(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM applications WHERE user_id = ?`, userID)
}

// CountSince counts applications whose application date is at or after since.
func (db *DB) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	return db.count(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = ? AND application_date >= ?`,
		userID, toMillis(since))
}

// CountResponded counts applications that have moved past "Applied".
func (db *DB) CountResponded(ctx context.Context, userID string) (int, error) {
	return db.count(ctx,
		`SELECT COUNT(*) FROM applications WHERE user_id = ? AND status != ?`,
		userID, string(model.StatusApplied))
}

// CountByStatus groups the user's applications by status. Statuses with no
// applications are absent from the map.
func (db *DB) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	return db.groupCount(ctx,
		`SELECT status, COUNT(*) FROM applications WHERE user_id = ? GROUP BY status`,
		userID)
}

// CountByJobType groups by job type; applications without one are counted
// under NoJobTypeBucket.
func (db *DB) CountByJobType(ctx context.Context, userID string) (map[string]int, error) {
	return db.groupCount(ctx,
		`SELECT CASE WHEN job_type = '' THEN ? ELSE job_type END AS bucket, COUNT(*)
		 FROM applications WHERE user_id = ? GROUP BY bucket`,
		NoJobTypeBucket, userID)
}

func (db *DB) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting applications: %w", err)
	}
	return n, nil
}

func (db *DB) groupCount(ctx context.Context, query string, args ...any) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: grouping applications: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("sqlite: scanning group row: %w", err)
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating group rows: %w", err)
	}
	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (*model.Application, error) {
	var (
		app                       model.Application
		status, jobType, tags     string
		appDate, created, updated int64
		salary                    sql.NullFloat64
		deadline                  sql.NullInt64
	)

	err := s.Scan(
		&app.ID,
		&app.UserID,
		&app.CompanyName,
		&app.JobTitle,
		&app.JobDescription,
		&appDate,
		&status,
		&salary,
		&app.Location,
		&jobType,
		&app.Source,
		&app.Notes,
		&deadline,
		&app.ContactEmail,
		&tags,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	app.ApplicationDate = fromMillis(appDate)
	app.Status = model.Status(status)
	app.JobType = model.JobType(jobType)
	app.CreatedAt = fromMillis(created)
	app.UpdatedAt = fromMillis(updated)
	if salary.Valid {
		v := salary.Float64
		app.Salary = &v
	}
	if deadline.Valid {
		d := fromMillis(deadline.Int64)
		app.Deadline = &d
	}
	if err := json.Unmarshal([]byte(tags), &app.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	if app.Tags == nil {
		app.Tags = []string{}
	}

	return &app, nil
}

// orderBy builds the ORDER BY clause from whitelisted fields. With no
// recognised field the default is newest application first. id is appended
// as a final tiebreak so equal keys come back in a stable order.
func orderBy(fields []repository.SortField) string {
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := sortColumns[f.Field]
		if !ok {
			continue
		}
		if f.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		parts = append(parts, col)
	}
	if len(parts) == 0 {
		parts = append(parts, "application_date DESC")
	}
	return strings.Join(append(parts, "id DESC"), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// normalize brings app to exactly what a later read returns: UTC times at
// millisecond precision and a non-nil tag list.
func normalize(app *model.Application) {
	app.ApplicationDate = fromMillis(toMillis(app.ApplicationDate))
	if app.Deadline != nil {
		d := fromMillis(toMillis(*app.Deadline))
		app.Deadline = &d
	}
	if app.Tags == nil {
		app.Tags = []string{}
	}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}
