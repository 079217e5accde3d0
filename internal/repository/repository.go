// Package repository declares the storage contracts the service layer depends
// on. Implementations live in subpackages (see repository/sqlite).
package repository

import (
	"context"
	"time"

	"github.com/sakif/job-tracker/internal/model"
)

// SortField is one key of a list ordering.
type SortField struct {
	Field string // JSON field name, e.g. "applicationDate"
	Desc  bool
}

// ApplicationFilter narrows a user's applications. Empty fields do not filter.
type ApplicationFilter struct {
	UserID  string
	Status  string
	JobType string
	Search  string // case-insensitive substring on companyName or jobTitle
	Sort    []SortField
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type ApplicationRepository interface {
	Create(ctx context.Context, app *model.Application) error
	GetByID(ctx context.Context, id string) (*model.Application, error)
	List(ctx context.Context, filter ApplicationFilter) ([]model.Application, error)
	Update(ctx context.Context, app *model.Application) error
	Delete(ctx context.Context, id string) error

	// Aggregations, all scoped to one owner.
	CountByUser(ctx context.Context, userID string) (int, error)
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
	CountByJobType(ctx context.Context, userID string) (map[string]int, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountResponded(ctx context.Context, userID string) (int, error)
}
