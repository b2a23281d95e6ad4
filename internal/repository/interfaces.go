package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/hourglass/internal/domain"
)

type TrackerRepo interface {
	Create(ctx context.Context, t *domain.TimeTracker) error
	GetByID(ctx context.Context, id string) (*domain.TimeTracker, error)
	GetByUser(ctx context.Context, userID int64) (*domain.TimeTracker, error)
	List(ctx context.Context) ([]*domain.TimeTracker, error)
	Update(ctx context.Context, t *domain.TimeTracker) error
	Delete(ctx context.Context, id string) error
}

type TimeLogRepo interface {
	Create(ctx context.Context, l *domain.TimeLog) error
	GetByID(ctx context.Context, id string) (*domain.TimeLog, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.TimeLog, error)
}

type TimeBookingRepo interface {
	Create(ctx context.Context, b *domain.TimeBooking) error
	GetByTimeLog(ctx context.Context, timeLogID string) (*domain.TimeBooking, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.TimeBooking, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
}

type ActivityRepo interface {
	Create(ctx context.Context, a *domain.Activity) error
	GetByID(ctx context.Context, id int64) (*domain.Activity, error)
}

type IssueRepo interface {
	Create(ctx context.Context, i *domain.Issue) error
	// GetByID loads the issue with project, status, priority, author,
	// assignee and watchers.
	GetByID(ctx context.Context, id int64) (*domain.Issue, error)
	// ProjectID returns only the owning project, for validation.
	ProjectID(ctx context.Context, id int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status domain.StatusID, at time.Time) error
	ListStatuses(ctx context.Context) ([]domain.IssueStatus, error)
	AddTransition(ctx context.Context, from, to domain.StatusID) error
	TransitionsFrom(ctx context.Context, from domain.StatusID) ([]domain.StatusID, error)
}

type JournalRepo interface {
	Create(ctx context.Context, j *domain.Journal) error
	ListByIssue(ctx context.Context, issueID int64) ([]*domain.Journal, error)
}

// GrantRepo stores permission grants. A grant without a project applies to
// every project.
type GrantRepo interface {
	Grant(ctx context.Context, userID int64, projectID *int64, permission string) error
	// HasInProject reports whether the user holds any of the permissions on
	// the project, directly or through a global grant.
	HasInProject(ctx context.Context, userID, projectID int64, permissions ...string) (bool, error)
	// HasAnywhere reports whether the user holds any of the permissions at all.
	HasAnywhere(ctx context.Context, userID int64, permissions ...string) (bool, error)
}
