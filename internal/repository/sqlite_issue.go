package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
)

// SQLiteIssueRepo implements IssueRepo using a SQLite database.
type SQLiteIssueRepo struct {
	db db.DBTX
}

// NewSQLiteIssueRepo creates a new SQLiteIssueRepo.
func NewSQLiteIssueRepo(conn db.DBTX) *SQLiteIssueRepo {
	return &SQLiteIssueRepo{db: conn}
}

// Create inserts the issue and its watchers. Associations are referenced by id only.
func (r *SQLiteIssueRepo) Create(ctx context.Context, i *domain.Issue) error {
	if i.Project == nil || i.Author == nil {
		return fmt.Errorf("inserting issue: project and author are required")
	}
	var priorityID, assigneeID *int64
	if i.Priority != nil {
		priorityID = &i.Priority.ID
	}
	if i.AssignedTo != nil {
		assigneeID = &i.AssignedTo.ID
	}
	var description interface{}
	if i.Description != nil {
		description = *i.Description
	}
	statusID := domain.StatusID(1)
	if i.Status != nil {
		statusID = i.Status.ID
	}

	query := `INSERT INTO issues (id, project_id, tracker, subject, description, status_id,
		priority_id, done_ratio, author_id, assigned_to_id, updated_at)
		VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		i.ID,
		i.Project.ID,
		domain.CoalesceStr(i.Tracker, "Task"),
		i.Subject,
		description,
		int64(statusID),
		nullableInt64ToValue(priorityID),
		i.DoneRatio,
		i.Author.ID,
		nullableInt64ToValue(assigneeID),
		formatTime(i.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting issue: %w", err)
	}
	if i.ID == 0 {
		if i.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading issue id: %w", err)
		}
	}

	for _, w := range i.Watchers {
		if _, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO watchers (issue_id, user_id) VALUES (?, ?)`, i.ID, w.ID); err != nil {
			return fmt.Errorf("inserting watcher: %w", err)
		}
	}
	return nil
}

func (r *SQLiteIssueRepo) GetByID(ctx context.Context, id int64) (*domain.Issue, error) {
	query := `SELECT i.id, i.tracker, i.subject, i.description, i.done_ratio, i.updated_at,
			p.id, p.identifier, p.name,
			s.id, s.name, s.is_closed,
			pr.id, pr.name,
			a.id, a.login, a.firstname, a.lastname, a.admin,
			u.id, u.login, u.firstname, u.lastname, u.admin
		FROM issues i
		JOIN projects p ON p.id = i.project_id
		JOIN issue_statuses s ON s.id = i.status_id
		JOIN users a ON a.id = i.author_id
		LEFT JOIN issue_priorities pr ON pr.id = i.priority_id
		LEFT JOIN users u ON u.id = i.assigned_to_id
		WHERE i.id = ?`

	var (
		issue                        domain.Issue
		project                      domain.Project
		status                       domain.IssueStatus
		author                       domain.User
		description                  sql.NullString
		updatedAt                    string
		closed, authorAdmin          int
		priorityID                   sql.NullInt64
		priorityName                 sql.NullString
		assigneeID                   sql.NullInt64
		assigneeLogin, assigneeFirst sql.NullString
		assigneeLast                 sql.NullString
		assigneeAdmin                sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&issue.ID, &issue.Tracker, &issue.Subject, &description, &issue.DoneRatio, &updatedAt,
		&project.ID, &project.Identifier, &project.Name,
		&status.ID, &status.Name, &closed,
		&priorityID, &priorityName,
		&author.ID, &author.Login, &author.Firstname, &author.Lastname, &authorAdmin,
		&assigneeID, &assigneeLogin, &assigneeFirst, &assigneeLast, &assigneeAdmin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("issue %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning issue: %w", err)
	}

	if description.Valid {
		d := description.String
		issue.Description = &d
	}
	if issue.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	status.IsClosed = intToBool(closed)
	author.Admin = intToBool(authorAdmin)
	issue.Project = &project
	issue.Status = &status
	issue.Author = &author
	if priorityID.Valid {
		issue.Priority = &domain.IssuePriority{ID: priorityID.Int64, Name: priorityName.String}
	}
	if assigneeID.Valid {
		issue.AssignedTo = &domain.User{
			ID:        assigneeID.Int64,
			Login:     assigneeLogin.String,
			Firstname: assigneeFirst.String,
			Lastname:  assigneeLast.String,
			Admin:     assigneeAdmin.Int64 != 0,
		}
	}

	if issue.Watchers, err = r.listWatchers(ctx, issue.ID); err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *SQLiteIssueRepo) listWatchers(ctx context.Context, issueID int64) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT u.id, u.login, u.firstname, u.lastname, u.admin
		FROM watchers w JOIN users u ON u.id = w.user_id
		WHERE w.issue_id = ? ORDER BY u.id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("listing watchers: %w", err)
	}
	defer rows.Close()

	var watchers []*domain.User
	for rows.Next() {
		var u domain.User
		var admin int
		if err := rows.Scan(&u.ID, &u.Login, &u.Firstname, &u.Lastname, &admin); err != nil {
			return nil, fmt.Errorf("scanning watcher: %w", err)
		}
		u.Admin = intToBool(admin)
		watchers = append(watchers, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watchers: %w", err)
	}
	return watchers, nil
}

func (r *SQLiteIssueRepo) ProjectID(ctx context.Context, id int64) (int64, error) {
	var projectID int64
	err := r.db.QueryRowContext(ctx, `SELECT project_id FROM issues WHERE id = ?`, id).Scan(&projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("issue %d: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("reading issue project: %w", err)
	}
	return projectID, nil
}

func (r *SQLiteIssueRepo) UpdateStatus(ctx context.Context, id int64, status domain.StatusID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE issues SET status_id = ?, updated_at = ? WHERE id = ?`,
		int64(status), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("updating issue status: %w", err)
	}
	return requireAffected(res, "issue")
}

func (r *SQLiteIssueRepo) ListStatuses(ctx context.Context) ([]domain.IssueStatus, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_closed FROM issue_statuses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing issue statuses: %w", err)
	}
	defer rows.Close()

	var statuses []domain.IssueStatus
	for rows.Next() {
		var s domain.IssueStatus
		var closed int
		if err := rows.Scan(&s.ID, &s.Name, &closed); err != nil {
			return nil, fmt.Errorf("scanning issue status: %w", err)
		}
		s.IsClosed = intToBool(closed)
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating issue statuses: %w", err)
	}
	return statuses, nil
}

func (r *SQLiteIssueRepo) AddTransition(ctx context.Context, from, to domain.StatusID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO workflow_transitions (old_status_id, new_status_id) VALUES (?, ?)`,
		int64(from), int64(to))
	if err != nil {
		return fmt.Errorf("inserting workflow transition: %w", err)
	}
	return nil
}

func (r *SQLiteIssueRepo) TransitionsFrom(ctx context.Context, from domain.StatusID) ([]domain.StatusID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT new_status_id FROM workflow_transitions WHERE old_status_id = ? ORDER BY new_status_id`,
		int64(from))
	if err != nil {
		return nil, fmt.Errorf("listing workflow transitions: %w", err)
	}
	defer rows.Close()

	var ids []domain.StatusID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning workflow transition: %w", err)
		}
		ids = append(ids, domain.StatusID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating workflow transitions: %w", err)
	}
	return ids, nil
}
