package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
)

const trackerColumns = `id, user_id, project_id, issue_id, activity_id, start, comments, round,
		custom_field_values, created_at, updated_at`

// SQLiteTrackerRepo implements TrackerRepo using a SQLite database.
type SQLiteTrackerRepo struct {
	db db.DBTX
}

// NewSQLiteTrackerRepo creates a new SQLiteTrackerRepo.
func NewSQLiteTrackerRepo(conn db.DBTX) *SQLiteTrackerRepo {
	return &SQLiteTrackerRepo{db: conn}
}

// Create inserts a running tracker. A second tracker for the same user
// violates the unique index and yields ErrConflict.
func (r *SQLiteTrackerRepo) Create(ctx context.Context, t *domain.TimeTracker) error {
	fields, err := encodeFields(t.CustomFieldValues)
	if err != nil {
		return err
	}
	query := `INSERT INTO time_trackers (` + trackerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		nullableInt64ToValue(t.ProjectID),
		nullableInt64ToValue(t.IssueID),
		nullableInt64ToValue(t.ActivityID),
		formatTime(t.Start),
		t.Comments,
		boolToInt(t.Round),
		fields,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting time tracker for user %d: %w", t.UserID, ErrConflict)
		}
		return fmt.Errorf("inserting time tracker: %w", err)
	}
	return nil
}

func (r *SQLiteTrackerRepo) GetByID(ctx context.Context, id string) (*domain.TimeTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM time_trackers WHERE id = ?`
	return r.scanTracker(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteTrackerRepo) GetByUser(ctx context.Context, userID int64) (*domain.TimeTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM time_trackers WHERE user_id = ?`
	return r.scanTracker(r.db.QueryRowContext(ctx, query, userID))
}

func (r *SQLiteTrackerRepo) List(ctx context.Context) ([]*domain.TimeTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM time_trackers ORDER BY start, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing time trackers: %w", err)
	}
	defer rows.Close()

	var trackers []*domain.TimeTracker
	for rows.Next() {
		t, err := r.scanInto(rows)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time trackers: %w", err)
	}
	return trackers, nil
}

func (r *SQLiteTrackerRepo) Update(ctx context.Context, t *domain.TimeTracker) error {
	fields, err := encodeFields(t.CustomFieldValues)
	if err != nil {
		return err
	}
	query := `UPDATE time_trackers SET user_id = ?, project_id = ?, issue_id = ?, activity_id = ?,
		comments = ?, round = ?, custom_field_values = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.UserID,
		nullableInt64ToValue(t.ProjectID),
		nullableInt64ToValue(t.IssueID),
		nullableInt64ToValue(t.ActivityID),
		t.Comments,
		boolToInt(t.Round),
		fields,
		formatTime(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("updating time tracker for user %d: %w", t.UserID, ErrConflict)
		}
		return fmt.Errorf("updating time tracker: %w", err)
	}
	return requireAffected(res, "time tracker")
}

func (r *SQLiteTrackerRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_trackers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting time tracker: %w", err)
	}
	return requireAffected(res, "time tracker")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteTrackerRepo) scanTracker(row *sql.Row) (*domain.TimeTracker, error) {
	t, err := r.scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time tracker: %w", ErrNotFound)
	}
	return t, err
}

func (r *SQLiteTrackerRepo) scanInto(row rowScanner) (*domain.TimeTracker, error) {
	var t domain.TimeTracker
	var projectID, issueID, activityID sql.NullInt64
	var start, fields, createdAt, updatedAt string
	var round int

	err := row.Scan(&t.ID, &t.UserID, &projectID, &issueID, &activityID, &start,
		&t.Comments, &round, &fields, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning time tracker: %w", err)
	}

	t.ProjectID = int64PtrFromNull(projectID)
	t.IssueID = int64PtrFromNull(issueID)
	t.ActivityID = int64PtrFromNull(activityID)
	t.Round = intToBool(round)

	if t.Start, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("parsing start: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if t.CustomFieldValues, err = decodeFields(fields); err != nil {
		return nil, err
	}
	return &t, nil
}

// requireAffected turns a write that touched no rows into ErrNotFound.
func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
