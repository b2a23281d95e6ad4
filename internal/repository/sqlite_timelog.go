package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
)

// SQLiteTimeLogRepo implements TimeLogRepo using a SQLite database.
type SQLiteTimeLogRepo struct {
	db db.DBTX
}

// NewSQLiteTimeLogRepo creates a new SQLiteTimeLogRepo.
func NewSQLiteTimeLogRepo(conn db.DBTX) *SQLiteTimeLogRepo {
	return &SQLiteTimeLogRepo{db: conn}
}

func (r *SQLiteTimeLogRepo) Create(ctx context.Context, l *domain.TimeLog) error {
	query := `INSERT INTO time_logs (id, user_id, start, stop, comments, round, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		l.ID,
		l.UserID,
		formatTime(l.Start),
		formatTime(l.Stop),
		l.Comments,
		boolToInt(l.Round),
		formatTime(l.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting time log: %w", err)
	}
	return nil
}

func (r *SQLiteTimeLogRepo) GetByID(ctx context.Context, id string) (*domain.TimeLog, error) {
	query := `SELECT id, user_id, start, stop, comments, round, created_at FROM time_logs WHERE id = ?`
	l, err := scanTimeLog(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time log: %w", ErrNotFound)
	}
	return l, err
}

func (r *SQLiteTimeLogRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.TimeLog, error) {
	query := `SELECT id, user_id, start, stop, comments, round, created_at
		FROM time_logs WHERE user_id = ? ORDER BY start`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing time logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.TimeLog
	for rows.Next() {
		l, err := scanTimeLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time logs: %w", err)
	}
	return logs, nil
}

func scanTimeLog(row rowScanner) (*domain.TimeLog, error) {
	var l domain.TimeLog
	var start, stop, createdAt string
	var round int
	if err := row.Scan(&l.ID, &l.UserID, &start, &stop, &l.Comments, &round, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning time log: %w", err)
	}
	l.Round = intToBool(round)

	var err error
	if l.Start, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("parsing start: %w", err)
	}
	if l.Stop, err = parseTime(stop); err != nil {
		return nil, fmt.Errorf("parsing stop: %w", err)
	}
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &l, nil
}

// SQLiteTimeBookingRepo implements TimeBookingRepo using a SQLite database.
type SQLiteTimeBookingRepo struct {
	db db.DBTX
}

// NewSQLiteTimeBookingRepo creates a new SQLiteTimeBookingRepo.
func NewSQLiteTimeBookingRepo(conn db.DBTX) *SQLiteTimeBookingRepo {
	return &SQLiteTimeBookingRepo{db: conn}
}

const bookingColumns = `id, time_log_id, user_id, project_id, issue_id, activity_id,
		start, stop, comments, custom_field_values, created_at`

func (r *SQLiteTimeBookingRepo) Create(ctx context.Context, b *domain.TimeBooking) error {
	fields, err := encodeFields(b.CustomFieldValues)
	if err != nil {
		return err
	}
	query := `INSERT INTO time_bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		b.ID,
		b.TimeLogID,
		b.UserID,
		b.ProjectID,
		nullableInt64ToValue(b.IssueID),
		nullableInt64ToValue(b.ActivityID),
		formatTime(b.Start),
		formatTime(b.Stop),
		b.Comments,
		fields,
		formatTime(b.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting time booking: %w", err)
	}
	return nil
}

func (r *SQLiteTimeBookingRepo) GetByTimeLog(ctx context.Context, timeLogID string) (*domain.TimeBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM time_bookings WHERE time_log_id = ?`
	b, err := scanTimeBooking(r.db.QueryRowContext(ctx, query, timeLogID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("time booking: %w", ErrNotFound)
	}
	return b, err
}

func (r *SQLiteTimeBookingRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.TimeBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM time_bookings WHERE user_id = ? ORDER BY start`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing time bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*domain.TimeBooking
	for rows.Next() {
		b, err := scanTimeBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating time bookings: %w", err)
	}
	return bookings, nil
}

func scanTimeBooking(row rowScanner) (*domain.TimeBooking, error) {
	var b domain.TimeBooking
	var issueID, activityID sql.NullInt64
	var start, stop, fields, createdAt string
	err := row.Scan(&b.ID, &b.TimeLogID, &b.UserID, &b.ProjectID, &issueID, &activityID,
		&start, &stop, &b.Comments, &fields, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning time booking: %w", err)
	}
	b.IssueID = int64PtrFromNull(issueID)
	b.ActivityID = int64PtrFromNull(activityID)

	if b.Start, err = parseTime(start); err != nil {
		return nil, fmt.Errorf("parsing start: %w", err)
	}
	if b.Stop, err = parseTime(stop); err != nil {
		return nil, fmt.Errorf("parsing stop: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if b.CustomFieldValues, err = decodeFields(fields); err != nil {
		return nil, err
	}
	return &b, nil
}
