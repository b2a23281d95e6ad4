package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
)

// SQLiteJournalRepo implements JournalRepo using a SQLite database.
type SQLiteJournalRepo struct {
	db db.DBTX
}

// NewSQLiteJournalRepo creates a new SQLiteJournalRepo.
func NewSQLiteJournalRepo(conn db.DBTX) *SQLiteJournalRepo {
	return &SQLiteJournalRepo{db: conn}
}

// Create inserts the journal and its details. Callers wanting the entry and
// its details to land together run it inside a unit of work.
func (r *SQLiteJournalRepo) Create(ctx context.Context, j *domain.Journal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journals (id, issue_id, user_id, notes, created_at) VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.IssueID, j.UserID, j.Notes, formatTime(j.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting journal: %w", err)
	}
	for _, d := range j.Details {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO journal_details (journal_id, property, prop_key, old_value, value)
			VALUES (?, ?, ?, ?, ?)`,
			j.ID, d.Property, d.PropKey, d.OldValue, d.Value)
		if err != nil {
			return fmt.Errorf("inserting journal detail: %w", err)
		}
	}
	return nil
}

func (r *SQLiteJournalRepo) ListByIssue(ctx context.Context, issueID int64) ([]*domain.Journal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, issue_id, user_id, notes, created_at FROM journals
		WHERE issue_id = ? ORDER BY created_at, id`, issueID)
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}

	var journals []*domain.Journal
	for rows.Next() {
		var j domain.Journal
		var createdAt string
		if err := rows.Scan(&j.ID, &j.IssueID, &j.UserID, &j.Notes, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning journal: %w", err)
		}
		if j.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		journals = append(journals, &j)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating journals: %w", err)
	}
	// Close before issuing the detail queries; a pinned single connection
	// cannot serve a second statement while rows are open.
	rows.Close()

	for _, j := range journals {
		if j.Details, err = r.listDetails(ctx, j.ID); err != nil {
			return nil, err
		}
	}
	return journals, nil
}

func (r *SQLiteJournalRepo) listDetails(ctx context.Context, journalID string) ([]domain.JournalDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT property, prop_key, old_value, value FROM journal_details
		WHERE journal_id = ? ORDER BY rowid`, journalID)
	if err != nil {
		return nil, fmt.Errorf("listing journal details: %w", err)
	}
	defer rows.Close()

	var details []domain.JournalDetail
	for rows.Next() {
		var d domain.JournalDetail
		var oldValue, value sql.NullString
		if err := rows.Scan(&d.Property, &d.PropKey, &oldValue, &value); err != nil {
			return nil, fmt.Errorf("scanning journal detail: %w", err)
		}
		d.OldValue = oldValue.String
		d.Value = value.String
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal details: %w", err)
	}
	return details, nil
}
