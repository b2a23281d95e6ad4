package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/hourglass/internal/db"
)

// SQLiteGrantRepo implements GrantRepo using a SQLite database.
type SQLiteGrantRepo struct {
	db db.DBTX
}

// NewSQLiteGrantRepo creates a new SQLiteGrantRepo.
func NewSQLiteGrantRepo(conn db.DBTX) *SQLiteGrantRepo {
	return &SQLiteGrantRepo{db: conn}
}

// Grant records a permission. Granting the same permission twice is a no-op.
func (r *SQLiteGrantRepo) Grant(ctx context.Context, userID int64, projectID *int64, permission string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO grants (user_id, project_id, permission) VALUES (?, ?, ?)`,
		userID, nullableInt64ToValue(projectID), permission)
	if err != nil {
		return fmt.Errorf("inserting grant: %w", err)
	}
	return nil
}

func (r *SQLiteGrantRepo) HasInProject(ctx context.Context, userID, projectID int64, permissions ...string) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}
	query := `SELECT EXISTS (SELECT 1 FROM grants
		WHERE user_id = ? AND (project_id = ? OR project_id IS NULL)
		AND permission IN (` + placeholders(len(permissions)) + `))`
	args := []any{userID, projectID}
	return r.exists(ctx, query, append(args, stringArgs(permissions)...))
}

func (r *SQLiteGrantRepo) HasAnywhere(ctx context.Context, userID int64, permissions ...string) (bool, error) {
	if len(permissions) == 0 {
		return false, nil
	}
	query := `SELECT EXISTS (SELECT 1 FROM grants
		WHERE user_id = ? AND permission IN (` + placeholders(len(permissions)) + `))`
	args := []any{userID}
	return r.exists(ctx, query, append(args, stringArgs(permissions)...))
}

func (r *SQLiteGrantRepo) exists(ctx context.Context, query string, args []any) (bool, error) {
	var found int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("checking grants: %w", err)
	}
	return found == 1, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
