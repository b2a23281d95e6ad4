package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/hourglass/internal/db"
	"github.com/alexanderramin/hourglass/internal/domain"
)

// SQLiteProjectRepo implements ProjectRepo using a SQLite database.
type SQLiteProjectRepo struct {
	db db.DBTX
}

// NewSQLiteProjectRepo creates a new SQLiteProjectRepo.
func NewSQLiteProjectRepo(conn db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: conn}
}

func (r *SQLiteProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, identifier, name) VALUES (NULLIF(?, 0), ?, ?)`,
		p.ID, p.Identifier, p.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting project %q: %w", p.Identifier, ErrConflict)
		}
		return fmt.Errorf("inserting project: %w", err)
	}
	if p.ID == 0 {
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading project id: %w", err)
		}
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.db.QueryRowContext(ctx, `SELECT id, identifier, name FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Identifier, &p.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning project: %w", err)
	}
	return &p, nil
}

// SQLiteActivityRepo implements ActivityRepo using a SQLite database.
type SQLiteActivityRepo struct {
	db db.DBTX
}

// NewSQLiteActivityRepo creates a new SQLiteActivityRepo.
func NewSQLiteActivityRepo(conn db.DBTX) *SQLiteActivityRepo {
	return &SQLiteActivityRepo{db: conn}
}

func (r *SQLiteActivityRepo) Create(ctx context.Context, a *domain.Activity) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO activities (id, name, active) VALUES (NULLIF(?, 0), ?, ?)`,
		a.ID, a.Name, boolToInt(a.Active))
	if err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	if a.ID == 0 {
		if a.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading activity id: %w", err)
		}
	}
	return nil
}

func (r *SQLiteActivityRepo) GetByID(ctx context.Context, id int64) (*domain.Activity, error) {
	var a domain.Activity
	var active int
	err := r.db.QueryRowContext(ctx, `SELECT id, name, active FROM activities WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("activity %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning activity: %w", err)
	}
	a.Active = intToBool(active)
	return &a, nil
}

// SQLiteUserRepo implements UserRepo using a SQLite database.
type SQLiteUserRepo struct {
	db db.DBTX
}

// NewSQLiteUserRepo creates a new SQLiteUserRepo.
func NewSQLiteUserRepo(conn db.DBTX) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: conn}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, login, firstname, lastname, admin) VALUES (NULLIF(?, 0), ?, ?, ?, ?)`,
		u.ID, u.Login, u.Firstname, u.Lastname, boolToInt(u.Admin))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting user %q: %w", u.Login, ErrConflict)
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	if u.ID == 0 {
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("reading user id: %w", err)
		}
	}
	return nil
}

func (r *SQLiteUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, login, firstname, lastname, admin FROM users WHERE id = ?`, id))
}

func (r *SQLiteUserRepo) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, login, firstname, lastname, admin FROM users WHERE login = ?`, login))
}

func (r *SQLiteUserRepo) scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var admin int
	if err := row.Scan(&u.ID, &u.Login, &u.Firstname, &u.Lastname, &admin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	u.Admin = intToBool(admin)
	return &u, nil
}
