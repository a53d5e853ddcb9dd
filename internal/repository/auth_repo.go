package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"grow_controller/internal/models"
)

// UserRepository keeps grow API accounts in the users table.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

var _ Authorization = (*UserRepository)(nil)

const (
	insertUserSQL           = `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`
	selectUserByUsernameSQL = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`
	countUsersSQL           = `SELECT COUNT(*) FROM users`
)

// Create inserts an account and returns its id. An empty role is stored as
// viewer; a zero CreatedAt is stamped with the current time.
func (r *UserRepository) Create(ctx context.Context, u models.User) (int, error) {
	role := u.Role
	if role == "" {
		role = models.RoleViewer
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	res, err := r.db.ExecContext(ctx, insertUserSQL, u.Username, u.PasswordHash, string(role), formatTS(created))
	if err != nil {
		return 0, fmt.Errorf("insert user %q: %w", u.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for user %q: %w", u.Username, err)
	}
	return int(id), nil
}

// GetByUsername returns (nil, nil) when the user does not exist.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var (
		u    models.User
		role string
	)
	err := r.db.QueryRowContext(ctx, selectUserByUsernameSQL, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user %q: %w", username, err)
	}
	u.Role = models.Role(role)
	return &u, nil
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUsersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
