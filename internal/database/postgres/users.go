package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smartclass/attendance/internal/database"
)

// UserRepository provides PostgreSQL-backed teacher account storage.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a teacher account.
func (r *UserRepository) Create(ctx context.Context, user *database.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.Name, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail returns a user by email, or nil if not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*database.User, error) {
	return r.get(ctx, "email = $1", email)
}

// GetByID returns a user by ID, or nil if not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*database.User, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*database.User, error) {
	var u database.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE `+where, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
