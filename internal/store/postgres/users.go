package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
)

var _ users.UserRepo = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *users.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Status == "" {
		user.Status = users.StatusActive
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = users.NormalizeEmail(user.Email)

	const q = `
INSERT INTO users (id, email, password_hash, name, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q, user.ID, user.Email, user.PasswordHash, user.Name, string(user.Status), user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrapf(apperrors.ErrInvalidRequest, "email %s already registered", user.Email)
		}
		return fmt.Errorf("[UserRepo.Create] %w", err)
	}
	return nil
}

const selectUser = `SELECT id, email, password_hash, name, status, created_at FROM users `

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.getOne(ctx, selectUser+`WHERE email = $1`, users.NormalizeEmail(email))
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	return r.getOne(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *UserRepo) SetStatus(ctx context.Context, id string, status users.Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("[UserRepo.SetStatus] %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg string) (*users.User, error) {
	var (
		u      users.User
		status string
	)
	if err := r.pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &status, &u.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	u.Status = users.Status(status)
	return &u, nil
}
