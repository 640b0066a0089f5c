package user

import (
	"context"
	"errors"

	"tienda-marketplace/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const userColumns = `id::text, username, email, full_name, role, referral_code, created_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	return r.fetch(ctx, q, id)
}

func (r *postgresRepo) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE referral_code = $1
`
	return r.fetch(ctx, q, code)
}

func (r *postgresRepo) fetch(ctx context.Context, q string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.Role,
		&u.ReferralCode,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("user repo: fetch", zap.Error(err))
		return nil, err
	}
	return &u, nil
}
