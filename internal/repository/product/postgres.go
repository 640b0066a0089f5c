package product

import (
	"context"
	"errors"

	"tienda-marketplace/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const productColumns = `id::text, seller_id::text, name, description, price, stock, product_type, active, created_at, updated_at`

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// stock statements below can run standalone or inside an order transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

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

func (r *postgresRepo) List(ctx context.Context, typeFilter *domain.ProductType) ([]domain.Product, error) {
	q := `
SELECT ` + productColumns + `
FROM products
WHERE active
ORDER BY created_at DESC
`
	args := []any{}
	if typeFilter != nil {
		q = `
SELECT ` + productColumns + `
FROM products
WHERE active AND product_type = $1
ORDER BY created_at DESC
`
		args = append(args, *typeFilter)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("product repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("product repo: list rows", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return GetByID(ctx, r.pool, id)
}

func (r *postgresRepo) IsAffiliate(ctx context.Context, productID, userID string) (bool, error) {
	const q = `
SELECT EXISTS (
	SELECT 1 FROM product_affiliates WHERE product_id = $1 AND user_id = $2
)
`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, productID, userID).Scan(&ok); err != nil {
		r.logger.Error("product repo: affiliate check", zap.String("product_id", productID), zap.Error(err))
		return false, err
	}
	return ok, nil
}

func (r *postgresRepo) ReduceStock(ctx context.Context, productID string, quantity int) error {
	return ReduceStock(ctx, r.pool, productID, quantity)
}

func (r *postgresRepo) RestoreStock(ctx context.Context, productID string, quantity int) error {
	return RestoreStock(ctx, r.pool, productID, quantity)
}

// GetByID fetches a product through any querier, including an open
// transaction.
func GetByID(ctx context.Context, q Querier, id string) (*domain.Product, error) {
	query := `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
`
	row := q.QueryRow(ctx, query, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ReduceStock atomically decrements stock for a physical product, failing
// without side effect when fewer than quantity units remain. Digital
// products are a no-op.
func ReduceStock(ctx context.Context, q Querier, productID string, quantity int) error {
	const stmt = `
UPDATE products
SET stock = stock - $2,
    updated_at = now()
WHERE id = $1 AND product_type = 'PHYSICAL' AND stock >= $2
`
	tag, err := q.Exec(ctx, stmt, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	p, err := GetByID(ctx, q, productID)
	if err != nil {
		return err
	}
	if p.Type == domain.ProductDigital {
		return nil
	}
	return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.Stock}
}

// RestoreStock unconditionally increments stock for a physical product,
// used when a confirmed order is cancelled. Digital products are a no-op.
func RestoreStock(ctx context.Context, q Querier, productID string, quantity int) error {
	const stmt = `
UPDATE products
SET stock = stock + $2,
    updated_at = now()
WHERE id = $1 AND product_type = 'PHYSICAL'
`
	_, err := q.Exec(ctx, stmt, productID, quantity)
	return err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.SellerID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.Type,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}
