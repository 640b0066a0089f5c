package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tienda-marketplace/internal/domain"
	productrepo "tienda-marketplace/internal/repository/product"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const orderColumns = `id::text, user_id::text, status, order_number, total, affiliate_id::text,
commission_rate, commission_amount, commission_paid,
delivery_name, delivery_email, delivery_phone, delivery_address, delivery_city,
payment_method, payment_proof, created_at, confirmed_at, shipped_at, delivered_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger, now: time.Now}
}

func (r *postgresRepo) GetOrCreateCart(ctx context.Context, userID string, commissionRate decimal.Decimal) (*domain.Order, error) {
	// The partial unique index on (user_id) WHERE status = 'CART' makes the
	// insert lose cleanly when a concurrent request created the cart first.
	const q = `
INSERT INTO orders (user_id, commission_rate)
VALUES ($1, $2)
ON CONFLICT (user_id) WHERE status = 'CART' DO NOTHING
`
	if _, err := r.pool.Exec(ctx, q, userID, commissionRate); err != nil {
		r.logger.Error("order repo: create cart", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return r.GetCart(ctx, userID)
}

func (r *postgresRepo) GetCart(ctx context.Context, userID string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND status = 'CART'
`
	return r.fetchOrder(ctx, q, userID)
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`
	return r.fetchOrder(ctx, q, id)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE user_id = $1 AND status <> 'CART'
ORDER BY created_at DESC
`
	return r.listOrders(ctx, q, userID)
}

func (r *postgresRepo) ListByAffiliate(ctx context.Context, affiliateID string) ([]domain.Order, error) {
	const q = `
SELECT ` + orderColumns + `
FROM orders
WHERE affiliate_id = $1 AND status <> 'CART'
ORDER BY created_at DESC
`
	return r.listOrders(ctx, q, affiliateID)
}

func (r *postgresRepo) AddItem(ctx context.Context, cartID, productID string, quantity int, affiliateID *string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cart, err := lockCart(ctx, tx, cartID)
	if err != nil {
		return err
	}

	p, err := productrepo.GetByID(ctx, tx, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return domain.ErrProductInactive
	}

	var lineID string
	var existingQty int
	var unitPrice decimal.Decimal
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity, unit_price
FROM order_lines
WHERE order_id = $1 AND product_id = $2
`, cart.ID, productID).Scan(&lineID, &existingQty, &unitPrice)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	// The stock check covers the combined quantity so a failing add leaves
	// the existing line untouched.
	combined := existingQty + quantity
	if !p.HasStock(combined) {
		return &domain.InsufficientStockError{ProductID: productID, Requested: combined, Available: p.Stock}
	}

	if err == nil {
		subtotal := unitPrice.Mul(decimal.NewFromInt(int64(combined)))
		if _, err := tx.Exec(ctx, `
UPDATE order_lines
SET quantity = $1, subtotal = $2
WHERE id = $3
`, combined, subtotal, lineID); err != nil {
			return err
		}
	} else {
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(quantity)))
		if _, err := tx.Exec(ctx, `
INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)
`, cart.ID, productID, quantity, p.Price, subtotal); err != nil {
			return err
		}
	}

	// First attribution wins; later referral codes never overwrite it. The
	// row lock makes the in-memory snapshot authoritative.
	if affiliateID != nil && cart.AffiliateID == nil {
		if _, err := tx.Exec(ctx, `
UPDATE orders
SET affiliate_id = $2
WHERE id = $1
`, cart.ID, *affiliateID); err != nil {
			return err
		}
		cart.AffiliateID = affiliateID
	}

	if err := recomputeTotals(ctx, tx, cart); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) UpdateLineQuantity(ctx context.Context, cartID, lineID string, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cart, err := lockCart(ctx, tx, cartID)
	if err != nil {
		return err
	}

	var productID string
	var unitPrice decimal.Decimal
	err = tx.QueryRow(ctx, `
SELECT product_id::text, unit_price
FROM order_lines
WHERE id = $1 AND order_id = $2
`, lineID, cart.ID).Scan(&productID, &unitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}

	p, err := productrepo.GetByID(ctx, tx, productID)
	if err != nil {
		return err
	}
	// Absolute check on the new quantity, not a delta.
	if !p.HasStock(quantity) {
		return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.Stock}
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if _, err := tx.Exec(ctx, `
UPDATE order_lines
SET quantity = $1, subtotal = $2
WHERE id = $3 AND order_id = $4
`, quantity, subtotal, lineID, cart.ID); err != nil {
		return err
	}

	if err := recomputeTotals(ctx, tx, cart); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveLine(ctx context.Context, cartID, lineID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cart, err := lockCart(ctx, tx, cartID)
	if err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `
DELETE FROM order_lines
WHERE id = $1 AND order_id = $2
`, lineID, cart.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := recomputeTotals(ctx, tx, cart); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Confirm(ctx context.Context, cartID string, in ConfirmInput) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ord, err := lockOrder(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if ord.Status != domain.StatusCart {
		return nil, &domain.InvalidTransitionError{From: ord.Status, To: domain.StatusConfirmed}
	}

	lines, err := fetchLines(ctx, tx, ord.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	// The service validated delivery against a pre-transaction snapshot; a
	// physical item added concurrently since then would ship nowhere, so the
	// rule is re-applied against the locked lines.
	hasPhysical := false
	for _, l := range lines {
		if l.ProductType == domain.ProductPhysical {
			hasPhysical = true
			break
		}
	}
	if err := domain.ValidateDelivery(in.Delivery, in.PaymentMethod, hasPhysical); err != nil {
		return nil, err
	}

	// Stock was only optimistically checked while the cart was assembled;
	// this decrement is the authoritative one. Any failure aborts the whole
	// confirmation.
	for _, l := range lines {
		if err := productrepo.ReduceStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC()
	number, err := nextOrderNumber(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders
SET status = 'CONFIRMED',
    order_number = $2,
    delivery_name = $3,
    delivery_email = $4,
    delivery_phone = $5,
    delivery_address = $6,
    delivery_city = $7,
    payment_method = $8,
    payment_proof = $9,
    confirmed_at = $10
WHERE id = $1
`, ord.ID, number, in.Delivery.Name, in.Delivery.Email, in.Delivery.Phone,
		in.Delivery.Address, in.Delivery.City, in.PaymentMethod, in.PaymentProof, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("order confirmed", zap.String("order_id", ord.ID), zap.String("order_number", number))
	return r.GetByID(ctx, ord.ID)
}

func (r *postgresRepo) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ord, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(ord.Status, domain.StatusCancelled); err != nil {
		return nil, err
	}

	// A cart never had stock deducted; everything past CART did, exactly
	// once, so the restore runs exactly once under the same row lock.
	if ord.Status != domain.StatusCart {
		lines, err := fetchLines(ctx, tx, ord.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			if l.ProductType != domain.ProductPhysical {
				continue
			}
			if err := productrepo.RestoreStock(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders SET status = 'CANCELLED' WHERE id = $1
`, ord.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("order cancelled", zap.String("order_id", ord.ID))
	return r.GetByID(ctx, ord.ID)
}

func (r *postgresRepo) SetStatus(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ord, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	// Confirmation and cancellation carry side effects and have dedicated
	// paths; this one only advances fulfillment.
	switch target {
	case domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered:
	default:
		return nil, &domain.InvalidTransitionError{From: ord.Status, To: target}
	}
	if err := domain.CheckTransition(ord.Status, target); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	if _, err := tx.Exec(ctx, `
UPDATE orders
SET status = $2,
    shipped_at = CASE WHEN $2 = 'SHIPPED' THEN $3 ELSE shipped_at END,
    delivered_at = CASE WHEN $2 = 'DELIVERED' THEN $3 ELSE delivered_at END
WHERE id = $1
`, ord.ID, target, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ord.ID)
}

func (r *postgresRepo) MarkCommissionPaid(ctx context.Context, orderID string) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ord, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if ord.AffiliateID == nil {
		return nil, domain.ErrNoAffiliate
	}
	if ord.CommissionPaid {
		// Idempotent: paying twice is a no-op, not an error.
		return ord, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, `
UPDATE orders SET commission_paid = TRUE WHERE id = $1
`, ord.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ord.ID)
}

// lockCart locks the order row and ensures it is still a mutable cart.
func lockCart(ctx context.Context, tx pgx.Tx, cartID string) (*domain.Order, error) {
	ord, err := lockOrder(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if !ord.Status.Mutable() {
		return nil, domain.ErrNotFound
	}
	return ord, nil
}

// lockOrder serializes concurrent mutations of the same order behind a row
// lock held for the rest of the transaction.
func lockOrder(ctx context.Context, tx pgx.Tx, orderID string) (*domain.Order, error) {
	q := `
SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR UPDATE
`
	ord, err := scanOrder(tx.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &ord, nil
}

// nextOrderNumber assigns <YYYYMMDD><3-digit-sequence>. The per-day
// advisory lock makes the max-suffix scan and the later insert race-free,
// so uniqueness holds by construction rather than by retry.
func nextOrderNumber(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	day := now.Format("20060102")

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('order_number:' || $1::text))`, day); err != nil {
		return "", err
	}

	var maxSeq int
	err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(substring(order_number FROM 9)::int), 0)
FROM orders
WHERE order_number LIKE $1 || '%'
`, day).Scan(&maxSeq)
	if err != nil {
		return "", err
	}

	seq := maxSeq + 1
	if seq > 999 {
		return "", domain.ErrOrderSequenceExhausted
	}
	return fmt.Sprintf("%s%03d", day, seq), nil
}

// recomputeTotals derives total and commission_amount from the current
// lines of the locked order, writing only when something actually changed.
// The commission rule lives in domain.CommissionFor; this is its only
// persistence path.
func recomputeTotals(ctx context.Context, tx pgx.Tx, ord *domain.Order) error {
	var total decimal.Decimal
	err := tx.QueryRow(ctx, `
SELECT COALESCE(SUM(subtotal), 0)
FROM order_lines
WHERE order_id = $1
`, ord.ID).Scan(&total)
	if err != nil {
		return err
	}

	commission := ord.CommissionFor(total)
	if total.Equal(ord.Total) && commission.Equal(ord.CommissionAmount) {
		return nil
	}

	_, err = tx.Exec(ctx, `
UPDATE orders SET total = $2, commission_amount = $3 WHERE id = $1
`, ord.ID, total, commission)
	return err
}

func (r *postgresRepo) fetchOrder(ctx context.Context, q string, args ...any) (*domain.Order, error) {
	ord, err := scanOrder(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("order repo: fetch", zap.Error(err))
		return nil, err
	}

	lines, err := fetchLines(ctx, r.pool, ord.ID)
	if err != nil {
		return nil, err
	}
	ord.Lines = lines
	return &ord, nil
}

func (r *postgresRepo) listOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("order repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Order
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ord)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func fetchLines(ctx context.Context, q productrepo.Querier, orderID string) ([]domain.OrderLine, error) {
	const linesQuery = `
SELECT l.id::text, l.order_id::text, l.product_id::text, p.name, p.product_type,
       l.quantity, l.unit_price, l.subtotal, l.created_at
FROM order_lines l
JOIN products p ON p.id = l.product_id
WHERE l.order_id = $1
ORDER BY l.created_at ASC
`
	rows, err := q.Query(ctx, linesQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(
			&l.ID,
			&l.OrderID,
			&l.ProductID,
			&l.ProductName,
			&l.ProductType,
			&l.Quantity,
			&l.UnitPrice,
			&l.Subtotal,
			&l.CreatedAt,
		); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Status,
		&o.OrderNumber,
		&o.Total,
		&o.AffiliateID,
		&o.CommissionRate,
		&o.CommissionAmount,
		&o.CommissionPaid,
		&o.Delivery.Name,
		&o.Delivery.Email,
		&o.Delivery.Phone,
		&o.Delivery.Address,
		&o.Delivery.City,
		&o.PaymentMethod,
		&o.PaymentProof,
		&o.CreatedAt,
		&o.ConfirmedAt,
		&o.ShippedAt,
		&o.DeliveredAt,
	)
	return o, err
}
