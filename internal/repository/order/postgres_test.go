package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"tienda-marketplace/internal/domain"
	"tienda-marketplace/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func TestPostgres_CartAssembly(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	userID := insertUser(ctx, t, pool, "ana", nil)
	productID := insertProduct(ctx, t, pool, "Mate imperial", "150.00", 10, domain.ProductPhysical)

	repo := NewPostgres(pool, nil)
	rate := decimal.RequireFromString("10.00")

	cart, err := repo.GetOrCreateCart(ctx, userID, rate)
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	again, err := repo.GetOrCreateCart(ctx, userID, rate)
	if err != nil {
		t.Fatalf("GetOrCreateCart again: %v", err)
	}
	if again.ID != cart.ID {
		t.Fatalf("expected one cart per user, got %s and %s", cart.ID, again.ID)
	}
	if !cart.CommissionRate.Equal(rate) {
		t.Fatalf("rate not frozen on the cart: %s", cart.CommissionRate)
	}

	if err := repo.AddItem(ctx, cart.ID, productID, 2, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	// Adding the same product again merges into the existing line.
	if err := repo.AddItem(ctx, cart.ID, productID, 1, nil); err != nil {
		t.Fatalf("AddItem merge: %v", err)
	}

	cart, err = repo.GetCart(ctx, userID)
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(cart.Lines))
	}
	line := cart.Lines[0]
	if line.Quantity != 3 {
		t.Fatalf("merged quantity = %d", line.Quantity)
	}
	if !line.Subtotal.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("line subtotal = %s", line.Subtotal)
	}
	if !cart.Total.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("cart total = %s", cart.Total)
	}

	if err := repo.UpdateLineQuantity(ctx, cart.ID, line.ID, 1); err != nil {
		t.Fatalf("UpdateLineQuantity: %v", err)
	}
	cart, _ = repo.GetCart(ctx, userID)
	if !cart.Total.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("total after quantity change = %s", cart.Total)
	}

	if err := repo.RemoveLine(ctx, cart.ID, line.ID); err != nil {
		t.Fatalf("RemoveLine: %v", err)
	}
	if err := repo.RemoveLine(ctx, cart.ID, line.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("removing twice: expected ErrNotFound, got %v", err)
	}
	cart, _ = repo.GetCart(ctx, userID)
	if len(cart.Lines) != 0 || !cart.Total.IsZero() {
		t.Fatalf("emptied cart still has lines=%d total=%s", len(cart.Lines), cart.Total)
	}
}

func TestPostgres_AddItemChecksCombinedStock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	userID := insertUser(ctx, t, pool, "ana", nil)
	productID := insertProduct(ctx, t, pool, "Poncho", "200.00", 3, domain.ProductPhysical)

	repo := NewPostgres(pool, nil)
	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if err := repo.AddItem(ctx, cart.ID, productID, 2, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	err = repo.AddItem(ctx, cart.ID, productID, 2, nil)
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	if insufficient.Requested != 4 || insufficient.Available != 3 {
		t.Fatalf("unexpected error detail %+v", insufficient)
	}

	// The failing add must leave the existing line alone.
	cart, _ = repo.GetCart(ctx, userID)
	if cart.Lines[0].Quantity != 2 {
		t.Fatalf("line quantity changed to %d", cart.Lines[0].Quantity)
	}
}

func TestPostgres_ConfirmDeductsStockAndNumbers(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	rate := decimal.RequireFromString("10.00")
	physicalID := insertProduct(ctx, t, pool, "Bombilla", "50.00", 5, domain.ProductPhysical)

	day := time.Now().UTC().Format("20060102")
	for i, want := range []string{day + "001", day + "002"} {
		userID := insertUser(ctx, t, pool, fmt.Sprintf("buyer%d", i), nil)
		cart, err := repo.GetOrCreateCart(ctx, userID, rate)
		if err != nil {
			t.Fatalf("GetOrCreateCart: %v", err)
		}
		if err := repo.AddItem(ctx, cart.ID, physicalID, 2, nil); err != nil {
			t.Fatalf("AddItem: %v", err)
		}

		ord, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
			Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "ana@example.com", Phone: "1234", Address: "Calle 1", City: "CABA"},
			PaymentMethod: domain.PaymentCashOnDelivery,
		})
		if err != nil {
			t.Fatalf("Confirm: %v", err)
		}
		if ord.Status != domain.StatusConfirmed {
			t.Fatalf("status = %s", ord.Status)
		}
		if ord.OrderNumber == nil || *ord.OrderNumber != want {
			t.Fatalf("order number = %v, want %s", ord.OrderNumber, want)
		}
		if ord.ConfirmedAt == nil {
			t.Fatal("confirmed_at not stamped")
		}
	}

	if got := productStock(ctx, t, pool, physicalID); got != 1 {
		t.Fatalf("stock after two confirmations = %d, want 1", got)
	}

	// A third confirmation asking for more than the single remaining unit
	// must fail and leave everything untouched.
	userID := insertUser(ctx, t, pool, "late", nil)
	cart, _ := repo.GetOrCreateCart(ctx, userID, rate)
	if _, err := pool.Exec(ctx, `
INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
VALUES ($1, $2, 2, 50.00, 100.00)
`, cart.ID, physicalID); err != nil {
		t.Fatalf("seed line: %v", err)
	}
	_, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1", Address: "x", City: "y"},
		PaymentMethod: domain.PaymentCard,
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	stillCart, err := repo.GetCart(ctx, userID)
	if err != nil || stillCart.Status != domain.StatusCart {
		t.Fatalf("failed confirmation must keep the cart: %v %v", stillCart, err)
	}
	if got := productStock(ctx, t, pool, physicalID); got != 1 {
		t.Fatalf("stock changed by failed confirmation: %d", got)
	}
}

func TestPostgres_CancelRestoresPhysicalStockOnce(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	userID := insertUser(ctx, t, pool, "ana", nil)
	physicalID := insertProduct(ctx, t, pool, "Alfajores", "30.00", 10, domain.ProductPhysical)
	digitalID := insertProduct(ctx, t, pool, "Curso de tango", "500.00", 0, domain.ProductDigital)

	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if err := repo.AddItem(ctx, cart.ID, physicalID, 4, nil); err != nil {
		t.Fatalf("AddItem physical: %v", err)
	}
	if err := repo.AddItem(ctx, cart.ID, digitalID, 1, nil); err != nil {
		t.Fatalf("AddItem digital: %v", err)
	}

	ord, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1", Address: "x", City: "y"},
		PaymentMethod: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got := productStock(ctx, t, pool, physicalID); got != 6 {
		t.Fatalf("stock after confirm = %d", got)
	}
	if got := productStock(ctx, t, pool, digitalID); got != 0 {
		t.Fatalf("digital stock touched: %d", got)
	}

	cancelled, err := repo.Cancel(ctx, ord.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if got := productStock(ctx, t, pool, physicalID); got != 10 {
		t.Fatalf("stock after cancel = %d, want 10", got)
	}

	// A second cancel is an invalid transition and must not restore again.
	_, err = repo.Cancel(ctx, ord.ID)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if got := productStock(ctx, t, pool, physicalID); got != 10 {
		t.Fatalf("double restore: stock = %d", got)
	}
}

func TestPostgres_AffiliateCommission(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	code := "maria-garcia"
	affiliateID := insertUser(ctx, t, pool, "maria", &code)
	userID := insertUser(ctx, t, pool, "ana", nil)
	productID := insertProduct(ctx, t, pool, "Guampa", "150.00", 10, domain.ProductPhysical)

	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if err := repo.AddItem(ctx, cart.ID, productID, 2, &affiliateID); err != nil {
		t.Fatalf("AddItem with affiliate: %v", err)
	}

	cart, _ = repo.GetCart(ctx, userID)
	if cart.AffiliateID == nil || *cart.AffiliateID != affiliateID {
		t.Fatalf("affiliate not attached: %v", cart.AffiliateID)
	}
	if !cart.CommissionAmount.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("commission = %s, want 30.00", cart.CommissionAmount)
	}

	// A later referral never overwrites the first attribution.
	otherCode := "juan-perez"
	otherID := insertUser(ctx, t, pool, "juan", &otherCode)
	if err := repo.AddItem(ctx, cart.ID, productID, 1, &otherID); err != nil {
		t.Fatalf("AddItem second affiliate: %v", err)
	}
	cart, _ = repo.GetCart(ctx, userID)
	if *cart.AffiliateID != affiliateID {
		t.Fatalf("attribution overwritten by %s", *cart.AffiliateID)
	}

	ord, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1", Address: "x", City: "y"},
		PaymentMethod: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	referred, err := repo.ListByAffiliate(ctx, affiliateID)
	if err != nil || len(referred) != 1 || referred[0].ID != ord.ID {
		t.Fatalf("ListByAffiliate = %v, %v", referred, err)
	}

	paid, err := repo.MarkCommissionPaid(ctx, ord.ID)
	if err != nil {
		t.Fatalf("MarkCommissionPaid: %v", err)
	}
	if !paid.CommissionPaid {
		t.Fatal("commission not flagged paid")
	}
	// Paying twice is a no-op.
	if _, err := repo.MarkCommissionPaid(ctx, ord.ID); err != nil {
		t.Fatalf("second MarkCommissionPaid: %v", err)
	}
}

func TestPostgres_MarkCommissionPaidWithoutAffiliate(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	userID := insertUser(ctx, t, pool, "ana", nil)
	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	if _, err := repo.MarkCommissionPaid(ctx, cart.ID); !errors.Is(err, domain.ErrNoAffiliate) {
		t.Fatalf("expected ErrNoAffiliate, got %v", err)
	}
}

func TestPostgres_SetStatusStampsFulfillment(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	userID := insertUser(ctx, t, pool, "ana", nil)
	productID := insertProduct(ctx, t, pool, "Termo", "80.00", 5, domain.ProductPhysical)

	cart, _ := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err := repo.AddItem(ctx, cart.ID, productID, 1, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	ord, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1", Address: "x", City: "y"},
		PaymentMethod: domain.PaymentCard,
	})
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// Skipping PROCESSING is not allowed.
	_, err = repo.SetStatus(ctx, ord.ID, domain.StatusShipped)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if ord, err = repo.SetStatus(ctx, ord.ID, domain.StatusProcessing); err != nil {
		t.Fatalf("to PROCESSING: %v", err)
	}
	if ord, err = repo.SetStatus(ctx, ord.ID, domain.StatusShipped); err != nil {
		t.Fatalf("to SHIPPED: %v", err)
	}
	if ord.ShippedAt == nil {
		t.Fatal("shipped_at not stamped")
	}
	if ord, err = repo.SetStatus(ctx, ord.ID, domain.StatusDelivered); err != nil {
		t.Fatalf("to DELIVERED: %v", err)
	}
	if ord.DeliveredAt == nil {
		t.Fatal("delivered_at not stamped")
	}

	// Delivered is terminal.
	if _, err = repo.SetStatus(ctx, ord.ID, domain.StatusProcessing); !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition from DELIVERED, got %v", err)
	}
}

func TestPostgres_ConfirmRechecksDeliveryUnderLock(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	userID := insertUser(ctx, t, pool, "ana", nil)
	physicalID := insertProduct(ctx, t, pool, "Cinturón", "90.00", 5, domain.ProductPhysical)

	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}
	// A physical line slipping in after the caller's validation snapshot must
	// still be caught inside the confirm transaction.
	if err := repo.AddItem(ctx, cart.ID, physicalID, 1, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err = repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1"},
		PaymentMethod: domain.PaymentCard,
	})
	var missing *domain.MissingDeliveryInfoError
	if !errors.As(err, &missing) || missing.Field != "address" {
		t.Fatalf("expected missing address under lock, got %v", err)
	}

	stillCart, err := repo.GetCart(ctx, userID)
	if err != nil || stillCart.Status != domain.StatusCart || stillCart.OrderNumber != nil {
		t.Fatalf("failed confirmation must keep the cart untouched: %+v %v", stillCart, err)
	}
	if got := productStock(ctx, t, pool, physicalID); got != 5 {
		t.Fatalf("stock changed by rejected confirmation: %d", got)
	}
}

func TestPostgres_OrderNumberSequenceExhausted(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	day := time.Now().UTC().Format("20060102")
	otherID := insertUser(ctx, t, pool, "earlier", nil)
	if _, err := pool.Exec(ctx, `
INSERT INTO orders (user_id, status, order_number)
VALUES ($1, 'CONFIRMED', $2)
`, otherID, day+"999"); err != nil {
		t.Fatalf("seed exhausted sequence: %v", err)
	}

	userID := insertUser(ctx, t, pool, "ana", nil)
	productID := insertProduct(ctx, t, pool, "Sombrero", "120.00", 5, domain.ProductPhysical)
	cart, _ := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err := repo.AddItem(ctx, cart.ID, productID, 1, nil); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	_, err := repo.Confirm(ctx, cart.ID, ConfirmInput{
		Delivery:      domain.DeliveryInfo{Name: "Ana", Email: "a@b.c", Phone: "1", Address: "x", City: "y"},
		PaymentMethod: domain.PaymentCard,
	})
	if !errors.Is(err, domain.ErrOrderSequenceExhausted) {
		t.Fatalf("expected ErrOrderSequenceExhausted, got %v", err)
	}

	stillCart, err := repo.GetCart(ctx, userID)
	if err != nil || stillCart.Status != domain.StatusCart || stillCart.OrderNumber != nil {
		t.Fatalf("exhausted sequence must roll the whole confirmation back: %+v %v", stillCart, err)
	}
	if got := productStock(ctx, t, pool, productID); got != 5 {
		t.Fatalf("stock changed by rolled-back confirmation: %d", got)
	}
}

func TestPostgres_RandomizedCartTotals(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	userID := insertUser(ctx, t, pool, "ana", nil)

	prices := map[string]decimal.Decimal{
		insertProduct(ctx, t, pool, "Producto A", "10.00", 100000, domain.ProductPhysical): decimal.RequireFromString("10.00"),
		insertProduct(ctx, t, pool, "Producto B", "33.33", 100000, domain.ProductPhysical): decimal.RequireFromString("33.33"),
		insertProduct(ctx, t, pool, "Producto C", "500.00", 0, domain.ProductDigital):      decimal.RequireFromString("500.00"),
	}
	productIDs := make([]string, 0, len(prices))
	for id := range prices {
		productIDs = append(productIDs, id)
	}

	cart, err := repo.GetOrCreateCart(ctx, userID, decimal.RequireFromString("10.00"))
	if err != nil {
		t.Fatalf("GetOrCreateCart: %v", err)
	}

	// Model of expected quantities per product, replayed against the store.
	rng := rand.New(rand.NewSource(42))
	model := map[string]int{}

	for i := 0; i < 80; i++ {
		current, err := repo.GetCart(ctx, userID)
		if err != nil {
			t.Fatalf("op %d: GetCart: %v", i, err)
		}

		switch op := rng.Intn(3); {
		case op == 0 || len(current.Lines) == 0:
			productID := productIDs[rng.Intn(len(productIDs))]
			qty := 1 + rng.Intn(4)
			if err := repo.AddItem(ctx, cart.ID, productID, qty, nil); err != nil {
				t.Fatalf("op %d: AddItem: %v", i, err)
			}
			model[productID] += qty
		case op == 1:
			line := current.Lines[rng.Intn(len(current.Lines))]
			qty := 1 + rng.Intn(6)
			if err := repo.UpdateLineQuantity(ctx, cart.ID, line.ID, qty); err != nil {
				t.Fatalf("op %d: UpdateLineQuantity: %v", i, err)
			}
			model[line.ProductID] = qty
		default:
			line := current.Lines[rng.Intn(len(current.Lines))]
			if err := repo.RemoveLine(ctx, cart.ID, line.ID); err != nil {
				t.Fatalf("op %d: RemoveLine: %v", i, err)
			}
			delete(model, line.ProductID)
		}

		after, err := repo.GetCart(ctx, userID)
		if err != nil {
			t.Fatalf("op %d: reload: %v", i, err)
		}
		want := decimal.Zero
		for productID, qty := range model {
			want = want.Add(prices[productID].Mul(decimal.NewFromInt(int64(qty))))
		}
		if !after.Total.Equal(want) {
			t.Fatalf("op %d: total = %s, want %s (model %v)", i, after.Total, want, model)
		}
		if len(after.Lines) != len(model) {
			t.Fatalf("op %d: %d lines, model has %d", i, len(after.Lines), len(model))
		}
	}
}

func TestPostgres_ConcurrentConfirmStockRace(t *testing.T) {
	ctx := context.Background()
	pool := testPool(ctx, t)
	defer pool.Close()
	resetTables(ctx, t, pool)

	repo := NewPostgres(pool, nil)
	productID := insertProduct(ctx, t, pool, "Edición limitada", "999.00", 3, domain.ProductPhysical)
	rate := decimal.RequireFromString("10.00")

	// Both carts hold the entire stock; each passed the optimistic check at
	// add time, so only the confirm-time decrement can arbitrate.
	carts := make([]string, 2)
	for i := range carts {
		userID := insertUser(ctx, t, pool, fmt.Sprintf("racer%d", i), nil)
		cart, err := repo.GetOrCreateCart(ctx, userID, rate)
		if err != nil {
			t.Fatalf("GetOrCreateCart: %v", err)
		}
		if err := repo.AddItem(ctx, cart.ID, productID, 3, nil); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
		carts[i] = cart.ID
	}

	errs := make(chan error, len(carts))
	var wg sync.WaitGroup
	for _, cartID := range carts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := repo.Confirm(ctx, id, ConfirmInput{
				Delivery:      domain.DeliveryInfo{Name: "R", Email: "r@x.y", Phone: "1", Address: "x", City: "y"},
				PaymentMethod: domain.PaymentCard,
			})
			errs <- err
		}(cartID)
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("unexpected confirm error: %v", err)
		}
		losses++
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner, got wins=%d losses=%d", wins, losses)
	}
	if got := productStock(ctx, t, pool, productID); got != 0 {
		t.Fatalf("stock after race = %d, want 0", got)
	}
}

func testPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return pool
}

func resetTables(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(ctx, `TRUNCATE order_lines, orders, product_affiliates, products, users RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func insertUser(ctx context.Context, t *testing.T, pool *pgxpool.Pool, username string, referralCode *string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO users (username, email, referral_code)
VALUES ($1, $1 || '@example.com', $2)
RETURNING id::text
`, username, referralCode).Scan(&id)
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return id
}

func insertProduct(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name, price string, stock int, pt domain.ProductType) string {
	t.Helper()
	var id string
	err := pool.QueryRow(ctx, `
INSERT INTO products (name, price, stock, product_type)
VALUES ($1, $2, $3, $4)
RETURNING id::text
`, name, price, stock, pt).Scan(&id)
	if err != nil {
		t.Fatalf("insert product %s: %v", name, err)
	}
	return id
}

func productStock(ctx context.Context, t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()
	var stock int
	if err := pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return stock
}
