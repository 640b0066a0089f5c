package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type userSeed struct {
	Username     string
	Email        string
	FullName     string
	Role         string
	ReferralCode string
}

type productSeed struct {
	Seller      string
	Name        string
	Description string
	Price       string
	Stock       int
	Type        string
	Affiliates  []string
}

// Apply inserts basic seed data for manual testing. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	users := []userSeed{
		{Username: "maria", Email: "maria@example.com", FullName: "María García", Role: "SELLER", ReferralCode: "maria-garcia"},
		{Username: "juan", Email: "juan@example.com", FullName: "Juan Pérez", Role: "SELLER", ReferralCode: "juan-perez"},
		{Username: "ana", Email: "ana@example.com", FullName: "Ana López", Role: "BUYER"},
	}
	ids := make(map[string]string, len(users))
	for _, u := range users {
		id, err := upsertUser(ctx, pool, u)
		if err != nil {
			return fmt.Errorf("upsert user %s: %w", u.Username, err)
		}
		ids[u.Username] = id
	}

	products := []productSeed{
		{
			Seller:      "maria",
			Name:        "Camiseta básica",
			Description: "Camiseta de algodón, varias tallas",
			Price:       "4500.00",
			Stock:       50,
			Type:        "PHYSICAL",
			Affiliates:  []string{"juan"},
		},
		{
			Seller:      "maria",
			Name:        "Taza cerámica",
			Description: "Taza con logo de la tienda",
			Price:       "2500.00",
			Stock:       30,
			Type:        "PHYSICAL",
			Affiliates:  []string{"juan"},
		},
		{
			Seller:      "juan",
			Name:        "Curso de fotografía",
			Description: "Curso digital descargable",
			Price:       "10000.00",
			Stock:       0,
			Type:        "DIGITAL",
			Affiliates:  []string{"maria"},
		},
	}

	for _, p := range products {
		if err := upsertProduct(ctx, pool, ids, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Name, err)
		}
	}

	return nil
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u userSeed) (string, error) {
	const q = `
INSERT INTO users (username, email, full_name, role, referral_code)
VALUES ($1, $2, $3, $4, NULLIF($5, ''))
ON CONFLICT (username) DO UPDATE SET
    email = EXCLUDED.email,
    full_name = EXCLUDED.full_name,
    role = EXCLUDED.role,
    referral_code = EXCLUDED.referral_code
RETURNING id::text
`
	var id string
	err := pool.QueryRow(ctx, q, u.Username, u.Email, u.FullName, u.Role, u.ReferralCode).Scan(&id)
	return id, err
}

func upsertProduct(ctx context.Context, pool *pgxpool.Pool, ids map[string]string, p productSeed) error {
	const q = `
INSERT INTO products (seller_id, name, description, price, stock, product_type, active)
SELECT $1, $2, $3, $4::numeric, $5, $6, TRUE
WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $2)
RETURNING id::text
`
	var productID string
	err := pool.QueryRow(ctx, q, ids[p.Seller], p.Name, p.Description, p.Price, p.Stock, p.Type).Scan(&productID)
	if err != nil {
		// Already seeded; fetch the id so affiliations still apply.
		if err := pool.QueryRow(ctx, `SELECT id::text FROM products WHERE name = $1`, p.Name).Scan(&productID); err != nil {
			return err
		}
	}

	for _, username := range p.Affiliates {
		if _, err := pool.Exec(ctx, `
INSERT INTO product_affiliates (product_id, user_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, productID, ids[username]); err != nil {
			return err
		}
	}
	return nil
}
