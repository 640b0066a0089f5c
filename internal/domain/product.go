package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductPhysical ProductType = "PHYSICAL"
	ProductDigital  ProductType = "DIGITAL"
)

type Product struct {
	ID          string          `json:"id"`
	SellerID    *string         `json:"sellerId,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Type        ProductType     `json:"type"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// HasStock reports whether quantity units can be sold. Digital products
// never run out; the stock column is ignored for them.
func (p Product) HasStock(quantity int) bool {
	if p.Type == ProductDigital {
		return true
	}
	return p.Stock >= quantity
}
