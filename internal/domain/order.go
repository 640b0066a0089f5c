package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentCard           PaymentMethod = "CARD"
)

// Order is both the shopping cart (status CART, mutable) and the confirmed
// order (immutable except status, commission_paid and fulfillment stamps).
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Status           OrderStatus     `json:"status"`
	OrderNumber      *string         `json:"orderNumber,omitempty"`
	Total            decimal.Decimal `json:"total"`
	AffiliateID      *string         `json:"affiliateId,omitempty"`
	CommissionRate   decimal.Decimal `json:"commissionRate"`
	CommissionAmount decimal.Decimal `json:"commissionAmount"`
	CommissionPaid   bool            `json:"commissionPaid"`
	Delivery         DeliveryInfo    `json:"delivery"`
	PaymentMethod    *PaymentMethod  `json:"paymentMethod,omitempty"`
	PaymentProof     *string         `json:"paymentProof,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	ConfirmedAt      *time.Time      `json:"confirmedAt,omitempty"`
	ShippedAt        *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt      *time.Time      `json:"deliveredAt,omitempty"`
	Lines            []OrderLine     `json:"lines,omitempty"`
}

// OrderLine captures the unit price at the moment the product was added so
// later catalog price changes never touch an existing cart.
type OrderLine struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	ProductType ProductType     `json:"productType"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type DeliveryInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
}

// HasPhysicalLine reports whether any line references a physical product,
// which makes address and city mandatory at confirmation.
func (o Order) HasPhysicalLine() bool {
	for _, l := range o.Lines {
		if l.ProductType == ProductPhysical {
			return true
		}
	}
	return false
}

// CommissionFor computes the commission owed for a given total at the
// order's frozen rate, rounded to two decimal places. Zero when the order
// has no referring affiliate.
func (o Order) CommissionFor(total decimal.Decimal) decimal.Decimal {
	if o.AffiliateID == nil {
		return decimal.Zero
	}
	return total.Mul(o.CommissionRate).Div(decimal.NewFromInt(100)).Round(2)
}

// ValidateDelivery checks the contact fields that are always mandatory and,
// when the order ships physically or is paid at the door, the destination
// fields too.
func ValidateDelivery(d DeliveryInfo, method PaymentMethod, hasPhysical bool) error {
	required := map[string]string{
		"name":  d.Name,
		"email": d.Email,
		"phone": d.Phone,
	}
	if hasPhysical || method == PaymentCashOnDelivery {
		required["address"] = d.Address
		required["city"] = d.City
	}
	for _, field := range []string{"name", "email", "phone", "address", "city"} {
		v, ok := required[field]
		if ok && strings.TrimSpace(v) == "" {
			return &MissingDeliveryInfoError{Field: field}
		}
	}
	return nil
}
