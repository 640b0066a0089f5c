package notify

import (
	"context"
	"encoding/json"
	"time"

	"tienda-marketplace/internal/domain"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes order.confirmed events for the notification and
// reporting consumers outside this service.
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type orderLineEvent struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderConfirmedEvent struct {
	OrderID          string           `json:"order_id"`
	OrderNumber      string           `json:"order_number"`
	UserID           string           `json:"user_id"`
	DeliveryEmail    string           `json:"delivery_email"`
	Total            string           `json:"total"`
	AffiliateID      *string          `json:"affiliate_id,omitempty"`
	CommissionAmount string           `json:"commission_amount"`
	PaymentMethod    string           `json:"payment_method"`
	ConfirmedAt      *time.Time       `json:"confirmed_at,omitempty"`
	Lines            []orderLineEvent `json:"lines"`
}

func (p *KafkaProducer) OrderConfirmed(ctx context.Context, ord *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ev := orderConfirmedEvent{
		OrderID:          ord.ID,
		UserID:           ord.UserID,
		DeliveryEmail:    ord.Delivery.Email,
		Total:            ord.Total.String(),
		AffiliateID:      ord.AffiliateID,
		CommissionAmount: ord.CommissionAmount.String(),
		ConfirmedAt:      ord.ConfirmedAt,
	}
	if ord.OrderNumber != nil {
		ev.OrderNumber = *ord.OrderNumber
	}
	if ord.PaymentMethod != nil {
		ev.PaymentMethod = string(*ord.PaymentMethod)
	}
	for _, l := range ord.Lines {
		ev.Lines = append(ev.Lines, orderLineEvent{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice.String(),
			Subtotal:  l.Subtotal.String(),
		})
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ord.ID),
		Value: value,
	})
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
