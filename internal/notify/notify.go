package notify

import (
	"context"

	"tienda-marketplace/internal/domain"

	"go.uber.org/zap"
)

// LogNotifier is the default sink when no broker is configured: it records
// the confirmation and nothing else.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderConfirmed(_ context.Context, ord *domain.Order) error {
	number := ""
	if ord.OrderNumber != nil {
		number = *ord.OrderNumber
	}
	n.logger.Info("order confirmed notification",
		zap.String("order_id", ord.ID),
		zap.String("order_number", number),
		zap.String("user_id", ord.UserID),
		zap.String("total", ord.Total.String()),
	)
	return nil
}
