package port

import (
	"context"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
)

type OrderRepository interface {
	// CreateOrder persists a new order with its items and PIX charge.
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder retrieves an order by id; (nil, nil) when not found.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// MarkPaid flips an order to paid/confirmed.
	MarkPaid(ctx context.Context, id string) error
}
