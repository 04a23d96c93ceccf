package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brunovmr/acai-delivery/internal/core/domain"
	"github.com/brunovmr/acai-delivery/internal/port"
)

var (
	ErrDuplicateOrder = errors.New("duplicate order")
	ErrOrderNotFound  = errors.New("order not found")
)

// OrderService accepts orders and issues simulated PIX charges. Orders are
// persisted through the same store abstraction as availability and follow
// the same fail-closed policy while the store is down.
type OrderService struct {
	repo        port.OrderRepository
	idem        port.IdempotencyGuard
	monitor     ConnectionMonitor
	deliveryFee int64
	opTimeout   time.Duration
}

type PlaceOrderRequest struct {
	RequestID string
	Customer  string
	Items     []domain.OrderItem
}

func NewOrderService(repo port.OrderRepository, idem port.IdempotencyGuard, monitor ConnectionMonitor, deliveryFee int64, opTimeout time.Duration) *OrderService {
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}
	return &OrderService{
		repo:        repo,
		idem:        idem,
		monitor:     monitor,
		deliveryFee: deliveryFee,
		opTimeout:   opTimeout,
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	if req.RequestID == "" || req.Customer == "" || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: request_id, customer and items are required", ErrInvalidInput)
	}
	var total int64
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: bad order item %q", ErrInvalidInput, it.ProductID)
		}
		total += int64(it.Quantity) * it.UnitPrice
	}
	total += s.deliveryFee

	if !s.monitor.State().Connected {
		return nil, ErrStoreUnavailable
	}

	if s.idem != nil {
		ok, err := s.idem.Acquire(ctx, "order:"+req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, ErrDuplicateOrder
		}
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:          uuid.NewString(),
		Customer:    req.Customer,
		Items:       req.Items,
		TotalAmount: total,
		DeliveryFee: s.deliveryFee,
		Status:      domain.OrderStatusPending,
		Pix:         domain.NewPixCharge(uuid.NewString(), total, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.repo.CreateOrder(pctx, order); err != nil {
		s.monitor.ReportFailure(err)
		return nil, fmt.Errorf("%w: %v", ErrStorePersist, err)
	}

	return &order, nil
}

// ConfirmPayment simulates the PSP callback: it marks the order paid and
// confirmed.
func (s *OrderService) ConfirmPayment(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	if err := s.repo.MarkPaid(pctx, id); err != nil {
		s.monitor.ReportFailure(err)
		return nil, fmt.Errorf("%w: %v", ErrStorePersist, err)
	}

	order.Paid = true
	order.Status = domain.OrderStatusConfirmed
	order.UpdatedAt = time.Now().UTC()
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	order, err := s.repo.GetOrder(pctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
