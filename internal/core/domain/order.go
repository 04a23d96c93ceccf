package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is one line of an order. Amounts are in centavos.
type OrderItem struct {
	ProductID string `json:"product_id"`
	FlavorKey string `json:"flavor_key,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type Order struct {
	ID          string      `json:"id"`
	Customer    string      `json:"customer"`
	Items       []OrderItem `json:"items"`
	TotalAmount int64       `json:"total_amount"`
	DeliveryFee int64       `json:"delivery_fee"`
	Status      OrderStatus `json:"status"`
	Paid        bool        `json:"paid"`
	Pix         PixCharge   `json:"pix"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
