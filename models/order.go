package models

import (
	"time"
)

// Order statuses. The two axes are independent: order_status tracks
// fulfillment, payment_status tracks money.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"

	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"

	PaymentMethodCreditCard   = "credit_card"
	PaymentMethodBankTransfer = "bank_transfer"
)

var orderStatuses = map[string]bool{
	OrderStatusPending:    true,
	OrderStatusProcessing: true,
	OrderStatusShipped:    true,
	OrderStatusCompleted:  true,
	OrderStatusCancelled:  true,
	OrderStatusRefunded:   true,
}

func IsValidOrderStatus(s string) bool {
	return orderStatuses[s]
}

// CanMarkShipped reports whether mark-shipped is allowed from the current
// order status. Already-shipped orders and terminal orders (completed,
// cancelled, refunded) cannot be shipped again.
func CanMarkShipped(current string) bool {
	switch current {
	case OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return false
	}
	return true
}

type Order struct {
	ID                  int64     `json:"-"`
	OrderID             string    `json:"order_id"`
	UserID              *int64    `json:"-"`
	UserUsername        *string   `json:"user_username"`
	ShippingFullName    string    `json:"shipping_full_name"`
	ShippingPostalCode  string    `json:"shipping_postal_code"`
	ShippingPrefecture  string    `json:"shipping_prefecture"`
	ShippingCity        string    `json:"shipping_city"`
	ShippingAddress1    string    `json:"shipping_address1"`
	ShippingAddress2    string    `json:"shipping_address2"`
	ShippingPhoneNumber string    `json:"shipping_phone_number"`
	TotalAmount         int64     `json:"total_amount"`
	PaymentMethod       string    `json:"payment_method"`
	PaymentStatus       string    `json:"payment_status"`
	OrderStatus         string    `json:"order_status"`
	Notes               string    `json:"notes"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	Items []OrderItem `json:"items"`
}

type OrderItem struct {
	ID              int64  `json:"id"`
	ProductID       *int64 `json:"product_id"`
	ProductName     string `json:"product_name"`
	PriceAtPurchase int64  `json:"price_at_purchase"`
	Quantity        int    `json:"quantity"`
	Subtotal        int64  `json:"subtotal"`
}

type CreateOrderRequest struct {
	ShippingFullName    string                   `json:"shipping_full_name" binding:"required"`
	ShippingPostalCode  string                   `json:"shipping_postal_code" binding:"required"`
	ShippingPrefecture  string                   `json:"shipping_prefecture" binding:"required"`
	ShippingCity        string                   `json:"shipping_city" binding:"required"`
	ShippingAddress1    string                   `json:"shipping_address1" binding:"required"`
	ShippingAddress2    string                   `json:"shipping_address2"`
	ShippingPhoneNumber string                   `json:"shipping_phone_number" binding:"required"`
	PaymentMethod       string                   `json:"payment_method" binding:"required,oneof=credit_card bank_transfer"`
	Notes               string                   `json:"notes"`
	Items               []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"order_status"`
}

// OrderEvent is the message published to the orders exchange after a
// state change commits.
type OrderEvent struct {
	OrderID  string    `json:"order_id"`
	Type     string    `json:"type"` // created, status_updated
	Status   string    `json:"status"`
	Total    int64     `json:"total"`
	Occurred time.Time `json:"occurred"`
}

// ShipmentNotice is the best-effort notification sent to the buyer when a
// producer marks an order shipped.
type ShipmentNotice struct {
	OrderID          string    `json:"order_id"`
	BuyerEmail       string    `json:"buyer_email"`
	BuyerUsername    string    `json:"buyer_username"`
	ShippingFullName string    `json:"shipping_full_name"`
	Occurred         time.Time `json:"occurred"`
}
