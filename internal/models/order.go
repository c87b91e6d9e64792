package models

import (
	"github.com/shopspring/decimal"
	"time"
)

//Pending — заказ создан, оплата ещё не подтверждена;
//Processing — оплата подтверждена, заказ готовится;
//Ready — заказ готов к выдаче, покупатель уведомлён.

// order status
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusReady      = "Ready"
)

// Order is order entity
type Order struct {
	ID              uint64
	UserID          uint64
	TotalAmount     decimal.Decimal
	Status          string
	ShippingAddress string
	PhoneNumber     string
	LogoFilePath    *string
	// CheckoutID is correlation id of the latest payment attempt
	CheckoutID *string
	// PaymentOpen is set while an attempt waits for provider callback
	PaymentOpen bool
	PaidAt      *time.Time
	CreatedAt   time.Time
	Items       []OrderItem
}

// OrderItem is order line entity
type OrderItem struct {
	ID          uint64
	OrderID     uint64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	Color       *string
}

// ItemInput is a line of a create order request
type ItemInput struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Color       *string
}

// CreateOrderRequest contains everything needed to create an order
type CreateOrderRequest struct {
	UserID          uint64
	Items           []ItemInput
	ShippingAddress string
	PhoneNumber     string
	LogoFilePath    *string
	// ClientTotal is the total sent by the client, it is advisory only
	ClientTotal *decimal.Decimal
}

// SweepResult summarizes one ready orders sweep
type SweepResult struct {
	Selected int
	Ready    int
	Notified int
	Failed   int
}
