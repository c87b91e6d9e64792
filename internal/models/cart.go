package models

import (
	"github.com/shopspring/decimal"
	"time"
)

// CartItem is cart entity
type CartItem struct {
	ID          uint64
	UserID      uint64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
	CreatedAt   time.Time
}
