package service

//go:generate mockgen -source=cart.go -destination=mocks/mock_cart.go -package=mocks

import (
	"context"
	"fmt"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/shopspring/decimal"
	"strings"
)

// CartRepository is interface for interfacing with cart-related data
type CartRepository interface {
	// AddItem inserts new cart item
	AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	// GetItemsByUserID returns user cart
	GetItemsByUserID(ctx context.Context, userID uint64) ([]models.CartItem, error)
}

// CartService implements CartService interface
type CartService struct {
	repo CartRepository
}

// NewCartService creates new CartService instance
func NewCartService(repo CartRepository) *CartService {
	return &CartService{repo: repo}
}

// AddItem adds item to user cart
func (cs *CartService) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	item.ProductName = strings.TrimSpace(item.ProductName)
	switch {
	case item.UserID == 0:
		return nil, models.ErrUnauthorized
	case item.ProductName == "":
		return nil, fmt.Errorf("%w: product name required", models.ErrInvalidCartItem)
	case item.Quantity <= 0:
		return nil, fmt.Errorf("%w: quantity must be positive", models.ErrInvalidCartItem)
	case item.UnitPrice.IsNegative():
		return nil, fmt.Errorf("%w: unit price must not be negative", models.ErrInvalidCartItem)
	}

	item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))

	return cs.repo.AddItem(ctx, item)
}

// GetItems returns user cart
func (cs *CartService) GetItems(ctx context.Context, userID uint64) ([]models.CartItem, error) {
	return cs.repo.GetItemsByUserID(ctx, userID)
}
