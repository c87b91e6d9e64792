package repository

import (
	"context"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/repository/postgres"
)

const (
	insertCartItemQuery = `
						INSERT INTO cart (user_id, product_name, quantity, unit_price, total_price)
						VALUES ($1, $2, $3, $4, $5)
						RETURNING id, created_at
`
	selectCartByUserIDQuery = `
						SELECT id, user_id, product_name, quantity, unit_price, total_price, created_at FROM cart
						WHERE user_id = $1
						ORDER BY created_at
`
)

// CartRepository implements CartRepository interface
type CartRepository struct {
	db *postgres.DB
}

// NewCartRepository creates new cart repository instance
func NewCartRepository(db *postgres.DB) *CartRepository {
	return &CartRepository{db: db}
}

// AddItem inserts new cart item
func (cr *CartRepository) AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	err := cr.db.QueryRow(ctx, insertCartItemQuery,
		item.UserID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return nil, err
	}

	return item, nil
}

// GetItemsByUserID returns user cart
func (cr *CartRepository) GetItemsByUserID(ctx context.Context, userID uint64) ([]models.CartItem, error) {
	rows, err := cr.db.Query(ctx, selectCartByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.CartItem{}

	for rows.Next() {
		item := models.CartItem{}
		err = rows.Scan(&item.ID, &item.UserID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
