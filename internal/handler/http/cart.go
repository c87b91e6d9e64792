package handler

//go:generate mockgen -source=cart.go -destination=mocks/mock_cart.go -package=mocks

import (
	"context"
	"encoding/json"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/shopspring/decimal"
	"net/http"
	"time"
)

type CartService interface {
	// AddItem adds item to user cart
	AddItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	// GetItems returns user cart
	GetItems(ctx context.Context, userID uint64) ([]models.CartItem, error)
}

// CartHandler represents HTTP handler for cart requests
type CartHandler struct {
	svc CartService
}

// NewCartHandler creates new CartHandler instance
func NewCartHandler(svc CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

type addCartItemRequest struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type cartItemResponse struct {
	ID          uint64  `json:"id"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
	CreatedAt   string  `json:"createdAt"`
}

// AddItem adds item to cart
// 201 — товар добавлен в корзину;
// 400 — неверный формат запроса;
// 401 — пользователь не авторизован;
// 500 — внутренняя ошибка сервера.
func (ch *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		var req addCartItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		_, err := ch.svc.AddItem(r.Context(), &models.CartItem{
			UserID:      payload.UserID,
			ProductName: req.ProductName,
			Quantity:    req.Quantity,
			UnitPrice:   req.UnitPrice,
		})
		if err != nil {
			writeError(w, err, "Error adding to cart")
			return
		}

		writeMessage(w, http.StatusCreated, "Item added to cart")
	}
}

// GetItems returns user cart
// 200 — успешная обработка запроса;
// 401 — пользователь не авторизован;
// 500 — внутренняя ошибка сервера.
func (ch *CartHandler) GetItems() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		items, err := ch.svc.GetItems(r.Context(), payload.UserID)
		if err != nil {
			writeError(w, err, "Error fetching cart")
			return
		}

		resp := make([]cartItemResponse, 0, len(items))
		for _, item := range items {
			resp = append(resp, cartItemResponse{
				ID:          item.ID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice.InexactFloat64(),
				TotalPrice:  item.TotalPrice.InexactFloat64(),
				CreatedAt:   item.CreatedAt.Format(time.RFC3339),
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
