package handler

//go:generate mockgen -source=order.go -destination=mocks/mock_order.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/shopspring/decimal"
	"net/http"
	"strconv"
	"time"
)

type OrderService interface {
	// CreateOrder creates pending order
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error)
	// GetOrderStatus returns order status
	GetOrderStatus(ctx context.Context, orderID uint64) (string, error)
	// ListUserOrders returns user orders with items
	ListUserOrders(ctx context.Context, userID uint64) ([]models.Order, error)
}

// OrderHandler represents HTTP handler for order-related requests
type OrderHandler struct {
	svc OrderService
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

type createOrderRequest struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Color       *string         `json:"color"`
	Address     string          `json:"address"`
	Phone       string          `json:"phone"`
	Logo        *string         `json:"logo"`
}

type bulkOrderItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Color    *string         `json:"color"`
}

type bulkOrderRequest struct {
	Items       []bulkOrderItem  `json:"items"`
	TotalAmount *decimal.Decimal `json:"totalAmount"`
	Address     string           `json:"address"`
	Phone       string           `json:"phone"`
	Logo        *string          `json:"logo"`
}

type createOrderResponse struct {
	Message string  `json:"message"`
	OrderID uint64  `json:"orderId"`
	Amount  float64 `json:"amount"`
}

// CreateOrder creates single item order
// 201 — заказ создан;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) CreateOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		var req createOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		oh.create(w, r, models.CreateOrderRequest{
			UserID: payload.UserID,
			Items: []models.ItemInput{{
				ProductName: req.ProductName,
				Quantity:    req.Quantity,
				UnitPrice:   req.UnitPrice,
				Color:       req.Color,
			}},
			ShippingAddress: req.Address,
			PhoneNumber:     req.Phone,
			LogoFilePath:    req.Logo,
		})
	}
}

// CreateBulkOrder creates order with many items, client total is not trusted
// 201 — заказ создан;
// 400 — неверный формат запроса;
// 401 — пользователь не аутентифицирован;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) CreateBulkOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		var req bulkOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		items := make([]models.ItemInput, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, models.ItemInput{
				ProductName: item.Name,
				Quantity:    item.Quantity,
				UnitPrice:   item.Price,
				Color:       item.Color,
			})
		}

		oh.create(w, r, models.CreateOrderRequest{
			UserID:          payload.UserID,
			Items:           items,
			ShippingAddress: req.Address,
			PhoneNumber:     req.Phone,
			LogoFilePath:    req.Logo,
			ClientTotal:     req.TotalAmount,
		})
	}
}

func (oh *OrderHandler) create(w http.ResponseWriter, r *http.Request, req models.CreateOrderRequest) {
	order, err := oh.svc.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, err, "Order creation failed")
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		Message: "Order created successfully",
		OrderID: order.ID,
		Amount:  order.TotalAmount.InexactFloat64(),
	})
}

type orderItemResponse struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
	Color     *string `json:"color,omitempty"`
}

type orderResponse struct {
	OrderID     uint64              `json:"orderId"`
	Status      string              `json:"status"`
	TotalAmount float64             `json:"totalAmount"`
	Address     string              `json:"address"`
	Phone       string              `json:"phone"`
	PaidAt      *string             `json:"paidAt,omitempty"`
	CreatedAt   string              `json:"createdAt"`
	Items       []orderItemResponse `json:"items"`
}

// ListUserOrders returns orders of authenticated user
// 200 — успешная обработка запроса;
// 204 — нет данных для ответа;
// 401 — пользователь не авторизован;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) ListUserOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		orders, err := oh.svc.ListUserOrders(r.Context(), payload.UserID)
		if err != nil {
			writeError(w, err, "internal error")
			return
		}

		if len(orders) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		resp := make([]orderResponse, 0, len(orders))
		for _, order := range orders {
			or := orderResponse{
				OrderID:     order.ID,
				Status:      order.Status,
				TotalAmount: order.TotalAmount.InexactFloat64(),
				Address:     order.ShippingAddress,
				Phone:       order.PhoneNumber,
				CreatedAt:   order.CreatedAt.Format(time.RFC3339),
				Items:       make([]orderItemResponse, 0, len(order.Items)),
			}
			if order.PaidAt != nil {
				paidAt := order.PaidAt.Format(time.RFC3339)
				or.PaidAt = &paidAt
			}
			for _, item := range order.Items {
				or.Items = append(or.Items, orderItemResponse{
					Name:      item.ProductName,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice.InexactFloat64(),
					Subtotal:  item.Subtotal.InexactFloat64(),
					Color:     item.Color,
				})
			}
			resp = append(resp, or)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type orderStatusResponse struct {
	Status string `json:"status"`
}

// GetOrderStatus returns order status, it is polled by clients waiting for payment
// 200 — успешная обработка запроса;
// 400 — неверный номер заказа;
// 404 — заказ не найден;
// 500 — внутренняя ошибка сервера.
func (oh *OrderHandler) GetOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseUint(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil || orderID == 0 {
			writeMessage(w, http.StatusBadRequest, "invalid order id")
			return
		}

		status, err := oh.svc.GetOrderStatus(r.Context(), orderID)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				writeMessage(w, http.StatusNotFound, "Order not found")
				return
			}
			writeMessage(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, orderStatusResponse{Status: status})
	}
}
