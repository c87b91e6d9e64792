package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/connexmart/internal/handler/http/mocks"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOrderHandler_CreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		token          *models.TokenPayload
		body           string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       *createOrderResponse
	}{
		{
			// 201 — заказ создан;
			name: "valid_request_return_201",
			token: &models.TokenPayload{
				UserID: 1,
			},
			body: `{"productName":"Tote bag","quantity":3,"unitPrice":120.5,"color":"black","address":"Moi Avenue","phone":"0712345678"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, req models.CreateOrderRequest) (*models.Order, error) {
						assert.Equal(t, uint64(1), req.UserID)
						require.Len(t, req.Items, 1)
						assert.Equal(t, "Tote bag", req.Items[0].ProductName)
						assert.Equal(t, 3, req.Items[0].Quantity)
						assert.True(t, decimal.RequireFromString("120.5").Equal(req.Items[0].UnitPrice))
						assert.Nil(t, req.ClientTotal)
						return &models.Order{ID: 42, TotalAmount: decimal.RequireFromString("361.5")}, nil
					}).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
			wantBody: &createOrderResponse{
				Message: "Order created successfully",
				OrderID: 42,
				Amount:  361.5,
			},
		},
		{
			// 400 — неверный формат запроса;
			name: "bad_json_return_400",
			token: &models.TokenPayload{
				UserID: 1,
			},
			body: `{"productName":`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 400 — неверный формат запроса(невалидный заказ);
			name: "invalid_order_return_400",
			token: &models.TokenPayload{
				UserID: 1,
			},
			body: `{"productName":"Tote bag","quantity":0,"unitPrice":120.5,"address":"Moi Avenue","phone":"0712345678"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidOrder).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 401 — пользователь не аутентифицирован;
			name: "unauthorized_request_return_401",
			body: `{"productName":"Tote bag","quantity":1,"unitPrice":1,"address":"a","phone":"0712345678"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// 500 — внутренняя ошибка сервера.
			name: "creation_failed_return_500",
			token: &models.TokenPayload{
				UserID: 1,
			},
			body: `{"productName":"Tote bag","quantity":1,"unitPrice":1,"address":"a","phone":"0712345678"}`,
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, models.ErrOrderCreation).Times(1)
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, "/api/orders/create", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal("cannot create request", zap.Error(err))
			}

			w := httptest.NewRecorder()
			st := tt.setup(t)
			ctx := req.Context()
			if tt.token != nil {
				ctx = context.WithValue(ctx, authPayloadKey, tt.token)
			}

			handler := NewOrderHandler(st)
			h := handler.CreateOrder()
			h(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				resBody, err := io.ReadAll(res.Body)
				require.NoError(t, err)

				var got createOrderResponse
				err = json.Unmarshal(resBody, &got)
				require.NoError(t, err)

				if diff := cmp.Diff(*tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_CreateBulkOrder(t *testing.T) {
	body := `{"items":[{"name":"Tote bag","quantity":2,"price":"100.25","color":"red"},{"name":"Mug","quantity":1,"price":50}],"totalAmount":1,"address":"Moi Avenue","phone":"0712345678"}`

	ctrl := gomock.NewController(t)
	svcMock := mocks.NewMockOrderService(ctrl)
	svcMock.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req models.CreateOrderRequest) (*models.Order, error) {
			require.Len(t, req.Items, 2)
			assert.Equal(t, "Tote bag", req.Items[0].ProductName)
			require.NotNil(t, req.Items[0].Color)
			assert.Equal(t, "red", *req.Items[0].Color)
			assert.True(t, decimal.RequireFromString("100.25").Equal(req.Items[0].UnitPrice))
			assert.Equal(t, "Mug", req.Items[1].ProductName)
			// client total is passed through but not trusted
			require.NotNil(t, req.ClientTotal)
			assert.True(t, decimal.NewFromInt(1).Equal(*req.ClientTotal))
			return &models.Order{ID: 7, TotalAmount: decimal.RequireFromString("250.5")}, nil
		})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/bulk", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), authPayloadKey, &models.TokenPayload{UserID: 1})
	w := httptest.NewRecorder()

	NewOrderHandler(svcMock).CreateBulkOrder()(w, req.WithContext(ctx))

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	var got createOrderResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, createOrderResponse{Message: "Order created successfully", OrderID: 7, Amount: 250.5}, got)
}

func TestOrderHandler_ListUserOrders(t *testing.T) {
	createdAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	paidAt := createdAt.Add(time.Hour)
	paidAtStr := paidAt.Format(time.RFC3339)

	tests := []struct {
		name           string
		token          *models.TokenPayload
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       []orderResponse
	}{
		{
			// 200 — успешная обработка запроса.
			name: "valid_request_return_200",
			token: &models.TokenPayload{
				UserID: 1,
			},
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), uint64(1)).Return([]models.Order{
					{
						ID:              1,
						UserID:          1,
						TotalAmount:     decimal.RequireFromString("200"),
						Status:          models.OrderStatusProcessing,
						ShippingAddress: "Moi Avenue",
						PhoneNumber:     "0712345678",
						PaidAt:          &paidAt,
						CreatedAt:       createdAt,
						Items: []models.OrderItem{
							{ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("100"), Subtotal: decimal.RequireFromString("200")},
						},
					},
				}, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody: []orderResponse{
				{
					OrderID:     1,
					Status:      models.OrderStatusProcessing,
					TotalAmount: 200,
					Address:     "Moi Avenue",
					Phone:       "0712345678",
					PaidAt:      &paidAtStr,
					CreatedAt:   createdAt.Format(time.RFC3339),
					Items: []orderItemResponse{
						{Name: "Mug", Quantity: 2, UnitPrice: 100, Subtotal: 200},
					},
				},
			},
		},
		{
			// 204 — нет данных для ответа.
			name: "no_orders_return_204",
			token: &models.TokenPayload{
				UserID: 1,
			},
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Return(nil, nil)
				return svcMock
			},
			wantStatusCode: http.StatusNoContent,
		},
		{
			// 401 — пользователь не авторизован.
			name: "unauthorized_request_return_401",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// 500 — внутренняя ошибка сервера.
			name: "internal_error_return_500",
			token: &models.TokenPayload{
				UserID: 1,
			},
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().ListUserOrders(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/api/orders", nil)
			if err != nil {
				t.Fatal("cannot create request", zap.Error(err))
			}

			w := httptest.NewRecorder()
			st := tt.setup(t)
			ctx := req.Context()
			if tt.token != nil {
				ctx = context.WithValue(ctx, authPayloadKey, tt.token)
			}

			handler := NewOrderHandler(st)
			h := handler.ListUserOrders()
			h(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != nil {
				var got []orderResponse
				err = json.NewDecoder(res.Body).Decode(&got)
				require.NoError(t, err)

				if diff := cmp.Diff(tt.wantBody, got); diff != "" {
					t.Errorf("mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestOrderHandler_GetOrderStatus(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		setup          func(t *testing.T) *mocks.MockOrderService
		wantStatusCode int
		wantBody       string
	}{
		{
			// 200 — успешная обработка запроса;
			name:    "existing_order_return_200",
			orderID: "42",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().GetOrderStatus(gomock.Any(), uint64(42)).Return(models.OrderStatusReady, nil)
				return svcMock
			},
			wantStatusCode: http.StatusOK,
			wantBody:       `{"status":"Ready"}`,
		},
		{
			// 400 — неверный номер заказа;
			name:    "bad_order_id_return_400",
			orderID: "abc",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().GetOrderStatus(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 404 — заказ не найден;
			name:    "missing_order_return_404",
			orderID: "404",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().GetOrderStatus(gomock.Any(), uint64(404)).Return("", models.ErrOrderNotFound)
				return svcMock
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			// 500 — внутренняя ошибка сервера.
			name:    "internal_error_return_500",
			orderID: "1",
			setup: func(t *testing.T) *mocks.MockOrderService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockOrderService(ctrl)
				svcMock.EXPECT().GetOrderStatus(gomock.Any(), gomock.Any()).Return("", errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chi.NewRouter()
			router.Get("/api/orders/status/{orderID}", NewOrderHandler(tt.setup(t)).GetOrderStatus())

			req := httptest.NewRequest(http.MethodGet, "/api/orders/status/"+tt.orderID, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			if tt.wantBody != "" {
				resBody, err := io.ReadAll(res.Body)
				require.NoError(t, err)
				assert.JSONEq(t, tt.wantBody, string(resBody))
			}
		})
	}
}
