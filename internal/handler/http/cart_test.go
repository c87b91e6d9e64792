package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/rookgm/connexmart/internal/handler/http/mocks"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name           string
		token          *models.TokenPayload
		body           string
		setup          func(t *testing.T) *mocks.MockCartService
		wantStatusCode int
	}{
		{
			// 201 — товар добавлен в корзину;
			name:  "valid_request_return_201",
			token: &models.TokenPayload{UserID: 1},
			body:  `{"productName":"Hoodie","quantity":2,"unitPrice":1250}`,
			setup: func(t *testing.T) *mocks.MockCartService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockCartService(ctrl)
				svcMock.EXPECT().AddItem(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, item *models.CartItem) (*models.CartItem, error) {
						assert.Equal(t, uint64(1), item.UserID)
						assert.Equal(t, 2, item.Quantity)
						return item, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			// 400 — неверный формат запроса;
			name:  "invalid_item_return_400",
			token: &models.TokenPayload{UserID: 1},
			body:  `{"productName":"","quantity":2,"unitPrice":1250}`,
			setup: func(t *testing.T) *mocks.MockCartService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockCartService(ctrl)
				svcMock.EXPECT().AddItem(gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidCartItem)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			// 401 — пользователь не авторизован;
			name: "unauthorized_request_return_401",
			body: `{"productName":"Hoodie","quantity":2,"unitPrice":1250}`,
			setup: func(t *testing.T) *mocks.MockCartService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockCartService(ctrl)
				svcMock.EXPECT().AddItem(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			// 500 — внутренняя ошибка сервера.
			name:  "internal_error_return_500",
			token: &models.TokenPayload{UserID: 1},
			body:  `{"productName":"Hoodie","quantity":2,"unitPrice":1250}`,
			setup: func(t *testing.T) *mocks.MockCartService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockCartService(ctrl)
				svcMock.EXPECT().AddItem(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cart", strings.NewReader(tt.body))
			ctx := req.Context()
			if tt.token != nil {
				ctx = context.WithValue(ctx, authPayloadKey, tt.token)
			}
			w := httptest.NewRecorder()

			NewCartHandler(tt.setup(t)).AddItem()(w, req.WithContext(ctx))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)
		})
	}
}

func TestCartHandler_GetItems(t *testing.T) {
	createdAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)

	ctrl := gomock.NewController(t)
	svcMock := mocks.NewMockCartService(ctrl)
	svcMock.EXPECT().GetItems(gomock.Any(), uint64(1)).Return([]models.CartItem{
		{
			ID:          3,
			UserID:      1,
			ProductName: "Hoodie",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("1250.5"),
			TotalPrice:  decimal.RequireFromString("2501"),
			CreatedAt:   createdAt,
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	ctx := context.WithValue(req.Context(), authPayloadKey, &models.TokenPayload{UserID: 1})
	w := httptest.NewRecorder()

	NewCartHandler(svcMock).GetItems()(w, req.WithContext(ctx))

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []cartItemResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))

	want := []cartItemResponse{
		{ID: 3, ProductName: "Hoodie", Quantity: 2, UnitPrice: 1250.5, TotalPrice: 2501, CreatedAt: createdAt.Format(time.RFC3339)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
