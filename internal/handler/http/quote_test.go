package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/golang/mock/gomock"
	"github.com/rookgm/connexmart/internal/handler/http/mocks"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestQuoteHandler_SubmitQuote(t *testing.T) {
	validBody := `{"name":"Wanjiru","email":"wanjiru@example.com","phone":"0712345678",` +
		`"productInterest":"Branded mugs","quantity":200,"details":"Logo on both sides"}`

	tests := []struct {
		name           string
		body           string
		setup          func(t *testing.T) *mocks.MockQuoteService
		wantStatusCode int
		wantMessage    string
	}{
		{
			// 201 — заявка принята;
			name: "valid_request_return_201",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockQuoteService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockQuoteService(ctrl)
				svcMock.EXPECT().SubmitQuote(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, quote *models.Quote) (*models.Quote, error) {
						assert.Equal(t, "Wanjiru", quote.Name)
						assert.Equal(t, "Branded mugs", quote.ProductInterest)
						assert.Equal(t, 200, quote.Quantity)
						assert.Equal(t, "Logo on both sides", quote.Details)
						quote.ID = 1
						return quote, nil
					})
				return svcMock
			},
			wantStatusCode: http.StatusCreated,
			wantMessage:    "Quote request submitted successfully.",
		},
		{
			// 400 — неверный формат запроса;
			name: "malformed_json_return_400",
			body: `{"name":`,
			setup: func(t *testing.T) *mocks.MockQuoteService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockQuoteService(ctrl)
				svcMock.EXPECT().SubmitQuote(gomock.Any(), gomock.Any()).Times(0)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    "bad request",
		},
		{
			// 400 — неверный формат запроса;
			name: "invalid_quote_return_400",
			body: `{"name":"Wanjiru"}`,
			setup: func(t *testing.T) *mocks.MockQuoteService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockQuoteService(ctrl)
				svcMock.EXPECT().SubmitQuote(gomock.Any(), gomock.Any()).Return(nil, models.ErrInvalidQuote)
				return svcMock
			},
			wantStatusCode: http.StatusBadRequest,
			wantMessage:    models.ErrInvalidQuote.Error(),
		},
		{
			// 500 — внутренняя ошибка сервера.
			name: "internal_error_return_500",
			body: validBody,
			setup: func(t *testing.T) *mocks.MockQuoteService {
				ctrl := gomock.NewController(t)

				svcMock := mocks.NewMockQuoteService(ctrl)
				svcMock.EXPECT().SubmitQuote(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
				return svcMock
			},
			wantStatusCode: http.StatusInternalServerError,
			wantMessage:    "Error submitting quote.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/quote", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			NewQuoteHandler(tt.setup(t)).SubmitQuote()(w, req)

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatusCode, res.StatusCode)

			var msg messageResponse
			require.NoError(t, json.NewDecoder(res.Body).Decode(&msg))
			assert.Equal(t, tt.wantMessage, msg.Message)
		})
	}
}
