package handler

//go:generate mockgen -source=quote.go -destination=mocks/mock_quote.go -package=mocks

import (
	"context"
	"encoding/json"
	"github.com/rookgm/connexmart/internal/models"
	"net/http"
)

const maxQuoteBody = 64 << 10

type QuoteService interface {
	// SubmitQuote validates and stores quote request
	SubmitQuote(ctx context.Context, quote *models.Quote) (*models.Quote, error)
}

// QuoteHandler represents HTTP handler for quote requests
type QuoteHandler struct {
	svc QuoteService
}

// NewQuoteHandler creates new QuoteHandler instance
func NewQuoteHandler(svc QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

type quoteRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ProductInterest string `json:"productInterest"`
	Quantity        int    `json:"quantity"`
	Details         string `json:"details"`
}

// SubmitQuote accepts quote request, no authentication is needed
// 201 — заявка принята;
// 400 — неверный формат запроса;
// 500 — внутренняя ошибка сервера.
func (qh *QuoteHandler) SubmitQuote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxQuoteBody)
		defer r.Body.Close()

		var req quoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}

		_, err := qh.svc.SubmitQuote(r.Context(), &models.Quote{
			Name:            req.Name,
			Email:           req.Email,
			Phone:           req.Phone,
			ProductInterest: req.ProductInterest,
			Quantity:        req.Quantity,
			Details:         req.Details,
		})
		if err != nil {
			writeError(w, err, "Error submitting quote.")
			return
		}

		writeMessage(w, http.StatusCreated, "Quote request submitted successfully.")
	}
}
