package handler

import (
	"encoding/json"
	"errors"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/models"
	"go.uber.org/zap"
	"net/http"
)

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes v as JSON body with status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("cannot encode response", zap.Error(err))
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps service error to status code, fallback message is used for internal errors
func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrInvalidOrder),
		errors.Is(err, models.ErrInvalidCartItem),
		errors.Is(err, models.ErrInvalidQuote),
		errors.Is(err, models.ErrInvalidPhone),
		errors.Is(err, models.ErrInvalidAmount):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Access token required")
	case errors.Is(err, models.ErrOrderNotFound):
		writeMessage(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, models.ErrPaymentInProgress):
		writeMessage(w, http.StatusConflict, "Payment already initiated for this order")
	case errors.Is(err, models.ErrOrderAlreadyPaid):
		writeMessage(w, http.StatusConflict, "Order already paid")
	case errors.Is(err, models.ErrProviderAuth),
		errors.Is(err, models.ErrProviderTransport),
		errors.Is(err, models.ErrProviderRejected):
		writeMessage(w, http.StatusBadGateway, fallback)
	default:
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}
