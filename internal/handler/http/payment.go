package handler

//go:generate mockgen -source=payment.go -destination=mocks/mock_payment.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/models"
	"go.uber.org/zap"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxCallbackBody limits provider callback payload
const maxCallbackBody = 1 << 20

type PaymentService interface {
	// InitiatePayment sends payment prompt for order to phone number
	InitiatePayment(ctx context.Context, orderID, userID uint64, phoneNumber string) (*models.PaymentResponse, error)
	// HandlePaymentCallback applies provider payment result
	HandlePaymentCallback(ctx context.Context, cb models.STKCallback)
}

// PaymentHandler represents HTTP handler for payment requests and provider callbacks
type PaymentHandler struct {
	svc PaymentService
}

// NewPaymentHandler creates new PaymentHandler instance
func NewPaymentHandler(svc PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// orderIDParam accepts order id as JSON number or string
type orderIDParam uint64

func (p *orderIDParam) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*p = orderIDParam(id)
	return nil
}

type stkPushRequest struct {
	PhoneNumber string       `json:"phoneNumber"`
	OrderID     orderIDParam `json:"orderId"`
}

type stkPushResponse struct {
	Message string                  `json:"message"`
	Data    *models.PaymentResponse `json:"data"`
}

// InitiatePayment sends STK push for user order
// 200 — запрос на оплату отправлен;
// 400 — неверный формат запроса;
// 401 — пользователь не авторизован;
// 404 — заказ не найден;
// 409 — оплата заказа уже инициирована;
// 502 — ошибка платёжного провайдера;
// 500 — внутренняя ошибка сервера.
func (ph *PaymentHandler) InitiatePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "Access token required")
			return
		}

		var req stkPushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		if req.OrderID == 0 || req.PhoneNumber == "" {
			writeMessage(w, http.StatusBadRequest, "phoneNumber and orderId are required")
			return
		}

		resp, err := ph.svc.InitiatePayment(r.Context(), uint64(req.OrderID), payload.UserID, req.PhoneNumber)
		if err != nil {
			writeError(w, err, "Failed to initiate M-Pesa payment.")
			return
		}

		writeJSON(w, http.StatusOK, stkPushResponse{
			Message: "M-Pesa STK Push sent.",
			Data:    resp,
		})
	}
}

type callbackEnvelope struct {
	Body struct {
		STKCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// PaymentCallback receives asynchronous payment result from provider.
// Provider retries until acknowledged, so the answer is always 200.
func (ph *PaymentHandler) PaymentCallback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer writeJSON(w, http.StatusOK, callbackAck{ResultCode: 0, ResultDesc: "Accepted"})

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
		if err != nil {
			logger.Log.Warn("cannot read payment callback", zap.Error(err))
			return
		}
		defer r.Body.Close()

		logger.Log.Debug("payment callback received", zap.ByteString("payload", body))

		var env callbackEnvelope
		if err := json.Unmarshal(body, &env); err != nil || env.Body.STKCallback == nil {
			logger.Log.Warn("malformed payment callback", zap.Error(err))
			return
		}

		cb := env.Body.STKCallback
		// processing must not depend on provider connection
		ph.svc.HandlePaymentCallback(context.WithoutCancel(r.Context()), models.STKCallback{
			MerchantRequestID: cb.MerchantRequestID,
			CheckoutRequestID: cb.CheckoutRequestID,
			ResultCode:        cb.ResultCode,
			ResultDesc:        cb.ResultDesc,
			ReceivedAt:        time.Now().UTC(),
		})
	}
}
