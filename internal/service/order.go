package service

//go:generate mockgen -source=order.go -destination=mocks/mock_order.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/metrics"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/phone"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"strings"
	"time"
)

// DefaultGracePeriod is time between payment and pickup readiness
const DefaultGracePeriod = 48 * time.Hour

const itemSummarySep = ", "

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts order and its items atomically
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetUserOrder returns order owned by user
	GetUserOrder(ctx context.Context, orderID, userID uint64) (*models.Order, error)
	// GetOrderByCheckoutID returns order by correlation id of any of its payment attempts
	GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error)
	// GetOrderStatus returns stored order status
	GetOrderStatus(ctx context.Context, orderID uint64) (string, error)
	// GetOrdersByUserID gets user orders
	GetOrdersByUserID(ctx context.Context, userID uint64) ([]models.Order, error)
	// SetCheckoutID records new payment attempt on pending order without an open one
	SetCheckoutID(ctx context.Context, orderID, userID uint64, prevCheckoutID *string, checkoutID string) (bool, error)
	// MarkPaid moves pending order to Processing and stamps paid time
	MarkPaid(ctx context.Context, checkoutID string, paidAt time.Time) (bool, error)
	// MarkPaymentFailed closes open attempt, order stays Pending
	MarkPaymentFailed(ctx context.Context, checkoutID string, resultCode int, resultDesc string, at time.Time) (bool, error)
	// ListReadyCandidates returns Processing orders paid at or before cutoff
	ListReadyCandidates(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	// MarkReady moves Processing order to Ready
	MarkReady(ctx context.Context, orderID uint64) (bool, error)
}

// PaymentGateway initiates payments at provider
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, pr models.PaymentRequest) (*models.PaymentResponse, error)
}

// Notifier notifies customer that order is ready
type Notifier interface {
	SendPickupNotice(ctx context.Context, phoneNumber string, orderID uint64, itemSummary string) error
}

// OrderService implements order lifecycle
type OrderService struct {
	repo        OrderRepository
	gateway     PaymentGateway
	notifier    Notifier
	gracePeriod time.Duration
	now         func() time.Time
}

// NewOrderService creates new OrderService instance
func NewOrderService(repo OrderRepository, gateway PaymentGateway, notifier Notifier, gracePeriod time.Duration) *OrderService {
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	return &OrderService{
		repo:        repo,
		gateway:     gateway,
		notifier:    notifier,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

func validateCreateRequest(req models.CreateOrderRequest) error {
	if req.UserID == 0 {
		return models.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: no items", models.ErrInvalidOrder)
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return fmt.Errorf("%w: shipping address required", models.ErrInvalidOrder)
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number required", models.ErrInvalidOrder)
	}
	for i, item := range req.Items {
		switch {
		case strings.TrimSpace(item.ProductName) == "":
			return fmt.Errorf("%w: item %d: product name required", models.ErrInvalidOrder, i)
		case item.Quantity <= 0:
			return fmt.Errorf("%w: item %d: quantity must be positive", models.ErrInvalidOrder, i)
		case item.UnitPrice.IsNegative():
			return fmt.Errorf("%w: item %d: unit price must not be negative", models.ErrInvalidOrder, i)
		case !item.UnitPrice.Equal(item.UnitPrice.Round(2)):
			return fmt.Errorf("%w: item %d: unit price has more than 2 decimal places", models.ErrInvalidOrder, i)
		}
	}
	return nil
}

// CreateOrder creates pending order, total is computed from items
func (os *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          req.UserID,
		Status:          models.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		LogoFilePath:    req.LogoFilePath,
		Items:           make([]models.OrderItem, 0, len(req.Items)),
	}

	total := decimal.Zero
	for _, in := range req.Items {
		subtotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductName: strings.TrimSpace(in.ProductName),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Subtotal:    subtotal,
			Color:       in.Color,
		})
		total = total.Add(subtotal)
	}
	order.TotalAmount = total

	if req.ClientTotal != nil && !req.ClientTotal.Equal(total) {
		logger.Log.Warn("client total differs from computed total",
			zap.Uint64("user_id", req.UserID),
			zap.String("client_total", req.ClientTotal.String()),
			zap.String("total", total.String()))
	}

	created, err := os.repo.CreateOrder(ctx, order)
	if err != nil {
		logger.Log.Error("create order", zap.Uint64("user_id", req.UserID), zap.Error(err))
		return nil, models.ErrOrderCreation
	}

	metrics.OrdersCreated.Inc()
	logger.Log.Info("order created",
		zap.Uint64("order_id", created.ID),
		zap.Int("items", len(created.Items)),
		zap.String("total", created.TotalAmount.String()))

	return created, nil
}

// InitiatePayment requests payment of order total from phone number.
// Only the attempt is recorded, status changes on callback. Pending order
// may be paid again once its previous attempt has failed.
func (os *OrderService) InitiatePayment(ctx context.Context, orderID, userID uint64, phoneNumber string) (*models.PaymentResponse, error) {
	msisdn, err := phone.Normalize(phoneNumber)
	if err != nil {
		return nil, err
	}

	order, err := os.repo.GetUserOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, models.ErrOrderNotFound
		}
		logger.Log.Error("get order for payment", zap.Uint64("order_id", orderID), zap.Error(err))
		return nil, err
	}

	if !order.TotalAmount.IsPositive() {
		return nil, models.ErrInvalidAmount
	}
	if order.Status != models.OrderStatusPending {
		return nil, models.ErrOrderAlreadyPaid
	}
	if order.PaymentOpen {
		return nil, models.ErrPaymentInProgress
	}

	// provider accepts whole currency units only
	amount := order.TotalAmount.Ceil().IntPart()

	resp, err := os.gateway.InitiatePayment(ctx, models.PaymentRequest{
		Amount:      amount,
		PhoneNumber: msisdn,
		Reference:   fmt.Sprintf("Order %d", order.ID),
		Description: fmt.Sprintf("Payment for Order %d", order.ID),
	})
	if err != nil {
		metrics.PaymentInitiations.WithLabelValues("failed").Inc()
		logger.Log.Error("payment initiation failed", zap.Uint64("order_id", order.ID), zap.Error(err))
		return nil, err
	}

	ok, err := os.repo.SetCheckoutID(ctx, order.ID, userID, order.CheckoutID, resp.CheckoutRequestID)
	if err != nil {
		// customer already has the prompt, its callback will not match any order
		metrics.PaymentInitiations.WithLabelValues("unmatched").Inc()
		logger.Log.Error("payment accepted but checkout id not stored",
			zap.Uint64("order_id", order.ID),
			zap.String("checkout_id", resp.CheckoutRequestID),
			zap.String("merchant_request_id", resp.MerchantRequestID),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}
	if !ok {
		// concurrent initiation stored its attempt first
		metrics.PaymentInitiations.WithLabelValues("conflict").Inc()
		logger.Log.Warn("checkout id not stored, order has another attempt",
			zap.Uint64("order_id", order.ID),
			zap.String("checkout_id", resp.CheckoutRequestID))
		return nil, models.ErrPaymentInProgress
	}

	metrics.PaymentInitiations.WithLabelValues("accepted").Inc()
	logger.Log.Info("payment initiated",
		zap.Uint64("order_id", order.ID),
		zap.Int64("amount", amount),
		zap.String("checkout_id", resp.CheckoutRequestID))

	return resp, nil
}

// HandlePaymentCallback applies provider payment result. Errors are logged only,
// provider must always get acknowledgement.
func (os *OrderService) HandlePaymentCallback(ctx context.Context, cb models.STKCallback) {
	log := logger.Log.With(
		zap.String("checkout_id", cb.CheckoutRequestID),
		zap.Int("result_code", cb.ResultCode))

	if cb.CheckoutRequestID == "" {
		metrics.PaymentCallbacks.WithLabelValues("malformed").Inc()
		log.Warn("payment callback without checkout id")
		return
	}

	if cb.ResultCode != models.PaymentResultSuccess {
		// order stays Pending and can be paid with a new attempt
		failed, err := os.repo.MarkPaymentFailed(ctx, cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc, os.now().UTC())
		if err != nil {
			metrics.PaymentCallbacks.WithLabelValues("error").Inc()
			log.Error("mark payment failed", zap.Error(err))
			return
		}
		if failed {
			metrics.PaymentCallbacks.WithLabelValues("not_paid").Inc()
			log.Info("payment not completed", zap.String("result_desc", cb.ResultDesc))
			return
		}
		os.logUnmatchedCallback(ctx, log, cb.CheckoutRequestID)
		return
	}

	paid, err := os.repo.MarkPaid(ctx, cb.CheckoutRequestID, os.now().UTC())
	if err != nil {
		metrics.PaymentCallbacks.WithLabelValues("error").Inc()
		log.Error("mark order paid", zap.Error(err))
		return
	}
	if paid {
		metrics.PaymentCallbacks.WithLabelValues("paid").Inc()
		log.Info("order paid")
		return
	}

	os.logUnmatchedCallback(ctx, log, cb.CheckoutRequestID)
}

// logUnmatchedCallback tells unknown correlation id from repeated callback
func (os *OrderService) logUnmatchedCallback(ctx context.Context, log *zap.Logger, checkoutID string) {
	order, err := os.repo.GetOrderByCheckoutID(ctx, checkoutID)
	switch {
	case errors.Is(err, models.ErrDataNotFound):
		metrics.PaymentCallbacks.WithLabelValues("unknown").Inc()
		log.Warn("payment callback for unknown checkout id")
	case err != nil:
		metrics.PaymentCallbacks.WithLabelValues("error").Inc()
		log.Error("get order by checkout id", zap.Error(err))
	default:
		metrics.PaymentCallbacks.WithLabelValues("duplicate").Inc()
		log.Info("duplicate payment callback", zap.Uint64("order_id", order.ID), zap.String("status", order.Status))
	}
}

// SweepReadyOrders moves orders paid more than grace period ago to Ready
// and notifies customers. Status is committed before the notice is sent.
func (os *OrderService) SweepReadyOrders(ctx context.Context) (models.SweepResult, error) {
	result := models.SweepResult{}
	start := os.now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	cutoff := start.Add(-os.gracePeriod)

	orders, err := os.repo.ListReadyCandidates(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.Selected = len(orders)

	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if order.PaidAt == nil || order.PaidAt.After(cutoff) {
			continue
		}

		ok, err := os.repo.MarkReady(ctx, order.ID)
		if err != nil {
			result.Failed++
			logger.Log.Error("mark order ready", zap.Uint64("order_id", order.ID), zap.Error(err))
			continue
		}
		if !ok {
			logger.Log.Debug("order already left Processing", zap.Uint64("order_id", order.ID))
			continue
		}
		result.Ready++
		metrics.OrdersReady.Inc()

		err = os.notifier.SendPickupNotice(ctx, order.PhoneNumber, order.ID, ItemSummary(order.Items))
		if err != nil {
			result.Failed++
			metrics.PickupNotifications.WithLabelValues("failed").Inc()
			logger.Log.Error("send pickup notice", zap.Uint64("order_id", order.ID), zap.Error(err))
			continue
		}
		result.Notified++
		metrics.PickupNotifications.WithLabelValues("sent").Inc()
	}

	return result, nil
}

// ItemSummary joins item product names
func ItemSummary(items []models.OrderItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.ProductName)
	}
	return strings.Join(names, itemSummarySep)
}

// GetOrderStatus returns current order status
func (os *OrderService) GetOrderStatus(ctx context.Context, orderID uint64) (string, error) {
	status, err := os.repo.GetOrderStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return "", models.ErrOrderNotFound
		}
		return "", err
	}
	return status, nil
}

// ListUserOrders returns list of user orders
func (os *OrderService) ListUserOrders(ctx context.Context, userID uint64) ([]models.Order, error) {
	return os.repo.GetOrdersByUserID(ctx, userID)
}
