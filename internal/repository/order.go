package repository

import (
	"context"
	"errors"
	"github.com/jackc/pgx/v5"
	"github.com/rookgm/connexmart/internal/logger"
	"github.com/rookgm/connexmart/internal/models"
	"github.com/rookgm/connexmart/internal/repository/postgres"
	"go.uber.org/zap"
	"time"
)

const orderColumns = `o.id, o.user_id, o.total_amount, o.status, o.shipping_address, o.phone_number,
						o.logo_file_path, o.mpesa_checkout_id, o.paid_at, o.created_at,
						EXISTS (SELECT 1 FROM payment_attempts a WHERE a.order_id = o.id AND a.result_code IS NULL)`

const (
	insertOrderQuery = `
						INSERT INTO orders (user_id, total_amount, status, shipping_address, phone_number, logo_file_path)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING id, status, created_at
`
	insertOrderItemQuery = `
						INSERT INTO order_items (order_id, product_name, quantity, unit_price, subtotal, color)
						VALUES ($1, $2, $3, $4, $5, $6)
						RETURNING id
`
	selectUserOrderQuery = `
						SELECT ` + orderColumns + ` FROM orders o
						WHERE o.id = $1 AND o.user_id = $2
`
	selectOrderByCheckoutIDQuery = `
						SELECT ` + orderColumns + ` FROM orders o
						JOIN payment_attempts p ON p.order_id = o.id
						WHERE p.checkout_id = $1
`
	selectOrderStatusQuery = `
						SELECT status FROM orders
						WHERE id = $1
`
	selectOrdersByUserIDQuery = `
						SELECT ` + orderColumns + ` FROM orders o
						WHERE o.user_id = $1
						ORDER BY o.created_at DESC
`
	selectItemsByOrderIDsQuery = `
						SELECT id, order_id, product_name, quantity, unit_price, subtotal, color FROM order_items
						WHERE order_id = ANY($1)
						ORDER BY id
`
	// new attempt is recorded only while order is pending, has no open attempt
	// and still carries the correlation id the caller has seen
	insertPaymentAttemptQuery = `
						WITH claimed AS (
							UPDATE orders o
							SET mpesa_checkout_id = $1
							WHERE o.id = $2 AND o.user_id = $3 AND o.status = $4
							  AND o.mpesa_checkout_id IS NOT DISTINCT FROM $5
							  AND NOT EXISTS (SELECT 1 FROM payment_attempts a WHERE a.order_id = o.id AND a.result_code IS NULL)
							RETURNING o.id
						)
						INSERT INTO payment_attempts (order_id, checkout_id)
						SELECT id, $1 FROM claimed
`
	updateOrderPaidQuery = `
						WITH attempt AS (
							UPDATE payment_attempts
							SET result_code = $5, completed_at = $2
							WHERE checkout_id = $3 AND result_code IS NULL
							RETURNING order_id
						)
						UPDATE orders
						SET status = $1, paid_at = $2
						WHERE id IN (SELECT order_id FROM attempt) AND status = $4
`
	updateAttemptFailedQuery = `
						UPDATE payment_attempts
						SET result_code = $1, result_desc = $2, completed_at = $3
						WHERE checkout_id = $4 AND result_code IS NULL
`
	selectReadyCandidatesQuery = `
						SELECT ` + orderColumns + `,
						       COALESCE(array_agg(i.product_name ORDER BY i.id) FILTER (WHERE i.id IS NOT NULL), '{}')
						FROM orders o
						LEFT JOIN order_items i ON i.order_id = o.id
						WHERE o.status = $1 AND o.paid_at <= $2
						GROUP BY o.id
						ORDER BY o.paid_at
`
	updateOrderReadyQuery = `
						UPDATE orders
						SET status = $1
						WHERE id = $2 AND status = $3 AND paid_at IS NOT NULL
`
)

// OrderRepository implements OrderRepository interface
type OrderRepository struct {
	db *postgres.DB
}

// NewOrderRepository creates new OrderRepository instance
func NewOrderRepository(db *postgres.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row pgx.Row, order *models.Order, extra ...any) error {
	dest := []any{
		&order.ID, &order.UserID, &order.TotalAmount, &order.Status, &order.ShippingAddress, &order.PhoneNumber,
		&order.LogoFilePath, &order.CheckoutID, &order.PaidAt, &order.CreatedAt, &order.PaymentOpen,
	}
	return row.Scan(append(dest, extra...)...)
}

// CreateOrder inserts order and its items in one transaction
func (or *OrderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	tx, err := or.db.Begin(ctx)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, insertOrderQuery,
		order.UserID, order.TotalAmount, models.OrderStatusPending, order.ShippingAddress, order.PhoneNumber, order.LogoFilePath,
	).Scan(&order.ID, &order.Status, &order.CreatedAt)
	if err != nil {
		rollback(ctx, tx)
		return nil, err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err = tx.QueryRow(ctx, insertOrderItemQuery,
			item.OrderID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal, item.Color,
		).Scan(&item.ID)
		if err != nil {
			rollback(ctx, tx)
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return order, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Log.Error("rollback transaction", zap.Error(err))
	}
}

// GetUserOrder returns order owned by user
func (or *OrderRepository) GetUserOrder(ctx context.Context, orderID, userID uint64) (*models.Order, error) {
	order := models.Order{}
	err := scanOrder(or.db.QueryRow(ctx, selectUserOrderQuery, orderID, userID), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &order, nil
}

// GetOrderByCheckoutID returns order by correlation id of any of its payment attempts
func (or *OrderRepository) GetOrderByCheckoutID(ctx context.Context, checkoutID string) (*models.Order, error) {
	order := models.Order{}
	err := scanOrder(or.db.QueryRow(ctx, selectOrderByCheckoutIDQuery, checkoutID), &order)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrDataNotFound
		}
		return nil, err
	}

	return &order, nil
}

// GetOrderStatus returns stored order status
func (or *OrderRepository) GetOrderStatus(ctx context.Context, orderID uint64) (string, error) {
	var status string
	err := or.db.QueryRow(ctx, selectOrderStatusQuery, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrDataNotFound
		}
		return "", err
	}

	return status, nil
}

// GetOrdersByUserID gets user orders with items
func (or *OrderRepository) GetOrdersByUserID(ctx context.Context, userID uint64) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectOrdersByUserIDQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}
	ids := []int64{}
	byID := map[uint64]int{}

	for rows.Next() {
		order := models.Order{}
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		byID[order.ID] = len(orders)
		ids = append(ids, int64(order.ID))
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return orders, nil
	}

	itemRows, err := or.db.Query(ctx, selectItemsByOrderIDsQuery, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item := models.OrderItem{}
		err = itemRows.Scan(&item.ID, &item.OrderID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal, &item.Color)
		if err != nil {
			return nil, err
		}
		if idx, ok := byID[item.OrderID]; ok {
			orders[idx].Items = append(orders[idx].Items, item)
		}
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// SetCheckoutID records new payment attempt and makes it the current one.
// prevCheckoutID is the correlation id the caller has read from the order.
// It returns false if order is not pending, not owned by user, has an open
// attempt or its correlation id has changed since it was read.
func (or *OrderRepository) SetCheckoutID(ctx context.Context, orderID, userID uint64, prevCheckoutID *string, checkoutID string) (bool, error) {
	cmd, err := or.db.Exec(ctx, insertPaymentAttemptQuery,
		checkoutID, orderID, userID, models.OrderStatusPending, prevCheckoutID)
	if err != nil {
		if errCode := or.db.ErrorCode(err); errCode == postgres.UniqueViolationCode {
			return false, models.ErrConflictData
		}
		return false, err
	}

	return cmd.RowsAffected() == 1, nil
}

// MarkPaid completes open attempt and moves its pending order to Processing.
// It returns false if there is no open attempt with the id.
func (or *OrderRepository) MarkPaid(ctx context.Context, checkoutID string, paidAt time.Time) (bool, error) {
	cmd, err := or.db.Exec(ctx, updateOrderPaidQuery,
		models.OrderStatusProcessing, paidAt, checkoutID, models.OrderStatusPending, models.PaymentResultSuccess)
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() == 1, nil
}

// MarkPaymentFailed closes open attempt with provider result, order stays Pending.
// It returns false if there is no open attempt with the id.
func (or *OrderRepository) MarkPaymentFailed(ctx context.Context, checkoutID string, resultCode int, resultDesc string, at time.Time) (bool, error) {
	cmd, err := or.db.Exec(ctx, updateAttemptFailedQuery, resultCode, resultDesc, at, checkoutID)
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() == 1, nil
}

// ListReadyCandidates returns Processing orders paid at or before cutoff.
// Only product names of items are filled.
func (or *OrderRepository) ListReadyCandidates(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	rows, err := or.db.Query(ctx, selectReadyCandidatesQuery, models.OrderStatusProcessing, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []models.Order{}

	for rows.Next() {
		order := models.Order{}
		var names []string
		if err := scanOrder(rows, &order, &names); err != nil {
			return nil, err
		}
		for _, name := range names {
			order.Items = append(order.Items, models.OrderItem{OrderID: order.ID, ProductName: name})
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkReady moves paid Processing order to Ready.
// It returns false if order has left Processing already.
func (or *OrderRepository) MarkReady(ctx context.Context, orderID uint64) (bool, error) {
	cmd, err := or.db.Exec(ctx, updateOrderReadyQuery, models.OrderStatusReady, orderID, models.OrderStatusProcessing)
	if err != nil {
		return false, err
	}

	return cmd.RowsAffected() == 1, nil
}
