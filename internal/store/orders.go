package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/order"
	"github.com/shopspring/decimal"
)

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixNano())
}

const orderColumns = `id, order_number, buyer_id, seller_id, status, tracking_number,
	total_amount, created_at, status_updated_at, version`

func scanOrder(row interface {
	Scan(dest ...interface{}) error
}, o *models.Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.BuyerID,
		&o.SellerID,
		&o.Status,
		&o.TrackingNumber,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.StatusUpdatedAt,
		&o.Version,
	)
}

// CheckoutCart converts a user's cart into one order per seller. Products
// are locked and stock is enforced here; the cart itself never clamps
// quantities, checkout is the authority. On success the cart is cleared
// inside the same transaction.
func CheckoutCart(ctx context.Context, db *sql.DB, buyerID int64) ([]models.Order, error) {
	var created []models.Order

	err := database.WithRetry(ctx, db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		created = created[:0]

		rows, err := tx.QueryContext(ctx,
			`SELECT product_id, quantity, unit_price, seller_id
			 FROM cart_lines
			 WHERE user_id = $1
			 ORDER BY seller_id, product_id`,
			buyerID)
		if err != nil {
			return fmt.Errorf("read cart lines: %w", err)
		}

		type checkoutLine struct {
			productID int64
			quantity  int
			unitPrice decimal.Decimal
			sellerID  int64
		}
		var lines []checkoutLine
		for rows.Next() {
			var l checkoutLine
			if err := rows.Scan(&l.productID, &l.quantity, &l.unitPrice, &l.sellerID); err != nil {
				rows.Close()
				return fmt.Errorf("scan cart line: %w", err)
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		if len(lines) == 0 {
			return database.ErrEmptyCart
		}

		for _, l := range lines {
			var stock int
			err := tx.QueryRowContext(ctx,
				`SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE NOWAIT`,
				l.productID).Scan(&stock)
			if err != nil {
				if err == sql.ErrNoRows {
					return database.ErrProductNotFound
				}
				return fmt.Errorf("lock product %d: %w", l.productID, err)
			}
			if stock < l.quantity {
				return database.ErrInsufficientStock
			}
		}

		bySeller := make(map[int64][]checkoutLine)
		var sellerOrder []int64
		for _, l := range lines {
			if _, ok := bySeller[l.sellerID]; !ok {
				sellerOrder = append(sellerOrder, l.sellerID)
			}
			bySeller[l.sellerID] = append(bySeller[l.sellerID], l)
		}

		for _, sellerID := range sellerOrder {
			sellerLines := bySeller[sellerID]

			total := decimal.Zero
			for _, l := range sellerLines {
				total = total.Add(l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
			}

			var orderID int64
			err := tx.QueryRowContext(ctx,
				`INSERT INTO orders (order_number, buyer_id, seller_id, status, total_amount,
				                     created_at, status_updated_at, version)
				 VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
				 RETURNING id`,
				generateOrderNumber(), buyerID, sellerID, models.OrderStatusPending, total).Scan(&orderID)
			if err != nil {
				return fmt.Errorf("create order: %w", err)
			}

			for _, l := range sellerLines {
				subtotal := l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity)))
				_, err := tx.ExecContext(ctx,
					`INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal, created_at)
					 VALUES ($1, $2, $3, $4, $5, NOW())`,
					orderID, l.productID, l.quantity, l.unitPrice, subtotal)
				if err != nil {
					return fmt.Errorf("create order line: %w", err)
				}

				result, err := tx.ExecContext(ctx,
					`UPDATE products
					 SET stock_quantity = stock_quantity - $1,
					     updated_at = NOW()
					 WHERE id = $2
					   AND stock_quantity >= $1`,
					l.quantity, l.productID)
				if err != nil {
					return fmt.Errorf("decrement stock: %w", err)
				}
				affected, err := result.RowsAffected()
				if err != nil {
					return fmt.Errorf("get rows affected: %w", err)
				}
				if affected == 0 {
					return database.ErrInsufficientStock
				}
			}

			o := models.Order{}
			err = scanOrder(tx.QueryRowContext(ctx,
				`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID), &o)
			if err != nil {
				return fmt.Errorf("fetch created order: %w", err)
			}
			created = append(created, o)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, buyerID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateOrderStatus applies a seller-initiated status transition. The
// order row is locked for the duration of the transaction and the final
// update compares against the status read under the lock, so no two
// transitions for the same order can both win. Status, tracking number
// and timestamp move together or not at all.
func UpdateOrderStatus(ctx context.Context, db *sql.DB, sellerID, orderID int64,
	target models.OrderStatus, trackingNumber string) (*models.Order, error) {

	var updated models.Order

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		current := models.Order{}
		err := scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID), &current)
		if err != nil {
			if err == sql.ErrNoRows {
				return database.ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if current.SellerID != sellerID {
			return order.ErrNotOrderSeller
		}

		next, err := order.Transition(current, target, trackingNumber, time.Now())
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET status = $1,
			     tracking_number = $2,
			     status_updated_at = $3,
			     version = version + 1
			 WHERE id = $4
			   AND status = $5`,
			next.Status, next.TrackingNumber, next.StatusUpdatedAt, orderID, current.Status)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if affected == 0 {
			return order.ErrTransitionConflict
		}

		err = scanOrder(tx.QueryRowContext(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID), &updated)
		if err != nil {
			return fmt.Errorf("fetch updated order: %w", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetSellerOrder loads one of the seller's orders with its lines. Orders
// belonging to other sellers are indistinguishable from missing ones.
func GetSellerOrder(ctx context.Context, db *sql.DB, sellerID, orderID int64) (*models.Order, error) {
	o := &models.Order{}

	err := scanOrder(db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND seller_id = $2`,
		orderID, sellerID), o)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, unit_price, subtotal, created_at
		 FROM order_lines
		 WHERE order_id = $1
		 ORDER BY id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.Quantity,
			&line.UnitPrice,
			&line.Subtotal,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	o.Lines = lines
	return o, nil
}

// ListSellerOrders pages through a seller's orders newest first.
func ListSellerOrders(ctx context.Context, db *sql.DB, sellerID int64, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE seller_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, sellerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list seller orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListSellerEarningsOrders loads the order tuples the earnings fold
// consumes: status, total and the time of the last status change.
func ListSellerEarningsOrders(ctx context.Context, db *sql.DB, sellerID int64) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, status, total_amount, status_updated_at
		 FROM orders
		 WHERE seller_id = $1`,
		sellerID)
	if err != nil {
		return nil, fmt.Errorf("list earnings orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o := models.Order{SellerID: sellerID}
		if err := rows.Scan(&o.ID, &o.Status, &o.TotalAmount, &o.StatusUpdatedAt); err != nil {
			return nil, fmt.Errorf("scan earnings order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
