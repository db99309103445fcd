package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// GetCartLines reads a user's cart. Stock comes from the products table on
// every read so the snapshot always carries current availability.
func GetCartLines(ctx context.Context, db *sql.DB, userID int64) (models.Cart, error) {
	query := `
		SELECT cl.product_id, cl.quantity, cl.unit_price, cl.seller_id,
		       COALESCE(p.stock_quantity, 0), cl.title, cl.image_ref, cl.added_at
		FROM cart_lines cl
		LEFT JOIN products p ON p.id = cl.product_id
		WHERE cl.user_id = $1
		ORDER BY cl.added_at, cl.product_id`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return models.Cart{}, fmt.Errorf("get cart lines: %w", err)
	}
	defer rows.Close()

	var cart models.Cart
	for rows.Next() {
		var line models.CartLine
		err := rows.Scan(
			&line.ProductID,
			&line.Quantity,
			&line.UnitPrice,
			&line.SellerID,
			&line.StockAvailable,
			&line.Title,
			&line.ImageRef,
			&line.AddedAt,
		)
		if err != nil {
			return models.Cart{}, fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return models.Cart{}, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

// UpsertCartLine inserts a line or, when one already exists for the
// product, adds the quantity onto it. The stored snapshot (price, title,
// image) of an existing line is left untouched.
func UpsertCartLine(ctx context.Context, db *sql.DB, userID, productID int64, quantity int,
	unitPrice decimal.Decimal, sellerID int64, title, imageRef string) error {

	query := `
		INSERT INTO cart_lines (user_id, product_id, quantity, unit_price, seller_id, title, image_ref, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`

	if _, err := db.ExecContext(ctx, query, userID, productID, quantity, unitPrice, sellerID, title, imageRef); err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

func SetCartLineQuantity(ctx context.Context, db *sql.DB, userID, productID int64, quantity int) error {
	query := `
		UPDATE cart_lines
		SET quantity = $3
		WHERE user_id = $1 AND product_id = $2`

	if _, err := db.ExecContext(ctx, query, userID, productID, quantity); err != nil {
		return fmt.Errorf("set cart line quantity: %w", err)
	}
	return nil
}

func DeleteCartLine(ctx context.Context, db *sql.DB, userID, productID int64) error {
	query := `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`

	if _, err := db.ExecContext(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	return nil
}

func ClearCartLines(ctx context.Context, db *sql.DB, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart lines: %w", err)
	}
	return nil
}
