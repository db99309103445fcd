package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

func GetPromoCode(ctx context.Context, db *sql.DB, code string) (*models.PromoCode, error) {
	promo := &models.PromoCode{}

	query := `
		SELECT code, kind, rate, cap, amount, minimum_order_value
		FROM promo_codes
		WHERE code = $1`

	err := db.QueryRowContext(ctx, query, code).Scan(
		&promo.Code,
		&promo.Kind,
		&promo.Rate,
		&promo.Cap,
		&promo.Amount,
		&promo.MinimumOrderValue,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrPromoNotFound
		}
		return nil, fmt.Errorf("get promo code: %w", err)
	}

	return promo, nil
}
