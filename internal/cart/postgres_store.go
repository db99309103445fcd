package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

// PostgresStore is the authoritative backend for authenticated carts.
// After every mutation it re-reads the full cart from postgres instead of
// trusting a locally constructed result, so the returned snapshot always
// reflects server-side state (stock corrections included). Every call runs
// under a bounded timeout and failures surface as ErrBackendUnavailable,
// never as an empty cart.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresStore(db *sql.DB, timeout time.Duration) *PostgresStore {
	return &PostgresStore{
		db:      db,
		timeout: timeout,
	}
}

func (s *PostgresStore) Load(ctx context.Context, owner Owner) (models.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cart, err := store.GetCartLines(ctx, s.db, owner.UserID)
	if err != nil {
		return models.Cart{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return cart, nil
}

func (s *PostgresStore) AddLine(ctx context.Context, owner Owner, snap LineSnapshot, quantity int) (models.Cart, error) {
	if err := validateQuantity(quantity); err != nil {
		return models.Cart{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := store.UpsertCartLine(ctx, s.db, owner.UserID, snap.ProductID, quantity,
		snap.UnitPrice, snap.SellerID, snap.Title, snap.ImageRef)
	if err != nil {
		return models.Cart{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return s.reload(ctx, owner)
}

func (s *PostgresStore) UpdateQuantity(ctx context.Context, owner Owner, productID int64, quantity int) (models.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var err error
	if quantity <= 0 {
		err = store.DeleteCartLine(ctx, s.db, owner.UserID, productID)
	} else {
		err = store.SetCartLineQuantity(ctx, s.db, owner.UserID, productID, quantity)
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return s.reload(ctx, owner)
}

func (s *PostgresStore) RemoveLine(ctx context.Context, owner Owner, productID int64) (models.Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := store.DeleteCartLine(ctx, s.db, owner.UserID, productID); err != nil {
		return models.Cart{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return s.reload(ctx, owner)
}

func (s *PostgresStore) Clear(ctx context.Context, owner Owner) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := store.ClearCartLines(ctx, s.db, owner.UserID); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) reload(ctx context.Context, owner Owner) (models.Cart, error) {
	cart, err := store.GetCartLines(ctx, s.db, owner.UserID)
	if err != nil {
		return models.Cart{}, fmt.Errorf("reload after mutation: %w: %v", ErrBackendUnavailable, err)
	}
	return cart, nil
}
