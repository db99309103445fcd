package cart

import (
	"context"
	"errors"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity rejects non-positive quantities before any
	// backend work happens.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrBackendUnavailable marks a failed read or write against the
	// authoritative store. Callers must never render it as an empty cart.
	ErrBackendUnavailable = errors.New("cart backend unavailable")

	// ErrMergeConflict reports a merge that landed only part of the guest
	// cart. The merged lines are persisted; the guest slot is gone.
	ErrMergeConflict = errors.New("cart merge partially failed")
)

// Owner identifies whose cart an operation targets. Exactly one of
// SessionID (guest) or UserID (authenticated) is set; it decides which
// backend implementation serves the call.
type Owner struct {
	SessionID string
	UserID    int64
}

func GuestOwner(sessionID string) Owner {
	return Owner{SessionID: sessionID}
}

func UserOwner(userID int64) Owner {
	return Owner{UserID: userID}
}

func (o Owner) IsGuest() bool {
	return o.UserID == 0
}

// LineSnapshot freezes the product data a new cart line is created from.
type LineSnapshot struct {
	ProductID      int64
	UnitPrice      decimal.Decimal
	SellerID       int64
	StockAvailable int
	Title          string
	ImageRef       string
}

func SnapshotOf(p models.Product) LineSnapshot {
	return LineSnapshot{
		ProductID:      p.ID,
		UnitPrice:      p.Price,
		SellerID:       p.SellerID,
		StockAvailable: p.StockQuantity,
		Title:          p.Title,
		ImageRef:       p.ImageRef,
	}
}

func snapshotOfLine(l models.CartLine) LineSnapshot {
	return LineSnapshot{
		ProductID:      l.ProductID,
		UnitPrice:      l.UnitPrice,
		SellerID:       l.SellerID,
		StockAvailable: l.StockAvailable,
		Title:          l.Title,
		ImageRef:       l.ImageRef,
	}
}

// Store is the uniform contract over cart lines, identical for the guest
// and the authenticated backend. Every mutation returns the cart snapshot
// the caller should render next.
//
// Quantities above the line's stock are accepted; checkout is the
// authority on stock. A quantity of zero or less passed to UpdateQuantity
// removes the line.
type Store interface {
	Load(ctx context.Context, owner Owner) (models.Cart, error)
	AddLine(ctx context.Context, owner Owner, snap LineSnapshot, quantity int) (models.Cart, error)
	UpdateQuantity(ctx context.Context, owner Owner, productID int64, quantity int) (models.Cart, error)
	RemoveLine(ctx context.Context, owner Owner, productID int64) (models.Cart, error)
	Clear(ctx context.Context, owner Owner) error
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return nil
}
