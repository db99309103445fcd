package earnings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// OrdersSource loads the orders a seller's balance derives from.
// Consumers define the source; the ledger does not care where it reads.
type OrdersSource func(ctx context.Context, sellerID int64) ([]models.Order, error)

// Ledger recomputes a seller's balance from scratch on every request
// instead of mutating a running figure, so the view can never drift from
// the orders it derives from. Concurrent requests for the same seller
// collapse into a single recomputation.
type Ledger struct {
	load       OrdersSource
	holdPeriod time.Duration
	sfg        singleflight.Group
}

func NewLedger(load OrdersSource, holdPeriod time.Duration) *Ledger {
	return &Ledger{
		load:       load,
		holdPeriod: holdPeriod,
	}
}

func (l *Ledger) Snapshot(ctx context.Context, sellerID int64) (models.EarningsSnapshot, error) {
	v, err, _ := l.sfg.Do(strconv.FormatInt(sellerID, 10), func() (interface{}, error) {
		orders, err := l.load(ctx, sellerID)
		if err != nil {
			return nil, fmt.Errorf("load seller orders: %w", err)
		}
		return Compute(sellerID, orders, time.Now(), l.holdPeriod), nil
	})
	if err != nil {
		return models.EarningsSnapshot{}, err
	}
	return v.(models.EarningsSnapshot), nil
}

// Compute folds a seller's orders into pending and available amounts.
// Delivered orders older than holdPeriod are available; confirmed,
// processing, shipped and not-yet-aged delivered orders are pending.
// Cancelled and refunded orders contribute to neither, and orders still
// pending buyer payment are not earnings at all.
func Compute(sellerID int64, orders []models.Order, now time.Time, holdPeriod time.Duration) models.EarningsSnapshot {
	available := decimal.Zero
	pending := decimal.Zero

	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusDelivered:
			if now.Sub(o.StatusUpdatedAt) >= holdPeriod {
				available = available.Add(o.TotalAmount)
			} else {
				pending = pending.Add(o.TotalAmount)
			}
		case models.OrderStatusConfirmed, models.OrderStatusProcessing, models.OrderStatusShipped:
			pending = pending.Add(o.TotalAmount)
		}
	}

	return models.EarningsSnapshot{
		SellerID:        sellerID,
		PendingAmount:   pending,
		AvailableAmount: available,
		TotalEarnings:   available.Add(pending),
	}
}
