package earnings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hold = 7 * 24 * time.Hour

func orderAt(status models.OrderStatus, total int64, statusUpdatedAt time.Time) models.Order {
	return models.Order{
		Status:          status,
		TotalAmount:     decimal.NewFromInt(total),
		StatusUpdatedAt: statusUpdatedAt,
	}
}

func TestComputePartitionsPendingAndAvailable(t *testing.T) {
	now := time.Now()

	orders := []models.Order{
		orderAt(models.OrderStatusDelivered, 1000, now.Add(-hold-time.Hour)), // past hold: available
		orderAt(models.OrderStatusDelivered, 500, now.Add(-time.Hour)),       // inside hold: pending
		orderAt(models.OrderStatusConfirmed, 200, now),
		orderAt(models.OrderStatusProcessing, 300, now),
		orderAt(models.OrderStatusShipped, 400, now),
	}

	snap := Compute(7, orders, now, hold)

	assert.True(t, snap.AvailableAmount.Equal(decimal.NewFromInt(1000)), "available: %s", snap.AvailableAmount)
	assert.True(t, snap.PendingAmount.Equal(decimal.NewFromInt(1400)), "pending: %s", snap.PendingAmount)
	assert.True(t, snap.TotalEarnings.Equal(snap.AvailableAmount.Add(snap.PendingAmount)))
	assert.Equal(t, int64(7), snap.SellerID)
}

func TestComputeIgnoresCancelledRefundedAndUnpaid(t *testing.T) {
	now := time.Now()

	orders := []models.Order{
		orderAt(models.OrderStatusCancelled, 9999, now.Add(-hold-time.Hour)),
		orderAt(models.OrderStatusRefunded, 9999, now.Add(-hold-time.Hour)),
		orderAt(models.OrderStatusPending, 9999, now),
	}

	snap := Compute(1, orders, now, hold)

	assert.True(t, snap.AvailableAmount.IsZero())
	assert.True(t, snap.PendingAmount.IsZero())
	assert.True(t, snap.TotalEarnings.IsZero())
}

func TestComputeHoldPeriodBoundary(t *testing.T) {
	now := time.Now()

	// Exactly at the hold boundary counts as available.
	snap := Compute(1, []models.Order{
		orderAt(models.OrderStatusDelivered, 100, now.Add(-hold)),
	}, now, hold)

	assert.True(t, snap.AvailableAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, snap.PendingAmount.IsZero())
}

func TestComputeNeverNegative(t *testing.T) {
	now := time.Now()

	for _, status := range []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusConfirmed,
		models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled,
		models.OrderStatusRefunded,
	} {
		snap := Compute(1, []models.Order{orderAt(status, 100, now)}, now, hold)

		assert.False(t, snap.AvailableAmount.IsNegative())
		assert.False(t, snap.PendingAmount.IsNegative())
		assert.True(t, snap.TotalEarnings.Equal(snap.AvailableAmount.Add(snap.PendingAmount)))
	}
}

func TestLedgerSnapshot(t *testing.T) {
	now := time.Now()
	source := func(ctx context.Context, sellerID int64) ([]models.Order, error) {
		return []models.Order{
			orderAt(models.OrderStatusDelivered, 1000, now.Add(-hold-time.Hour)),
			orderAt(models.OrderStatusShipped, 250, now),
		}, nil
	}

	ledger := NewLedger(source, hold)

	snap, err := ledger.Snapshot(context.Background(), 7)
	require.NoError(t, err)

	assert.True(t, snap.AvailableAmount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, snap.PendingAmount.Equal(decimal.NewFromInt(250)))
}

func TestLedgerSnapshotPropagatesSourceError(t *testing.T) {
	sourceErr := errors.New("orders unavailable")
	ledger := NewLedger(func(ctx context.Context, sellerID int64) ([]models.Order, error) {
		return nil, sourceErr
	}, hold)

	_, err := ledger.Snapshot(context.Background(), 7)
	assert.ErrorIs(t, err, sourceErr)
}
