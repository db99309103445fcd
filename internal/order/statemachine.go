package order

import (
	"database/sql"
	"errors"
	"time"

	"github.com/safar/go-marketplace/internal/models"
)

var (
	ErrIllegalTransition     = errors.New("illegal order status transition")
	ErrMissingTrackingNumber = errors.New("tracking number required to ship")
	ErrNotOrderSeller        = errors.New("order does not belong to seller")
	ErrTransitionConflict    = errors.New("order status changed concurrently")
)

// transitions is the only place the legal status graph lives. Cancelled
// and refunded are terminal.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:  {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered},
	models.OrderStatusDelivered:  {models.OrderStatusRefunded},
	models.OrderStatusCancelled:  nil,
	models.OrderStatusRefunded:   nil,
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status models.OrderStatus) bool {
	return len(transitions[status]) == 0
}

// Transition validates and applies a status change on a copy of the
// order. Shipping requires a tracking number, either supplied here or
// already on the order; once set, a tracking number is never cleared. The
// input order is left untouched on rejection.
func Transition(o models.Order, target models.OrderStatus, trackingNumber string, now time.Time) (models.Order, error) {
	if !CanTransition(o.Status, target) {
		return models.Order{}, ErrIllegalTransition
	}

	if target == models.OrderStatusShipped && trackingNumber == "" && !o.TrackingNumber.Valid {
		return models.Order{}, ErrMissingTrackingNumber
	}

	updated := o
	updated.Status = target
	updated.StatusUpdatedAt = now
	if trackingNumber != "" {
		updated.TrackingNumber = sql.NullString{String: trackingNumber, Valid: true}
	}

	return updated, nil
}
