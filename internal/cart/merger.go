package cart

import (
	"context"
	"fmt"
	"log"

	"github.com/safar/go-marketplace/internal/models"
)

// Merger folds a guest cart into an authenticated cart at the moment a
// session logs in. It is safe to invoke again after a retried login: the
// second run observes an already-empty guest slot and is a no-op.
type Merger struct {
	guest  Store
	authed Store
}

func NewMerger(guest, authed Store) *Merger {
	return &Merger{
		guest:  guest,
		authed: authed,
	}
}

// Merge unions the guest cart for sessionID into userID's authenticated
// cart. Colliding product lines add their quantities; everything else is
// inserted verbatim. The guest slot is cleared once at least one line has
// landed, so a partially merged guest cart never reappears on the next
// login. Only a total write failure leaves both carts intact, returned as
// a retryable error.
func (m *Merger) Merge(ctx context.Context, sessionID string, userID int64) (models.Cart, error) {
	guestOwner := GuestOwner(sessionID)
	userOwner := UserOwner(userID)

	guestCart, err := m.guest.Load(ctx, guestOwner)
	if err != nil {
		return models.Cart{}, fmt.Errorf("load guest cart: %w", err)
	}
	if guestCart.IsEmpty() {
		return m.authed.Load(ctx, userOwner)
	}

	// Probe the authoritative backend before touching anything: if it is
	// down we abort with both carts untouched.
	if _, err := m.authed.Load(ctx, userOwner); err != nil {
		return models.Cart{}, fmt.Errorf("load authenticated cart: %w", err)
	}

	var failed int
	var lastErr error
	for _, line := range guestCart.Lines {
		if _, err := m.authed.AddLine(ctx, userOwner, snapshotOfLine(line), line.Quantity); err != nil {
			failed++
			lastErr = err
			log.Printf("merge cart: line for product %d failed: %v", line.ProductID, err)
		}
	}

	if failed == len(guestCart.Lines) {
		return models.Cart{}, fmt.Errorf("merge cart: %w", lastErr)
	}

	if err := m.guest.Clear(ctx, guestOwner); err != nil {
		// The merged lines are already persisted; a lingering guest slot
		// only costs an extra no-op merge on the next login.
		log.Printf("merge cart: clear guest slot for session %s failed: %v", sessionID, err)
	}

	merged, err := m.authed.Load(ctx, userOwner)
	if err != nil {
		return models.Cart{}, fmt.Errorf("load merged cart: %w", err)
	}

	if failed > 0 {
		return merged, ErrMergeConflict
	}
	return merged, nil
}
