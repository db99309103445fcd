package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuestStore(t *testing.T) (*GuestStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewGuestStore(client, time.Hour), mr
}

func snapshot(productID int64, price int64) LineSnapshot {
	return LineSnapshot{
		ProductID:      productID,
		UnitPrice:      decimal.NewFromInt(price),
		SellerID:       1,
		StockAvailable: 10,
		Title:          "widget",
	}
}

func TestGuestStoreLoadMissingReturnsEmptyCart(t *testing.T) {
	s, _ := setupGuestStore(t)

	c, err := s.Load(context.Background(), GuestOwner("nobody"))

	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestGuestStoreAddLine(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	c, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 2, c.Lines[0].Quantity)
	assert.True(t, c.Lines[0].UnitPrice.Equal(decimal.NewFromInt(2500)))
}

func TestGuestStoreAddLineIncrementsExisting(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	c, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 3)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1, "one line per product")
	assert.Equal(t, 5, c.Lines[0].Quantity)
}

func TestGuestStoreRejectsInvalidQuantity(t *testing.T) {
	s, mr := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.AddLine(context.Background(), owner, snapshot(1, 2500), -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	assert.False(t, mr.Exists(guestKey("sess-1")), "rejected mutation must not touch the slot")
}

func TestGuestStoreUpdateQuantityZeroRemovesLine(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	c, err := s.UpdateQuantity(context.Background(), owner, 1, 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestGuestStoreUpdateQuantityAboveStockAllowed(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	// Checkout is the stock authority; the cart only records the wish.
	c, err := s.UpdateQuantity(context.Background(), owner, 1, 999)
	require.NoError(t, err)
	assert.Equal(t, 999, c.Lines[0].Quantity)
}

func TestGuestStoreRemoveLine(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)
	_, err = s.AddLine(context.Background(), owner, snapshot(2, 900), 1)
	require.NoError(t, err)

	c, err := s.RemoveLine(context.Background(), owner, 1)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, int64(2), c.Lines[0].ProductID)
}

func TestGuestStoreClear(t *testing.T) {
	s, mr := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	require.NoError(t, s.Clear(context.Background(), owner))
	assert.False(t, mr.Exists(guestKey("sess-1")))
}

func TestGuestStoreWriteThroughSurvivesNewClient(t *testing.T) {
	s, mr := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 2)
	require.NoError(t, err)

	// A fresh client against the same backing slot sees the cart: every
	// mutation is persisted synchronously, nothing is buffered.
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	reloaded, err := NewGuestStore(client, time.Hour).Load(context.Background(), owner)
	require.NoError(t, err)

	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, 2, reloaded.Lines[0].Quantity)
}

func TestGuestStoreCartsAreIsolatedPerSession(t *testing.T) {
	s, _ := setupGuestStore(t)

	_, err := s.AddLine(context.Background(), GuestOwner("sess-1"), snapshot(1, 2500), 2)
	require.NoError(t, err)

	other, err := s.Load(context.Background(), GuestOwner("sess-2"))
	require.NoError(t, err)
	assert.True(t, other.IsEmpty())
}

func TestGuestStoreLinesKeepSnapshotPrice(t *testing.T) {
	s, _ := setupGuestStore(t)
	owner := GuestOwner("sess-1")

	_, err := s.AddLine(context.Background(), owner, snapshot(1, 2500), 1)
	require.NoError(t, err)

	// A later add with a different current price does not rewrite the
	// frozen snapshot of the existing line.
	c, err := s.AddLine(context.Background(), owner, snapshot(1, 9999), 1)
	require.NoError(t, err)

	require.Len(t, c.Lines, 1)
	assert.True(t, c.Lines[0].UnitPrice.Equal(decimal.NewFromInt(2500)))
}

var _ Store = (*GuestStore)(nil)
var _ Store = (*PostgresStore)(nil)

func TestCartLineLookup(t *testing.T) {
	c := models.Cart{Lines: []models.CartLine{{ProductID: 4, Quantity: 1}}}

	require.NotNil(t, c.Line(4))
	assert.Nil(t, c.Line(5))
}
