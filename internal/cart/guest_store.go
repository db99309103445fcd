package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/safar/go-marketplace/internal/models"
)

// GuestStore persists anonymous carts in redis, one JSON document per
// session handle. Every mutation writes the full cart back synchronously
// so the state survives client reloads; there is no batching.
type GuestStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGuestStore(client *redis.Client, ttl time.Duration) *GuestStore {
	return &GuestStore{
		client: client,
		ttl:    ttl,
	}
}

func guestKey(sessionID string) string {
	return fmt.Sprintf("guest_cart:%s", sessionID)
}

func (s *GuestStore) Load(ctx context.Context, owner Owner) (models.Cart, error) {
	data, err := s.client.Get(ctx, guestKey(owner.SessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Cart{}, nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("load guest cart: %w: %v", ErrBackendUnavailable, err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return models.Cart{}, fmt.Errorf("unmarshal guest cart: %w", err)
	}

	return cart, nil
}

func (s *GuestStore) AddLine(ctx context.Context, owner Owner, snap LineSnapshot, quantity int) (models.Cart, error) {
	if err := validateQuantity(quantity); err != nil {
		return models.Cart{}, err
	}

	cart, err := s.Load(ctx, owner)
	if err != nil {
		return models.Cart{}, err
	}

	if line := cart.Line(snap.ProductID); line != nil {
		line.Quantity += quantity
	} else {
		cart.Lines = append(cart.Lines, models.CartLine{
			ProductID:      snap.ProductID,
			Quantity:       quantity,
			UnitPrice:      snap.UnitPrice,
			SellerID:       snap.SellerID,
			StockAvailable: snap.StockAvailable,
			Title:          snap.Title,
			ImageRef:       snap.ImageRef,
			AddedAt:        time.Now(),
		})
	}

	if err := s.save(ctx, owner, cart); err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

func (s *GuestStore) UpdateQuantity(ctx context.Context, owner Owner, productID int64, quantity int) (models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveLine(ctx, owner, productID)
	}

	cart, err := s.Load(ctx, owner)
	if err != nil {
		return models.Cart{}, err
	}

	if line := cart.Line(productID); line != nil {
		line.Quantity = quantity
		if err := s.save(ctx, owner, cart); err != nil {
			return models.Cart{}, err
		}
	}

	return cart, nil
}

func (s *GuestStore) RemoveLine(ctx context.Context, owner Owner, productID int64) (models.Cart, error) {
	cart, err := s.Load(ctx, owner)
	if err != nil {
		return models.Cart{}, err
	}

	for i, line := range cart.Lines {
		if line.ProductID == productID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			if err := s.save(ctx, owner, cart); err != nil {
				return models.Cart{}, err
			}
			break
		}
	}

	return cart, nil
}

func (s *GuestStore) Clear(ctx context.Context, owner Owner) error {
	if err := s.client.Del(ctx, guestKey(owner.SessionID)).Err(); err != nil {
		return fmt.Errorf("clear guest cart: %w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *GuestStore) save(ctx context.Context, owner Owner, cart models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal guest cart: %w", err)
	}

	if err := s.client.Set(ctx, guestKey(owner.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save guest cart: %w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
