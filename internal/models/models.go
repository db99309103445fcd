package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Product struct {
	ID            int64           `json:"id"`
	SellerID      int64           `json:"seller_id"`
	SKU           string          `json:"sku"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	ImageRef      string          `json:"image_ref,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// CartLine snapshots product data at add time. UnitPrice and Title are
// frozen when the line is created; StockAvailable reflects what the
// backing store last saw, so the UI can warn about oversell.
type CartLine struct {
	ProductID      int64           `json:"product_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	SellerID       int64           `json:"seller_id"`
	StockAvailable int             `json:"stock_available"`
	Title          string          `json:"title"`
	ImageRef       string          `json:"image_ref,omitempty"`
	AddedAt        time.Time       `json:"added_at"`
}

type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Line returns the line for productID, or nil if the cart has none.
func (c *Cart) Line(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

type PromoKind string

const (
	PromoKindPercentage PromoKind = "percentage"
	PromoKindFixed      PromoKind = "fixed"
)

// PromoCode is immutable and looked up by Code. Percentage codes use Rate
// (0.10 for 10%) with an optional Cap on the discount; fixed codes use
// Amount.
type PromoCode struct {
	Code              string              `json:"code"`
	Kind              PromoKind           `json:"kind"`
	Rate              decimal.Decimal     `json:"rate"`
	Cap               decimal.NullDecimal `json:"cap"`
	Amount            decimal.Decimal     `json:"amount"`
	MinimumOrderValue decimal.Decimal     `json:"minimum_order_value"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// ParseOrderStatus maps a wire string onto the closed status enum.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusRefunded:
		return OrderStatus(s), true
	}
	return "", false
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	BuyerID         int64           `json:"buyer_id"`
	SellerID        int64           `json:"seller_id"`
	Status          OrderStatus     `json:"status"`
	TrackingNumber  sql.NullString  `json:"tracking_number"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	StatusUpdatedAt time.Time       `json:"status_updated_at"`
	Version         int             `json:"version"`
	Lines           []OrderLine     `json:"lines,omitempty"`
}

type OrderLine struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// EarningsSnapshot is a derived view over a seller's orders. It is
// recomputed on demand and never independently mutated.
type EarningsSnapshot struct {
	SellerID        int64           `json:"seller_id"`
	PendingAmount   decimal.Decimal `json:"pending_payments"`
	AvailableAmount decimal.Decimal `json:"available_balance"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
}
