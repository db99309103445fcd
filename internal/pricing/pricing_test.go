package pricing

import (
	"testing"

	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func testPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		FlatShippingFee:       decimal.NewFromInt(1000),
	}
}

func cartWith(productID int64, quantity int, unitPrice int64) models.Cart {
	return models.Cart{
		Lines: []models.CartLine{
			{ProductID: productID, Quantity: quantity, UnitPrice: decimal.NewFromInt(unitPrice)},
		},
	}
}

func TestComputeTotalsFreeShippingAtThreshold(t *testing.T) {
	totals := ComputeTotals(cartWith(1, 2, 25000), nil, testPolicy())

	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(50000)), "subtotal: %s", totals.Subtotal)
	assert.True(t, totals.ShippingCost.IsZero(), "shipping: %s", totals.ShippingCost)
	assert.True(t, totals.Discount.IsZero(), "discount: %s", totals.Discount)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(50000)), "total: %s", totals.Total)
}

func TestComputeTotalsFlatShippingBelowThreshold(t *testing.T) {
	totals := ComputeTotals(cartWith(1, 1, 25000), nil, testPolicy())

	assert.True(t, totals.ShippingCost.Equal(decimal.NewFromInt(1000)))
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(26000)))
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	totals := ComputeTotals(models.Cart{}, nil, testPolicy())

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.ShippingCost.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestComputeTotalsPercentagePromoCapped(t *testing.T) {
	promo := &models.PromoCode{
		Code: "TEN",
		Kind: models.PromoKindPercentage,
		Rate: decimal.RequireFromString("0.10"),
		Cap:  decimal.NewNullDecimal(decimal.NewFromInt(5000)),
	}

	totals := ComputeTotals(cartWith(1, 2, 25000), promo, testPolicy())

	assert.True(t, totals.Discount.Equal(decimal.NewFromInt(5000)), "discount: %s", totals.Discount)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(45000)), "total: %s", totals.Total)
}

func TestComputeTotalsPercentagePromoUncapped(t *testing.T) {
	promo := &models.PromoCode{
		Code: "TEN",
		Kind: models.PromoKindPercentage,
		Rate: decimal.RequireFromString("0.10"),
	}

	totals := ComputeTotals(cartWith(1, 2, 25000), promo, testPolicy())

	assert.True(t, totals.Discount.Equal(decimal.NewFromInt(5000)))
}

func TestComputeTotalsPromoBelowMinimumOrderValue(t *testing.T) {
	promo := &models.PromoCode{
		Code:              "BIGSPEND",
		Kind:              models.PromoKindFixed,
		Amount:            decimal.NewFromInt(2000),
		MinimumOrderValue: decimal.NewFromInt(100000),
	}

	totals := ComputeTotals(cartWith(1, 2, 25000), promo, testPolicy())

	assert.True(t, totals.Discount.IsZero())
}

func TestComputeTotalsFixedPromoClampedToPayable(t *testing.T) {
	promo := &models.PromoCode{
		Code:   "HUGE",
		Kind:   models.PromoKindFixed,
		Amount: decimal.NewFromInt(1000000),
	}

	totals := ComputeTotals(cartWith(1, 1, 5000), promo, testPolicy())

	// subtotal 5000 + shipping 1000; discount clamps to 6000, total to zero.
	assert.True(t, totals.Discount.Equal(decimal.NewFromInt(6000)), "discount: %s", totals.Discount)
	assert.True(t, totals.Total.IsZero(), "total: %s", totals.Total)
}

func TestComputeTotalsNeverNegative(t *testing.T) {
	promos := []*models.PromoCode{
		nil,
		{Kind: models.PromoKindFixed, Amount: decimal.NewFromInt(1 << 40)},
		{Kind: models.PromoKindPercentage, Rate: decimal.NewFromInt(2)},
	}
	carts := []models.Cart{
		{},
		cartWith(1, 1, 1),
		cartWith(1, 100, 49999),
	}

	for _, promo := range promos {
		for _, c := range carts {
			totals := ComputeTotals(c, promo, testPolicy())
			assert.False(t, totals.Total.IsNegative(), "total must never be negative")
			assert.False(t, totals.Discount.IsNegative(), "discount must never be negative")
		}
	}
}

func TestComputeTotalsDeterministic(t *testing.T) {
	promo := &models.PromoCode{
		Kind: models.PromoKindPercentage,
		Rate: decimal.RequireFromString("0.15"),
		Cap:  decimal.NewNullDecimal(decimal.NewFromInt(3000)),
	}
	c := models.Cart{
		Lines: []models.CartLine{
			{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("199.99")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("4500.50")},
		},
	}

	first := ComputeTotals(c, promo, testPolicy())
	second := ComputeTotals(c, promo, testPolicy())

	assert.Equal(t, first, second)
}
