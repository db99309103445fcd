package pricing

import (
	"github.com/safar/go-marketplace/internal/models"
	"github.com/shopspring/decimal"
)

// Policy holds the shipping constants applied to every cart. No per-seller
// shipping splitting happens here.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, shipping, discount and total from a cart
// snapshot. It is a pure function: identical inputs always produce
// identical outputs. A nil promo, or a promo whose minimum order value is
// not met, contributes no discount.
func ComputeTotals(cart models.Cart, promo *models.PromoCode, policy Policy) Totals {
	subtotal := decimal.Zero
	for _, line := range cart.Lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	shipping := policy.FlatShippingFee
	if subtotal.GreaterThanOrEqual(policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	if cart.IsEmpty() {
		shipping = decimal.Zero
	}

	discount := computeDiscount(subtotal, shipping, promo)

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        total,
	}
}

func computeDiscount(subtotal, shipping decimal.Decimal, promo *models.PromoCode) decimal.Decimal {
	if promo == nil {
		return decimal.Zero
	}
	if subtotal.LessThan(promo.MinimumOrderValue) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch promo.Kind {
	case models.PromoKindPercentage:
		discount = subtotal.Mul(promo.Rate)
		if promo.Cap.Valid && discount.GreaterThan(promo.Cap.Decimal) {
			discount = promo.Cap.Decimal
		}
	case models.PromoKindFixed:
		discount = promo.Amount
	default:
		return decimal.Zero
	}

	// A discount can never exceed what the buyer would otherwise pay.
	payable := subtotal.Add(shipping)
	if discount.GreaterThan(payable) {
		discount = payable
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	return discount
}
