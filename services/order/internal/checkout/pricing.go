package checkout

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/storefront/platform/services/order/internal/models"
)

var ErrEmptyCart = errors.New("cart is empty")

// Pricing holds the configured fees. It is not tax logic: the rate is flat.
type Pricing struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
	Currency              string
}

// PriceQuote is the set of totals sent with the order.
type PriceQuote struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Quote prices a cart so that total = subtotal + shipping + tax - discount.
func (p Pricing) Quote(cart models.Cart) (PriceQuote, error) {
	if len(cart.Items) == 0 {
		return PriceQuote{}, ErrEmptyCart
	}

	subtotal := cart.Subtotal().Round(2)
	shipping := p.ShippingFee.Round(2)
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)

	discount := cart.Discount.Round(2)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	return PriceQuote{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Discount:    discount,
		Total:       subtotal.Add(shipping).Add(tax).Sub(discount),
	}, nil
}
