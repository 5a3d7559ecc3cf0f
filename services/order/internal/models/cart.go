package models

import "github.com/shopspring/decimal"

// Cart is the snapshot of the customer's cart read at checkout
type Cart struct {
	Items    []OrderItem     `json:"items"`
	Discount decimal.Decimal `json:"discount"`
}

// Subtotal returns the sum of the line totals.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}
