package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
)

// PaymentStatus represents the settlement state of an order's payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod is the payment channel chosen at checkout
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodNetBanking PaymentMethod = "netbanking"
	PaymentMethodCOD        PaymentMethod = "cod"
)

// Valid reports whether m is one of the supported payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodNetBanking, PaymentMethodCOD:
		return true
	}
	return false
}

// ShippingAddress is copied onto the order at creation and never changed afterwards.
type ShippingAddress struct {
	FullName     string `json:"fullName" binding:"required"`
	AddressLine1 string `json:"addressLine1" binding:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" binding:"required"`
	State        string `json:"state" binding:"required"`
	PinCode      string `json:"pinCode" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email" binding:"required"`
}

// OrderItem is a snapshot of a cart line taken when the order is placed
type OrderItem struct {
	ProductRef string          `json:"productRef" binding:"required"`
	Name       string          `json:"name" binding:"required"`
	SKU        string          `json:"sku"`
	Size       string          `json:"size,omitempty"`
	Color      string          `json:"color,omitempty"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	Image      string          `json:"image,omitempty"`
}

// LineTotal returns unit price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusEntry is one row of the order status ledger
type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

// Order represents a placed order
type Order struct {
	ID                 uuid.UUID       `json:"id"`
	OrderNumber        string          `json:"orderNumber"`
	CustomerID         string          `json:"customerId"`
	Items              []OrderItem     `json:"items"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	ShippingFee        decimal.Decimal `json:"shippingFee"`
	Tax                decimal.Decimal `json:"tax"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	Currency           string          `json:"currency"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	OrderStatus        OrderStatus     `json:"orderStatus"`
	OrderStatusHistory []StatusEntry   `json:"orderStatusHistory"`
	ShippingAddress    ShippingAddress `json:"shippingAddress"`
	CustomerNotes      string          `json:"customerNotes,omitempty"`
	TrackingNumber     string          `json:"trackingNumber,omitempty"`
	Carrier            string          `json:"carrier,omitempty"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// CreateOrderRequest is the payload submitted by checkout
type CreateOrderRequest struct {
	Items           []OrderItem     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddress `json:"shippingAddress" binding:"required"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" binding:"required,oneof=card upi netbanking cod"`
	OrderNotes      string          `json:"orderNotes,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	Tax             decimal.Decimal `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
}

// UpdateStatusRequest is the admin payload for a status change.
// ExpectedVersion, when set, turns the update into a compare-and-set.
type UpdateStatusRequest struct {
	Status          OrderStatus `json:"status" binding:"required"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	Carrier         string      `json:"carrier,omitempty"`
	Note            string      `json:"note,omitempty"`
	ExpectedVersion *int64      `json:"expectedVersion,omitempty"`
}

// ListFilter narrows an order listing
type ListFilter struct {
	Page       int
	Limit      int
	Sort       string
	Status     *OrderStatus
	CustomerID string
}

// Pagination describes the page returned by a listing
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// OrderList is the response of an order listing
type OrderList struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// InvoiceResponse carries the rendered invoice and the number used to name the document
type InvoiceResponse struct {
	HTML        string `json:"html"`
	OrderNumber string `json:"orderNumber"`
}

// SortKeys are the accepted values of the listing sort parameter
var SortKeys = []string{"-createdAt", "createdAt", "-total", "total"}

// ValidSort reports whether key is empty or one of SortKeys.
func ValidSort(key string) bool {
	if key == "" {
		return true
	}
	for _, k := range SortKeys {
		if k == key {
			return true
		}
	}
	return false
}
