package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeShipmentUpdate     = "SHIPMENT_UPDATE"
)

// OrderPlacedEvent is published once per created order
type OrderPlacedEvent struct {
	EventID       uuid.UUID       `json:"eventId"`
	Type          string          `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	OrderNumber   string          `json:"orderNumber"`
	CustomerID    string          `json:"customerId"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderStatusChangedEvent is published for every appended status entry after creation
type OrderStatusChangedEvent struct {
	EventID        uuid.UUID   `json:"eventId"`
	Type           string      `json:"type"`
	OrderID        uuid.UUID   `json:"orderId"`
	OrderNumber    string      `json:"orderNumber"`
	From           OrderStatus `json:"from"`
	To             OrderStatus `json:"to"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
	Carrier        string      `json:"carrier,omitempty"`
	Note           string      `json:"note,omitempty"`
	ChangedBy      string      `json:"changedBy"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// ShipmentUpdateEvent is consumed from the fulfillment topic; carriers report progress with it
type ShipmentUpdateEvent struct {
	EventID        uuid.UUID   `json:"eventId"`
	Type           string      `json:"type"`
	OrderID        uuid.UUID   `json:"orderId"`
	Status         OrderStatus `json:"status"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
	Carrier        string      `json:"carrier,omitempty"`
	Note           string      `json:"note,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}
