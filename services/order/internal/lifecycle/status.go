// Package lifecycle holds the order status state machine: the status set,
// the transition policy consulted for admin updates, and the reducers that
// append to an order's status history.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/storefront/platform/services/order/internal/models"
)

var (
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrUnknownStatus      = errors.New("unknown order status")
	ErrTrackingNotAllowed = errors.New("tracking details are only accepted for shipped or later statuses")
)

// Statuses lists every lifecycle state in display order.
var Statuses = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusProcessing,
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDelivered,
	models.OrderStatusCancelled,
	models.OrderStatusReturned,
}

// forward is the main path; cancelled and returned are side exits.
var forward = []models.OrderStatus{
	models.OrderStatusPending,
	models.OrderStatusConfirmed,
	models.OrderStatusProcessing,
	models.OrderStatusShipped,
	models.OrderStatusOutForDelivery,
	models.OrderStatusDelivered,
}

func rank(s models.OrderStatus) int {
	for i, f := range forward {
		if f == s {
			return i
		}
	}
	return -1
}

// IsKnown reports whether s belongs to the status enumeration.
func IsKnown(s models.OrderStatus) bool {
	for _, known := range Statuses {
		if known == s {
			return true
		}
	}
	return false
}

// Parse converts raw input into a known status.
func Parse(raw string) (models.OrderStatus, error) {
	s := models.OrderStatus(raw)
	if !IsKnown(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return s, nil
}

// IsTerminal reports whether no further transition is modeled from s.
func IsTerminal(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusReturned:
		return true
	}
	return false
}

// IsShippedOrLater reports whether the parcel has left the warehouse in state s.
func IsShippedOrLater(s models.OrderStatus) bool {
	if s == models.OrderStatusReturned {
		return true
	}
	return rank(s) >= rank(models.OrderStatusShipped)
}

// CustomerCanCancel reports whether the customer may still cancel an order in state s.
// out_for_delivery stays cancellable.
func CustomerCanCancel(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusShipped, models.OrderStatusDelivered,
		models.OrderStatusCancelled, models.OrderStatusReturned:
		return false
	}
	return IsKnown(s)
}
