package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/storefront/platform/services/order/internal/models"
)

// Change describes a single status move.
type Change struct {
	Status         models.OrderStatus
	TrackingNumber string
	Carrier        string
	Note           string
	At             time.Time
}

// Start returns the first ledger entry for a freshly created order.
func Start(at time.Time) []models.StatusEntry {
	return []models.StatusEntry{{
		Status:    models.OrderStatusPending,
		Timestamp: at,
		Note:      "Order placed",
	}}
}

// Apply returns a copy of order with the change recorded. The existing history
// is never modified; exactly one entry is appended.
func Apply(order models.Order, change Change) (models.Order, error) {
	if !IsKnown(change.Status) {
		return order, fmt.Errorf("%w: %q", ErrUnknownStatus, change.Status)
	}
	if (change.TrackingNumber != "" || change.Carrier != "") && !IsShippedOrLater(change.Status) {
		return order, ErrTrackingNotAllowed
	}

	history := make([]models.StatusEntry, len(order.OrderStatusHistory), len(order.OrderStatusHistory)+1)
	copy(history, order.OrderStatusHistory)
	order.OrderStatusHistory = append(history, models.StatusEntry{
		Status:    change.Status,
		Timestamp: change.At,
		Note:      change.Note,
	})
	order.OrderStatus = change.Status
	order.UpdatedAt = change.At

	if change.TrackingNumber != "" {
		order.TrackingNumber = change.TrackingNumber
	}
	if change.Carrier != "" {
		order.Carrier = change.Carrier
	}

	order.PaymentStatus = settle(order.PaymentMethod, order.PaymentStatus, change.Status)
	return order, nil
}

// settle derives the payment status that follows a lifecycle move.
func settle(method models.PaymentMethod, current models.PaymentStatus, to models.OrderStatus) models.PaymentStatus {
	switch {
	case to == models.OrderStatusDelivered && method == models.PaymentMethodCOD && current == models.PaymentStatusPending:
		return models.PaymentStatusPaid
	case (to == models.OrderStatusCancelled || to == models.OrderStatusReturned) && current == models.PaymentStatusPaid:
		return models.PaymentStatusRefunded
	}
	return current
}

// Cancel applies a customer cancellation.
func Cancel(order models.Order, at time.Time) (models.Order, error) {
	if !CustomerCanCancel(order.OrderStatus) {
		return order, fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, order.OrderNumber, order.OrderStatus)
	}
	return Apply(order, Change{
		Status: models.OrderStatusCancelled,
		Note:   "Cancelled by customer",
		At:     at,
	})
}

// Advance applies an operator-initiated change, checked against policy.
func Advance(policy TransitionPolicy, order models.Order, change Change) (models.Order, error) {
	if !IsKnown(change.Status) {
		return order, fmt.Errorf("%w: %q", ErrUnknownStatus, change.Status)
	}
	if !policy.Allows(order.OrderStatus, change.Status) {
		return order, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.OrderStatus, change.Status)
	}
	return Apply(order, change)
}

// History returns the ledger in chronological order. Orders stored without a
// ledger get a single entry synthesized from the current status.
func History(order models.Order) []models.StatusEntry {
	if len(order.OrderStatusHistory) == 0 {
		return []models.StatusEntry{{
			Status:    order.OrderStatus,
			Timestamp: order.CreatedAt,
		}}
	}
	out := make([]models.StatusEntry, len(order.OrderStatusHistory))
	copy(out, order.OrderStatusHistory)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
