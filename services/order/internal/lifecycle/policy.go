package lifecycle

import (
	"fmt"

	"github.com/storefront/platform/services/order/internal/models"
)

const (
	PolicyPermissive  = "permissive"
	PolicyForwardOnly = "forward-only"
)

// TransitionPolicy decides which admin-initiated status changes are accepted.
type TransitionPolicy interface {
	Allows(from, to models.OrderStatus) bool
}

// Table is a TransitionPolicy backed by an explicit from -> to set.
type Table map[models.OrderStatus]map[models.OrderStatus]bool

// Allows implements TransitionPolicy.
func (t Table) Allows(from, to models.OrderStatus) bool {
	return t[from][to]
}

func (t Table) allow(from models.OrderStatus, to ...models.OrderStatus) {
	if t[from] == nil {
		t[from] = make(map[models.OrderStatus]bool)
	}
	for _, s := range to {
		t[from][s] = true
	}
}

// PermissiveTable lets an operator set any status from any status.
func PermissiveTable() Table {
	t := Table{}
	for _, from := range Statuses {
		t.allow(from, Statuses...)
	}
	return t
}

// ForwardOnlyTable permits moving forward along the main path (skipping is
// allowed), cancelling before delivery, and returning a delivered order.
// Terminal states have no outgoing edges.
func ForwardOnlyTable() Table {
	t := Table{}
	for i, from := range forward {
		if IsTerminal(from) {
			continue
		}
		t.allow(from, forward[i+1:]...)
		t.allow(from, models.OrderStatusCancelled)
	}
	t.allow(models.OrderStatusDelivered, models.OrderStatusReturned)
	return t
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (Table, error) {
	switch name {
	case "", PolicyPermissive:
		return PermissiveTable(), nil
	case PolicyForwardOnly:
		return ForwardOnlyTable(), nil
	default:
		return nil, fmt.Errorf("unknown transition policy %q", name)
	}
}
