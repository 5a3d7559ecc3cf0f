package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/platform/services/order/internal/models"
)

func newOrder(status models.OrderStatus) models.Order {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	history := Start(created)
	if status != models.OrderStatusPending {
		history = append(history, models.StatusEntry{Status: status, Timestamp: created.Add(time.Hour)})
	}
	return models.Order{
		OrderNumber:        "ORD-20261001-ABCDEF12",
		OrderStatus:        status,
		OrderStatusHistory: history,
		PaymentMethod:      models.PaymentMethodCOD,
		PaymentStatus:      models.PaymentStatusPending,
		CreatedAt:          created,
	}
}

func TestCustomerCanCancel(t *testing.T) {
	cases := map[models.OrderStatus]bool{
		models.OrderStatusPending:        true,
		models.OrderStatusConfirmed:      true,
		models.OrderStatusProcessing:     true,
		models.OrderStatusOutForDelivery: true,
		models.OrderStatusShipped:        false,
		models.OrderStatusDelivered:      false,
		models.OrderStatusCancelled:      false,
		models.OrderStatusReturned:       false,
		models.OrderStatus("lost"):       false,
	}
	for status, want := range cases {
		t.Run(string(status), func(t *testing.T) {
			assert.Equal(t, want, CustomerCanCancel(status))
		})
	}
}

func TestCancel(t *testing.T) {
	at := time.Date(2026, 10, 2, 12, 0, 0, 0, time.UTC)

	t.Run("pending order is cancelled with one new entry", func(t *testing.T) {
		order := newOrder(models.OrderStatusPending)
		before := len(order.OrderStatusHistory)

		got, err := Cancel(order, at)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCancelled, got.OrderStatus)
		require.Len(t, got.OrderStatusHistory, before+1)
		last := got.OrderStatusHistory[len(got.OrderStatusHistory)-1]
		assert.Equal(t, models.OrderStatusCancelled, last.Status)
		assert.Equal(t, at, last.Timestamp)
		assert.Len(t, order.OrderStatusHistory, before, "input history must not be touched")
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		order := newOrder(models.OrderStatusShipped)

		got, err := Cancel(order, at)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, order, got)
	})

	t.Run("paid order is refunded", func(t *testing.T) {
		order := newOrder(models.OrderStatusConfirmed)
		order.PaymentMethod = models.PaymentMethodCard
		order.PaymentStatus = models.PaymentStatusPaid

		got, err := Cancel(order, at)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusRefunded, got.PaymentStatus)
	})
}

func TestAdvance(t *testing.T) {
	at := time.Date(2026, 10, 3, 8, 30, 0, 0, time.UTC)

	t.Run("permissive policy accepts any move and grows history by one", func(t *testing.T) {
		order := newOrder(models.OrderStatusDelivered)
		policy := PermissiveTable()

		for _, target := range Statuses {
			next, err := Advance(policy, order, Change{Status: target, At: at})
			require.NoError(t, err, target)
			assert.Len(t, next.OrderStatusHistory, len(order.OrderStatusHistory)+1)
			assert.Equal(t, next.OrderStatus, next.OrderStatusHistory[len(next.OrderStatusHistory)-1].Status)
			order = next
		}
	})

	t.Run("forward-only policy rejects moving backwards", func(t *testing.T) {
		order := newOrder(models.OrderStatusShipped)

		_, err := Advance(ForwardOnlyTable(), order, Change{Status: models.OrderStatusConfirmed, At: at})
		assert.ErrorIs(t, err, ErrInvalidTransition)

		next, err := Advance(ForwardOnlyTable(), order, Change{Status: models.OrderStatusDelivered, At: at})
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusDelivered, next.OrderStatus)
	})

	t.Run("tracking is stored on shipped", func(t *testing.T) {
		order := newOrder(models.OrderStatusProcessing)

		next, err := Advance(PermissiveTable(), order, Change{
			Status:         models.OrderStatusShipped,
			TrackingNumber: "DL123456789IN",
			Carrier:        "Delhivery",
			Note:           "Handed to courier",
			At:             at,
		})
		require.NoError(t, err)
		assert.Equal(t, "DL123456789IN", next.TrackingNumber)
		assert.Equal(t, "Delhivery", next.Carrier)
		assert.Equal(t, "Handed to courier", next.OrderStatusHistory[len(next.OrderStatusHistory)-1].Note)
	})

	t.Run("tracking is rejected before shipping", func(t *testing.T) {
		order := newOrder(models.OrderStatusPending)

		_, err := Advance(PermissiveTable(), order, Change{
			Status:         models.OrderStatusConfirmed,
			TrackingNumber: "DL123",
			At:             at,
		})
		assert.ErrorIs(t, err, ErrTrackingNotAllowed)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := Advance(PermissiveTable(), newOrder(models.OrderStatusPending), Change{Status: "lost", At: at})
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})

	t.Run("cod delivery settles payment", func(t *testing.T) {
		next, err := Advance(PermissiveTable(), newOrder(models.OrderStatusOutForDelivery), Change{
			Status: models.OrderStatusDelivered,
			At:     at,
		})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, next.PaymentStatus)
	})
}

func TestForwardOnlyTable_TerminalStatesHaveNoEdges(t *testing.T) {
	table := ForwardOnlyTable()
	for _, to := range Statuses {
		assert.False(t, table.Allows(models.OrderStatusCancelled, to))
		assert.False(t, table.Allows(models.OrderStatusReturned, to))
	}
	assert.True(t, table.Allows(models.OrderStatusDelivered, models.OrderStatusReturned))
	assert.False(t, table.Allows(models.OrderStatusDelivered, models.OrderStatusCancelled))
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.True(t, p.Allows(models.OrderStatusDelivered, models.OrderStatusPending))

	p, err = PolicyByName(PolicyForwardOnly)
	require.NoError(t, err)
	assert.False(t, p.Allows(models.OrderStatusDelivered, models.OrderStatusPending))

	_, err = PolicyByName("strict")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	t.Run("sorted chronologically", func(t *testing.T) {
		base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		order := models.Order{
			OrderStatus: models.OrderStatusConfirmed,
			OrderStatusHistory: []models.StatusEntry{
				{Status: models.OrderStatusConfirmed, Timestamp: base.Add(time.Hour)},
				{Status: models.OrderStatusPending, Timestamp: base},
			},
		}
		got := History(order)
		require.Len(t, got, 2)
		assert.Equal(t, models.OrderStatusPending, got[0].Status)
		assert.Equal(t, models.OrderStatusConfirmed, got[1].Status)
	})

	t.Run("synthesized when empty", func(t *testing.T) {
		created := time.Date(2026, 9, 30, 18, 0, 0, 0, time.UTC)
		got := History(models.Order{OrderStatus: models.OrderStatusProcessing, CreatedAt: created})
		require.Len(t, got, 1)
		assert.Equal(t, models.OrderStatusProcessing, got[0].Status)
		assert.Equal(t, created, got[0].Timestamp)
	})
}

func TestParse(t *testing.T) {
	s, err := Parse("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusOutForDelivery, s)

	_, err = Parse("OUT_FOR_DELIVERY")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
