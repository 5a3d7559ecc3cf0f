package terminal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/platform/services/order/internal/models"
)

func TestOrderViewShow(t *testing.T) {
	f := newFixture(t, "")
	order := f.shop.add(models.OrderStatusShipped)

	require.NoError(t, f.view.Run(context.Background(), []string{"order", order.ID.String()}))
	out := f.out.String()
	assert.Contains(t, out, "Order "+order.OrderNumber)
	assert.Contains(t, out, "Status: shipped")
	assert.Contains(t, out, "Order placed")
	assert.Regexp(t, `(?s)pending.*shipped`, out)
}

func TestOrderViewShowNotFound(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.view.Run(context.Background(), []string{"order", uuid.NewString()}))
	assert.Contains(t, f.out.String(), "Order not found.")
}

func TestOrderViewList(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.view.Run(context.Background(), []string{"orders"}))
	assert.Contains(t, f.out.String(), "No orders yet.")

	order := f.shop.add(models.OrderStatusConfirmed)
	require.NoError(t, f.view.Run(context.Background(), []string{"orders", "1"}))
	out := f.out.String()
	assert.Contains(t, out, order.OrderNumber)
	assert.Contains(t, out, "Page 1 of 1 (1 orders)")
}

func TestOrderViewCancel(t *testing.T) {
	t.Run("pending order is cancelled", func(t *testing.T) {
		f := newFixture(t, "")
		order := f.shop.add(models.OrderStatusPending)

		require.NoError(t, f.view.Run(context.Background(), []string{"cancel", order.ID.String()}))
		out := f.out.String()
		assert.Contains(t, out, "Order "+order.OrderNumber+" cancelled.")
		assert.Contains(t, out, "Cancelled by customer")
		assert.Equal(t, models.OrderStatusCancelled, f.shop.get(order.ID).OrderStatus)
	})

	t.Run("shipped order shows the rejected transition", func(t *testing.T) {
		f := newFixture(t, "")
		order := f.shop.add(models.OrderStatusShipped)

		require.NoError(t, f.view.Run(context.Background(), []string{"cancel", order.ID.String()}))
		assert.Contains(t, f.out.String(),
			"This order can no longer be changed: invalid status transition from shipped to cancelled")
		assert.Equal(t, models.OrderStatusShipped, f.shop.get(order.ID).OrderStatus)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, "")

		require.NoError(t, f.view.Run(context.Background(), []string{"cancel", uuid.NewString()}))
		assert.Contains(t, f.out.String(), "Order not found.")
	})
}

func TestOrderViewUpdateStatus(t *testing.T) {
	f := newFixture(t, "")
	order := f.shop.add(models.OrderStatusProcessing)

	args := []string{"status", order.ID.String(), "shipped", "BD123", "BlueDart"}
	require.NoError(t, f.view.Run(context.Background(), args))
	assert.Contains(t, f.out.String(), "Order "+order.OrderNumber+" is now shipped.")
	assert.Equal(t, "BD123", f.shop.get(order.ID).TrackingNumber)
	assert.Equal(t, "BlueDart", f.shop.get(order.ID).Carrier)
}

func TestOrderViewInvoice(t *testing.T) {
	f := newFixture(t, "")
	order := f.shop.add(models.OrderStatusDelivered)

	require.NoError(t, f.view.Run(context.Background(), []string{"invoice", order.ID.String()}))
	assert.Contains(t, f.out.String(), "<h1>Invoice "+order.OrderNumber+"</h1>")

	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, f.view.Run(context.Background(), []string{"invoice", order.ID.String(), path}))
	assert.Contains(t, f.out.String(), "Invoice saved to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 "+order.OrderNumber, string(data))
}

func TestOrderViewUsage(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for _, args := range [][]string{
		nil,
		{"orders", "zero"},
		{"order"},
		{"status", uuid.NewString()},
		{"refund", uuid.NewString()},
	} {
		assert.ErrorIs(t, f.view.Run(ctx, args), ErrUsage, "%v", args)
	}

	err := f.view.Run(ctx, []string{"order", "not-a-uuid"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsage)
}
