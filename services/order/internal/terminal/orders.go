package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/orderclient"
)

// ErrUsage is returned for an unknown command or missing arguments.
var ErrUsage = errors.New("usage: checkout [orders [page] | order <id> | cancel <id> | invoice <id> [file.pdf] | status <id> <status> [tracking] [carrier]]")

// OrderAPI is the order service as used by the console views.
type OrderAPI interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, q orderclient.ListQuery) (*models.OrderList, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest) (*models.Order, error)
	DownloadInvoice(ctx context.Context, id uuid.UUID) (*models.InvoiceResponse, error)
	DownloadInvoicePDF(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// OrderView renders orders on the console.
type OrderView struct {
	api     OrderAPI
	console *Console
}

func NewOrderView(api OrderAPI, console *Console) *OrderView {
	return &OrderView{api: api, console: console}
}

// Run dispatches one order command. Expected failures such as an unknown
// order are printed and reported as nil.
func (v *OrderView) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	if args[0] == "orders" {
		page := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return ErrUsage
			}
			page = n
		}
		return v.List(ctx, page)
	}

	if len(args) < 2 {
		return ErrUsage
	}
	id, err := uuid.Parse(args[1])
	if err != nil {
		return fmt.Errorf("invalid order ID %q: %w", args[1], err)
	}

	switch args[0] {
	case "order":
		return v.Show(ctx, id)
	case "cancel":
		return v.Cancel(ctx, id)
	case "invoice":
		path := ""
		if len(args) > 2 {
			path = args[2]
		}
		return v.Invoice(ctx, id, path)
	case "status":
		if len(args) < 3 {
			return ErrUsage
		}
		req := models.UpdateStatusRequest{Status: models.OrderStatus(args[2])}
		if len(args) > 3 {
			req.TrackingNumber = args[3]
		}
		if len(args) > 4 {
			req.Carrier = args[4]
		}
		return v.UpdateStatus(ctx, id, req)
	}
	return ErrUsage
}

// Show prints the order detail with its status history.
func (v *OrderView) Show(ctx context.Context, id uuid.UUID) error {
	order, err := v.api.GetOrder(ctx, id)
	if err != nil {
		return v.report(err)
	}
	v.render(order)
	return nil
}

func (v *OrderView) render(order *models.Order) {
	c := v.console
	c.Printf("\nOrder %s\n", order.OrderNumber)
	c.Printf("Status: %s   Payment: %s (%s)\n", order.OrderStatus, order.PaymentMethod, order.PaymentStatus)
	for _, item := range order.Items {
		c.Printf("  %d x %s  %s\n", item.Quantity, item.Name, item.LineTotal().StringFixed(2))
	}
	c.Printf("Subtotal %s  Shipping %s  Tax %s  Discount -%s\n",
		order.Subtotal.StringFixed(2), order.ShippingFee.StringFixed(2), order.Tax.StringFixed(2), order.Discount.StringFixed(2))
	c.Printf("Total %s %s\n", order.Currency, order.Total.StringFixed(2))
	if order.TrackingNumber != "" {
		c.Printf("Tracking: %s (%s)\n", order.TrackingNumber, order.Carrier)
	}
	c.Printf("History:\n")
	for _, entry := range lifecycle.History(*order) {
		line := fmt.Sprintf("  %s  %s", entry.Timestamp.Format("02 Jan 2006 15:04"), entry.Status)
		if entry.Note != "" {
			line += "  " + entry.Note
		}
		c.Printf("%s\n", line)
	}
}

// List prints one page of the caller's orders.
func (v *OrderView) List(ctx context.Context, page int) error {
	list, err := v.api.ListOrders(ctx, orderclient.ListQuery{Page: page})
	if err != nil {
		return v.report(err)
	}
	if len(list.Orders) == 0 {
		v.console.Printf("No orders yet.\n")
		return nil
	}
	for _, o := range list.Orders {
		v.console.Printf("%s  %s  %-16s %s %s\n", o.ID, o.OrderNumber, o.OrderStatus, o.Currency, o.Total.StringFixed(2))
	}
	p := list.Pagination
	v.console.Printf("Page %d of %d (%d orders)\n", p.Page, p.Pages, p.Total)
	return nil
}

// Cancel cancels the order and shows the result.
func (v *OrderView) Cancel(ctx context.Context, id uuid.UUID) error {
	order, err := v.api.CancelOrder(ctx, id)
	if err != nil {
		return v.report(err)
	}
	v.console.Printf("Order %s cancelled.\n", order.OrderNumber)
	v.render(order)
	return nil
}

// UpdateStatus moves the order to a new status (admin token required).
func (v *OrderView) UpdateStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest) error {
	order, err := v.api.UpdateOrderStatus(ctx, id, req)
	if err != nil {
		return v.report(err)
	}
	v.console.Printf("Order %s is now %s.\n", order.OrderNumber, order.OrderStatus)
	return nil
}

// Invoice prints the HTML invoice, or writes the PDF to path when given.
func (v *OrderView) Invoice(ctx context.Context, id uuid.UUID, path string) error {
	if path == "" {
		inv, err := v.api.DownloadInvoice(ctx, id)
		if err != nil {
			return v.report(err)
		}
		v.console.Printf("%s\n", inv.HTML)
		return nil
	}

	pdf, err := v.api.DownloadInvoicePDF(ctx, id)
	if err != nil {
		return v.report(err)
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	v.console.Printf("Invoice saved to %s\n", path)
	return nil
}

// report prints the customer-facing message for expected API failures.
func (v *OrderView) report(err error) error {
	var apiErr *orderclient.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode >= 500 {
		return err
	}
	switch {
	case errors.Is(err, orderclient.ErrNotFound):
		v.console.Printf("Order not found.\n")
	case errors.Is(err, orderclient.ErrConflict):
		v.console.Printf("This order can no longer be changed: %s\n", apiErr.Message)
	default:
		v.console.Printf("Request rejected: %s\n", apiErr.Message)
	}
	return nil
}
