package orderclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/platform/services/order/internal/models"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestOrderClientCreateOrder(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req models.CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.PaymentMethodCOD, req.PaymentMethod)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.Order{ID: id, OrderNumber: "ORD-20261016-AB12CD34", Total: req.Total})
	}))
	defer srv.Close()

	client := NewOrderClient(srv.URL, "tok", quietLogger())
	order, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{
		PaymentMethod: models.PaymentMethodCOD,
		Total:         decimal.RequireFromString("10.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, id, order.ID)
	assert.Equal(t, "10.5", order.Total.String())
}

func TestOrderClientErrors(t *testing.T) {
	shipped := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/orders":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid order: order must contain at least one item"}`))
		case "/api/orders/" + shipped.String() + "/cancel":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"invalid transition: order is shipped"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"order not found"}`))
		}
	}))
	defer srv.Close()

	client := NewOrderClient(srv.URL, "", quietLogger())

	_, err := client.CreateOrder(context.Background(), models.CreateOrderRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid order: order must contain at least one item", apiErr.Message)

	_, err = client.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.CancelOrder(context.Background(), shipped)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestOrderClientListAndUpdate(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/orders":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			assert.Equal(t, "shipped", r.URL.Query().Get("status"))
			_ = json.NewEncoder(w).Encode(models.OrderList{
				Orders:     []models.Order{{ID: id}},
				Pagination: models.Pagination{Page: 2, Limit: 10, Total: 11, Pages: 2},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/admin/orders/"+id.String()+"/status":
			var req models.UpdateStatusRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			_ = json.NewEncoder(w).Encode(models.Order{ID: id, OrderStatus: req.Status, TrackingNumber: req.TrackingNumber})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL)
		}
	}))
	defer srv.Close()

	client := NewOrderClient(srv.URL, "", quietLogger())

	list, err := client.ListOrders(context.Background(), ListQuery{Page: 2, Status: models.OrderStatusShipped})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Pagination.Pages)

	order, err := client.UpdateOrderStatus(context.Background(), id, models.UpdateStatusRequest{
		Status: models.OrderStatusShipped, TrackingNumber: "BD1",
	})
	require.NoError(t, err)
	assert.Equal(t, "BD1", order.TrackingNumber)
}

func TestCartClient(t *testing.T) {
	var cleared bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"items":[{"productRef":"p-1","name":"Kurta","unitPrice":"800.00","quantity":2}],"discount":"0"}`))
		case http.MethodDelete:
			cleared = true
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	client := NewCartClient(srv.URL, "tok", quietLogger())

	cart, err := client.GetCart(context.Background())
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "1600.00", cart.Subtotal().StringFixed(2))

	require.NoError(t, client.ClearCart(context.Background()))
	assert.True(t, cleared)
}

func TestDownloadInvoicePDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pdf", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.3"))
	}))
	defer srv.Close()

	pdf, err := NewOrderClient(srv.URL, "", quietLogger()).DownloadInvoicePDF(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(pdf))
}
