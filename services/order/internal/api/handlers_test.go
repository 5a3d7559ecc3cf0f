package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/platform/services/order/internal/auth"
	"github.com/storefront/platform/services/order/internal/invoice"
	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/service"
)

// headerAuthorizer trusts X-User / X-Account-Type headers.
type headerAuthorizer struct{}

func (headerAuthorizer) RequireAccountType(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, accountType := c.GetHeader("X-User"), c.GetHeader("X-Account-Type")
		if user == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}
		for _, a := range allowed {
			if a == accountType {
				auth.SetPrincipal(c, user, accountType)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	}
}

type stubService struct {
	order     *models.Order
	err       error
	principal service.Principal
	filter    models.ListFilter
	update    models.UpdateStatusRequest
	actor     string
	customer  string
}

func (s *stubService) CreateOrder(_ context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error) {
	s.customer = customerID
	if s.err != nil {
		return nil, s.err
	}
	o := *s.order
	o.PaymentMethod = req.PaymentMethod
	return &o, nil
}

func (s *stubService) GetOrder(_ context.Context, _ uuid.UUID, p service.Principal) (*models.Order, error) {
	s.principal = p
	return s.order, s.err
}

func (s *stubService) ListOrders(_ context.Context, p service.Principal, f models.ListFilter) (*models.OrderList, error) {
	s.principal, s.filter = p, f
	if s.err != nil {
		return nil, s.err
	}
	return &models.OrderList{Orders: []models.Order{*s.order}, Pagination: models.Pagination{Page: 1, Limit: 10, Total: 1, Pages: 1}}, nil
}

func (s *stubService) CancelOrder(_ context.Context, _ uuid.UUID, p service.Principal) (*models.Order, error) {
	s.principal = p
	return s.order, s.err
}

func (s *stubService) UpdateOrderStatus(_ context.Context, _ uuid.UUID, req models.UpdateStatusRequest, actor string) (*models.Order, error) {
	s.update, s.actor = req, actor
	return s.order, s.err
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-20261016-DEADBEEF",
		CustomerID:  "cust-1",
		Items: []models.OrderItem{
			{ProductRef: "p-1", Name: "Kurta", UnitPrice: decimal.RequireFromString("800"), Quantity: 1},
		},
		Subtotal:      decimal.RequireFromString("800"),
		Total:         decimal.RequireFromString("800"),
		Currency:      "INR",
		PaymentMethod: models.PaymentMethodCOD,
		PaymentStatus: models.PaymentStatusPending,
		OrderStatus:   models.OrderStatusPending,
		CreatedAt:     time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	h := NewOrderHandler(svc, invoice.NewInvoiceGenerator("Storefront Retail"), logger)
	RegisterRoutes(router, h, headerAuthorizer{}, "internal-secret")
	return router
}

func do(router http.Handler, method, path, user, accountType string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
		req.Header.Set("X-Account-Type", accountType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createPayload() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Items: []models.OrderItem{
			{ProductRef: "p-1", Name: "Kurta", UnitPrice: decimal.RequireFromString("800"), Quantity: 1},
		},
		ShippingAddress: models.ShippingAddress{
			FullName: "Jane Doe", AddressLine1: "12 MG Road", City: "Pune", State: "MH",
			PinCode: "411001", Phone: "9800000000", Email: "jane@example.com",
		},
		PaymentMethod: models.PaymentMethodUPI,
		Subtotal:      decimal.RequireFromString("800"),
		Total:         decimal.RequireFromString("800"),
	}
}

func TestCreateOrderHandler(t *testing.T) {
	t.Run("customer creates an order", func(t *testing.T) {
		svc := &stubService{order: sampleOrder()}
		w := do(newTestRouter(svc), http.MethodPost, "/api/orders", "cust-1", auth.AccountTypeCustomer, createPayload())

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "cust-1", svc.customer)
		var got models.Order
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, models.PaymentMethodUPI, got.PaymentMethod)
	})

	t.Run("binding rejects a wallet payment", func(t *testing.T) {
		payload := createPayload()
		payload.PaymentMethod = "wallet"
		w := do(newTestRouter(&stubService{order: sampleOrder()}), http.MethodPost, "/api/orders", "cust-1", auth.AccountTypeCustomer, payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("admins cannot check out", func(t *testing.T) {
		w := do(newTestRouter(&stubService{order: sampleOrder()}), http.MethodPost, "/api/orders", "adm-1", auth.AccountTypeAdmin, createPayload())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("totals mismatch is a bad request", func(t *testing.T) {
		svc := &stubService{err: fmt.Errorf("%w: total does not match", service.ErrInvalidOrder)}
		w := do(newTestRouter(svc), http.MethodPost, "/api/orders", "cust-1", auth.AccountTypeCustomer, createPayload())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "total does not match")
	})
}

func TestErrorMapping(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{name: "not found", err: fmt.Errorf("%w: %s", service.ErrNotFound, id), status: http.StatusNotFound, body: `{"error":"order not found"}`},
		{name: "forbidden", err: service.ErrForbidden, status: http.StatusForbidden},
		{name: "shipped", err: fmt.Errorf("%w: order is shipped", lifecycle.ErrInvalidTransition), status: http.StatusConflict},
		{name: "unexpected", err: fmt.Errorf("connection refused"), status: http.StatusInternalServerError, body: `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newTestRouter(&stubService{err: tt.err}), http.MethodPost, "/api/orders/"+id+"/cancel", "cust-1", auth.AccountTypeCustomer, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestGetOrderHandler(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	router := newTestRouter(svc)

	w := do(router, http.MethodGet, "/api/orders/not-a-uuid", "cust-1", auth.AccountTypeCustomer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/api/orders/"+svc.order.ID.String(), "adm-1", auth.AccountTypeAdmin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Principal{UserID: "adm-1", Admin: true}, svc.principal)

	w = do(router, http.MethodGet, "/api/orders/"+svc.order.ID.String(), "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListOrdersHandler(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	router := newTestRouter(svc)

	w := do(router, http.MethodGet, "/api/orders?page=2&limit=5&sort=-total&status=shipped", "cust-1", auth.AccountTypeCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.Limit)
	assert.Equal(t, "-total", svc.filter.Sort)
	require.NotNil(t, svc.filter.Status)
	assert.Equal(t, models.OrderStatusShipped, *svc.filter.Status)
	assert.False(t, svc.principal.Admin)

	var list models.OrderList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Pagination.Total)

	w = do(router, http.MethodGet, "/api/orders?page=zero", "cust-1", auth.AccountTypeCustomer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateOrderStatusHandler(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	router := newTestRouter(svc)
	path := "/api/admin/orders/" + svc.order.ID.String() + "/status"
	body := map[string]any{"status": "shipped", "trackingNumber": "BD1", "carrier": "BlueDart", "expectedVersion": 3}

	w := do(router, http.MethodPatch, path, "cust-1", auth.AccountTypeCustomer, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(router, http.MethodPatch, path, "adm-1", auth.AccountTypeAdmin, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "adm-1", svc.actor)
	assert.Equal(t, "BlueDart", svc.update.Carrier)
	require.NotNil(t, svc.update.ExpectedVersion)
	assert.EqualValues(t, 3, *svc.update.ExpectedVersion)

	svc.err = fmt.Errorf("%w: expected version 3, found 4", service.ErrVersionConflict)
	w = do(router, http.MethodPatch, path, "adm-1", auth.AccountTypeAdmin, body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInternalUpdateStatus(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	router := newTestRouter(svc)
	path := "/internal/orders/" + svc.order.ID.String() + "/status"

	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"delivered"}`))
	req.Header.Set("Authorization", "Bearer internal-secret")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, InternalActor, svc.actor)
	assert.Equal(t, models.OrderStatusDelivered, svc.update.Status)
}

func TestInvoiceHandler(t *testing.T) {
	svc := &stubService{order: sampleOrder()}
	router := newTestRouter(svc)
	path := "/api/orders/" + svc.order.ID.String() + "/invoice"

	w := do(router, http.MethodGet, path, "cust-1", auth.AccountTypeCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inv models.InvoiceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inv))
	assert.Equal(t, "ORD-20261016-DEADBEEF", inv.OrderNumber)
	assert.Contains(t, inv.HTML, "ORD-20261016-DEADBEEF")

	w = do(router, http.MethodGet, path+"?format=pdf", "cust-1", auth.AccountTypeCustomer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoice-ORD-20261016-DEADBEEF.pdf")

	w = do(router, http.MethodGet, path+"?format=docx", "cust-1", auth.AccountTypeCustomer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpenAPIDocument(t *testing.T) {
	w := do(newTestRouter(&stubService{}), http.MethodGet, "/api-docs/openapi.json", "", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	loaded, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, loaded.Validate(context.Background()))
	assert.Equal(t, "Order Service API", loaded.Info.Title)
	assert.NotNil(t, loaded.Paths.Find("/api/admin/orders/{id}/status"))
	assert.NotNil(t, loaded.Paths.Find("/api/orders/{id}/invoice"))
}
