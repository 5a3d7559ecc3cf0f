package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/storefront/platform/services/order/internal/auth"
	"github.com/storefront/platform/services/order/internal/invoice"
	"github.com/storefront/platform/services/order/internal/lifecycle"
	"github.com/storefront/platform/services/order/internal/models"
	"github.com/storefront/platform/services/order/internal/service"
)

// InternalActor is recorded for status changes made through the internal API.
const InternalActor = "internal"

// OrderService is the order lifecycle as used by the HTTP layer
type OrderService interface {
	CreateOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID, principal service.Principal) (*models.Order, error)
	ListOrders(ctx context.Context, principal service.Principal, filter models.ListFilter) (*models.OrderList, error)
	CancelOrder(ctx context.Context, id uuid.UUID, principal service.Principal) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, req models.UpdateStatusRequest, actor string) (*models.Order, error)
}

type OrderHandler struct {
	orderService OrderService
	invoiceGen   *invoice.InvoiceGenerator
	log          *logrus.Logger
}

func NewOrderHandler(orderService OrderService, invoiceGen *invoice.InvoiceGenerator, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		invoiceGen:   invoiceGen,
		log:          logger,
	}
}

// RegisterRoutes mounts the order endpoints on router
func RegisterRoutes(router gin.IRouter, h *OrderHandler, authz auth.Authorizer, internalToken string) {
	router.GET("/health", h.Health)
	router.GET("/api-docs", SwaggerUI)
	router.GET("/api-docs/openapi.json", OpenAPIJSON)

	anyone := authz.RequireAccountType(auth.AccountTypeCustomer, auth.AccountTypeAdmin)
	customer := authz.RequireAccountType(auth.AccountTypeCustomer)
	admin := authz.RequireAccountType(auth.AccountTypeAdmin)

	api := router.Group("/api")
	{
		api.POST("/orders", customer, h.CreateOrder)
		api.GET("/orders", anyone, h.ListOrders)
		api.GET("/orders/:id", anyone, h.GetOrder)
		api.POST("/orders/:id/cancel", customer, h.CancelOrder)
		api.GET("/orders/:id/invoice", anyone, h.GetInvoice)
		api.PATCH("/admin/orders/:id/status", admin, h.UpdateOrderStatus)
	}

	// service-to-service status updates (carrier webhooks)
	internal := router.Group("/internal", auth.InternalTokenAuth(internalToken))
	{
		internal.PATCH("/orders/:id/status", h.InternalUpdateStatus)
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := auth.GetUserID(c)
	order, err := h.orderService.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID, principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/orders
// Customers get their own orders; admins get every order.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := models.ListFilter{Sort: c.Query("sort")}

	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		filter.Page = p
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = l
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.OrderStatus(statusStr)
		filter.Status = &status
	}

	response, err := h.orderService.ListOrders(c.Request.Context(), principal(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelOrder handles POST /api/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), orderID, principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	h.updateStatus(c, userID)
}

// InternalUpdateStatus handles PATCH /internal/orders/:id/status
func (h *OrderHandler) InternalUpdateStatus(c *gin.Context) {
	h.updateStatus(c, InternalActor)
}

func (h *OrderHandler) updateStatus(c *gin.Context, actor string) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req, actor)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetInvoice handles GET /api/orders/:id/invoice
// Returns {html, orderNumber}; ?format=pdf downloads a PDF instead.
func (h *OrderHandler) GetInvoice(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), orderID, principal(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	switch c.DefaultQuery("format", "html") {
	case "pdf":
		buf, err := h.invoiceGen.GeneratePDF(order)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", order.OrderNumber))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	case "html":
		html, err := h.invoiceGen.GenerateHTML(order)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.InvoiceResponse{HTML: html, OrderNumber: order.OrderNumber})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be html or pdf"})
	}
}

// Health handles GET /health
func (h *OrderHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return uuid.Nil, false
	}
	return orderID, true
}

func principal(c *gin.Context) service.Principal {
	userID, _ := auth.GetUserID(c)
	accountType, _ := auth.GetAccountType(c)
	return service.Principal{UserID: userID, Admin: accountType == auth.AccountTypeAdmin}
}

// writeError maps domain errors onto HTTP responses
func (h *OrderHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, "order not found"
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "access denied: you can only access your own orders"
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrInvalidQuery),
		errors.Is(err, lifecycle.ErrUnknownStatus),
		errors.Is(err, lifecycle.ErrTrackingNotAllowed):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, service.ErrVersionConflict):
		status, message = http.StatusConflict, err.Error()
	}

	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": message})
}
